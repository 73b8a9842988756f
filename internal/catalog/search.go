package catalog

import (
	"sort"
	"strings"
)

// SortKey orders search results.
type SortKey string

const (
	SortRecency SortKey = "recency" // newest first, undated last
	SortName    SortKey = "name"    // display name ascending
)

// ParseSortKey falls back to SortRecency for unknown values.
func ParseSortKey(s string) SortKey {
	if SortKey(strings.ToLower(strings.TrimSpace(s))) == SortName {
		return SortName
	}
	return SortRecency
}

// Filter is the user's current category, device and text selection.
type Filter struct {
	Category string  `json:"category" example:"all"`
	Device   string  `json:"device" example:"all"`
	Query    string  `json:"query" example:"x86"`
	Sort     SortKey `json:"sort" example:"recency"`
}

// DefaultFilter shows everything, newest first.
func DefaultFilter() Filter {
	return Filter{Category: FilterAll, Device: FilterAll, Sort: SortRecency}
}

// Search returns the records matching f in a fresh, never-nil slice.
// The input slice is not modified.
func Search(records []BuildRecord, f Filter) []BuildRecord {
	query := strings.ToLower(f.Query)
	out := make([]BuildRecord, 0, len(records))
	for _, r := range records {
		if !isAll(f.Category) && string(r.Category) != f.Category {
			continue
		}
		if !isAll(f.Device) && string(r.Device) != f.Device {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(r.DisplayName), query) {
			continue
		}
		out = append(out, r)
	}

	if f.Sort == SortName {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].DisplayName < out[j].DisplayName
		})
	} else {
		// zero times are before every real date, so undated builds sink
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		})
	}
	return out
}

func isAll(v string) bool {
	return v == "" || v == FilterAll
}
