package catalog

import (
	"errors"
	"regexp"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog/log"
)

// ErrEmptyCatalog means the feed loaded fine but nothing survived filtering.
var ErrEmptyCatalog = errors.New("no firmware builds available")

var allowedExt = regexp.MustCompile(`(?i)\.(img|bin|gz|tar|zip|xz|7z|img\.gz|tar\.gz|tar\.xz|bin\.gz|bz2)$`)

const excludedKeyword = "rootfs"

// Builder turns raw releases into a de-duplicated catalog.
type Builder struct {
	Normalizer Normalizer
}

// Build classifies every eligible asset and keeps the first record for each
// display name (case-insensitive, trimmed). It returns ErrEmptyCatalog when
// no record survives.
func (b Builder) Build(releases []RawRelease) ([]BuildRecord, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]BuildRecord, 0)
	skipped, dupes := 0, 0

	for _, rel := range releases {
		published := releaseTime(rel)
		for _, asset := range rel.Assets {
			rec, ok := b.record(asset, published)
			if !ok {
				skipped++
				continue
			}
			if !seen.Add(dedupKey(rec.DisplayName)) {
				dupes++
				continue
			}
			out = append(out, rec)
		}
	}

	log.Debug().
		Int("releases", len(releases)).
		Int("builds", len(out)).
		Int("skipped", skipped).
		Int("duplicates", dupes).
		Msg("Catalog built")

	if len(out) == 0 {
		return nil, ErrEmptyCatalog
	}
	return out, nil
}

// Eligible reports whether an asset name passes the extension allow-list
// and the rootfs exclusion.
func Eligible(name string) bool {
	return allowedExt.MatchString(name) && !strings.Contains(strings.ToLower(name), excludedKeyword)
}

func (b Builder) record(a RawAsset, published time.Time) (BuildRecord, bool) {
	if a.Name == "" || a.BrowserDownloadURL == "" || !Eligible(a.Name) {
		return BuildRecord{}, false
	}
	display := b.Normalizer.Normalize(a.Name)
	if display == "" {
		return BuildRecord{}, false
	}
	return BuildRecord{
		DisplayName:   display,
		OriginalName:  a.Name,
		Category:      ClassifyFirmware(a.Name),
		Device:        ClassifyDevice(a.Name),
		URL:           a.BrowserDownloadURL,
		Size:          max(a.Size, 0),
		DownloadCount: max(a.DownloadCount, 0),
		PublishedAt:   published,
	}, true
}

func dedupKey(displayName string) string {
	return strings.ToLower(strings.TrimSpace(displayName))
}

// releaseTime picks published_at, then created_at. Unparseable values are
// treated as missing.
func releaseTime(rel RawRelease) time.Time {
	for _, s := range []string{rel.PublishedAt, rel.CreatedAt} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
		return time.Time{}
	}
	return time.Time{}
}

// Facets holds per-category and per-device record counts.
type Facets struct {
	Total      int              `json:"total"`
	Categories map[Category]int `json:"categories"`
	Devices    map[Device]int   `json:"devices"`
}

// CountFacets counts records per category and device. Every known category
// and device is present, with zero when unused.
func CountFacets(records []BuildRecord) Facets {
	f := Facets{
		Total:      len(records),
		Categories: make(map[Category]int, len(Categories)),
		Devices:    make(map[Device]int, len(deviceRules)+1),
	}
	for _, c := range Categories {
		f.Categories[c] = 0
	}
	for _, d := range Devices() {
		f.Devices[d] = 0
	}
	for _, r := range records {
		f.Categories[r.Category]++
		f.Devices[r.Device]++
	}
	return f
}
