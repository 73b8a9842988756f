package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func sampleCatalog() []BuildRecord {
	return []BuildRecord{
		{DisplayName: "openwrt-x86-64", Category: CategoryOpenWrt, Device: DeviceX86_64, PublishedAt: day(2)},
		{DisplayName: "immortalwrt-s905x", Category: CategoryImmortalWrt, Device: DeviceS905, PublishedAt: day(5)},
		{DisplayName: "openwrt-undated", Category: CategoryOpenWrt, Device: DeviceUnknown},
		{DisplayName: "OpenWrt-S905-Lite", Category: CategoryOpenWrt, Device: DeviceS905, PublishedAt: day(3)},
	}
}

func names(recs []BuildRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.DisplayName)
	}
	return out
}

func TestSearchAllSortsByRecency(t *testing.T) {
	got := Search(sampleCatalog(), DefaultFilter())
	assert.Equal(t, []string{
		"immortalwrt-s905x",
		"OpenWrt-S905-Lite",
		"openwrt-x86-64",
		"openwrt-undated",
	}, names(got))
}

func TestSearchFilters(t *testing.T) {
	cat := sampleCatalog()

	got := Search(cat, Filter{Category: "openwrt", Device: FilterAll})
	assert.Equal(t, []string{"OpenWrt-S905-Lite", "openwrt-x86-64", "openwrt-undated"}, names(got))

	got = Search(cat, Filter{Category: FilterAll, Device: "s905"})
	assert.Equal(t, []string{"immortalwrt-s905x", "OpenWrt-S905-Lite"}, names(got))

	got = Search(cat, Filter{Category: "openwrt", Device: "s905", Query: "s905"})
	assert.Equal(t, []string{"OpenWrt-S905-Lite"}, names(got))

	got = Search(cat, Filter{Query: "S905X"})
	assert.Equal(t, []string{"immortalwrt-s905x"}, names(got), "query is case-insensitive")
}

func TestSearchNoMatchIsEmptyNotNil(t *testing.T) {
	got := Search(sampleCatalog(), Filter{Query: "nothing-like-this"})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = Search(nil, DefaultFilter())
	assert.NotNil(t, got)
}

func TestSearchSortByName(t *testing.T) {
	got := Search(sampleCatalog(), Filter{Sort: SortName})
	assert.Equal(t, []string{
		"OpenWrt-S905-Lite",
		"immortalwrt-s905x",
		"openwrt-undated",
		"openwrt-x86-64",
	}, names(got))
}

func TestSearchIsSubsetAndDoesNotMutate(t *testing.T) {
	cat := sampleCatalog()
	before := names(cat)
	all := names(Search(cat, DefaultFilter()))

	filters := []Filter{
		{Category: "immortalwrt"},
		{Device: "x86_64", Query: "64"},
		{Category: "openwrt", Device: "unknown"},
		{Query: "wrt"},
	}
	for _, f := range filters {
		for _, n := range names(Search(cat, f)) {
			assert.Contains(t, all, n)
		}
	}
	assert.Equal(t, before, names(cat))
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, SortName, ParseSortKey(" Name "))
	assert.Equal(t, SortRecency, ParseSortKey("recency"))
	assert.Equal(t, SortRecency, ParseSortKey("bogus"))
}
