package stats

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/popstats-cli/internal/dataset"
)

// NormalizeKey folds case and trims surrounding whitespace. Region and
// country names are grouped and keyed by this form.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RegionIndex maps normalized region names to the positions of their member
// records. It is built once per run and shared by every statistic.
type RegionIndex struct {
	members map[string][]int
	keys    []string
}

// NewRegionIndex groups record positions by normalized region, preserving
// input order within each region.
func NewRegionIndex(records []dataset.Record) *RegionIndex {
	ix := &RegionIndex{members: make(map[string][]int)}
	for i, r := range records {
		key := NormalizeKey(r.Region)
		if _, ok := ix.members[key]; !ok {
			ix.keys = append(ix.keys, key)
		}
		ix.members[key] = append(ix.members[key], i)
	}
	sort.Strings(ix.keys)
	return ix
}

// Members returns the record positions for region, matched exactly after
// normalization. Unknown regions yield an empty slice.
func (ix *RegionIndex) Members(region string) []int {
	return ix.members[NormalizeKey(region)]
}

// Regions returns the distinct region keys in ascending order.
func (ix *RegionIndex) Regions() []string {
	out := make([]string, len(ix.keys))
	copy(out, ix.keys)
	return out
}

// Len reports the number of distinct regions.
func (ix *RegionIndex) Len() int { return len(ix.keys) }
