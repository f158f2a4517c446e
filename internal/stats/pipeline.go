package stats

import (
	"errors"
	"sort"

	"github.com/KaramelBytes/popstats-cli/internal/dataset"
)

// RegionTotal summarizes region membership.
type RegionTotal struct {
	Members    int   `json:"members" yaml:"members"`
	Population int64 `json:"population" yaml:"population"`
}

// Result is the output of one pipeline run. Nothing in it is shared with
// other runs.
type Result struct {
	Regions   map[string]RegionStats
	Countries map[string]map[string]CountryStats
	Totals    map[string]RegionTotal
	// Failures holds per-region errors, e.g. *DegenerateRegionError.
	Failures map[string]error
}

// Compute indexes records by region once and derives region and country
// statistics from that index. An empty record set yields empty maps.
func Compute(records []dataset.Record) *Result {
	ix := NewRegionIndex(records)
	regions, failures := RegionStatistics(records, ix)
	res := &Result{
		Regions:   regions,
		Countries: CountryStatistics(records, ix),
		Totals:    make(map[string]RegionTotal, ix.Len()),
		Failures:  failures,
	}
	for _, key := range ix.Regions() {
		var t RegionTotal
		for _, idx := range ix.Members(key) {
			t.Members++
			t.Population += records[idx].Population
		}
		res.Totals[key] = t
	}
	return res
}

// RegionKeys returns every region seen in the run, sorted.
func (r *Result) RegionKeys() []string {
	keys := make([]string, 0, len(r.Totals))
	for k := range r.Totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Err joins the per-region failures in region order, or returns nil.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Failures))
	for k := range r.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	errs := make([]error, len(keys))
	for i, k := range keys {
		errs[i] = r.Failures[k]
	}
	return errors.Join(errs...)
}
