package stats

import (
	"sort"

	"github.com/KaramelBytes/popstats-cli/internal/dataset"
)

// CountryStats holds the per-country figures within its region.
type CountryStats struct {
	Population         int64   `json:"population" yaml:"population"`
	NetChange          int64   `json:"net_change" yaml:"net_change"`
	PopulationSharePct float64 `json:"population_share_pct" yaml:"population_share_pct"`
	Density            float64 `json:"density" yaml:"density"`
	Rank               int     `json:"rank" yaml:"rank"`
}

// CountryStatistics computes CountryStats for every indexed region, keyed by
// region and then by normalized country name.
func CountryStatistics(records []dataset.Record, ix *RegionIndex) map[string]map[string]CountryStats {
	out := make(map[string]map[string]CountryStats, ix.Len())
	for _, key := range ix.Regions() {
		out[key] = regionCountries(records, ix.Members(key))
	}
	return out
}

type rankEntry struct {
	pos        int
	key        string
	population int64
	density    float64
}

// rankLess orders by population desc, density desc, country key asc, then
// input position, so equal rows still rank deterministically.
func rankLess(a, b rankEntry) bool {
	if a.population != b.population {
		return a.population > b.population
	}
	if a.density != b.density {
		return a.density > b.density
	}
	if a.key != b.key {
		return a.key < b.key
	}
	return a.pos < b.pos
}

func regionCountries(records []dataset.Record, members []int) map[string]CountryStats {
	entries := make([]rankEntry, len(members))
	var total int64
	for i, idx := range members {
		r := records[idx]
		total += r.Population
		entries[i] = rankEntry{
			pos:        i,
			key:        NormalizeKey(r.Country),
			population: r.Population,
			density:    density(r.Population, r.LandArea),
		}
	}

	sorted := make([]rankEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return rankLess(sorted[i], sorted[j]) })
	ranks := make([]int, len(entries))
	for i, e := range sorted {
		ranks[e.pos] = i + 1
	}

	// Duplicate country keys: the later record wins.
	out := make(map[string]CountryStats, len(entries))
	for i, idx := range members {
		r := records[idx]
		out[entries[i].key] = CountryStats{
			Population:         r.Population,
			NetChange:          r.NetChange,
			PopulationSharePct: share(r.Population, total),
			Density:            entries[i].density,
			Rank:               ranks[i],
		}
	}
	return out
}

func density(population int64, area float64) float64 {
	return round4(float64(population) / area)
}

func share(population, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round4(float64(population) / float64(total) * 100)
}
