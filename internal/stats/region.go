package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/popstats-cli/internal/dataset"
	moremath "github.com/aclements/go-moremath/stats"
)

// ErrDegenerateRegion marks a region too small for a sample standard error.
var ErrDegenerateRegion = errors.New("region has fewer than two members")

// DegenerateRegionError reports a region whose standard error is undefined.
type DegenerateRegionError struct {
	Region  string
	Members int
}

func (e *DegenerateRegionError) Error() string {
	return fmt.Sprintf("degenerate region %q: %d member(s), standard error needs at least 2", e.Region, e.Members)
}

func (e *DegenerateRegionError) Unwrap() error { return ErrDegenerateRegion }

// RegionStats holds the per-region aggregates.
type RegionStats struct {
	StandardError    float64 `json:"standard_error" yaml:"standard_error"`
	CosineSimilarity float64 `json:"cosine_similarity" yaml:"cosine_similarity"`
}

// RegionStatistics computes RegionStats for every indexed region. Regions that
// cannot be computed are left out of the stats map and reported in failures.
func RegionStatistics(records []dataset.Record, ix *RegionIndex) (map[string]RegionStats, map[string]error) {
	out := make(map[string]RegionStats, ix.Len())
	failures := make(map[string]error)
	for _, key := range ix.Regions() {
		members := ix.Members(key)
		pops := make([]float64, len(members))
		areas := make([]float64, len(members))
		for i, idx := range members {
			pops[i] = float64(records[idx].Population)
			areas[i] = records[idx].LandArea
		}
		se, err := StandardError(pops)
		if err != nil {
			failures[key] = &DegenerateRegionError{Region: key, Members: len(members)}
			continue
		}
		out[key] = RegionStats{
			StandardError:    se,
			CosineSimilarity: CosineSimilarity(pops, areas),
		}
	}
	return out, failures
}

// StandardError returns s/√n rounded to 4 decimals, where s is the sample
// standard deviation (n-1 divisor). It fails with ErrDegenerateRegion for n < 2.
func StandardError(xs []float64) (float64, error) {
	n := len(xs)
	if n < 2 {
		return 0, ErrDegenerateRegion
	}
	sd := moremath.Sample{Xs: xs}.StdDev()
	return round4(sd / math.Sqrt(float64(n))), nil
}

// CosineSimilarity between two vectors. Returns 0 if dimensions mismatch or
// either vector has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// round4 rounds half away from zero to 4 decimal places.
func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
