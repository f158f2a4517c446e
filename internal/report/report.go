package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/popstats-cli/internal/dataset"
	"github.com/KaramelBytes/popstats-cli/internal/stats"
)

// Format selects how a Report is rendered.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat accepts the format names and a few common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use markdown|json|yaml|xlsx)", s)
	}
}

// Ext returns the file extension used when writing this format.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ".md"
	}
}

// Binary reports whether the rendered output is unsuitable for a terminal.
func (f Format) Binary() bool { return f == FormatXLSX }

// RegionRow is one region in a report. Countries counts member records, so it
// agrees with TotalPopulation even when country names collide after
// normalization. Stats is nil when the region failed.
type RegionRow struct {
	Region          string             `json:"region" yaml:"region"`
	Countries       int                `json:"countries" yaml:"countries"`
	TotalPopulation int64              `json:"total_population" yaml:"total_population"`
	Stats           *stats.RegionStats `json:"stats,omitempty" yaml:"stats,omitempty"`
	Failure         string             `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// CountryRow is one country in a report.
type CountryRow struct {
	Region             string `json:"region" yaml:"region"`
	Country            string `json:"country" yaml:"country"`
	stats.CountryStats `yaml:",inline"`
}

// Report is a render-ready view of one pipeline run.
type Report struct {
	RunID     string       `json:"run_id" yaml:"run_id"`
	Name      string       `json:"file" yaml:"file"`
	Rows      int          `json:"rows" yaml:"rows"`
	Records   int          `json:"records" yaml:"records"`
	Regions   []RegionRow  `json:"regions" yaml:"regions"`
	Countries []CountryRow `json:"countries" yaml:"countries"`
	Warnings  []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// New builds a Report with regions in name order and countries ordered by
// region, then rank.
func New(t *dataset.Table, res *stats.Result, runID string) *Report {
	r := &Report{RunID: runID, Name: t.Name, Rows: t.Rows, Records: len(t.Records), Warnings: t.Warnings()}
	for _, key := range res.RegionKeys() {
		total := res.Totals[key]
		row := RegionRow{
			Region:          key,
			Countries:       total.Members,
			TotalPopulation: total.Population,
		}
		if rs, ok := res.Regions[key]; ok {
			rs := rs
			row.Stats = &rs
		}
		if err := res.Failures[key]; err != nil {
			row.Failure = err.Error()
		}
		r.Regions = append(r.Regions, row)

		countries := make([]CountryRow, 0, len(res.Countries[key]))
		for name, cs := range res.Countries[key] {
			countries = append(countries, CountryRow{Region: key, Country: name, CountryStats: cs})
		}
		sort.Slice(countries, func(i, j int) bool {
			if countries[i].Rank == countries[j].Rank {
				return countries[i].Country < countries[j].Country
			}
			return countries[i].Rank < countries[j].Rank
		})
		r.Countries = append(r.Countries, countries...)
	}
	return r
}

// Filter returns a copy restricted to the given regions (matched after
// normalization). An empty list returns r unchanged.
func (r *Report) Filter(regions []string) *Report {
	if len(regions) == 0 {
		return r
	}
	keep := make(map[string]bool, len(regions))
	for _, reg := range regions {
		keep[stats.NormalizeKey(reg)] = true
	}
	out := *r
	out.Regions = nil
	out.Countries = nil
	for _, row := range r.Regions {
		if keep[row.Region] {
			out.Regions = append(out.Regions, row)
		}
	}
	for _, row := range r.Countries {
		if keep[row.Region] {
			out.Countries = append(out.Countries, row)
		}
	}
	return &out
}

// Failed reports whether any region failed.
func (r *Report) Failed() bool {
	for _, row := range r.Regions {
		if row.Failure != "" {
			return true
		}
	}
	return false
}

// Render encodes the report in the given format.
func (r *Report) Render(f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(r.Markdown()), nil
	case FormatJSON:
		return r.JSON()
	case FormatYAML:
		return r.YAML()
	case FormatXLSX:
		return r.XLSX()
	default:
		return nil, fmt.Errorf("unsupported format: %s", f)
	}
}
