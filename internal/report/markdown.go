package report

import (
	"fmt"
	"strings"
)

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	}
	b.WriteString(fmt.Sprintf("Rows: %d (kept %d)\n", r.Rows, r.Records))
	b.WriteString(fmt.Sprintf("Regions: %d\n", len(r.Regions)))

	if len(r.Regions) > 0 {
		b.WriteString("\n[REGION STATISTICS]\n")
		for _, g := range r.Regions {
			b.WriteString(fmt.Sprintf("- %s (n=%d, population %d)", safeVal(g.Region), g.Countries, g.TotalPopulation))
			if g.Stats != nil {
				b.WriteString(fmt.Sprintf(": standard error %.4f, cosine similarity %.6f", g.Stats.StandardError, g.Stats.CosineSimilarity))
			} else {
				b.WriteString(": degenerate")
			}
			b.WriteString("\n")
		}
	}

	if len(r.Countries) > 0 {
		b.WriteString("\n[COUNTRY STATISTICS]\n")
		b.WriteString("| Region | Rank | Country | Population | Net Change | Share % | Density |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
		for _, c := range r.Countries {
			b.WriteString(fmt.Sprintf("| %s | %d | %s | %d | %d | %.4f | %.4f |\n",
				safeVal(c.Region), c.Rank, safeVal(c.Country), c.Population, c.NetChange, c.PopulationSharePct, c.Density))
		}
	}

	if r.Failed() {
		b.WriteString("\n[FAILURES]\n")
		for _, g := range r.Regions {
			if g.Failure == "" {
				continue
			}
			b.WriteString("- ")
			b.WriteString(g.Failure)
			b.WriteString("\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
