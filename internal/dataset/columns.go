package dataset

import (
	"fmt"
	"regexp"
	"strings"
)

type column int

const (
	colCountry column = iota
	colPopulation
	colNetChange
	colLandArea
	colRegion
	numColumns
)

// Canonical header names, as exported by the usual population datasets.
var columnNames = [numColumns]string{"Country", "Population", "Net Change", "Land Area", "Regions"}

var columnAliases = map[string]column{
	"region":         colRegion,
	"country name":   colCountry,
	"country/region": colCountry,
}

// MissingColumnError reports a required column absent from the header.
type MissingColumnError struct {
	Column string
	Header []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q (have: %s)", e.Column, strings.Join(e.Header, ", "))
}

// resolveColumns maps each required column to its position in header.
func resolveColumns(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	byName := make(map[string]column, numColumns)
	for c, name := range columnNames {
		byName[headerKey(name)] = column(c)
	}
	for alias, c := range columnAliases {
		byName[alias] = c
	}
	for i, h := range header {
		name, _ := splitUnits(h)
		c, ok := byName[headerKey(name)]
		if !ok || idx[c] >= 0 {
			continue
		}
		idx[c] = i
	}
	for c, pos := range idx {
		if pos < 0 {
			clean := make([]string, len(header))
			for i, h := range header {
				clean[i] = strings.TrimSpace(h)
			}
			return idx, &MissingColumnError{Column: columnNames[c], Header: clean}
		}
	}
	return idx, nil
}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`),  // e.g., Land Area (Km²)
	regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), // e.g., Land Area [km2]
}

// splitUnits separates a trailing unit annotation from a header name.
func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
