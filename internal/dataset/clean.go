package dataset

import (
	"math"
	"strconv"
	"strings"
)

// cleanRow validates one raw row. Duplicate detection runs first and on the
// trimmed country name, so a country whose first row is invalid is dropped
// entirely.
func cleanRow(row []string, cols [numColumns]int, seen map[string]struct{}, opt Options) (Record, DropReason) {
	field := func(c column) string {
		if i := cols[c]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	country := field(colCountry)
	if _, dup := seen[country]; dup {
		return Record{}, DropDuplicate
	}
	seen[country] = struct{}{}

	region := field(colRegion)
	rawPop, rawNet, rawArea := field(colPopulation), field(colNetChange), field(colLandArea)
	if country == "" || region == "" || rawPop == "" || rawNet == "" || rawArea == "" {
		return Record{}, DropMissing
	}
	pop, ok := parseWhole(rawPop, opt)
	if !ok {
		return Record{}, DropInvalid
	}
	net, ok := parseWhole(rawNet, opt)
	if !ok {
		return Record{}, DropInvalid
	}
	area, ok := parseNumeric(rawArea, opt)
	if !ok {
		return Record{}, DropInvalid
	}
	if pop <= 0 || area <= 0 {
		return Record{}, DropNonPositive
	}
	return Record{
		Country:    country,
		Population: pop,
		NetChange:  net,
		LandArea:   area,
		Region:     region,
	}, ""
}

// parseNumeric converts a locale-formatted number. Trailing percent signs and
// non-breaking spaces are ignored.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	thou := opt.ThousandsSeparator
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	raw = strings.ReplaceAll(raw, " ", "")
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseWhole is parseNumeric restricted to integral values that fit in int64.
func parseWhole(s string, opt Options) (int64, bool) {
	f, ok := parseNumeric(s, opt)
	if !ok || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
