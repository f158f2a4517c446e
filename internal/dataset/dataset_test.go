package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var populationRows = []string{
	"Country,Population,Net Change,Land Area (Km²),Regions",
	`China,"1,439,323,776","5,540,090","9,388,211",Asia`,
	"India,1380004385,13586631,2973190,Asia",
	"China,1,1,1,Asia",
	"Nowhere,abc,1,10,Europe",
	"Blank,100,,10,Europe",
	"Zero,0,0,10,Europe",
	"Tiny,100,-5,0,Europe",
	"Germany,83783942,132209,348560, Europe",
	"Half,12.5,0,10,Europe",
}

func writeFile(t *testing.T, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
	return path
}

func TestLoadCSVCleansRows(t *testing.T) {
	path := writeFile(t, "population.csv", populationRows)

	tbl, err := Load(path, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "population.csv", tbl.Name)
	assert.Equal(t, 9, tbl.Rows)
	assert.Equal(t, 9, tbl.Processed)
	require.Len(t, tbl.Records, 3)
	assert.Equal(t, Record{Country: "China", Population: 1439323776, NetChange: 5540090, LandArea: 9388211, Region: "Asia"}, tbl.Records[0])
	assert.Equal(t, "India", tbl.Records[1].Country)
	assert.Equal(t, Record{Country: "Germany", Population: 83783942, NetChange: 132209, LandArea: 348560, Region: "Europe"}, tbl.Records[2])

	assert.Equal(t, map[DropReason]int{
		DropDuplicate:   1,
		DropInvalid:     2,
		DropMissing:     1,
		DropNonPositive: 2,
	}, tbl.Dropped)
	assert.Equal(t, []string{
		"dropped 1 row(s): duplicate country",
		"dropped 1 row(s): missing value",
		"dropped 2 row(s): invalid number",
		"dropped 2 row(s): non-positive population or land area",
	}, tbl.Warnings())
}

func TestLoadCSVDuplicateOfInvalidRowIsDropped(t *testing.T) {
	path := writeFile(t, "dups.csv", []string{
		"Country,Population,Net Change,Land Area,Regions",
		"Chad,n/a,1,10,Africa",
		"Chad,100,1,10,Africa",
		"Mali,200,1,10,Africa",
	})
	tbl, err := Load(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "Mali", tbl.Records[0].Country)
	assert.Equal(t, 1, tbl.Dropped[DropInvalid])
	assert.Equal(t, 1, tbl.Dropped[DropDuplicate])
}

func TestLoadMissingColumn(t *testing.T) {
	path := writeFile(t, "broken.csv", []string{
		"Country,Population,Land Area,Regions",
		"Chad,100,10,Africa",
	})
	_, err := Load(path, DefaultOptions())
	require.Error(t, err)

	var mce *MissingColumnError
	require.True(t, errors.As(err, &mce), "want MissingColumnError, got %T", err)
	assert.Equal(t, "Net Change", mce.Column)
	assert.Contains(t, err.Error(), `missing required column "Net Change"`)
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)
	tbl, err := Load(path, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, tbl.Records)
	assert.Zero(t, tbl.Rows)
}

func TestLoadHeaderVariants(t *testing.T) {
	path := writeFile(t, "variants.tsv", []string{
		"\uFEFFcountry\tPOPULATION\tnet_change\tLand Area [km2]\tRegion",
		"Fiji\t896445\t6492\t18270\tOceania",
	})
	tbl, err := Load(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, Record{Country: "Fiji", Population: 896445, NetChange: 6492, LandArea: 18270, Region: "Oceania"}, tbl.Records[0])
}

func TestLoadLocaleSeparators(t *testing.T) {
	path := writeFile(t, "locale.csv", []string{
		"Country;Population;Net Change;Land Area;Regions",
		"Malta;441.543;1.171;320,5;Europe",
	})
	opt := DefaultOptions()
	opt.Delimiter = ';'
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'

	tbl, err := Load(path, opt)
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, int64(441543), tbl.Records[0].Population)
	assert.Equal(t, int64(1171), tbl.Records[0].NetChange)
	assert.InDelta(t, 320.5, tbl.Records[0].LandArea, 1e-9)
}

func TestLoadMaxRows(t *testing.T) {
	path := writeFile(t, "population.csv", populationRows)
	opt := DefaultOptions()
	opt.MaxRows = 2

	tbl, err := Load(path, opt)
	require.NoError(t, err)
	assert.Equal(t, 9, tbl.Rows)
	assert.Equal(t, 2, tbl.Processed)
	assert.Len(t, tbl.Records, 2)
	assert.Equal(t, []string{"processed only 2/9 rows due to MaxRows"}, tbl.Warnings())
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		opt  Options
		want float64
		ok   bool
	}{
		{"1,234", DefaultOptions(), 1234, true},
		// thousands separators are stripped wherever they appear
		{"1,5", DefaultOptions(), 15, true},
		{" 12.5% ", DefaultOptions(), 12.5, true},
		{"1 000", Options{}, 1000, true},
		{"-3", DefaultOptions(), -3, true},
		{"NaN", DefaultOptions(), 0, false},
		{"Inf", DefaultOptions(), 0, false},
		{"", DefaultOptions(), 0, false},
		{"N.A.", DefaultOptions(), 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumeric(tt.in, tt.opt)
		assert.Equal(t, tt.ok, ok, "parseNumeric(%q) ok", tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, "parseNumeric(%q)", tt.in)
		}
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Notes"))
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	rows := [][]interface{}{
		{"Country", "Population", "Net Change", "Land Area", "Regions"},
		{"Japan", 126476461, -383840, 364555, "Asia"},
		{"Nepal", 29136808, 543010, 143350, "Asia"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Data", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "population.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	opt := DefaultOptions()
	opt.SheetName = "data"
	tbl, err := Load(path, opt)
	require.NoError(t, err)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, Record{Country: "Japan", Population: 126476461, NetChange: -383840, LandArea: 364555, Region: "Asia"}, tbl.Records[0])

	opt = DefaultOptions()
	opt.SheetIndex = 2
	byIndex, err := Load(path, opt)
	require.NoError(t, err)
	assert.Equal(t, tbl.Records, byIndex.Records)

	opt.SheetName = "Missing"
	_, err = Load(path, opt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets: Notes, Data")
}
