package report

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/popstats-cli/internal/utils"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// JSON marshals the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return utils.PrettyJSON(r)
}

// YAML marshals the report as YAML.
func (r *Report) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	regionsSheet   = "Regions"
	countriesSheet = "Countries"
)

var (
	regionsHeader   = []interface{}{"Region", "Countries", "Total Population", "Standard Error", "Cosine Similarity", "Failure"}
	countriesHeader = []interface{}{"Region", "Rank", "Country", "Population", "Net Change", "Share %", "Density"}
)

// XLSX renders the report as a workbook with a Regions and a Countries sheet.
func (r *Report) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", regionsSheet); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	if _, err := f.NewSheet(countriesSheet); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	regionRows := [][]interface{}{regionsHeader}
	for _, g := range r.Regions {
		row := []interface{}{g.Region, g.Countries, g.TotalPopulation, nil, nil, g.Failure}
		if g.Stats != nil {
			row[3] = g.Stats.StandardError
			row[4] = g.Stats.CosineSimilarity
		}
		regionRows = append(regionRows, row)
	}
	if err := writeRows(f, regionsSheet, regionRows); err != nil {
		return nil, err
	}

	countryRows := [][]interface{}{countriesHeader}
	for _, c := range r.Countries {
		countryRows = append(countryRows, []interface{}{
			c.Region, c.Rank, c.Country, c.Population, c.NetChange, c.PopulationSharePct, c.Density,
		})
	}
	if err := writeRows(f, countriesSheet, countryRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("xlsx %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("xlsx %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
