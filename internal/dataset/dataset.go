package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Record is one cleaned country row. Population and LandArea are always
// strictly positive once a Record leaves this package.
type Record struct {
	Country    string  `json:"country" yaml:"country"`
	Population int64   `json:"population" yaml:"population"`
	NetChange  int64   `json:"net_change" yaml:"net_change"`
	LandArea   float64 `json:"land_area" yaml:"land_area"`
	Region     string  `json:"region" yaml:"region"`
}

// Options controls how a dataset file is read.
type Options struct {
	// MaxRows limits data rows processed; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
	// Numeric parsing locale. A zero DecimalSeparator means '.'; a zero
	// ThousandsSeparator only strips spaces.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection. SheetName wins over SheetIndex (1-based).
	SheetName  string
	SheetIndex int
}

// DefaultOptions returns options suitable for the usual population exports.
func DefaultOptions() Options {
	return Options{
		DecimalSeparator:   '.',
		ThousandsSeparator: ',',
		SheetIndex:         1,
	}
}

// DropReason names why a raw row did not survive cleaning.
type DropReason string

const (
	DropDuplicate   DropReason = "duplicate country"
	DropMissing     DropReason = "missing value"
	DropInvalid     DropReason = "invalid number"
	DropNonPositive DropReason = "non-positive population or land area"
)

var dropOrder = []DropReason{DropDuplicate, DropMissing, DropInvalid, DropNonPositive}

// Table is the cleaned content of one dataset file.
type Table struct {
	Name      string
	Rows      int
	Processed int
	Records   []Record
	Dropped   map[DropReason]int
}

// DropReasons returns the reasons with a non-zero count in a stable order.
func (t *Table) DropReasons() []DropReason {
	var out []DropReason
	for _, r := range dropOrder {
		if t.Dropped[r] > 0 {
			out = append(out, r)
		}
	}
	return out
}

// Warnings renders row-level notes for reports.
func (t *Table) Warnings() []string {
	var out []string
	if t.Processed < t.Rows {
		out = append(out, fmt.Sprintf("processed only %d/%d rows due to MaxRows", t.Processed, t.Rows))
	}
	for _, r := range t.DropReasons() {
		out = append(out, fmt.Sprintf("dropped %d row(s): %s", t.Dropped[r], r))
	}
	return out
}

// Load reads a CSV/TSV or XLSX file and returns its cleaned records.
func Load(path string, opt Options) (*Table, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		header, rows, err = readXLSX(path, opt)
	} else {
		header, rows, err = readCSV(path, opt)
	}
	if err != nil {
		return nil, err
	}
	return FromRows(filepath.Base(path), header, rows, opt)
}

// FromRows resolves the required columns in header and cleans rows into a Table.
// An empty header yields an empty Table.
func FromRows(name string, header []string, rows [][]string, opt Options) (*Table, error) {
	t := &Table{Name: name, Dropped: map[DropReason]int{}}
	if len(header) == 0 {
		return t, nil
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = len(rows)
	}
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		t.Rows++
		if t.Processed >= maxRows {
			continue
		}
		t.Processed++
		rec, reason := cleanRow(row, cols, seen, opt)
		if reason != "" {
			t.Dropped[reason]++
			continue
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}
