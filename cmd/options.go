package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	cfgpkg "github.com/KaramelBytes/popstats-cli/internal/config"
	"github.com/KaramelBytes/popstats-cli/internal/dataset"
	"github.com/KaramelBytes/popstats-cli/internal/report"
	"github.com/spf13/cobra"
)

// datasetFlags are the parsing flags shared by analyze and analyze-batch.
// Unset flags fall back to the loaded configuration.
type datasetFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (by extension if omitted)")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to process (0 = unlimited)")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (f *datasetFlags) options(cmd *cobra.Command, c *cfgpkg.Global) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	changed := cmd.Flags().Changed

	delim := c.Delimiter
	if changed("delimiter") {
		delim = f.delimiter
	}
	d, err := parseDelimiter(delim)
	if err != nil {
		return opt, err
	}
	opt.Delimiter = d

	dec := c.DecimalSeparator
	if changed("decimal") {
		dec = f.decimal
	}
	if opt.DecimalSeparator, err = parseDecimal(dec, opt.DecimalSeparator); err != nil {
		return opt, err
	}
	thou := c.ThousandsSeparator
	if changed("thousands") {
		thou = f.thousands
	}
	if opt.ThousandsSeparator, err = parseThousands(thou, opt.ThousandsSeparator); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator == ',' && opt.ThousandsSeparator == ',' && !changed("thousands") {
		opt.ThousandsSeparator = '.'
	}
	if opt.DecimalSeparator == opt.ThousandsSeparator {
		return opt, fmt.Errorf("decimal and thousands separators must differ (both %q)", opt.DecimalSeparator)
	}

	opt.MaxRows = c.MaxRows
	if changed("max-rows") {
		opt.MaxRows = f.maxRows
	}
	if opt.MaxRows < 0 {
		return opt, fmt.Errorf("invalid --max-rows: %d", opt.MaxRows)
	}
	opt.SheetName = c.SheetName
	if changed("sheet-name") {
		opt.SheetName = f.sheetName
	}
	if c.SheetIndex > 0 {
		opt.SheetIndex = c.SheetIndex
	}
	if changed("sheet-index") {
		if f.sheetIndex < 1 {
			return opt, fmt.Errorf("invalid --sheet-index: %d (must be >= 1)", f.sheetIndex)
		}
		opt.SheetIndex = f.sheetIndex
	}
	return opt, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %s (use ','|';'|'tab')", s)
	}
}

func parseDecimal(s string, def rune) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	case "":
		return def, nil
	default:
		return 0, fmt.Errorf("unsupported decimal separator: %s (use '.'|'comma')", s)
	}
}

func parseThousands(s string, def rune) (rune, error) {
	// a lone space is meaningful here, so test it before trimming
	if s == " " {
		return ' ', nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ",":
		return ',', nil
	case ".":
		return '.', nil
	case "space":
		return ' ', nil
	case "":
		return def, nil
	default:
		return 0, fmt.Errorf("unsupported thousands separator: %s (use ','|'.'|'space')", s)
	}
}

// resolveFormat picks the report format: --format, then the --output
// extension, then the configured default.
func resolveFormat(cmd *cobra.Command, flagVal, outPath string, c *cfgpkg.Global) (report.Format, error) {
	if cmd.Flags().Changed("format") {
		return report.ParseFormat(flagVal)
	}
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".json":
		return report.FormatJSON, nil
	case ".yaml", ".yml":
		return report.FormatYAML, nil
	case ".xlsx":
		return report.FormatXLSX, nil
	case ".md":
		return report.FormatMarkdown, nil
	}
	return report.ParseFormat(c.OutputFormat)
}
