package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/popstats-cli/internal/config"
	"github.com/KaramelBytes/popstats-cli/internal/report"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set popstats configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "output_format: %s\n", c.OutputFormat)
		fmt.Fprintf(out, "strict: %t\n", c.Strict)
		if c.MetricsFile != "" {
			fmt.Fprintf(out, "metrics_file: %s\n", c.MetricsFile)
		}
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		}
		fmt.Fprintf(out, "decimal_separator: %q\n", c.DecimalSeparator)
		fmt.Fprintf(out, "thousands_separator: %q\n", c.ThousandsSeparator)
		fmt.Fprintf(out, "max_rows: %d\n", c.MaxRows)
		if c.SheetName != "" {
			fmt.Fprintf(out, "sheet_name: %s\n", c.SheetName)
		}
		fmt.Fprintf(out, "sheet_index: %d\n", c.SheetIndex)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := applySetting(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// applySetting validates val and stores it in canonical form.
func applySetting(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "output_format":
		f, err := report.ParseFormat(val)
		if err != nil {
			return err
		}
		c.OutputFormat = string(f)
	case "strict":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for strict: %v", val)
		}
		c.Strict = b
	case "metrics_file":
		c.MetricsFile = val
	case "delimiter":
		d, err := parseDelimiter(val)
		if err != nil {
			return err
		}
		c.Delimiter = ""
		if d != 0 {
			c.Delimiter = string(d)
		}
	case "decimal_separator":
		r, err := parseDecimal(val, '.')
		if err != nil {
			return err
		}
		c.DecimalSeparator = string(r)
	case "thousands_separator":
		r, err := parseThousands(val, ',')
		if err != nil {
			return err
		}
		c.ThousandsSeparator = string(r)
	case "max_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for max_rows: %v", val)
		}
		c.MaxRows = i
	case "sheet_name":
		c.SheetName = val
	case "sheet_index":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for sheet_index: %v (must be >= 1)", val)
		}
		c.SheetIndex = i
	case "log_level":
		switch v := strings.ToLower(val); v {
		case "debug", "info", "warn", "error":
			c.LogLevel = v
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	case "log_format":
		switch v := strings.ToLower(val); v {
		case "console", "json":
			c.LogFormat = v
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
