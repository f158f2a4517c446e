package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/popstats-cli/internal/config"
	"github.com/KaramelBytes/popstats-cli/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile       string
	debug         bool
	flagLogFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
	logger = zap.NewNop()

	buildLogger = logging.New
)

var rootCmd = &cobra.Command{
	Use:   "popstats",
	Short: "popstats: per-region population statistics from country datasets",
	Long: `popstats reads a country dataset (CSV, TSV or XLSX), cleans it, groups countries by region
and reports region-level statistics (standard error, cosine similarity) alongside
per-country population share, density and rank.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.popstats/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log encoding: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
	}
	cfg = c

	s := settings()
	lc := logging.Config{Level: s.LogLevel, Format: s.LogFormat}
	if debug {
		lc.Level = "debug"
	}
	if flagLogFormat != "" {
		lc.Format = flagLogFormat
	}
	l, err := buildLogger(lc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		l = zap.NewNop()
	}
	logger = l
}

// settings returns the loaded configuration, or the defaults when loading
// failed.
func settings() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return &cfgpkg.Global{
		OutputFormat:       "markdown",
		DecimalSeparator:   ".",
		ThousandsSeparator: ",",
		SheetIndex:         1,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}
