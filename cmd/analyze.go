package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/KaramelBytes/popstats-cli/internal/dataset"
	"github.com/KaramelBytes/popstats-cli/internal/metrics"
	"github.com/KaramelBytes/popstats-cli/internal/report"
	"github.com/KaramelBytes/popstats-cli/internal/stats"
	"github.com/KaramelBytes/popstats-cli/internal/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	anaData        datasetFlags
	anaFormat      string
	anaOutputPath  string
	anaRegions     []string
	anaStrict      bool
	anaMetricsFile string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Compute region and country statistics for one dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		opt, err := anaData.options(cmd, c)
		if err != nil {
			return err
		}
		format, err := resolveFormat(cmd, anaFormat, anaOutputPath, c)
		if err != nil {
			return err
		}
		if format.Binary() && anaOutputPath == "" {
			return fmt.Errorf("%s output requires --output", format)
		}
		strict := c.Strict
		if cmd.Flags().Changed("strict") {
			strict = anaStrict
		}
		metricsFile := c.MetricsFile
		if cmd.Flags().Changed("metrics-file") {
			metricsFile = anaMetricsFile
		}

		rec := metrics.NewRecorder()
		rep, res, err := analyzeFile(args[0], opt, rec)
		if err == nil {
			warnUnknownRegions(res, anaRegions)
			if strict {
				if ferr := failuresFor(res, anaRegions); ferr != nil {
					err = fmt.Errorf("strict mode: %w", ferr)
				}
			}
			if err != nil {
				rec.ObserveFailure()
			} else {
				rec.ObserveRun(res)
			}
		}
		if metricsFile != "" {
			if werr := rec.WriteTextfile(metricsFile); werr != nil {
				logger.Warn("metrics export failed", zap.Error(werr))
			}
		}
		if err != nil {
			return err
		}
		return emitReport(cmd, rep.Filter(anaRegions), format, anaOutputPath)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaData.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "markdown", "report format: markdown|json|yaml|xlsx")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report (required for xlsx)")
	analyzeCmd.Flags().StringSliceVar(&anaRegions, "region", nil, "only report these regions (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaStrict, "strict", false, "fail when any reported region is degenerate")
	analyzeCmd.Flags().StringVar(&anaMetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
}

// analyzeFile runs the load, clean and compute stages for one file.
func analyzeFile(path string, opt dataset.Options, rec *metrics.Recorder) (*report.Report, *stats.Result, error) {
	runID := uuid.NewString()
	l := logger.With(zap.String("run_id", runID), zap.String("file", path))

	tbl, err := dataset.Load(path, opt)
	if err != nil {
		rec.ObserveFailure()
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	l.Debug("dataset loaded", zap.Int("rows", tbl.Rows), zap.Int("processed", tbl.Processed), zap.Int("records", len(tbl.Records)))
	for _, reason := range tbl.DropReasons() {
		l.Debug("rows dropped", zap.String("reason", string(reason)), zap.Int("count", tbl.Dropped[reason]))
	}
	rec.ObserveLoad(tbl)

	start := time.Now()
	res := stats.Compute(tbl.Records)
	rec.ObserveResult(res, time.Since(start))
	l.Debug("statistics computed", zap.Int("regions", len(res.Regions)), zap.Int("degenerate", len(res.Failures)))
	for _, key := range res.RegionKeys() {
		if ferr := res.Failures[key]; ferr != nil {
			l.Warn("region skipped", zap.String("region", key), zap.Error(ferr))
		}
	}
	return report.New(tbl, res, runID), res, nil
}

// failuresFor joins the region failures that would appear in a report
// filtered to regions.
func failuresFor(res *stats.Result, regions []string) error {
	if len(regions) == 0 {
		return res.Err()
	}
	keys := map[string]struct{}{}
	for _, r := range regions {
		keys[stats.NormalizeKey(r)] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	var errs []error
	for _, k := range sorted {
		if err := res.Failures[k]; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func warnUnknownRegions(res *stats.Result, regions []string) {
	for _, r := range regions {
		if _, ok := res.Totals[stats.NormalizeKey(r)]; !ok {
			logger.Warn("region not found", zap.String("region", r))
		}
	}
}

// emitReport writes rep to outPath, or to stdout when outPath is empty.
func emitReport(cmd *cobra.Command, rep *report.Report, format report.Format, outPath string) error {
	b, err := rep.Render(format)
	if err != nil {
		return err
	}
	if outPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := utils.SafeWriteFile(outPath, b); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s report to %s\n", format, outPath)
	return nil
}
