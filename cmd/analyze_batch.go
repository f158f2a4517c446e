package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/popstats-cli/internal/metrics"
	"github.com/KaramelBytes/popstats-cli/internal/report"
	"github.com/KaramelBytes/popstats-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	abData        datasetFlags
	abFormat      string
	abOutDir      string
	abStrict      bool
	abMetricsFile string
	abJobs        int
	abQuiet       bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX datasets with progress output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		c := settings()
		opt, err := abData.options(cmd, c)
		if err != nil {
			return err
		}
		format, err := resolveFormat(cmd, abFormat, "", c)
		if err != nil {
			return err
		}
		if format.Binary() && abOutDir == "" {
			return fmt.Errorf("%s output requires --out-dir", format)
		}
		strict := c.Strict
		if cmd.Flags().Changed("strict") {
			strict = abStrict
		}
		metricsFile := c.MetricsFile
		if cmd.Flags().Changed("metrics-file") {
			metricsFile = abMetricsFile
		}
		if abJobs < 1 {
			return fmt.Errorf("invalid --jobs: %d (must be >= 1)", abJobs)
		}

		rec := metrics.NewRecorder()
		reports := make([]*report.Report, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(abJobs)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				rep, res, err := analyzeFile(path, opt, rec)
				if err != nil {
					return err
				}
				if strict {
					if ferr := res.Err(); ferr != nil {
						rec.ObserveFailure()
						return fmt.Errorf("strict mode: %s: %w", filepath.Base(path), ferr)
					}
				}
				rec.ObserveRun(res)
				reports[i] = rep
				return nil
			})
		}
		err = g.Wait()
		if metricsFile != "" {
			if werr := rec.WriteTextfile(metricsFile); werr != nil {
				logger.Warn("metrics export failed", zap.Error(werr))
			}
		}
		if err != nil {
			return err
		}

		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return fmt.Errorf("create out dir: %w", err)
			}
		}
		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			if abOutDir == "" {
				b, err := reports[i].Render(format)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				continue
			}
			// sequential so that colliding base names get distinct __N suffixes
			target := utils.UniquePath(abOutDir, utils.BaseName(path), ".stats"+format.Ext())
			b, err := reports[i].Render(format)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(target, b); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", target)
			}
		}
		if !abQuiet {
			fmt.Fprintf(out, "✓ Analyzed %d file(s)\n", total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abData.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "markdown", "report format: markdown|json|yaml|xlsx")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for <name>.stats.<ext> reports (stdout if omitted)")
	analyzeBatchCmd.Flags().BoolVar(&abStrict, "strict", false, "fail when any region of any file is degenerate")
	analyzeBatchCmd.Flags().StringVar(&abMetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	analyzeBatchCmd.Flags().IntVar(&abJobs, "jobs", 1, "number of files analyzed concurrently")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress lines (reports still print without --out-dir)")
}

// expandInputs resolves globs, keeps literal paths that exist, and returns a
// sorted list without duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}
