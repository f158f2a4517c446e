package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/popstats-cli/internal/logging"
	"github.com/KaramelBytes/popstats-cli/internal/stats"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const worldCSV = "Country,Population,Net Change,Land Area,Regions\n" +
	"A,1000,10,10,Asia\n" +
	"B,2000,-20,5,asia\n" +
	"Fiji,896445,6492,18270,Oceania\n"

// resetFlags clears values and Changed state left over from earlier runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// setup isolates HOME and captures logs.
func setup(t *testing.T) (string, *observer.ObservedLogs) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	core, logs := observer.New(zapcore.DebugLevel)
	prev := buildLogger
	buildLogger = func(logging.Config) (*zap.Logger, error) { return zap.New(core), nil }
	t.Cleanup(func() { buildLogger = prev })
	return home, logs
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestAnalyzeMarkdownToStdout(t *testing.T) {
	home, logs := setup(t)
	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)

	out, err := runCmd(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[REGION STATISTICS]")
	assert.Contains(t, out, "- asia (n=2, population 3000): standard error 500.0000, cosine similarity 0.800000")
	assert.Contains(t, out, "- oceania (n=1, population 896445): degenerate")
	assert.Contains(t, out, "| oceania | 1 | fiji | 896445 | 6492 | 100.0000 | 49.0665 |")

	skipped := logs.FilterMessage("region skipped").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "oceania", skipped[0].ContextMap()["region"])
	assert.NotEmpty(t, skipped[0].ContextMap()["run_id"])
}

func TestAnalyzeJSONFileAndRegionFilter(t *testing.T) {
	home, _ := setup(t)
	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)
	outPath := filepath.Join(home, "reports", "world.json")

	out, err := runCmd(t, "analyze", path, "-o", outPath, "--region", "ASIA")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote json report to")

	b, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var rep struct {
		Regions []struct {
			Region string `json:"region"`
		} `json:"regions"`
		Countries []struct {
			Country string `json:"country"`
			Rank    int    `json:"rank"`
		} `json:"countries"`
	}
	require.NoError(t, json.Unmarshal(b, &rep))
	require.Len(t, rep.Regions, 1)
	assert.Equal(t, "asia", rep.Regions[0].Region)
	require.Len(t, rep.Countries, 2)
	assert.Equal(t, "b", rep.Countries[0].Country)
	assert.Equal(t, 1, rep.Countries[0].Rank)
}

func TestAnalyzeStrict(t *testing.T) {
	home, _ := setup(t)
	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)

	_, err := runCmd(t, "analyze", path, "--strict")
	require.Error(t, err)
	assert.True(t, errors.Is(err, stats.ErrDegenerateRegion))
	var de *stats.DegenerateRegionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "oceania", de.Region)

	_, err = runCmd(t, "analyze", path, "--strict", "--region", "asia")
	assert.NoError(t, err)
}

func TestAnalyzeXLSXRequiresOutput(t *testing.T) {
	home, _ := setup(t)
	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)

	_, err := runCmd(t, "analyze", path, "--format", "xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --output")

	xlsx := filepath.Join(home, "world.xlsx")
	_, err = runCmd(t, "analyze", path, "-o", xlsx)
	require.NoError(t, err)
	_, err = os.Stat(xlsx)
	assert.NoError(t, err)
}

func TestAnalyzeMissingColumn(t *testing.T) {
	home, _ := setup(t)
	path := writeFile(t, filepath.Join(home, "bad.csv"), "Country,Population\nA,1\n")

	_, err := runCmd(t, "analyze", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestAnalyzeMetricsFile(t *testing.T) {
	home, _ := setup(t)
	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)
	prom := filepath.Join(home, "popstats.prom")

	_, err := runCmd(t, "analyze", path, "--metrics-file", prom)
	require.NoError(t, err)
	b, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(b), `popstats_runs_total{outcome="degraded"} 1`)
	assert.Contains(t, string(b), "popstats_records_loaded_total 3")
}

func TestAnalyzeLocaleSeparators(t *testing.T) {
	home, _ := setup(t)
	body := "Country;Population;Net Change;Land Area;Regions\n" +
		"A;1.000;10;10,0;Asia\n" +
		"B;2.000;-20;5,0;Asia\n"
	path := writeFile(t, filepath.Join(home, "eu.csv"), body)

	out, err := runCmd(t, "analyze", path, "--delimiter", ";", "--decimal", "comma")
	require.NoError(t, err)
	assert.Contains(t, out, "| asia | 1 | b | 2000 | -20 | 66.6667 | 400.0000 |")

	_, err = runCmd(t, "analyze", path, "--delimiter", "|")
	assert.Error(t, err)
}

func TestAnalyzeBatchCollisionsAndJobs(t *testing.T) {
	home, _ := setup(t)
	writeFile(t, filepath.Join(home, "d1", "world.csv"), worldCSV)
	writeFile(t, filepath.Join(home, "d2", "world.csv"), worldCSV)
	outDir := filepath.Join(home, "out")

	out, err := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "world.csv"),
		"--out-dir", outDir, "--format", "json", "--jobs", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[1/2] Processing world.csv...")
	assert.Contains(t, out, "✓ Analyzed 2 file(s)")

	for _, name := range []string{"world.stats.json", "world__2.stats.json"} {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.True(t, json.Valid(b), name)
	}

	out, err = runCmd(t, "analyze-batch", filepath.Join(home, "d1", "world.csv"), "--out-dir", outDir, "--quiet")
	require.NoError(t, err)
	assert.Empty(t, out)
	_, err = os.Stat(filepath.Join(outDir, "world.stats.md"))
	assert.NoError(t, err)
}

func TestAnalyzeBatchQuietPrintsReports(t *testing.T) {
	home, _ := setup(t)
	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)

	out, err := runCmd(t, "analyze-batch", "--quiet", "--format", "json", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "Processing")
	assert.NotContains(t, out, "✓ Analyzed")
	var rep struct {
		File    string `json:"file"`
		Regions []struct {
			Region string `json:"region"`
		} `json:"regions"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &rep))
	assert.Equal(t, "world.csv", rep.File)
	assert.Len(t, rep.Regions, 2)
}

func TestAnalyzeStrictMetricsOutcome(t *testing.T) {
	home, _ := setup(t)
	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)
	prom := filepath.Join(home, "strict.prom")

	_, err := runCmd(t, "analyze", path, "--strict", "--metrics-file", prom)
	require.Error(t, err)
	b, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(b), `popstats_runs_total{outcome="failed"} 1`)
	assert.NotContains(t, string(b), `outcome="degraded"`)

	batchProm := filepath.Join(home, "batch.prom")
	_, err = runCmd(t, "analyze-batch", path, "--strict", "--metrics-file", batchProm)
	require.Error(t, err)
	b, err = os.ReadFile(batchProm)
	require.NoError(t, err)
	assert.Contains(t, string(b), `popstats_runs_total{outcome="failed"} 1`)
}

func TestAnalyzeBatchErrors(t *testing.T) {
	home, _ := setup(t)

	_, err := runCmd(t, "analyze-batch", filepath.Join(home, "nothing*.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files matched")

	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)
	_, err = runCmd(t, "analyze-batch", path, "--strict")
	require.Error(t, err)
	assert.True(t, errors.Is(err, stats.ErrDegenerateRegion))

	_, err = runCmd(t, "analyze-batch", path, "--jobs", "0")
	assert.Error(t, err)
}

func TestConfigSetShowAndPrecedence(t *testing.T) {
	home, _ := setup(t)
	path := writeFile(t, filepath.Join(home, "world.csv"), worldCSV)

	_, err := runCmd(t, "config", "set", "output_format", "json")
	require.NoError(t, err)
	_, err = runCmd(t, "config", "set", "thousands_separator", "space")
	require.NoError(t, err)

	out, err := runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "output_format: json")
	assert.Contains(t, out, `thousands_separator: " "`)

	out, err = runCmd(t, "analyze", path)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(strings.TrimSpace(out))))

	t.Setenv("POPSTATS_OUTPUT_FORMAT", "markdown")
	out, err = runCmd(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[DATASET SUMMARY]")

	out, err = runCmd(t, "analyze", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "run_id:")

	_, err = runCmd(t, "config", "set", "nope", "1")
	assert.Error(t, err)
	_, err = runCmd(t, "config", "set", "sheet_index", "0")
	assert.Error(t, err)
}
