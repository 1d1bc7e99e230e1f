package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/qcacontra/internal/logging"
	"github.com/ppiankov/qcacontra/internal/model"
	"github.com/ppiankov/qcacontra/internal/pipeline"
	"github.com/ppiankov/qcacontra/internal/worker"
	"github.com/spf13/cobra"
)

var (
	outputDir    string
	batchFormat  string
	batchTimeout time.Duration
	batchNoCache bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Run many filter analyses from a manifest in parallel",
	Long: `Batch runs every analysis listed in a YAML manifest concurrently and writes
one report per analysis to the output directory.

Manifest format:
  analyses:
    - name: lipset-consistent
      data: lipset.csv
      table: lipset_tt.json
      rows: consistent
    - data: lipset.csv
      table: lipset_tt.yaml

Relative paths are resolved against the manifest's directory. Entries
without rows use --rows.

Example:
  qcacontra batch analyses.yaml
  qcacontra batch analyses.yaml --concurrency 8 --output-dir ./reports --format markdown`,
	Args:    cobra.ExactArgs(1),
	PreRunE: bindBatchFlags,
	RunE:    runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntP("concurrency", "c", 0, "number of concurrent workers (default: number of CPUs)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./qcacontra-reports", "output directory for reports")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "json", "report format: table, json, yaml, markdown")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchNoCache, "no-cache", false, "disable the result cache")
	addFilterFlags(batchCmd)
}

func bindBatchFlags(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, sharedFlagKeys); err != nil {
		return err
	}
	return bindFlags(cmd, map[string]string{"concurrency.workers": "concurrency"})
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	stderr := cmd.ErrOrStderr()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchNoCache {
		cfg.Cache.Enabled = false
	}

	rows, err := model.ParseRowClass(cfg.Filter.Rows)
	if err != nil {
		return err
	}
	format, err := pipeline.ParseFormat(batchFormat)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Output.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  qcacontra Batch Processing\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Manifest:     %s\n", manifest)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "  Policy:       %s\n", cfg.Filter.Policy)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(stderr, "\n")

	analyses, err := worker.ReadManifest(manifest, rows)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	paths, err := reportPaths(analyses, outputDir, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, logger)

	results := processor.ProcessAnalyses(ctx, analyses)

	renderer := pipeline.NewRenderer()
	failures := 0
	for i, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(stderr, "✗ %s: %v\n", result.Analysis.Name, result.Error)
			continue
		}

		if err := renderer.RenderFile(result.Report, paths[i], format); err != nil {
			failures++
			fmt.Fprintf(stderr, "✗ %s: %v\n", result.Analysis.Name, err)
			continue
		}
		renderer.RenderSummary(stderr, result.Report)
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d analyses\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", len(results)-failures)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if failures > 0 {
		return fmt.Errorf("%d of %d analyses failed", failures, len(results))
	}
	return nil
}

// reportPaths maps each analysis to its report file. Distinct names can
// sanitize to the same file, so collisions fail before anything runs.
func reportPaths(analyses []pipeline.Analysis, dir, format string) ([]string, error) {
	paths := make([]string, len(analyses))
	owners := make(map[string]string, len(analyses))
	for i, a := range analyses {
		file := sanitizeFilename(a.Name) + extensionFor(format)
		// case-insensitive filesystems
		key := strings.ToLower(file)
		if prev, dup := owners[key]; dup {
			return nil, fmt.Errorf("analyses %q and %q would both write %s", prev, a.Name, file)
		}
		owners[key] = a.Name
		paths[i] = filepath.Join(dir, file)
	}
	return paths, nil
}

func extensionFor(format string) string {
	switch format {
	case pipeline.FormatJSON:
		return ".json"
	case pipeline.FormatYAML:
		return ".yaml"
	case pipeline.FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename makes an analysis name safe to use as a file name
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		s = "analysis"
	}
	for len(s) > 100 {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s
}
