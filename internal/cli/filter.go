package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ppiankov/qcacontra/internal/logging"
	"github.com/ppiankov/qcacontra/internal/model"
	"github.com/ppiankov/qcacontra/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataPath  string
	tablePath string
	outPath   string
	noCache   bool
)

// filterCmd represents the filter command
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "List contradictory cases of a truth table",
	Long: `Filter reads a calibrated dataset and its truth table and prints every case
that belongs to a selected truth table row while its outcome membership is
below 0.5.

Rows:
  consistent    rows coded 1 on the outcome
  inconsistent  rows coded 0 on the outcome
  both          both of the above (default)

Unknown case labels (listed by the table, absent from the dataset) fail the
run under the strict policy and are skipped and reported under lenient.

Example:
  qcacontra filter --data lipset.csv --table lipset_tt.json
  qcacontra filter --data lipset.xlsx --sheet calibrated --table tt.yaml --rows consistent
  qcacontra filter --data lipset.csv --table tt.json --policy lenient --format markdown --out report.md`,
	Args:    cobra.NoArgs,
	PreRunE: bindFilterFlags,
	RunE:    runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringVarP(&dataPath, "data", "d", "", "dataset file (.csv, .tsv, .xlsx, .json)")
	filterCmd.Flags().StringVarP(&tablePath, "table", "t", "", "truth table file (.json, .yaml)")
	filterCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")
	filterCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	addFilterFlags(filterCmd)
	filterCmd.Flags().StringP("format", "f", "table", "output format: table, json, yaml, markdown")

	_ = filterCmd.MarkFlagRequired("data")
	_ = filterCmd.MarkFlagRequired("table")
}

// addFilterFlags registers the flags shared by filter and batch
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("rows", "r", "both", "rows to inspect: consistent, inconsistent, both")
	cmd.Flags().String("policy", "strict", "unknown case labels: strict (fail) or lenient (skip)")
	cmd.Flags().String("outcome", "", "outcome column (default: the truth table's outcome)")
	cmd.Flags().String("label-column", "", "dataset column holding case labels (default: first column)")
	cmd.Flags().String("sheet", "", "XLSX sheet (default: first sheet)")
}

var sharedFlagKeys = map[string]string{
	"filter.rows":        "rows",
	"filter.policy":      "policy",
	"filter.outcome":     "outcome",
	"input.label_column": "label-column",
	"input.sheet":        "sheet",
}

func bindFilterFlags(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, sharedFlagKeys); err != nil {
		return err
	}
	return bindFlags(cmd, map[string]string{"output.format": "format"})
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	rows, err := model.ParseRowClass(cfg.Filter.Rows)
	if err != nil {
		return err
	}
	format, err := pipeline.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	if outPath != "" && !cmd.Flags().Changed("format") {
		format = pipeline.FormatForPath(outPath, format)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Output.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := p.Run(ctx, pipeline.Analysis{
		DataPath:  dataPath,
		TablePath: tablePath,
		Rows:      rows,
	})
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer()
	if outPath == "" {
		return renderer.Render(cmd.OutOrStdout(), report, format)
	}

	if err := renderer.RenderFile(report, outPath, format); err != nil {
		return err
	}
	logger.Debug("report written", zap.String("path", outPath), zap.String("format", format))
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Report written to %s (%d contradictions)\n", outPath, report.Summary.Contradictions)
	return nil
}
