package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/viewlens/internal/cli/config"
	"github.com/leapstack-labs/viewlens/internal/engine"
	"github.com/leapstack-labs/viewlens/internal/report"
	"github.com/leapstack-labs/viewlens/internal/warehouse"
	"github.com/leapstack-labs/viewlens/pkg/analyze"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	OutputFile   string
	DBSearch     bool
	ReportSchema string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score every SQL view definition in a folder",
		Long: `Scan a folder of view-definition files, extract each view's structural
metadata and report a weighted complexity score per view.

When a target table is configured, each view's references to that
table's columns are traced as well, through aliases and nested CTEs.
With --db-search the report is cross-referenced against the live
warehouse for column lists, on-disk size and row counts.`,
		Example: `  # Score every view under ./sql_code and write output.csv
  viewlens analyze

  # Score a different folder, JSON to stdout
  viewlens analyze --sql-dir views/ --output json

  # Enrich the report from the warehouse
  viewlens analyze --db-search --report-schema analytics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.OutputFile, "output-file", "", "CSV report destination (default: output.csv)")
	cmd.Flags().BoolVar(&opts.DBSearch, "db-search", false, "Cross-reference views against the live warehouse")
	cmd.Flags().StringVar(&opts.ReportSchema, "report-schema", "", "Warehouse schema the analyzed views live in")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	outputFile := cfg.OutputFile
	if cmd.Flags().Changed("output-file") {
		outputFile = opts.OutputFile
	}
	reportSchema := cfg.ReportSchema
	if cmd.Flags().Changed("report-schema") {
		reportSchema = opts.ReportSchema
	}
	dbSearch := cfg.DBSearch || opts.DBSearch

	engCfg := engine.Config{
		SQLDir:       cfg.SQLDir,
		Usage:        usageQuery(cfg.Target),
		ReportSchema: reportSchema,
		Workers:      cfg.Workers,
		Logger:       logger,
	}

	if dbSearch {
		if !cfg.Warehouse.Configured() {
			return fmt.Errorf("--db-search requires a warehouse connection (set warehouse.dsn or warehouse.host)")
		}
		client, err := warehouse.Connect(ctx, cfg.Warehouse.ConnString())
		if err != nil {
			return fmt.Errorf("failed to connect to warehouse: %w", err)
		}
		defer client.Close()
		engCfg.Metadata = client
	}

	eng, err := engine.New(engCfg)
	if err != nil {
		return err
	}

	records, err := eng.Analyze(ctx)
	if err != nil {
		return err
	}

	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		if err := report.WriteCSV(f, records); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("report written", "path", outputFile, "views", len(records))
	}

	switch cfg.Output {
	case "json":
		return report.RenderJSON(cmd.OutOrStdout(), records)
	case "csv":
		return report.WriteCSV(cmd.OutOrStdout(), records)
	default:
		report.RenderTable(cmd.OutOrStdout(), records)
	}
	return nil
}

// usageQuery builds the target-column query from config, nil when no
// target table is set.
func usageQuery(t config.TargetConfig) *analyze.UsageQuery {
	if t.Table == "" {
		return nil
	}
	return &analyze.UsageQuery{
		Schema:  t.Schema,
		Table:   t.Table,
		Columns: t.Columns,
	}
}
