package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/viewlens/internal/cli/config"
	"github.com/leapstack-labs/viewlens/internal/engine"
	"github.com/leapstack-labs/viewlens/internal/report"
	"github.com/leapstack-labs/viewlens/pkg/analyze"
)

// UsageOptions holds options for the usage command.
type UsageOptions struct {
	Schema  string
	Table   string
	Columns string
}

// NewUsageCommand creates the usage command.
func NewUsageCommand() *cobra.Command {
	opts := &UsageOptions{}

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Trace which columns of a target table each view references",
		Long: `For every view definition in the folder, report which columns of the
named target table the view actually references. References are
resolved through table aliases and followed into nested common table
expressions, so a column touched three CTE levels deep is still
attributed to the view.`,
		Example: `  # Which views touch orders.order_ts or orders.status?
  viewlens usage --target-schema analytics --target-table orders \
      --target-columns '["order_ts", "status"]'

  # Comma-separated columns work too
  viewlens usage --target-table orders --target-columns order_ts,status`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUsage(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "target-schema", "", "Schema of the target table")
	cmd.Flags().StringVar(&opts.Table, "target-table", "", "Target table whose column usage is traced")
	cmd.Flags().StringVar(&opts.Columns, "target-columns", "", "Target columns, JSON array or comma-separated")

	return cmd
}

func runUsage(cmd *cobra.Command, opts *UsageOptions) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	query := analyze.UsageQuery{
		Schema:  cfg.Target.Schema,
		Table:   cfg.Target.Table,
		Columns: cfg.Target.Columns,
	}
	if opts.Schema != "" {
		query.Schema = opts.Schema
	}
	if opts.Table != "" {
		query.Table = opts.Table
	}
	if opts.Columns != "" {
		cols, err := parseColumns(opts.Columns)
		if err != nil {
			return err
		}
		query.Columns = cols
	}
	if query.Table == "" {
		return fmt.Errorf("a target table is required (--target-table or target.table in config)")
	}
	if len(query.Columns) == 0 {
		return fmt.Errorf("target columns are required (--target-columns or target.columns in config)")
	}

	eng, err := engine.New(engine.Config{
		SQLDir:  cfg.SQLDir,
		Usage:   &query,
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	records, err := eng.Analyze(ctx)
	if err != nil {
		return err
	}

	matched := make([]report.Record, 0, len(records))
	for _, r := range records {
		if len(r.UsedColumns) > 0 {
			matched = append(matched, r)
		}
	}

	if cfg.Output == "json" {
		return report.RenderJSON(cmd.OutOrStdout(), matched)
	}

	out := cmd.OutOrStdout()
	target := query.Table
	if query.Schema != "" {
		target = query.Schema + "." + query.Table
	}
	if len(matched) == 0 {
		_, _ = fmt.Fprintf(out, "No views reference the tracked columns of %s\n", target)
		return nil
	}
	_, _ = fmt.Fprintf(out, "Views referencing %s (%d of %d):\n", target, len(matched), len(records))
	for _, r := range matched {
		name := r.ViewName
		if name == "" {
			name = r.FilePath
		}
		_, _ = fmt.Fprintf(out, "  %-40s %s\n", name, strings.Join(r.UsedColumns, ", "))
	}
	return nil
}

// parseColumns accepts either a JSON array of strings or a
// comma-separated list.
func parseColumns(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var cols []string
		if err := json.Unmarshal([]byte(s), &cols); err != nil {
			return nil, fmt.Errorf("invalid target columns %q: %w", s, err)
		}
		return cols, nil
	}
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols, nil
}
