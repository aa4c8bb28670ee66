// Package engine orchestrates the per-view analysis pipeline:
// discovery, normalization, metadata extraction, scoring, usage tracing
// and optional warehouse cross-referencing.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/viewlens/internal/loader"
	"github.com/leapstack-labs/viewlens/internal/report"
	"github.com/leapstack-labs/viewlens/internal/warehouse"
	"github.com/leapstack-labs/viewlens/pkg/analyze"
	"github.com/leapstack-labs/viewlens/pkg/sqlmeta"
)

// Config holds engine configuration.
type Config struct {
	// SQLDir is the root folder scanned for .sql view definitions.
	SQLDir string
	// Usage enables target-column tracing when non-nil.
	Usage *analyze.UsageQuery
	// Metadata enables live warehouse cross-referencing when non-nil.
	Metadata warehouse.MetadataStore
	// ReportSchema is the warehouse schema the analyzed views live in.
	ReportSchema string
	// Workers bounds the analysis worker pool (defaults to NumCPU).
	Workers int
	// Logger is the structured logger (discard if nil).
	Logger *slog.Logger
}

// Engine analyzes a corpus of SQL view definitions.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	tracer *analyze.Tracer
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.SQLDir == "" {
		return nil, fmt.Errorf("sql directory is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		tracer: analyze.NewTracer(logger),
	}, nil
}

// Analyze runs the pipeline over every discovered file. Units are
// analyzed concurrently but the returned records preserve discovery
// order. No single unit's failure aborts the corpus: a bad file yields
// a degraded record with its diagnostic attached.
func (e *Engine) Analyze(ctx context.Context) ([]report.Record, error) {
	start := time.Now()

	paths, err := loader.Discover(e.cfg.SQLDir)
	if err != nil {
		return nil, err
	}
	e.logger.Info("discovered sql files", "dir", e.cfg.SQLDir, "count", len(paths))

	records := make([]report.Record, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			records[i] = e.analyzeUnit(gctx, path)
			return nil
		})
	}
	// Workers never return errors; per-unit failures live on the records.
	_ = g.Wait()

	e.logger.Info("analysis completed",
		"units", len(records),
		"duration_ms", time.Since(start).Milliseconds())

	return records, nil
}

// analyzeUnit runs the full pipeline for one file.
func (e *Engine) analyzeUnit(ctx context.Context, path string) report.Record {
	e.logger.Debug("analyzing", "path", path)

	rec := report.Record{FilePath: path}

	unit, err := loader.Load(path)
	if err != nil {
		e.logger.Warn("failed to load sql file", "path", path, "error", err)
		rec.Err = err.Error()
		return rec
	}
	rec.ViewName = unit.ViewName
	if unit.ViewName == "" {
		e.logger.Warn("view declaration header not found", "path", path)
	}

	st := e.extract(unit)
	if st == nil {
		// Parse failure: empty structure, textual counts still apply.
		st = analyze.EmptyStructure(unit.Statement)
		rec.Err = "sql parse failed"
	}

	rec.Metrics = analyze.Score(st, unit.Statement)
	rec.TablesUsed = st.Tables
	rec.CTEsUsed = st.CTENames
	rec.SubqueriesUsed = st.Subqueries

	if e.cfg.Usage != nil {
		aliases := analyze.ResolveAliases(st)
		used := e.tracer.Trace(st, aliases, *e.cfg.Usage)
		rec.UsedColumns = analyze.SortedColumns(used)
	}

	if e.cfg.Metadata != nil && unit.ViewName != "" {
		e.crossReference(ctx, &rec, unit.ViewName)
	}

	return rec
}

// extract parses the unit's statement; a parse failure is logged and
// reported as nil so the caller can degrade gracefully.
func (e *Engine) extract(unit *loader.SourceUnit) *analyze.Structure {
	stmt, err := sqlmeta.Parse(unit.Statement)
	if err != nil {
		e.logger.Warn("sql parse failed", "path", unit.Path, "error", err)
		return nil
	}
	return analyze.ExtractStructure(stmt)
}

// crossReference fills the warehouse-backed fields of a record. Lookup
// failures degrade the fields to null; they never fail the unit.
func (e *Engine) crossReference(ctx context.Context, rec *report.Record, viewName string) {
	table := viewName
	if i := strings.LastIndexByte(viewName, '.'); i >= 0 {
		table = viewName[i+1:]
	}

	cols, err := e.cfg.Metadata.Columns(ctx, e.cfg.ReportSchema, table)
	if err != nil {
		e.logger.Warn("column lookup failed", "view", viewName, "error", err)
	} else {
		rec.Columns = cols
	}

	size, err := e.cfg.Metadata.TableSizeMB(ctx, e.cfg.ReportSchema, table)
	if err != nil {
		e.logger.Warn("size lookup failed", "view", viewName, "error", err)
	} else {
		rec.SizeMB = &size
	}

	rows, err := e.cfg.Metadata.RowCount(ctx, e.cfg.ReportSchema, table)
	if err != nil {
		e.logger.Warn("row count lookup failed", "view", viewName, "error", err)
	} else {
		rec.RowsCnt = &rows
	}
}
