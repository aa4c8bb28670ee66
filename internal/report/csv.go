package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// csvHeader is the stable column order of the CSV report.
var csvHeader = []string{
	"view_name",
	"sql_file_path",
	"score",
	"tables_used_cnt",
	"columns_cnt",
	"sql_operators_cnt",
	"join_cnt",
	"subqueries_used_cnt",
	"cte_used_cnt",
	"case_cnt",
	"union_cnt",
	"cross_join_cnt",
	"regexp_cnt",
	"columns",
	"tables_used",
	"cte_used",
	"subqueries_used",
	"size_mb",
	"rows_cnt",
	"used_columns",
	"error",
}

// WriteCSV writes records as pipe-delimited CSV with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	cw.Comma = '|'

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.ViewName,
			r.FilePath,
			strconv.FormatFloat(r.Metrics.Score, 'f', -1, 64),
			strconv.Itoa(r.Metrics.TablesUsed),
			strconv.Itoa(len(r.Columns)),
			strconv.Itoa(r.Metrics.SQLOperators),
			strconv.Itoa(r.Metrics.JoinCount),
			strconv.Itoa(r.Metrics.SubqueriesUsed),
			strconv.Itoa(r.Metrics.CTEsUsed),
			strconv.Itoa(r.Metrics.CaseCount),
			strconv.Itoa(r.Metrics.UnionCount),
			strconv.Itoa(r.Metrics.CrossJoinCount),
			strconv.Itoa(r.Metrics.RegexpCount),
			strings.Join(r.Columns, ","),
			strings.Join(r.TablesUsed, ","),
			strings.Join(r.CTEsUsed, ","),
			strings.Join(r.SubqueriesUsed, ","),
			formatFloatPtr(r.SizeMB),
			formatIntPtr(r.RowsCnt),
			strings.Join(r.UsedColumns, ","),
			r.Err,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", r.FilePath, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatIntPtr(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}
