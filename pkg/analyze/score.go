package analyze

import "strings"

// Score weights. The vector is fixed: changing it invalidates every
// historical report.
const (
	weightTables     = 0.2
	weightOperators  = 0.1
	weightJoins      = 0.3
	weightSubqueries = 0.5
	weightCTEs       = 0.5
	weightCases      = 0.2
	weightUnions     = 0.4
	weightCrossJoins = 0.7
	weightRegexps    = 0.6
)

// regexpFunctions are summed together into Metrics.RegexpCount.
var regexpFunctions = []string{
	"regexp_substr",
	"regexp_replace",
	"regexp_instr",
	"regexp_count",
}

// operatorVocabulary is the fixed operator set behind SQLOperators.
var operatorVocabulary = []string{
	"json_extract_path",
	"nvl",
	"coalesce",
	"group by",
	"order by",
	"having",
	"distinct",
	"listagg",
	"split_part",
	"substring",
	"over",
	"date_trunc",
	"date_part",
	"json_parse",
	"json_serialize",
}

// Metrics holds the raw structural counts of one view plus the derived
// weighted score. Computed once; immutable.
type Metrics struct {
	JoinCount      int     `json:"join_cnt"`
	CrossJoinCount int     `json:"cross_join_cnt"`
	CaseCount      int     `json:"case_cnt"`
	UnionCount     int     `json:"union_cnt"`
	RegexpCount    int     `json:"regexp_cnt"`
	TablesUsed     int     `json:"tables_used_cnt"`
	SubqueriesUsed int     `json:"subqueries_used_cnt"`
	CTEsUsed       int     `json:"cte_used_cnt"`
	SQLOperators   int     `json:"sql_operators_cnt"`
	Score          float64 `json:"score"`
}

// Score computes complexity metrics for a statement. Textual counts are
// case-insensitive substring counts over the normalized SQL text;
// structural counts come from the filtered structure.
//
// JoinCount deliberately includes every "cross join" occurrence ("join"
// is a substring of "cross join") and both terms still enter the score
// independently. Kept for compatibility with existing reports.
func Score(st *Structure, sqlText string) Metrics {
	lower := strings.ToLower(sqlText)

	m := Metrics{
		JoinCount:      strings.Count(lower, "join"),
		CrossJoinCount: strings.Count(lower, "cross join"),
		CaseCount:      strings.Count(lower, "case"),
		UnionCount:     strings.Count(lower, "union"),
		TablesUsed:     len(st.Tables),
		SubqueriesUsed: len(st.Subqueries),
		CTEsUsed:       len(st.CTENames),
	}

	for _, fn := range regexpFunctions {
		m.RegexpCount += strings.Count(lower, fn)
	}
	for _, op := range operatorVocabulary {
		m.SQLOperators += strings.Count(lower, op)
	}

	m.Score = float64(m.TablesUsed)*weightTables +
		float64(m.SQLOperators)*weightOperators +
		float64(m.JoinCount)*weightJoins +
		float64(m.SubqueriesUsed)*weightSubqueries +
		float64(m.CTEsUsed)*weightCTEs +
		float64(m.CaseCount)*weightCases +
		float64(m.UnionCount)*weightUnions +
		float64(m.CrossJoinCount)*weightCrossJoins +
		float64(m.RegexpCount)*weightRegexps

	return m
}
