package analyze

import "strings"

// sqlKeywords holds keyword tokens the raw alias mapping is known to
// pick up as phantom entries. Compared upper-case.
var sqlKeywords = map[string]struct{}{
	"SELECT":          {},
	"FROM":            {},
	"JOIN":            {},
	"LEFT":            {},
	"RIGHT":           {},
	"INNER":           {},
	"OUTER":           {},
	"FULL":            {},
	"CROSS":           {},
	"WHERE":           {},
	"GROUP":           {},
	"ORDER":           {},
	"BY":              {},
	"ON":              {},
	"AS":              {},
	"WITH":            {},
	"AND":             {},
	"OR":              {},
	"NULL":            {},
	"HAVING":          {},
	"DISTINCT":        {},
	"LIMIT":           {},
	"OFFSET":          {},
	"UNION":           {},
	"INTERSECT":       {},
	"INNER JOIN":      {},
	"LEFT JOIN":       {},
	"RIGHT JOIN":      {},
	"FULL JOIN":       {},
	"OUTER JOIN":      {},
	"FULL OUTER JOIN": {},
	"CROSS JOIN":      {},
	"UNION ALL":       {},
	"GROUP BY":        {},
	"ORDER BY":        {},
}

func isSQLKeyword(s string) bool {
	_, ok := sqlKeywords[strings.ToUpper(s)]
	return ok
}

// ResolveAliases builds the authoritative alias -> table map for one
// statement scope:
//
//  1. keyword entries in the raw alias map are parser noise and dropped;
//  2. a "table" containing a dot that also appears verbatim among the
//     statement's own column references is a misclassified qualified
//     column and discarded;
//  3. a table referenced without an alias becomes an alias of itself;
//  4. alias pairs of genuinely aliased tables are re-inserted so every
//     known alias survives a partial raw map.
//
// The result is deterministic for a fixed Structure regardless of map
// iteration order: every insertion is an idempotent (alias, table)
// assignment.
func ResolveAliases(st *Structure) map[string]string {
	resolved := make(map[string]string, len(st.Aliases)+len(st.Tables))
	for alias, table := range st.Aliases {
		if isSQLKeyword(alias) || isSQLKeyword(table) {
			continue
		}
		resolved[alias] = table
	}

	colRefs := make(map[string]struct{})
	for _, ref := range st.traceRefs() {
		colRefs[ref.String()] = struct{}{}
	}

	values := make(map[string]struct{}, len(resolved))
	for _, table := range resolved {
		values[table] = struct{}{}
	}

	for _, table := range st.Tables {
		if _, isValue := values[table]; isValue {
			// Genuinely aliased table: make sure all of its alias
			// pairs are present.
			for alias, t := range st.Aliases {
				if t == table && !isSQLKeyword(alias) {
					resolved[alias] = t
				}
			}
			continue
		}
		if _, isAlias := resolved[table]; isAlias {
			continue
		}
		if strings.Contains(table, ".") {
			if _, isColumn := colRefs[table]; isColumn {
				// qualified column misclassified as a table
				continue
			}
		}
		if isSQLKeyword(table) {
			continue
		}
		resolved[table] = table
	}

	return resolved
}
