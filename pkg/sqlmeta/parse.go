package sqlmeta

import (
	"strings"

	"github.com/leapstack-labs/viewlens/pkg/token"
)

// Parse extracts metadata from a single SQL statement. It returns a
// ParseError when the input is not recognizably SQL (stray characters,
// unbalanced parentheses, malformed WITH clauses); anything it merely
// does not understand is skipped.
func Parse(input string) (*Statement, error) {
	e := &extractor{
		input: input,
		toks:  Tokenize(input),
		st: &Statement{
			Text:            input,
			Aliases:         make(map[string]string),
			CTEBodies:       make(map[string]string),
			ColumnsByClause: make(map[string][]ColumnRef),
		},
		tableSeen: make(map[string]bool),
		subqSeen:  make(map[string]bool),
		cteSeen:   make(map[string]bool),
	}
	if err := e.run(); err != nil {
		return nil, err
	}
	return e.st, nil
}

// frame tracks extraction state for one parenthesis level.
type frame struct {
	clause        string // clause columns are currently collected into
	tablePos      bool   // next identifier is a table name
	fromParen     bool   // group opened at table position (derived table)
	withCtx       bool   // inside a WITH clause's CTE list
	expectCTEName bool   // next identifier names a CTE
	expectBody    bool   // AS seen, next paren group is the CTE body
	skipNextIdent bool   // next identifier is an output alias or type name
	pendingCTE    string // CTE name awaiting its body
}

type extractor struct {
	input string
	toks  []token.Token
	i     int
	st    *Statement
	stack []frame

	tableSeen map[string]bool
	subqSeen  map[string]bool
	cteSeen   map[string]bool
}

func (e *extractor) cur() *frame {
	return &e.stack[len(e.stack)-1]
}

func (e *extractor) tokAt(i int) token.Token {
	if i < 0 || i >= len(e.toks) {
		return token.Token{Type: token.EOF}
	}
	return e.toks[i]
}

func (e *extractor) peekType(n int) token.Type {
	return e.tokAt(e.i + n).Type
}

// collectable reports whether column references in the clause are recorded.
func collectable(clause string) bool {
	switch clause {
	case ClauseSelect, ClauseJoin, ClauseWhere, ClauseGroupBy, ClauseOrderBy, ClauseHaving, ClauseQualify:
		return true
	}
	return false
}

func (e *extractor) run() error {
	e.stack = []frame{{}}

	for e.i < len(e.toks) {
		tok := e.toks[e.i]
		cur := e.cur()

		switch tok.Type {
		case token.EOF:
			if len(e.stack) > 1 {
				return parseErrorf(tok.Pos, "unbalanced parentheses")
			}
			return nil

		case token.ILLEGAL:
			return parseErrorf(tok.Pos, "unexpected character %q", tok.Literal)

		case token.WITH:
			cur.withCtx = true
			cur.expectCTEName = true

		case token.SELECT:
			cur.withCtx = false
			cur.expectCTEName = false
			cur.clause = ClauseSelect
			cur.tablePos = false

		case token.FROM, token.JOIN:
			cur.clause = "from"
			cur.tablePos = true

		case token.ON, token.USING:
			cur.clause = ClauseJoin
			cur.tablePos = false

		case token.WHERE:
			cur.clause = ClauseWhere

		case token.GROUP:
			// GROUP only opens a clause as GROUP BY; a bare GROUP
			// (e.g. WITHIN GROUP) leaves the clause alone.
			if e.peekType(1) == token.BY {
				cur.clause = ClauseGroupBy
				e.i++
			}

		case token.ORDER:
			if e.peekType(1) == token.BY {
				cur.clause = ClauseOrderBy
				e.i++
			}

		case token.HAVING:
			cur.clause = ClauseHaving

		case token.QUALIFY:
			cur.clause = ClauseQualify

		case token.LIMIT, token.OFFSET, token.SEMI:
			cur.clause = ""
			cur.tablePos = false

		case token.UNION, token.INTERSECT, token.EXCEPT:
			cur.clause = ""
			cur.tablePos = false

		case token.AS:
			switch {
			case cur.pendingCTE != "":
				cur.expectBody = true
			case !cur.tablePos && collectable(cur.clause):
				// output alias (SELECT x AS y) or cast type (CAST(x AS int))
				cur.skipNextIdent = true
			}

		case token.DCOLON:
			// Redshift cast: x::varchar - the type name is not a column
			cur.skipNextIdent = true

		case token.LPAREN:
			if err := e.openParen(tok); err != nil {
				return err
			}

		case token.RPAREN:
			if err := e.closeParen(tok); err != nil {
				return err
			}

		case token.COMMA:
			if cur.withCtx {
				cur.expectCTEName = true
			} else if cur.clause == "from" {
				cur.tablePos = true
			}

		case token.IDENT:
			switch {
			case cur.expectCTEName:
				cur.pendingCTE = tok.Literal
				cur.expectCTEName = false
			case cur.skipNextIdent:
				cur.skipNextIdent = false
			case cur.tablePos:
				e.readTableItem()
			case collectable(cur.clause):
				e.readColumnRef()
			}

		default:
			// literals, operators and remaining keywords carry no metadata
		}

		e.i++
	}

	if len(e.stack) > 1 {
		return parseErrorf(token.Position{}, "unbalanced parentheses")
	}
	return nil
}

// openParen handles '(' - CTE column lists, CTE bodies, derived tables
// and plain expression groups.
func (e *extractor) openParen(tok token.Token) error {
	cur := e.cur()

	if cur.pendingCTE != "" && !cur.expectBody {
		// WITH name (col, ...) AS (...) - skip the column list
		j, err := e.matchParen(e.i)
		if err != nil {
			return err
		}
		e.i = j
		return nil
	}

	if cur.pendingCTE != "" && cur.expectBody {
		// CTE body: capture the raw text between the parentheses, then
		// keep scanning inside so body tables and columns are recorded
		// in this statement's metadata as well.
		j, err := e.matchParen(e.i)
		if err != nil {
			return err
		}
		name := cur.pendingCTE
		if !e.cteSeen[name] {
			e.cteSeen[name] = true
			e.st.CTENames = append(e.st.CTENames, name)
		}
		e.st.CTEBodies[name] = e.input[tok.Pos.Offset+1:e.toks[j].Pos.Offset]
		cur.pendingCTE = ""
		cur.expectBody = false
		e.stack = append(e.stack, frame{})
		return nil
	}

	wasTablePos := cur.tablePos
	cur.tablePos = false
	nf := frame{fromParen: wasTablePos}
	if !wasTablePos {
		nf.clause = cur.clause
	}
	e.stack = append(e.stack, nf)
	return nil
}

// closeParen handles ')' including the optional derived-table alias.
func (e *extractor) closeParen(tok token.Token) error {
	if len(e.stack) == 1 {
		return parseErrorf(tok.Pos, "unbalanced parentheses")
	}
	popped := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	parent := e.cur()

	if popped.fromParen {
		// derived table: optional [AS] alias names the subquery
		j := e.i + 1
		if e.tokAt(j).Type == token.AS {
			j++
		}
		if t := e.tokAt(j); t.Type == token.IDENT {
			if !e.subqSeen[t.Literal] {
				e.subqSeen[t.Literal] = true
				e.st.SubqueryNames = append(e.st.SubqueryNames, t.Literal)
			}
			e.i = j
		}
		parent.tablePos = false
	}
	return nil
}

// matchParen returns the index of the ')' matching the '(' at index i.
func (e *extractor) matchParen(i int) (int, error) {
	depth := 1
	for j := i + 1; j < len(e.toks); j++ {
		switch e.toks[j].Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, parseErrorf(e.toks[i].Pos, "unterminated parenthesis")
}

// readChain reads a dotted identifier chain starting at index i.
// Returns the parts, whether the chain ended in ".*", and the index of
// the first token after the chain.
func (e *extractor) readChain(i int) (parts []string, star bool, next int) {
	parts = []string{e.toks[i].Literal}
	j := i + 1
	for e.tokAt(j).Type == token.DOT {
		switch e.tokAt(j + 1).Type {
		case token.IDENT:
			parts = append(parts, e.toks[j+1].Literal)
			j += 2
		case token.STAR:
			return parts, true, j + 2
		default:
			return parts, false, j + 1
		}
	}
	return parts, false, j
}

// readTableItem consumes a table reference (with optional alias) at the
// current position.
func (e *extractor) readTableItem() {
	parts, _, next := e.readChain(e.i)
	cur := e.cur()
	cur.tablePos = false

	// Table function in FROM (e.g. generate_series(...)) - not a table.
	// Leave the '(' for the main loop so its arguments are scanned.
	if e.tokAt(next).Type == token.LPAREN {
		e.i = next - 1
		return
	}

	name := strings.Join(parts, ".")
	if !e.cteSeen[name] && !e.tableSeen[name] {
		e.tableSeen[name] = true
		e.st.Tables = append(e.st.Tables, name)
	}

	// Optional [AS] alias
	j := next
	if e.tokAt(j).Type == token.AS {
		j++
	}
	if t := e.tokAt(j); t.Type == token.IDENT {
		e.st.Aliases[t.Literal] = name
		next = j + 1
	}
	e.i = next - 1
}

// readColumnRef consumes a column reference at the current position and
// records it under the active clause.
func (e *extractor) readColumnRef() {
	parts, star, next := e.readChain(e.i)
	if star {
		// t.* is a star expansion, not a column reference
		e.i = next - 1
		return
	}

	// Function call: the name is not a column; its arguments are
	// collected when the main loop descends into the '('.
	if e.tokAt(next).Type == token.LPAREN {
		e.i = next - 1
		return
	}

	ref := ColumnRef{Name: parts[len(parts)-1]}
	if len(parts) > 1 {
		ref.Qualifier = strings.Join(parts[:len(parts)-1], ".")
	}
	clause := e.cur().clause
	e.st.ColumnsByClause[clause] = append(e.st.ColumnsByClause[clause], ref)
	e.i = next - 1
}
