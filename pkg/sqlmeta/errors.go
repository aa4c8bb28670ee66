package sqlmeta

import (
	"fmt"

	"github.com/leapstack-labs/viewlens/pkg/token"
)

// ParseError reports a failure to extract metadata from a statement.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func parseErrorf(pos token.Position, format string, args ...any) error {
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
