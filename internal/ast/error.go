package ast

import "fmt"

// SyntaxError reports a syntactically invalid pattern, mirroring the shape
// of regexp/syntax.Error: a short code plus the offending fragment.
type SyntaxError struct {
	Code string
	Expr string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid regexp: %s in `%s`", e.Code, e.Expr)
}
