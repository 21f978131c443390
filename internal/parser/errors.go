package parser

import (
	"fmt"
	"strings"
)

// SyntaxError is a fatal structural failure: the document is not
// well-formed JSON past the reported position.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// SchemaError is a well-formed document violating the structural contract:
// a missing or mistyped field, or an enumerated value outside its closed
// set. Path is a structural locator such as "evaluations[2].operator".
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ErrorList aggregates parse failures. A syntax error is always alone;
// schema errors are collected across the whole document before reporting.
type ErrorList []error

func (l ErrorList) Error() string {
	if len(l) == 1 {
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d parse errors: %s", len(l), strings.Join(msgs, "; "))
}

// ErrList unwraps err into an ErrorList, wrapping single errors so callers
// can iterate uniformly.
func ErrList(err error) ErrorList {
	if err == nil {
		return nil
	}
	if l, ok := err.(ErrorList); ok {
		return l
	}
	return ErrorList{err}
}

func schemaErrf(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Message: fmt.Sprintf(format, args...)}
}
