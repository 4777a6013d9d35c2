package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidValue reports a field outside its accepted range.
	ErrInvalidValue = errors.New("invalid config value")

	// ErrMissingValue reports a field required by the active settings.
	ErrMissingValue = errors.New("missing config value")
)

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
