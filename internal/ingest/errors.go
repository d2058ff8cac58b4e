package ingest

import (
	"errors"
	"strings"
)

var (
	ErrParse          = errors.New("csv parse failure")
	ErrMissingColumns = errors.New("csv missing columns")
)

// ParseError reports input that could not be read as delimited text.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return "Failed to parse CSV: " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// MissingColumnsError lists required feature columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "CSV is missing columns: " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Is(target error) bool { return target == ErrMissingColumns }
