package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/agenthands/exoseek/internal/schema"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxRows bounds an upload unless [upload] max_rows says otherwise.
const DefaultMaxRows = 50

// Result is the outcome of a successful ingestion.
type Result struct {
	Header  []string
	Records []RawRecord
	// TotalRows counts data rows before truncation.
	TotalRows int
}

func (r *Result) Truncated() bool {
	return r.TotalRows > len(r.Records)
}

type Ingestor struct {
	Schema  *schema.Schema
	MaxRows int
}

func NewIngestor(s *schema.Schema, maxRows int) *Ingestor {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Ingestor{Schema: s, MaxRows: maxRows}
}

// Ingest parses comma-delimited text whose first row is a header. It fails
// with *ParseError for unreadable input and *MissingColumnsError when a
// schema key has no column; in both cases no records are returned.
func (in *Ingestor) Ingest(data []byte) (*Result, error) {
	// UTF-16 and UTF-8 BOMs select the decoder; anything else is read as UTF-8.
	decoder := textunicode.BOMOverride(textunicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(bytes.NewReader(data), decoder))
	reader.FieldsPerRecord = -1
	// A stray quote stays part of the cell instead of failing the file.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Message: "file is empty", Err: err}
		}
		return nil, &ParseError{Message: err.Error(), Err: err}
	}
	for i, cell := range header {
		header[i] = cleanHeader(cell)
	}

	present := make(map[string]struct{}, len(header))
	for _, name := range header {
		if name != "" {
			present[name] = struct{}{}
		}
	}
	if missing := in.Schema.Missing(present); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	res := &Result{Header: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Message: err.Error(), Err: err}
		}
		if blankRow(row) {
			continue
		}
		res.TotalRows++
		if len(res.Records) < in.MaxRows {
			res.Records = append(res.Records, buildRecord(header, row))
		}
	}
	return res, nil
}

func buildRecord(header, row []string) RawRecord {
	rec := make(RawRecord, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if _, seen := rec[name]; seen {
			continue
		}
		if i >= len(row) {
			rec[name] = Cell{}
			continue
		}
		rec[name] = InferCell(row[i])
	}
	return rec
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cleanHeader(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	v = norm.NFKC.String(v)
	v = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, v)
	return strings.TrimSpace(v)
}

// Preview summarises an ingestion for log lines.
func (r *Result) Preview() string {
	return fmt.Sprintf("%d of %d rows, %d columns", len(r.Records), r.TotalRows, len(r.Header))
}
