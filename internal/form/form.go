package form

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agenthands/exoseek/internal/schema"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidNumber = errors.New("invalid number")
)

// Field is one rendered form input.
type Field struct {
	schema.FeatureDescriptor
	Value   float64 `json:"value"`
	Raw     string  `json:"raw,omitempty"`
	Invalid bool    `json:"invalid"`
}

// Model holds the values for single-record entry. It is not safe for
// concurrent use; the owning session serialises access.
type Model struct {
	schema *schema.Schema
	values schema.FeatureVector
	// raw text rejected by SetField, keyed by feature; the committed value stays in values
	pending map[string]string
}

func New(s *schema.Schema) *Model {
	return &Model{
		schema:  s,
		values:  s.Defaults(),
		pending: make(map[string]string),
	}
}

// SetField parses raw as a decimal and commits it. On a parse failure the
// prior value is kept and the text is remembered as invalid.
func (m *Model) SetField(key, raw string) error {
	if !m.schema.Has(key) {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	v, err := parseDecimal(raw)
	if err != nil {
		m.pending[key] = raw
		return fmt.Errorf("%s: %w", key, err)
	}
	m.values[key] = v
	delete(m.pending, key)
	return nil
}

// Submit returns the committed values. State is kept so the next
// submission starts from the same edits.
func (m *Model) Submit() schema.FeatureVector {
	return m.values.Clone()
}

func (m *Model) Reset() {
	m.values = m.schema.Defaults()
	m.pending = make(map[string]string)
}

// Invalid lists keys holding uncommitted text, in schema order.
func (m *Model) Invalid() []string {
	var keys []string
	for _, k := range m.schema.Keys() {
		if _, ok := m.pending[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *Model) Fields() []Field {
	descriptors := m.schema.Descriptors()
	fields := make([]Field, 0, len(descriptors))
	for _, d := range descriptors {
		f := Field{FeatureDescriptor: d, Value: m.values[d.Key]}
		if raw, ok := m.pending[d.Key]; ok {
			f.Raw = raw
			f.Invalid = true
		}
		fields = append(fields, f)
	}
	return fields
}

func parseDecimal(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidNumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidNumber
	}
	return v, nil
}
