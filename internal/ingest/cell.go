package ingest

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	Missing Kind = iota
	Number
	String
	Bool
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return "missing"
	}
}

// Cell is one parsed CSV value. Only the field matching Kind is meaningful.
type Cell struct {
	Kind Kind
	Num  float64
	Str  string
	Bool bool
}

func NumberCell(v float64) Cell { return Cell{Kind: Number, Num: v} }
func StringCell(s string) Cell  { return Cell{Kind: String, Str: s} }
func BoolCell(b bool) Cell      { return Cell{Kind: Bool, Bool: b} }

// Float returns the numeric value and whether the cell holds one.
func (c Cell) Float() (float64, bool) {
	if c.Kind != Number {
		return 0, false
	}
	return c.Num, true
}

func (c Cell) String() string {
	switch c.Kind {
	case Number:
		return strconv.FormatFloat(c.Num, 'g', -1, 64)
	case String:
		return c.Str
	case Bool:
		return strconv.FormatBool(c.Bool)
	default:
		return ""
	}
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case Number:
		return json.Marshal(c.Num)
	case String:
		return json.Marshal(c.Str)
	case Bool:
		return json.Marshal(c.Bool)
	default:
		return []byte("null"), nil
	}
}

// RawRecord is one data row keyed by header name.
type RawRecord map[string]Cell

var numericPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// InferCell applies per-cell typing: empty is Missing, true/false is Bool,
// numeric-looking text is Number, anything else stays a String.
func InferCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Cell{}
	case strings.EqualFold(s, "true"):
		return BoolCell(true)
	case strings.EqualFold(s, "false"):
		return BoolCell(false)
	case numericPattern.MatchString(s):
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return NumberCell(v)
		}
	}
	return StringCell(s)
}
