package schema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDuplicateKey = errors.New("duplicate feature key")

// FeatureDescriptor describes one input the classifier expects.
type FeatureDescriptor struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	Description  string  `json:"description"`
	Step         string  `json:"step"`
	DefaultValue float64 `json:"default_value"`
}

// FeatureVector maps every schema key to a numeric value.
type FeatureVector map[string]float64

func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Schema is the ordered, immutable list of features shared by the form,
// the CSV column check and the classification requests.
type Schema struct {
	descriptors []FeatureDescriptor
	index       map[string]int
}

func New(descriptors ...FeatureDescriptor) (*Schema, error) {
	s := &Schema{
		descriptors: make([]FeatureDescriptor, 0, len(descriptors)),
		index:       make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		key := strings.TrimSpace(d.Key)
		if key == "" {
			return nil, fmt.Errorf("feature %q: empty key", d.Label)
		}
		if _, ok := s.index[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, key)
		}
		d.Key = key
		s.index[key] = len(s.descriptors)
		s.descriptors = append(s.descriptors, d)
	}
	return s, nil
}

// MustNew is New for package-level schemas known to be valid.
func MustNew(descriptors ...FeatureDescriptor) *Schema {
	s, err := New(descriptors...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Len() int {
	return len(s.descriptors)
}

// Descriptors returns a copy so callers cannot mutate the schema.
func (s *Schema) Descriptors() []FeatureDescriptor {
	out := make([]FeatureDescriptor, len(s.descriptors))
	copy(out, s.descriptors)
	return out
}

func (s *Schema) Keys() []string {
	keys := make([]string, len(s.descriptors))
	for i, d := range s.descriptors {
		keys[i] = d.Key
	}
	return keys
}

func (s *Schema) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Head returns the first n descriptors, used for preview columns.
func (s *Schema) Head(n int) []FeatureDescriptor {
	if n > len(s.descriptors) {
		n = len(s.descriptors)
	}
	if n < 0 {
		n = 0
	}
	out := make([]FeatureDescriptor, n)
	copy(out, s.descriptors[:n])
	return out
}

// Defaults returns a vector seeded with every descriptor's default value.
func (s *Schema) Defaults() FeatureVector {
	v := make(FeatureVector, len(s.descriptors))
	for _, d := range s.descriptors {
		v[d.Key] = d.DefaultValue
	}
	return v
}

// Zero returns a vector holding 0 for every key.
func (s *Schema) Zero() FeatureVector {
	v := make(FeatureVector, len(s.descriptors))
	for _, d := range s.descriptors {
		v[d.Key] = 0
	}
	return v
}

// Missing lists the schema keys absent from present, in schema order.
func (s *Schema) Missing(present map[string]struct{}) []string {
	var missing []string
	for _, d := range s.descriptors {
		if _, ok := present[d.Key]; !ok {
			missing = append(missing, d.Key)
		}
	}
	return missing
}
