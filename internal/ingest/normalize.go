package ingest

import (
	"math"

	"github.com/agenthands/exoseek/internal/schema"
)

// Normalize projects rec onto exactly the schema keys. A key that is absent,
// empty, non-numeric or not finite becomes 0; the row is never rejected.
// Zero rather than the descriptor default is the agreed policy for uploads.
func Normalize(s *schema.Schema, rec RawRecord) schema.FeatureVector {
	v := s.Zero()
	for _, key := range s.Keys() {
		n, ok := rec[key].Float()
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			continue
		}
		v[key] = n
	}
	return v
}

func NormalizeAll(s *schema.Schema, recs []RawRecord) []schema.FeatureVector {
	out := make([]schema.FeatureVector, len(recs))
	for i, rec := range recs {
		out[i] = Normalize(s, rec)
	}
	return out
}
