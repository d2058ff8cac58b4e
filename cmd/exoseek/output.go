package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agenthands/exoseek/internal/batch"
)

const pendingLabel = "Pending"

type assignment struct {
	key   string
	value string
}

// parseAssignments splits key=value pairs, keeping their order.
func parseAssignments(pairs []string) ([]assignment, error) {
	out := make([]assignment, 0, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", p)
		}
		out = append(out, assignment{key: key, value: value})
	}
	return out, nil
}

// writeResults emits one line per loaded row in input order. Rows without a
// result are written as pending.
func writeResults(w io.Writer, b *batch.Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "label", "confidence", "confidence_pct", "prediction_int"}); err != nil {
		return err
	}
	for _, row := range b.Rows() {
		rec := []string{strconv.Itoa(row.Index), pendingLabel, "", "", ""}
		if res := row.Result; res != nil {
			rec[1] = string(res.Label)
			rec[2] = strconv.FormatFloat(res.Confidence, 'f', -1, 64)
			rec[3] = res.ConfidencePercent()
			rec[4] = strconv.Itoa(res.PredictionClass)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
