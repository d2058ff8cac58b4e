package server

import (
	"fmt"

	"github.com/agenthands/exoseek/internal/batch"
	"github.com/agenthands/exoseek/internal/form"
	"github.com/agenthands/exoseek/internal/inference"
	"github.com/agenthands/exoseek/internal/schema"
	"github.com/agenthands/exoseek/internal/session"
)

const (
	pendingStatus     = "Pending..."
	pendingConfidence = "-"
)

type SchemaView struct {
	Features       []schema.FeatureDescriptor `json:"features"`
	PreviewColumns []schema.FeatureDescriptor `json:"preview_columns"`
}

type FormView struct {
	SessionID string       `json:"session_id"`
	Fields    []form.Field `json:"fields"`
	Invalid   []string     `json:"invalid,omitempty"`
	InFlight  bool         `json:"in_flight"`
}

type ResultView struct {
	Label             inference.Label `json:"label"`
	Confidence        float64         `json:"confidence"`
	ConfidencePercent string          `json:"confidence_percent"`
	PredictionInt     int             `json:"prediction_int"`
	Confirmed         bool            `json:"confirmed"`
}

type RowView struct {
	Index         int                `json:"index"`
	Status        string             `json:"status"`
	Confidence    string             `json:"confidence"`
	Pending       bool               `json:"pending"`
	Label         inference.Label    `json:"label,omitempty"`
	PredictionInt *int               `json:"prediction_int,omitempty"`
	Preview       []string           `json:"preview"`
	Features      map[string]float64 `json:"features"`
}

type BatchView struct {
	BatchID   string                     `json:"batch_id"`
	FileName  string                     `json:"file_name"`
	State     batch.State                `json:"state"`
	Loaded    int                        `json:"loaded"`
	TotalRows int                        `json:"total_rows"`
	Truncated bool                       `json:"truncated"`
	CanSubmit bool                       `json:"can_submit"`
	LastError string                     `json:"last_error,omitempty"`
	Summary   batch.Summary              `json:"summary"`
	Columns   []schema.FeatureDescriptor `json:"columns"`
	Rows      []RowView                  `json:"rows"`
}

func newResultView(r inference.ClassificationResult) ResultView {
	return ResultView{
		Label:             r.Label,
		Confidence:        r.Confidence,
		ConfidencePercent: r.ConfidencePercent(),
		PredictionInt:     r.PredictionClass,
		Confirmed:         r.Confirmed(),
	}
}

func newFormView(sess *session.Session, m *form.Model) FormView {
	return FormView{
		SessionID: sess.ID,
		Fields:    m.Fields(),
		Invalid:   m.Invalid(),
		InFlight:  sess.InFlight(),
	}
}

func newBatchView(s *schema.Schema, up *session.Upload) BatchView {
	b := up.Batch
	columns := s.Head(previewColumns)

	view := BatchView{
		BatchID:   b.ID,
		FileName:  up.FileName,
		State:     b.State(),
		Loaded:    b.Len(),
		TotalRows: up.TotalRows,
		Truncated: up.TotalRows > b.Len(),
		CanSubmit: b.CanSubmit(),
		Summary:   b.Summary(),
		Columns:   columns,
	}
	if err := b.LastError(); err != nil {
		view.LastError = err.Error()
	}

	rows := b.Rows()
	view.Rows = make([]RowView, len(rows))
	for i, row := range rows {
		rv := RowView{
			Index:      row.Index,
			Status:     pendingStatus,
			Confidence: pendingConfidence,
			Pending:    row.Pending(),
			Features:   row.Vector,
			Preview:    make([]string, len(columns)),
		}
		for j, col := range columns {
			rv.Preview[j] = fmt.Sprintf("%.2f", row.Vector[col.Key])
		}
		if res := row.Result; res != nil {
			class := res.PredictionClass
			rv.Status = string(res.Label)
			rv.Label = res.Label
			rv.Confidence = res.ConfidencePercent()
			rv.PredictionInt = &class
		}
		view.Rows[i] = rv
	}
	return view
}
