package inference

import (
	"context"
	"fmt"

	"github.com/agenthands/exoseek/internal/schema"
)

type Label string

const (
	LabelConfirmed     Label = "CONFIRMED"
	LabelFalsePositive Label = "FALSE POSITIVE"
	// LabelError marks a batch item the service could not score.
	LabelError Label = "ERROR"
)

// ClassificationResult is one scored candidate as returned by the service.
type ClassificationResult struct {
	Label           Label   `json:"label"`
	Confidence      float64 `json:"confidence"`
	PredictionClass int     `json:"prediction_int"`
}

func (r ClassificationResult) Confirmed() bool {
	return r.Label == LabelConfirmed
}

func (r ClassificationResult) IsError() bool {
	return r.Label == LabelError
}

// ConfidencePercent renders confidence the way the result card shows it.
func (r ClassificationResult) ConfidencePercent() string {
	return fmt.Sprintf("%.1f%%", r.Confidence*100)
}

func (r ClassificationResult) validate(allowError bool) error {
	switch r.Label {
	case LabelConfirmed, LabelFalsePositive:
		if r.PredictionClass != 0 && r.PredictionClass != 1 {
			return fmt.Errorf("prediction_int %d out of range", r.PredictionClass)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return fmt.Errorf("confidence %v out of range", r.Confidence)
		}
	case LabelError:
		if !allowError {
			return fmt.Errorf("unexpected label %q", r.Label)
		}
	default:
		return fmt.Errorf("unknown label %q", r.Label)
	}
	return nil
}

// Predictor scores feature vectors against the remote classification service.
type Predictor interface {
	PredictOne(ctx context.Context, features schema.FeatureVector) (ClassificationResult, error)
	PredictBatch(ctx context.Context, batch []schema.FeatureVector) ([]ClassificationResult, error)
}

type predictRequest struct {
	Features schema.FeatureVector `json:"features"`
}

type batchRequest struct {
	Inputs []predictRequest `json:"inputs"`
}

type batchResponse struct {
	Results []ClassificationResult `json:"results"`
}
