package core

import (
	"context"
	"fmt"

	"github.com/agenthands/exoseek/internal/batch"
	"github.com/agenthands/exoseek/internal/form"
	"github.com/agenthands/exoseek/internal/inference"
	"github.com/agenthands/exoseek/internal/ingest"
	"github.com/agenthands/exoseek/internal/logger"
	"github.com/agenthands/exoseek/internal/schema"
	"github.com/agenthands/exoseek/internal/session"
)

// Service runs the manual and upload flows against a Predictor.
type Service struct {
	Schema    *schema.Schema
	Ingestor  *ingest.Ingestor
	Predictor inference.Predictor
	Log       logger.Logger
}

func NewService(s *schema.Schema, ingestor *ingest.Ingestor, predictor inference.Predictor, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		Schema:    s,
		Ingestor:  ingestor,
		Predictor: predictor,
		Log:       log,
	}
}

// Predict submits the session's form. Only one manual prediction per
// session may be outstanding.
func (svc *Service) Predict(ctx context.Context, sess *session.Session) (inference.ClassificationResult, error) {
	ctx = logger.WithSession(ctx, sess.ID)

	release, err := sess.Acquire()
	if err != nil {
		return inference.ClassificationResult{}, err
	}
	defer release()

	var features schema.FeatureVector
	_ = sess.WithForm(func(m *form.Model) error {
		features = m.Submit()
		return nil
	})

	// An abandoned request does not cancel the call; its result is dropped.
	res, err := svc.Predictor.PredictOne(context.WithoutCancel(ctx), features)
	if err != nil {
		svc.Log.Warnf(ctx, "manual prediction failed: %v", err)
		return inference.ClassificationResult{}, err
	}
	svc.Log.Infof(ctx, "manual prediction: %s (%s)", res.Label, res.ConfidencePercent())
	return res, nil
}

// Prepare ingests and normalises a CSV into an unsubmitted batch.
func (svc *Service) Prepare(data []byte) (*ingest.Result, *batch.Batch, error) {
	res, err := svc.Ingestor.Ingest(data)
	if err != nil {
		return nil, nil, err
	}
	vectors := ingest.NormalizeAll(svc.Schema, res.Records)
	return res, batch.New(vectors), nil
}

// Load replaces the session's upload. On failure the session is left with
// no rows loaded.
func (svc *Service) Load(ctx context.Context, sess *session.Session, fileName string, data []byte) (*session.Upload, error) {
	ctx = logger.WithSession(ctx, sess.ID)

	res, b, err := svc.Prepare(data)
	if err != nil {
		sess.SetUpload(nil)
		svc.Log.Warnf(ctx, "ingest %q: %v", fileName, err)
		return nil, err
	}

	up := &session.Upload{
		FileName:  fileName,
		Records:   res.Records,
		TotalRows: res.TotalRows,
		Batch:     b,
	}
	sess.SetUpload(up)
	svc.Log.Infof(logger.WithBatch(ctx, b.ID), "loaded %q: %s", fileName, res.Preview())
	return up, nil
}

// Analyze scores the session's loaded batch.
func (svc *Service) Analyze(ctx context.Context, sess *session.Session) (*batch.Batch, error) {
	up, err := sess.Upload()
	if err != nil {
		return nil, err
	}
	return up.Batch, svc.Score(logger.WithSession(ctx, sess.ID), up.Batch)
}

// Score sends the batch in one request and correlates the results by index.
// On failure every row stays pending and the batch can be submitted again.
func (svc *Service) Score(ctx context.Context, b *batch.Batch) error {
	ctx = logger.WithBatch(ctx, b.ID)

	vectors, err := b.Begin()
	if err != nil {
		return err
	}

	results, err := svc.Predictor.PredictBatch(context.WithoutCancel(ctx), vectors)
	if err != nil {
		_ = b.Fail(err)
		svc.Log.Errorf(ctx, "batch of %d failed: %v", len(vectors), err)
		return err
	}
	if err := b.Resolve(results); err != nil {
		return fmt.Errorf("resolve batch: %w", err)
	}

	sum := b.Summary()
	svc.Log.Infof(ctx, "batch scored: %d confirmed, %d false positive, %d errored",
		sum.Confirmed, sum.FalsePositive, sum.Errored)
	return nil
}
