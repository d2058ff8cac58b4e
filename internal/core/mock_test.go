package core

import (
	"context"
	"sync"

	"github.com/agenthands/exoseek/internal/inference"
	"github.com/agenthands/exoseek/internal/schema"
)

type MockPredictor struct {
	mu sync.Mutex

	Result  inference.ClassificationResult
	Results []inference.ClassificationResult
	Err     error
	// Block, when set, holds PredictOne/PredictBatch until closed.
	Block chan struct{}

	GotOne   []schema.FeatureVector
	GotBatch [][]schema.FeatureVector
	// CtxErrs records ctx.Err() as seen by each call.
	CtxErrs []error
}

func (m *MockPredictor) PredictOne(ctx context.Context, features schema.FeatureVector) (inference.ClassificationResult, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GotOne = append(m.GotOne, features)
	m.CtxErrs = append(m.CtxErrs, ctx.Err())
	if m.Err != nil {
		return inference.ClassificationResult{}, m.Err
	}
	return m.Result, nil
}

func (m *MockPredictor) PredictBatch(ctx context.Context, batch []schema.FeatureVector) ([]inference.ClassificationResult, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GotBatch = append(m.GotBatch, batch)
	m.CtxErrs = append(m.CtxErrs, ctx.Err())
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}
