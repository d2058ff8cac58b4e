package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/agenthands/exoseek/internal/batch"
	"github.com/agenthands/exoseek/internal/form"
	"github.com/agenthands/exoseek/internal/inference"
	"github.com/agenthands/exoseek/internal/ingest"
	"github.com/agenthands/exoseek/internal/schema"
	"github.com/agenthands/exoseek/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "koi_period,koi_duration_err1,koi_duration_err2,koi_prad,koi_prad_err1,koi_prad_err2,koi_insol_err1,koi_model_snr,koi_steff_err1,koi_steff_err2"

func newTestService(p inference.Predictor) (*Service, *session.Store) {
	s := schema.Default()
	svc := NewService(s, ingest.NewIngestor(s, 50), p, nil)
	return svc, session.NewStore(s, time.Minute)
}

func csvRows(n int) []byte {
	var b strings.Builder
	b.WriteString(header + ",kepoi_name\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,0.1,-0.1,2,0.2,-0.2,3,40,50,-50,K%05d.01\n", i+1, i)
	}
	return []byte(b.String())
}

func TestPredictSubmitsFormDefaults(t *testing.T) {
	want := inference.ClassificationResult{Label: inference.LabelConfirmed, Confidence: 0.87, PredictionClass: 1}
	mock := &MockPredictor{Result: want}
	svc, store := newTestService(mock)
	sess := store.Create()

	got, err := svc.Predict(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "87.0%", got.ConfidencePercent())

	require.Len(t, mock.GotOne, 1)
	sent := mock.GotOne[0]
	assert.Equal(t, 10.5, sent["koi_period"])
	assert.Equal(t, 2.1, sent["koi_prad"])
	assert.Equal(t, 35.0, sent["koi_model_snr"])
	assert.Len(t, sent, 10)
	assert.False(t, sess.InFlight())
}

func TestPredictUsesEditedValuesRepeatedly(t *testing.T) {
	mock := &MockPredictor{Result: inference.ClassificationResult{Label: inference.LabelFalsePositive, Confidence: 0.7}}
	svc, store := newTestService(mock)
	sess := store.Create()

	require.NoError(t, sess.WithForm(func(m *form.Model) error {
		return m.SetField("koi_prad", "11.2")
	}))

	for i := 0; i < 2; i++ {
		_, err := svc.Predict(context.Background(), sess)
		require.NoError(t, err)
	}
	require.Len(t, mock.GotOne, 2)
	assert.Equal(t, 11.2, mock.GotOne[0]["koi_prad"])
	assert.Equal(t, 11.2, mock.GotOne[1]["koi_prad"])
}

func TestPredictRejectsConcurrentSubmit(t *testing.T) {
	mock := &MockPredictor{Block: make(chan struct{})}
	svc, store := newTestService(mock)
	sess := store.Create()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Predict(context.Background(), sess)
		done <- err
	}()

	require.Eventually(t, sess.InFlight, time.Second, time.Millisecond)
	_, err := svc.Predict(context.Background(), sess)
	assert.ErrorIs(t, err, session.ErrInFlight)

	close(mock.Block)
	require.NoError(t, <-done)
	assert.False(t, sess.InFlight())
}

func TestPredictFailureClearsInFlight(t *testing.T) {
	mock := &MockPredictor{Err: &inference.GatewayError{Kind: inference.Unreachable, Message: "down"}}
	svc, store := newTestService(mock)
	sess := store.Create()

	_, err := svc.Predict(context.Background(), sess)
	assert.ErrorIs(t, err, inference.ErrUnreachable)
	assert.False(t, sess.InFlight())
}

func TestLoadAndAnalyze(t *testing.T) {
	results := []inference.ClassificationResult{
		{Label: inference.LabelConfirmed, Confidence: 0.9, PredictionClass: 1},
		{Label: inference.LabelFalsePositive, Confidence: 0.8, PredictionClass: 0},
		{Label: inference.LabelConfirmed, Confidence: 0.55, PredictionClass: 1},
	}
	mock := &MockPredictor{Results: results}
	svc, store := newTestService(mock)
	sess := store.Create()

	up, err := svc.Load(context.Background(), sess, "koi.csv", csvRows(3))
	require.NoError(t, err)
	assert.Equal(t, 3, up.Batch.Len())
	assert.Equal(t, 3, up.TotalRows)

	b, err := svc.Analyze(context.Background(), sess)
	require.NoError(t, err)
	assert.Same(t, up.Batch, b)
	assert.Equal(t, batch.Resolved, b.State())

	require.Len(t, mock.GotBatch, 1)
	sent := mock.GotBatch[0]
	require.Len(t, sent, 3)
	for i, row := range b.Rows() {
		assert.Equal(t, float64(i+1), sent[i]["koi_period"])
		assert.Len(t, sent[i], 10, "extra columns must not be sent")
		assert.Equal(t, results[i], *row.Result)
		assert.Equal(t, float64(i+1), row.Vector["koi_period"])
	}

	_, err = svc.Analyze(context.Background(), sess)
	assert.ErrorIs(t, err, batch.ErrAlreadyScored)
	assert.Len(t, mock.GotBatch, 1)
}

func TestAnalyzeFailureKeepsRowsPending(t *testing.T) {
	mock := &MockPredictor{Err: &inference.GatewayError{Kind: inference.BatchFailure, Message: "Failed to process batch. Ensure backend is running."}}
	svc, store := newTestService(mock)
	sess := store.Create()

	_, err := svc.Load(context.Background(), sess, "koi.csv", csvRows(4))
	require.NoError(t, err)

	b, err := svc.Analyze(context.Background(), sess)
	require.ErrorIs(t, err, inference.ErrBatchFailure)
	assert.Equal(t, batch.Failed, b.State())
	for _, row := range b.Rows() {
		assert.True(t, row.Pending())
	}

	mock.Err = nil
	mock.Results = make([]inference.ClassificationResult, 4)
	for i := range mock.Results {
		mock.Results[i] = inference.ClassificationResult{Label: inference.LabelFalsePositive, Confidence: 0.6}
	}
	_, err = svc.Analyze(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Summary().Pending)
}

func TestLoadMissingColumnClearsUpload(t *testing.T) {
	svc, store := newTestService(&MockPredictor{})
	sess := store.Create()

	_, err := svc.Load(context.Background(), sess, "good.csv", csvRows(2))
	require.NoError(t, err)

	bad := strings.Replace(string(csvRows(3)), "koi_model_snr,", "", 1)
	_, err = svc.Load(context.Background(), sess, "bad.csv", []byte(bad))

	var mc *ingest.MissingColumnsError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, []string{"koi_model_snr"}, mc.Columns)

	_, err = sess.Upload()
	assert.ErrorIs(t, err, session.ErrNoBatch)
	_, err = svc.Analyze(context.Background(), sess)
	assert.ErrorIs(t, err, session.ErrNoBatch)
}

func TestPrepareNormalisesBadCells(t *testing.T) {
	svc, _ := newTestService(&MockPredictor{})
	data := header + "\n7,,oops,true,,,,,,\n"

	res, b, err := svc.Prepare([]byte(data))
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)

	v := b.Vectors()[0]
	assert.Equal(t, 7.0, v["koi_period"])
	for _, k := range []string{"koi_duration_err1", "koi_duration_err2", "koi_prad", "koi_steff_err2"} {
		assert.Equal(t, 0.0, v[k], k)
	}
}

func TestCancelledCallerDoesNotAbortGatewayCalls(t *testing.T) {
	confirmed := inference.ClassificationResult{Label: inference.LabelConfirmed, Confidence: 0.9, PredictionClass: 1}
	mock := &MockPredictor{Result: confirmed, Results: []inference.ClassificationResult{confirmed, confirmed}}
	svc, store := newTestService(mock)
	sess := store.Create()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Predict(ctx, sess)
	require.NoError(t, err)

	_, err = svc.Load(ctx, sess, "koi.csv", csvRows(2))
	require.NoError(t, err)
	b, err := svc.Analyze(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, batch.Resolved, b.State())

	require.Len(t, mock.CtxErrs, 2)
	for _, ctxErr := range mock.CtxErrs {
		assert.NoError(t, ctxErr)
	}
}
