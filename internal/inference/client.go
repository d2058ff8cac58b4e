package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agenthands/exoseek/internal/config"
	"github.com/agenthands/exoseek/internal/logger"
	"github.com/agenthands/exoseek/internal/schema"
)

const (
	predictPath      = "/predict"
	predictBatchPath = "/predict/batch"

	defaultRejectMessage = "Prediction failed"
	// error bodies larger than this are not worth parsing
	maxErrorBody = 64 << 10
)

// Client talks to the remote classification service.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// NewClient builds a client from the service section of the config. A zero
// timeout leaves requests unbounded.
func NewClient(cfg config.ServiceConfig, log logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("service base url is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	hc := &http.Client{}
	if cfg.TimeoutSeconds > 0 {
		hc.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{baseURL: base, http: hc, log: log}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) PredictOne(ctx context.Context, features schema.FeatureVector) (ClassificationResult, error) {
	var zero ClassificationResult

	resp, err := c.post(ctx, predictPath, predictRequest{Features: features})
	if err != nil {
		c.log.Errorf(ctx, "predict: %v", err)
		return zero, unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := rejectMessage(resp.Body)
		c.log.Warnf(ctx, "predict rejected with status %d: %s", resp.StatusCode, msg)
		return zero, rejected(resp.StatusCode, msg)
	}

	var out ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return zero, &GatewayError{Kind: Rejected, Message: "malformed prediction response", StatusCode: resp.StatusCode, Err: err}
	}
	if err := out.validate(false); err != nil {
		return zero, &GatewayError{Kind: Rejected, Message: "malformed prediction response", StatusCode: resp.StatusCode, Err: err}
	}
	return out, nil
}

// PredictBatch scores the whole batch in one request. The results are in
// input order; a response of any other length is a failure, since results
// carry no row identifier and would otherwise be mis-assigned.
func (c *Client) PredictBatch(ctx context.Context, batch []schema.FeatureVector) ([]ClassificationResult, error) {
	req := batchRequest{Inputs: make([]predictRequest, len(batch))}
	for i, v := range batch {
		req.Inputs[i] = predictRequest{Features: v}
	}

	resp, err := c.post(ctx, predictBatchPath, req)
	if err != nil {
		c.log.Errorf(ctx, "predict batch: %v", err)
		return nil, batchFailure(0, fmt.Errorf("%w: %v", ErrUnreachable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := rejectMessage(resp.Body)
		c.log.Warnf(ctx, "predict batch rejected with status %d: %s", resp.StatusCode, msg)
		return nil, batchFailure(resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}

	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, batchFailure(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(out.Results) != len(batch) {
		c.log.Errorf(ctx, "predict batch returned %d results for %d inputs", len(out.Results), len(batch))
		return nil, batchFailure(resp.StatusCode, fmt.Errorf("got %d results for %d inputs", len(out.Results), len(batch)))
	}
	for i, r := range out.Results {
		if err := r.validate(true); err != nil {
			return nil, batchFailure(resp.StatusCode, fmt.Errorf("result %d: %w", i, err))
		}
	}
	return out.Results, nil
}

// Health checks that the service root answers.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejected(resp.StatusCode, fmt.Sprintf("health check returned status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// rejectMessage pulls the service's detail field out of an error body.
func rejectMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return defaultRejectMessage
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return defaultRejectMessage
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		if s == "" {
			return defaultRejectMessage
		}
		return s
	}
	if string(payload.Detail) == "null" {
		return defaultRejectMessage
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload.Detail); err != nil {
		return defaultRejectMessage
	}
	return compact.String()
}

var _ Predictor = (*Client)(nil)

// IsGatewayError reports whether err came from the gateway and returns it.
func IsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
