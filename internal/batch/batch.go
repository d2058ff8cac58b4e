package batch

import (
	"errors"
	"sync"

	"github.com/agenthands/exoseek/internal/inference"
	"github.com/agenthands/exoseek/internal/schema"
	"github.com/google/uuid"
)

type State string

const (
	Idle      State = "idle"
	Submitted State = "submitted"
	Resolved  State = "resolved"
	Failed    State = "failed"
)

var (
	ErrInFlight      = errors.New("batch is already being scored")
	ErrAlreadyScored = errors.New("batch has already been scored")
	ErrNotSubmitted  = errors.New("batch was not submitted")
	ErrEmpty         = errors.New("batch has no rows")
)

// Row pairs a submitted vector with its result. Result is nil while pending.
type Row struct {
	Index  int                             `json:"index"`
	Vector schema.FeatureVector            `json:"features"`
	Result *inference.ClassificationResult `json:"result,omitempty"`
}

func (r Row) Pending() bool {
	return r.Result == nil
}

type Summary struct {
	Total         int `json:"total"`
	Confirmed     int `json:"confirmed"`
	FalsePositive int `json:"false_positive"`
	Errored       int `json:"errored"`
	Pending       int `json:"pending"`
}

// Batch correlates N submitted rows with N results by position. A batch is
// scored at most once; a failed attempt may be retried.
type Batch struct {
	ID string

	mu      sync.Mutex
	state   State
	vectors []schema.FeatureVector
	results []inference.ClassificationResult
	lastErr error
}

func New(vectors []schema.FeatureVector) *Batch {
	return NewWithID(uuid.New().String(), vectors)
}

func NewWithID(id string, vectors []schema.FeatureVector) *Batch {
	vs := make([]schema.FeatureVector, len(vectors))
	copy(vs, vectors)
	return &Batch{ID: id, state: Idle, vectors: vs}
}

func (b *Batch) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Batch) Len() int {
	return len(b.vectors)
}

// Begin moves the batch to Submitted and returns the vectors to send.
func (b *Batch) Begin() ([]schema.FeatureVector, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Submitted:
		return nil, ErrInFlight
	case Resolved:
		return nil, ErrAlreadyScored
	}
	if len(b.vectors) == 0 {
		return nil, ErrEmpty
	}
	b.state = Submitted
	b.results = nil
	b.lastErr = nil

	out := make([]schema.FeatureVector, len(b.vectors))
	copy(out, b.vectors)
	return out, nil
}

// Resolve associates results[i] with row i. Rows past len(results) stay pending.
func (b *Batch) Resolve(results []inference.ClassificationResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Submitted {
		return ErrNotSubmitted
	}
	n := len(results)
	if n > len(b.vectors) {
		n = len(b.vectors)
	}
	b.results = make([]inference.ClassificationResult, n)
	copy(b.results, results[:n])
	b.state = Resolved
	return nil
}

// Fail drops any results and returns every row to pending.
func (b *Batch) Fail(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Submitted {
		return ErrNotSubmitted
	}
	b.results = nil
	b.lastErr = err
	b.state = Failed
	return nil
}

func (b *Batch) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// CanSubmit reports whether Begin would succeed.
func (b *Batch) CanSubmit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.vectors) > 0 && (b.state == Idle || b.state == Failed)
}

func (b *Batch) Vectors() []schema.FeatureVector {
	out := make([]schema.FeatureVector, len(b.vectors))
	copy(out, b.vectors)
	return out
}

func (b *Batch) Rows() []Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows := make([]Row, len(b.vectors))
	for i, v := range b.vectors {
		rows[i] = Row{Index: i, Vector: v}
		if i < len(b.results) {
			r := b.results[i]
			rows[i].Result = &r
		}
	}
	return rows
}

func (b *Batch) Summary() Summary {
	s := Summary{}
	for _, row := range b.Rows() {
		s.Total++
		switch {
		case row.Pending():
			s.Pending++
		case row.Result.IsError():
			s.Errored++
		case row.Result.Confirmed():
			s.Confirmed++
		default:
			s.FalsePositive++
		}
	}
	return s
}
