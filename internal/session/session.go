package session

import (
	"errors"
	"sync"
	"time"

	"github.com/agenthands/exoseek/internal/batch"
	"github.com/agenthands/exoseek/internal/form"
	"github.com/agenthands/exoseek/internal/ingest"
	"github.com/agenthands/exoseek/internal/schema"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/atomic"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrInFlight = errors.New("a prediction is already in progress")
	ErrNoBatch  = errors.New("no CSV has been loaded")
)

// Upload is the CSV currently loaded in a session with its batch.
type Upload struct {
	FileName  string
	Records   []ingest.RawRecord
	TotalRows int
	Batch     *batch.Batch
}

// Session holds one operator's state. Nothing is shared between sessions.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	form     *form.Model
	upload   *Upload
	inFlight atomic.Bool
}

func newSession(id string, s *schema.Schema) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		form:      form.New(s),
	}
}

// WithForm runs fn while holding the session lock.
func (s *Session) WithForm(fn func(m *form.Model) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.form)
}

// Acquire marks a manual prediction as in flight. The returned func clears
// the flag and must be called when the request completes or fails.
func (s *Session) Acquire() (release func(), err error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	return func() { s.inFlight.Store(false) }, nil
}

func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// SetUpload replaces the loaded CSV and starts a fresh batch.
func (s *Session) SetUpload(u *Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upload = u
}

func (s *Session) Upload() (*Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		return nil, ErrNoBatch
	}
	return s.upload, nil
}

// Store keeps sessions in memory and forgets them after ttl of inactivity.
type Store struct {
	schema *schema.Schema
	ttl    time.Duration
	cache  *cache.Cache
}

func NewStore(s *schema.Schema, ttl time.Duration) *Store {
	return &Store{
		schema: s,
		ttl:    ttl,
		cache:  cache.New(ttl, ttl*2),
	}
}

func (st *Store) Create() *Session {
	sess := newSession(uuid.New().String(), st.schema)
	st.cache.Set(sess.ID, sess, cache.DefaultExpiration)
	return sess
}

// Get returns the session and extends its lifetime.
func (st *Store) Get(id string) (*Session, error) {
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	st.cache.Set(id, sess, cache.DefaultExpiration)
	return sess, nil
}

func (st *Store) Delete(id string) {
	st.cache.Delete(id)
}

func (st *Store) Len() int {
	return st.cache.ItemCount()
}
