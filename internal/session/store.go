// Package session holds run sessions in memory and fans their events out to
// observers. Every observer sees the full history of a session, in emission
// order, before any live event, and at most one terminal message, last.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/roshaninfordham/safebiteai/internal/domain"
	"github.com/roshaninfordham/safebiteai/internal/logging"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Observer receives session messages. It is called with the session lock held
// and must not call back into the store for the same session.
type Observer func(msg domain.Message)

type observerEntry struct {
	id uint64
	fn Observer
}

// Session is the record of one run. All fields are guarded by mu; the
// mutex is the single point of serialization for append, terminal writes and
// subscription.
type Session struct {
	id        string
	createdAt time.Time

	mu        sync.Mutex
	events    []domain.StepEvent
	result    *domain.SafetyReport
	errMsg    string
	done      bool
	observers []observerEntry
	nextObsID uint64
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	SessionID string               `json:"session_id"`
	CreatedAt time.Time            `json:"created_at"`
	Events    []domain.StepEvent   `json:"events"`
	Result    *domain.SafetyReport `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	Done      bool                 `json:"done"`
}

// StoreConfig configures retention of finished sessions.
type StoreConfig struct {
	// TTL is how long a session is kept after its terminal event.
	TTL time.Duration
	// Capacity bounds the number of finished sessions kept.
	Capacity int
}

// DefaultStoreConfig returns the default retention policy.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{TTL: 15 * time.Minute, Capacity: 10000}
}

// Store is the in-memory session registry. In-flight sessions never expire;
// finished sessions are retained in an expirable LRU.
type Store struct {
	mu       sync.RWMutex
	live     map[string]*Session
	finished *expirable.LRU[string, *Session]
	logger   logging.Logger
}

// NewStore creates a session store.
func NewStore(cfg StoreConfig, logger logging.Logger) *Store {
	def := DefaultStoreConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	return &Store{
		live:     make(map[string]*Session),
		finished: expirable.NewLRU[string, *Session](cfg.Capacity, nil, cfg.TTL),
		logger:   logging.OrNop(logger),
	}
}

// Create registers a new empty session. Creating an id twice is a program
// error: it is logged and the existing session is left untouched.
func (st *Store) Create(sessionID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.live[sessionID]; ok {
		st.logger.WithField("session_id", sessionID).Error("session already exists, ignoring create")
		return false
	}
	if _, ok := st.finished.Peek(sessionID); ok {
		st.logger.WithField("session_id", sessionID).Error("session already finished, ignoring create")
		return false
	}
	st.live[sessionID] = &Session{id: sessionID, createdAt: time.Now()}
	return true
}

func (st *Store) lookup(sessionID string) *Session {
	st.mu.RLock()
	s, ok := st.live[sessionID]
	st.mu.RUnlock()
	if ok {
		return s
	}
	if s, ok := st.finished.Get(sessionID); ok {
		return s
	}
	return nil
}

// AppendEvent adds a step event to the session history and notifies the
// current observers in registration order. Unknown or finished sessions are a
// no-op; the return value reports whether the event was stored.
func (st *Store) AppendEvent(sessionID string, evt domain.StepEvent) bool {
	s := st.lookup(sessionID)
	if s == nil {
		st.logger.WithFields(logging.Fields{"session_id": sessionID, "step": evt.ID}).Debug("dropping event for unknown session")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		st.logger.WithFields(logging.Fields{"session_id": sessionID, "step": evt.ID}).Debug("dropping event for finished session")
		return false
	}
	s.events = append(s.events, evt)
	msg := domain.StepMessage(evt)
	for _, obs := range s.observers {
		obs.fn(msg)
	}
	return true
}

// SetFinal stores the terminal report. Only the first terminal write
// (SetFinal or SetError) takes effect.
func (st *Store) SetFinal(sessionID string, report *domain.SafetyReport) bool {
	return st.finish(sessionID, func(s *Session) domain.Message {
		s.result = report
		return domain.FinalMessage(report)
	})
}

// SetError stores a terminal failure. Only the first terminal write
// (SetFinal or SetError) takes effect.
func (st *Store) SetError(sessionID, reason string) bool {
	return st.finish(sessionID, func(s *Session) domain.Message {
		s.errMsg = reason
		return domain.ErrorMessage(reason)
	})
}

func (st *Store) finish(sessionID string, apply func(s *Session) domain.Message) bool {
	s := st.lookup(sessionID)
	if s == nil {
		return false
	}

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		st.logger.WithField("session_id", sessionID).Debug("ignoring second terminal write")
		return false
	}
	msg := apply(s)
	s.done = true
	for _, obs := range s.observers {
		obs.fn(msg)
	}
	s.observers = nil
	s.mu.Unlock()

	st.retire(s)
	return true
}

// retire moves a finished session into the expiring cache.
func (st *Store) retire(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.live, s.id)
	st.finished.Add(s.id, s)
}

// Get returns a snapshot of the session.
func (st *Store) Get(sessionID string) (Snapshot, error) {
	s := st.lookup(sessionID)
	if s == nil {
		return Snapshot{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]domain.StepEvent, len(s.events))
	copy(events, s.events)
	return Snapshot{
		SessionID: s.id,
		CreatedAt: s.createdAt,
		Events:    events,
		Result:    s.result,
		Error:     s.errMsg,
		Done:      s.done,
	}, nil
}

// Exists reports whether the session is known.
func (st *Store) Exists(sessionID string) bool {
	return st.lookup(sessionID) != nil
}

// Subscribe replays the session history to fn and, if the session is still
// open, registers fn for live delivery. Replay and registration happen under
// the session lock, so fn sees every event exactly once and in order. For an
// unknown session it returns a no-op unsubscribe and false.
func (st *Store) Subscribe(sessionID string, fn Observer) (func(), bool) {
	s := st.lookup(sessionID)
	if s == nil {
		return func() {}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, evt := range s.events {
		fn(domain.StepMessage(evt))
	}
	if s.done {
		if s.result != nil {
			fn(domain.FinalMessage(s.result))
		} else {
			fn(domain.ErrorMessage(s.errMsg))
		}
		return func() {}, true
	}

	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.removeObserver(id) })
	}, true
}

func (s *Session) removeObserver(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, obs := range s.observers {
		if obs.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// ObserverCount returns the number of live observers attached to a session.
func (st *Store) ObserverCount(sessionID string) int {
	s := st.lookup(sessionID)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Len returns the number of sessions held, in flight and finished.
func (st *Store) Len() int {
	st.mu.RLock()
	live := len(st.live)
	st.mu.RUnlock()
	return live + st.finished.Len()
}
