package session

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/roshaninfordham/safebiteai/internal/domain"
)

// ErrStreamClosed is returned by Next after Close.
var ErrStreamClosed = errors.New("stream closed")

// Stream is one observer's view of a session: history first, then live
// events, then the terminal message. Messages queue in an unbounded mailbox
// so a slow reader never blocks the run that emits them.
type Stream struct {
	sessionID string

	mu          sync.Mutex
	queue       []domain.Message
	gotTerminal bool
	readTerm    bool
	closed      bool
	notify      chan struct{}

	unsubscribe func()
	closeOnce   sync.Once
}

// Attach opens a stream on a session. Unknown sessions yield
// ErrSessionNotFound and no stream.
func (st *Store) Attach(sessionID string) (*Stream, error) {
	stream := &Stream{
		sessionID: sessionID,
		notify:    make(chan struct{}, 1),
	}
	unsubscribe, ok := st.Subscribe(sessionID, stream.push)
	if !ok {
		return nil, ErrSessionNotFound
	}
	stream.unsubscribe = unsubscribe
	return stream, nil
}

// SessionID returns the id of the attached session.
func (s *Stream) SessionID() string {
	return s.sessionID
}

func (s *Stream) push(msg domain.Message) {
	s.mu.Lock()
	if s.closed || s.gotTerminal {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	if msg.IsTerminal() {
		s.gotTerminal = true
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until the next message is available. After the terminal
// message has been returned it reports io.EOF; after Close, ErrStreamClosed.
func (s *Stream) Next(ctx context.Context) (domain.Message, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue[0] = domain.Message{}
			s.queue = s.queue[1:]
			if msg.IsTerminal() {
				s.readTerm = true
			}
			s.mu.Unlock()
			return msg, nil
		}
		if s.readTerm {
			s.mu.Unlock()
			return domain.Message{}, io.EOF
		}
		if s.closed {
			s.mu.Unlock()
			return domain.Message{}, ErrStreamClosed
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return domain.Message{}, ctx.Err()
		}
	}
}

// Close detaches the stream from its session. It never affects the run.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()

		select {
		case s.notify <- struct{}{}:
		default:
		}
	})
}
