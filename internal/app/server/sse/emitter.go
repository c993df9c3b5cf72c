// Package sse holds the event-stream emitter registry: one
// server-to-client stream per user, used for incremental AI reply
// delivery.
package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ZhanWeiKai/eatwhat/internal/config"
	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
)

// Event is one named server-sent event. Terminal events retire the
// session after delivery.
type Event struct {
	Name     string
	ID       string
	Data     string
	Terminal bool
}

// Session is a single outstanding stream for one user.
type Session struct {
	userID string
	events chan Event
	done   chan struct{}
	once   sync.Once
	timer  *time.Timer
}

func (s *Session) UserID() string { return s.userID }

// Events is drained by the HTTP handler that owns the response writer.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed exactly once when the session is retired.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) close() {
	s.once.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		close(s.done)
	})
}

// Server is the emitter registry. Simpler than the connection registry:
// no topics, one stream per user, last Open wins.
type Server struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      config.StreamConfig
	log      *slog.Logger
}

func NewServer(log *slog.Logger, cfg config.StreamConfig) *Server {
	return &Server{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		log:      log,
	}
}

// Open creates and registers a session for userID, replacing any
// previous one the same way the connection registry replaces handles.
// The connect confirmation event is queued immediately. A session left
// open past the configured deadline is force-failed so registry entries
// cannot leak.
func (s *Server) Open(userID string) *Session {
	sess := &Session{
		userID: userID,
		events: make(chan Event, s.cfg.SendBuffer),
		done:   make(chan struct{}),
	}
	if s.cfg.SessionDeadline > 0 {
		sess.timer = time.AfterFunc(s.cfg.SessionDeadline, func() {
			s.log.Warn("sse - session deadline exceeded", "user_id", userID)
			s.failSession(sess, "stream timed out")
		})
	}
	s.mu.Lock()
	old := s.sessions[userID]
	s.sessions[userID] = sess
	s.mu.Unlock()
	if old != nil {
		old.close()
		s.log.Info("sse - open - replaced existing session", "user_id", userID)
	}
	s.log.Info("sse - open - session created", "user_id", userID)
	sess.push(Event{Name: domain.StreamEventConnect, ID: userID, Data: "connected"})
	return sess
}

// Append sends an incremental chunk. No open session means the data is
// lost by design; log and move on, never raise.
func (s *Server) Append(ctx context.Context, userID, chunk string) {
	sess, ok := s.lookup(userID)
	if !ok {
		s.log.WarnContext(ctx, "sse - append - no open session, chunk dropped", "user_id", userID)
		return
	}
	sess.push(Event{Name: domain.StreamEventAdd, ID: userID, Data: chunk})
}

// Finish sends the terminal finish event and retires the session.
func (s *Server) Finish(ctx context.Context, userID, finalPayload string) {
	sess, ok := s.lookup(userID)
	if !ok {
		return
	}
	sess.push(Event{Name: domain.StreamEventFinish, ID: userID, Data: finalPayload, Terminal: true})
	s.Remove(sess)
}

// Fail sends the terminal error event and retires the session. Upstream
// AI failures land here, never as transport errors.
func (s *Server) Fail(ctx context.Context, userID, errorPayload string) {
	sess, ok := s.lookup(userID)
	if !ok {
		return
	}
	s.failSession(sess, errorPayload)
}

func (s *Server) failSession(sess *Session, errorPayload string) {
	sess.push(Event{Name: domain.StreamEventError, ID: sess.userID, Data: errorPayload, Terminal: true})
	s.Remove(sess)
}

// Remove retires sess. Every teardown trigger routes here: normal
// completion, failure, deadline, client disconnect, transport error.
// Removing twice, or removing a session already replaced by a newer
// Open, is a no-op.
func (s *Server) Remove(sess *Session) {
	s.mu.Lock()
	if s.sessions[sess.userID] == sess {
		delete(s.sessions, sess.userID)
	}
	s.mu.Unlock()
	sess.close()
	s.log.Info("sse - session removed", "user_id", sess.userID)
}

func (s *Server) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) lookup(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// push enqueues without blocking; a full buffer on a terminal event
// still gives the drain loop the done signal to act on.
func (s *Session) push(ev Event) {
	select {
	case <-s.done:
	case s.events <- ev:
	default:
	}
}
