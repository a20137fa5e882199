package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"insurance-desk/internal/engine"
)

type session struct {
	id       string
	engine   *engine.Engine
	lastSeen time.Time
}

// SessionTracker is notified as sessions open and close.
type SessionTracker interface {
	SessionOpened(flow string)
	SessionClosed(flow string)
}

// Sessions owns one wizard engine per open browser session.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	tracker  SessionTracker
	now      func() time.Time
}

func NewSessions(tracker SessionTracker) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		tracker:  tracker,
		now:      time.Now,
	}
}

func (s *Sessions) Open(e *engine.Engine) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &session{id: id, engine: e, lastSeen: s.now()}
	s.mu.Unlock()
	if s.tracker != nil {
		s.tracker.SessionOpened(e.Flow().Name)
	}
	return id
}

func (s *Sessions) Get(id string) (*engine.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.engine, true
}

func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok && s.tracker != nil {
		s.tracker.SessionClosed(sess.engine.Flow().Name)
	}
	return ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than ttl and reports how many it
// closed. Expiry is decided and applied under one lock so a session touched
// by Get is never closed by a sweep already in progress.
func (s *Sessions) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)
	var closed []*session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			closed = append(closed, sess)
		}
	}
	s.mu.Unlock()

	if s.tracker != nil {
		for _, sess := range closed {
			s.tracker.SessionClosed(sess.engine.Flow().Name)
		}
	}
	return len(closed)
}

// RunSweeper sweeps every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ttl)
		}
	}
}
