// Package memory keeps sessions in process. Used when no Redis address is
// configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/event-rsvp/internal/form"
)

type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]form.State
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]form.State)}
}

func (s *SessionStore) Load(_ context.Context, sessionID string) (form.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.sessions[sessionID]
	if st.Notice != nil {
		n := *st.Notice
		st.Notice = &n
	}
	return st, nil
}

func (s *SessionStore) Save(_ context.Context, sessionID string, st form.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Notice != nil {
		n := *st.Notice
		st.Notice = &n
	}
	s.sessions[sessionID] = st
	return nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

type lock struct {
	token   string
	expires time.Time
}

type Locker struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]lock
}

func NewLocker() *Locker {
	return &Locker{now: time.Now, locks: make(map[string]lock)}
}

func (l *Locker) Acquire(_ context.Context, sessionID string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if held, ok := l.locks[sessionID]; ok && now.Before(held.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.locks[sessionID] = lock{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *Locker) Release(_ context.Context, sessionID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[sessionID]; ok && held.token == token {
		delete(l.locks, sessionID)
	}
	return nil
}
