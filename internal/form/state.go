package form

import (
	"context"
	"time"

	"github.com/robertarktes/event-rsvp/internal/domain"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a one-shot message shown to the user after an action.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// State is everything the page shows for one browser session.
type State struct {
	domain.EventForm
	EventID string `json:"eventId"`
	domain.UIState
	Notice *Notice `json:"notice,omitempty"`
}

// Store persists State per session. Load of an unknown session returns the
// zero State and no error.
type Store interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, st State) error
	Delete(ctx context.Context, sessionID string) error
}

// Locker guards a session against overlapping actions. Acquire reports false
// when the session already holds the lock. Release only drops the lock taken
// with token; a lock that expired and was re-acquired stays in place.
type Locker interface {
	Acquire(ctx context.Context, sessionID string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, sessionID, token string) error
}

type FormInput struct {
	EventName   string `json:"eventName"`
	MaxCapacity string `json:"maxCapacity"`
	Deposit     string `json:"deposit"`
}
