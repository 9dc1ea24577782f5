// Package audit records the outcome of every finished registry call.
package audit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/event-rsvp/internal/domain"
	"golang.org/x/sync/errgroup"
)

type Outcome struct {
	ID        uuid.UUID           `json:"outcome_id"`
	SessionID string              `json:"session_id"`
	Action    domain.Action       `json:"action"`
	EventID   string              `json:"event_id"`
	Record    *domain.EventRecord `json:"record,omitempty"`
	Error     string              `json:"error,omitempty"`
	At        time.Time           `json:"at"`
}

func (o Outcome) Succeeded() bool {
	return o.Error == ""
}

// EventType is the routing key used when the outcome is relayed.
func (o Outcome) EventType() string {
	switch {
	case o.Action == domain.ActionCreate && o.Succeeded():
		return "event.created"
	case o.Action == domain.ActionCreate:
		return "event.create_failed"
	case o.Succeeded():
		return "event.rsvped"
	default:
		return "event.rsvp_failed"
	}
}

func NewOutcome(sessionID string, action domain.Action, eventID string, rec *domain.EventRecord, callErr error) Outcome {
	o := Outcome{
		ID:        uuid.New(),
		SessionID: sessionID,
		Action:    action,
		EventID:   eventID,
		Record:    rec,
		At:        time.Now().UTC(),
	}
	if callErr != nil {
		o.Error = callErr.Error()
		o.Record = nil
	}
	return o
}

type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

type Nop struct{}

func (Nop) Record(context.Context, Outcome) error { return nil }

// Multi writes to all recorders concurrently. Every recorder runs even when
// another fails; the failures are joined.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, o Outcome) error {
	errs := make([]error, len(m))
	var g errgroup.Group
	for i, r := range m {
		g.Go(func() error {
			errs[i] = r.Record(ctx, o)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
