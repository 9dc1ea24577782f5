package audit_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-rsvp/internal/audit"
	"github.com/robertarktes/event-rsvp/internal/domain"
	"github.com/stretchr/testify/assert"
)

type memRecorder struct {
	mu   sync.Mutex
	seen []audit.Outcome
	err  error
}

func (m *memRecorder) Record(_ context.Context, o audit.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, o)
	return m.err
}

func TestOutcome_EventType(t *testing.T) {
	rec := &domain.EventRecord{UniqueID: "1"}
	failed := errors.New("Event full")

	assert.Equal(t, "event.created", audit.NewOutcome("s", domain.ActionCreate, "", rec, nil).EventType())
	assert.Equal(t, "event.create_failed", audit.NewOutcome("s", domain.ActionCreate, "", nil, failed).EventType())
	assert.Equal(t, "event.rsvped", audit.NewOutcome("s", domain.ActionRSVP, "1", rec, nil).EventType())
	assert.Equal(t, "event.rsvp_failed", audit.NewOutcome("s", domain.ActionRSVP, "1", nil, failed).EventType())
}

func TestNewOutcome_FailureDropsRecord(t *testing.T) {
	o := audit.NewOutcome("s", domain.ActionRSVP, "42", &domain.EventRecord{}, errors.New("Event full"))
	assert.Nil(t, o.Record)
	assert.Equal(t, "Event full", o.Error)
	assert.False(t, o.Succeeded())
}

func TestMulti_RecordsEverywhere(t *testing.T) {
	ok := &memRecorder{}
	bad := &memRecorder{err: errors.New("mongo down")}
	o := audit.NewOutcome("s", domain.ActionCreate, "", &domain.EventRecord{UniqueID: "7"}, nil)

	err := audit.Multi{ok, bad, audit.Nop{}}.Record(context.Background(), o)

	assert.ErrorContains(t, err, "mongo down")
	assert.Len(t, ok.seen, 1)
	assert.Len(t, bad.seen, 1)
	assert.Equal(t, o.ID, ok.seen[0].ID)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, audit.Multi{}.Record(context.Background(), audit.Outcome{}))
}
