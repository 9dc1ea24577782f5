package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/event-rsvp/internal/adapters/crdb"
	"github.com/robertarktes/event-rsvp/internal/observability"
	"github.com/robertarktes/event-rsvp/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	records   []crdb.OutboxRecord
	published map[uuid.UUID]bool
	readErr   error
}

func (f *fakeRepo) WithTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *fakeRepo) GetUnpublishedOutbox(_ context.Context, _ pgx.Tx, limit int) ([]crdb.OutboxRecord, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []crdb.OutboxRecord
	for _, r := range f.records {
		if !f.published[r.ID] && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkPublished(_ context.Context, _ pgx.Tx, id uuid.UUID, _ time.Time) error {
	f.published[id] = true
	return nil
}

type fakeBroker struct {
	keys   []string
	msgs   []amqp.Publishing
	failAt int
}

func (b *fakeBroker) Publish(_ context.Context, key string, msg amqp.Publishing) error {
	if b.failAt > 0 && len(b.keys)+1 == b.failAt {
		return errors.New("channel closed")
	}
	b.keys = append(b.keys, key)
	b.msgs = append(b.msgs, msg)
	return nil
}

func newRecords(types ...string) []crdb.OutboxRecord {
	var out []crdb.OutboxRecord
	for i, typ := range types {
		out = append(out, crdb.OutboxRecord{
			ID:        uuid.New(),
			EventType: typ,
			Payload:   []byte(`{}`),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
			DedupeKey: uuid.NewString(),
		})
	}
	return out
}

func TestRelayOnce(t *testing.T) {
	repo := &fakeRepo{records: newRecords("event.created", "event.rsvped"), published: map[uuid.UUID]bool{}}
	broker := &fakeBroker{}
	p := outbox.NewPublisher(repo, broker, observability.NewDiscardLogger(), time.Second)

	n, err := p.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"event.created", "event.rsvped"}, broker.keys)
	assert.Equal(t, repo.records[0].DedupeKey, broker.msgs[0].MessageId)
	assert.Equal(t, amqp.Persistent, broker.msgs[0].DeliveryMode)

	n, err = p.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayOnce_PublishFailureKeepsEarlierMarks(t *testing.T) {
	repo := &fakeRepo{records: newRecords("event.created", "event.rsvped", "event.rsvp_failed"), published: map[uuid.UUID]bool{}}
	broker := &fakeBroker{failAt: 2}
	p := outbox.NewPublisher(repo, broker, observability.NewDiscardLogger(), time.Second)

	n, err := p.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, repo.published[repo.records[0].ID])
	assert.False(t, repo.published[repo.records[1].ID])
}

func TestRelayOnce_ReadError(t *testing.T) {
	repo := &fakeRepo{readErr: errors.New("db down"), published: map[uuid.UUID]bool{}}
	p := outbox.NewPublisher(repo, &fakeBroker{}, observability.NewDiscardLogger(), time.Second)

	_, err := p.RelayOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}
