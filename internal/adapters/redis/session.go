package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/event-rsvp/internal/form"
)

// SessionStore keeps form state as JSON under session:<id>. Every save
// refreshes the TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (form.State, error) {
	var st form.State
	val, err := s.client.Get(ctx, "session:"+sessionID).Bytes()
	if err == redis.Nil {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(val, &st); err != nil {
		return form.State{}, errors.Wrap(err, "decode session")
	}
	return st, nil
}

func (s *SessionStore) Save(ctx context.Context, sessionID string, st form.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, "session:"+sessionID, data, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, "session:"+sessionID).Err()
}
