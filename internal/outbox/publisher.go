// Package outbox relays recorded registry outcomes from the database to the
// broker. Delivery is at least once; MessageId carries the dedupe key.
package outbox

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/event-rsvp/internal/adapters/crdb"
	"github.com/robertarktes/event-rsvp/internal/observability"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	GetUnpublishedOutbox(ctx context.Context, tx pgx.Tx, limit int) ([]crdb.OutboxRecord, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, id uuid.UUID, publishedAt time.Time) error
}

type Broker interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	repo      Repository
	broker    Broker
	logger    observability.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewPublisher(repo Repository, broker Broker, logger observability.Logger, interval time.Duration) *Publisher {
	return &Publisher{
		repo:      repo,
		broker:    broker,
		logger:    logger.WithField("component", "outbox"),
		interval:  interval,
		batchSize: 10,
		now:       time.Now,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("Outbox publisher started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.RelayOnce(ctx)
			if err != nil {
				p.logger.WithError(err).Error("outbox relay failed")
				continue
			}
			if n > 0 {
				p.logger.WithField("count", n).Debug("outbox records relayed")
			}
		}
	}
}

// RelayOnce publishes one batch. A publish failure ends the batch early; the
// records already sent are still marked.
func (p *Publisher) RelayOnce(ctx context.Context) (int, error) {
	sent := 0
	err := p.repo.WithTx(ctx, func(tx pgx.Tx) error {
		records, err := p.repo.GetUnpublishedOutbox(ctx, tx, p.batchSize)
		if err != nil {
			return errors.Wrap(err, "read outbox")
		}
		if len(records) > 0 {
			observability.OutboxLag.Set(p.now().Sub(records[0].CreatedAt).Seconds())
		} else {
			observability.OutboxLag.Set(0)
		}

		for _, rec := range records {
			msg := amqp.Publishing{
				MessageId:    rec.DedupeKey,
				Type:         rec.EventType,
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    rec.CreatedAt,
				Body:         rec.Payload,
			}
			if err := p.broker.Publish(ctx, rec.EventType, msg); err != nil {
				p.logger.WithError(err).WithField("outbox_id", rec.ID).Warn("publish failed, retrying next poll")
				return nil
			}
			if err := p.repo.MarkPublished(ctx, tx, rec.ID, p.now()); err != nil {
				return errors.Wrapf(err, "mark %s published", rec.ID)
			}
			observability.OutboxPublished.WithLabelValues(rec.EventType).Inc()
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}
