// Package form holds the page state machine: one state per browser session,
// two actions (create, rsvp) that each go Idle -> Pending -> Succeeded|Failed.
package form

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-rsvp/internal/audit"
	"github.com/robertarktes/event-rsvp/internal/domain"
	"github.com/robertarktes/event-rsvp/internal/observability"
)

const (
	msgEventCreated = "Event created"
	msgRSVPDone     = "rsvp successful"
)

// Registry is the remote event-registry capability the controller drives.
type Registry interface {
	CreateEvent(ctx context.Context, maxCapacity int64, deposit float64, eventName string) (domain.EventRecord, error)
	RSVP(ctx context.Context, eventID string) (domain.EventRecord, error)
}

type Controller struct {
	registry   Registry
	store      Store
	locker     Locker
	recorder   audit.Recorder
	logger     observability.Logger
	pendingTTL time.Duration
}

func NewController(registry Registry, store Store, locker Locker, recorder audit.Recorder, logger observability.Logger, pendingTTL time.Duration) *Controller {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Controller{
		registry:   registry,
		store:      store,
		locker:     locker,
		recorder:   recorder,
		logger:     logger.WithField("component", "form"),
		pendingTTL: pendingTTL,
	}
}

func (c *Controller) State(ctx context.Context, sessionID string) (State, error) {
	st, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return State{}, errors.Wrap(err, "load session")
	}
	return st, nil
}

// TakeNotice returns the state with its pending notice and clears the
// notice from the store, so each notice is shown once.
func (c *Controller) TakeNotice(ctx context.Context, sessionID string) (State, error) {
	st, err := c.State(ctx, sessionID)
	if err != nil || st.Notice == nil {
		return st, err
	}
	cleared := st
	cleared.Notice = nil
	if err := c.store.Save(ctx, sessionID, cleared); err != nil {
		return st, errors.Wrap(err, "save session")
	}
	return st, nil
}

func (c *Controller) SetEventName(ctx context.Context, sessionID, text string) (State, error) {
	return c.update(ctx, sessionID, func(st *State) { st.EventName = text })
}

func (c *Controller) SetMaxCapacity(ctx context.Context, sessionID, text string) (State, error) {
	return c.update(ctx, sessionID, func(st *State) { st.MaxCapacity = CoerceInt(text) })
}

func (c *Controller) SetDeposit(ctx context.Context, sessionID, text string) (State, error) {
	return c.update(ctx, sessionID, func(st *State) { st.Deposit = CoerceNumber(text) })
}

func (c *Controller) SetEventID(ctx context.Context, sessionID, text string) (State, error) {
	return c.update(ctx, sessionID, func(st *State) { st.EventID = text })
}

// UpdateForm applies the three create-form fields in one write.
func (c *Controller) UpdateForm(ctx context.Context, sessionID string, in FormInput) (State, error) {
	return c.update(ctx, sessionID, func(st *State) {
		st.EventName = in.EventName
		st.MaxCapacity = CoerceInt(in.MaxCapacity)
		st.Deposit = CoerceNumber(in.Deposit)
	})
}

// Reset drops everything the session holds, confirmation flags included.
func (c *Controller) Reset(ctx context.Context, sessionID string) error {
	if err := c.store.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// CreateEvent submits the stored form. On success the four record fields
// replace the local ones and EventCreationConfirmed is set.
func (c *Controller) CreateEvent(ctx context.Context, sessionID string) (State, error) {
	return c.run(ctx, sessionID, domain.ActionCreate,
		func(ctx context.Context, st State) (domain.EventRecord, error) {
			return c.registry.CreateEvent(ctx, st.MaxCapacity, st.Deposit, st.EventName)
		},
		func(st *State) { st.EventCreationConfirmed = true },
		msgEventCreated,
	)
}

// RSVP reserves a slot on the stored event id.
func (c *Controller) RSVP(ctx context.Context, sessionID string) (State, error) {
	return c.run(ctx, sessionID, domain.ActionRSVP,
		func(ctx context.Context, st State) (domain.EventRecord, error) {
			return c.registry.RSVP(ctx, st.EventID)
		},
		func(st *State) { st.RSVPConfirmed = true },
		msgRSVPDone,
	)
}

type callFunc func(ctx context.Context, st State) (domain.EventRecord, error)

// run drives one action. The returned error is the remote failure, if any;
// by then it has already been turned into a notice on the stored state.
func (c *Controller) run(ctx context.Context, sessionID string, action domain.Action, call callFunc, confirm func(*State), success string) (State, error) {
	// Once issued, a call is awaited even if the request that started it goes away.
	ctx = context.WithoutCancel(ctx)
	log := c.logger.WithFields(map[string]interface{}{"session_id": sessionID, "action": string(action)})

	token, acquired, err := c.locker.Acquire(ctx, sessionID, c.pendingTTL)
	if err != nil {
		return State{}, errors.Wrap(err, "acquire pending lock")
	}
	if !acquired {
		observability.PendingRejections.WithLabelValues(string(action)).Inc()
		log.Warn("action refused, another one is pending")
		st, err := c.update(ctx, sessionID, func(st *State) {
			st.Notice = &Notice{Kind: NoticeError, Message: domain.ErrActionPending.Error()}
		})
		if err != nil {
			return st, err
		}
		return st, domain.ErrActionPending
	}
	defer func() {
		if err := c.locker.Release(ctx, sessionID, token); err != nil {
			log.WithError(err).Warn("failed to release pending lock")
		}
	}()

	st, err := c.update(ctx, sessionID, func(st *State) { st.Loading = true })
	if err != nil {
		return st, err
	}

	settled := false
	defer func() {
		if settled {
			return
		}
		if _, err := c.update(ctx, sessionID, func(st *State) { st.Loading = false }); err != nil {
			log.WithError(err).Error("failed to clear loading")
		}
	}()

	log.WithField("event_id", st.EventID).Info("calling registry")
	rec, callErr := call(ctx, st)
	c.record(ctx, log, sessionID, action, st.EventID, rec, callErr)

	final, err := c.update(ctx, sessionID, func(cur *State) {
		cur.Loading = false
		if callErr != nil {
			cur.Notice = &Notice{Kind: NoticeError, Message: callErr.Error()}
			return
		}
		cur.EventName = rec.Name
		cur.EventID = rec.UniqueID
		cur.MaxCapacity = rec.MaxCapacity
		cur.Deposit = rec.Deposit
		confirm(cur)
		cur.Notice = &Notice{Kind: NoticeSuccess, Message: success}
	})
	settled = err == nil
	if err != nil {
		log.WithError(err).Error("failed to store action result")
		return final, err
	}

	if callErr != nil {
		log.WithError(callErr).Warn("registry call failed")
		return final, callErr
	}
	log.WithFields(map[string]interface{}{
		"event_id":     rec.UniqueID,
		"event_name":   rec.Name,
		"max_capacity": rec.MaxCapacity,
		"deposit":      rec.Deposit,
	}).Info("registry call succeeded")
	return final, nil
}

func (c *Controller) record(ctx context.Context, log observability.Logger, sessionID string, action domain.Action, eventID string, rec domain.EventRecord, callErr error) {
	if action == domain.ActionCreate && callErr == nil {
		eventID = rec.UniqueID
	}
	o := audit.NewOutcome(sessionID, action, eventID, &rec, callErr)
	if err := c.recorder.Record(ctx, o); err != nil {
		observability.AuditFailures.Inc()
		log.WithError(err).Error("failed to record outcome")
	}
}

func (c *Controller) update(ctx context.Context, sessionID string, fn func(*State)) (State, error) {
	st, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return State{}, errors.Wrap(err, "load session")
	}
	fn(&st)
	if err := c.store.Save(ctx, sessionID, st); err != nil {
		return st, errors.Wrap(err, "save session")
	}
	return st, nil
}
