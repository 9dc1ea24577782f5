package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-rsvp/internal/domain"
	"github.com/robertarktes/event-rsvp/internal/form"
	"github.com/robertarktes/event-rsvp/internal/observability"
	"github.com/robertarktes/event-rsvp/internal/registry"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type Handlers struct {
	ctrl   *form.Controller
	logger observability.Logger
	checks map[string]Check
}

func NewHandlers(ctrl *form.Controller, logger observability.Logger, checks map[string]Check) *Handlers {
	return &Handlers{ctrl: ctrl, logger: logger, checks: checks}
}

func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctrl.TakeNotice(r.Context(), SessionID(r.Context()))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := renderPage(w, st); err != nil {
		loggerFrom(r.Context(), h.logger).WithError(err).Error("failed to render page")
	}
}

// CreateEvent handles the create form submission and redirects back to the
// page, which shows the outcome.
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := SessionID(ctx)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, err := h.ctrl.UpdateForm(ctx, sid, form.FormInput{
		EventName:   r.PostFormValue("eventName"),
		MaxCapacity: r.PostFormValue("maxCapacity"),
		Deposit:     r.PostFormValue("price"),
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if _, err := h.ctrl.CreateEvent(ctx, sid); err != nil && !handled(err) {
		h.internalError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) RSVP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := SessionID(ctx)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.ctrl.SetEventID(ctx, sid, r.PostFormValue("eventId")); err != nil {
		h.internalError(w, r, err)
		return
	}
	if _, err := h.ctrl.RSVP(ctx, sid); err != nil && !handled(err) {
		h.internalError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Reset(r.Context(), SessionID(r.Context())); err != nil {
		h.internalError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type stateResponse struct {
	State  form.State   `json:"state"`
	Notice *form.Notice `json:"notice,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func (h *Handlers) APIState(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctrl.State(r.Context(), SessionID(r.Context()))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: st})
}

type formPatch struct {
	EventName   *string `json:"eventName"`
	MaxCapacity *string `json:"maxCapacity"`
	Deposit     *string `json:"deposit"`
	EventID     *string `json:"eventId"`
}

// APIUpdateForm applies field-level edits. Numeric fields take the raw text
// of the control and are coerced exactly like the page form.
func (h *Handlers) APIUpdateForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := SessionID(ctx)

	var patch formPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, err := h.ctrl.State(ctx, sid)
	steps := []struct {
		val *string
		set func(context.Context, string, string) (form.State, error)
	}{
		{patch.EventName, h.ctrl.SetEventName},
		{patch.MaxCapacity, h.ctrl.SetMaxCapacity},
		{patch.Deposit, h.ctrl.SetDeposit},
		{patch.EventID, h.ctrl.SetEventID},
	}
	for _, s := range steps {
		if err != nil {
			break
		}
		if s.val != nil {
			st, err = s.set(ctx, sid, *s.val)
		}
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: st})
}

func (h *Handlers) APICreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := SessionID(ctx)

	if r.ContentLength != 0 {
		var in form.FormInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := h.ctrl.UpdateForm(ctx, sid, in); err != nil {
			h.internalError(w, r, err)
			return
		}
	}
	_, err := h.ctrl.CreateEvent(ctx, sid)
	h.writeOutcome(w, r, err)
}

func (h *Handlers) APIRSVP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := SessionID(ctx)

	if r.ContentLength != 0 {
		var in struct {
			EventID *string `json:"eventId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if in.EventID != nil {
			if _, err := h.ctrl.SetEventID(ctx, sid, *in.EventID); err != nil {
				h.internalError(w, r, err)
				return
			}
		}
	}
	_, err := h.ctrl.RSVP(ctx, sid)
	h.writeOutcome(w, r, err)
}

func (h *Handlers) APIReset(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Reset(r.Context(), SessionID(r.Context())); err != nil {
		h.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeOutcome answers an API action. The notice is consumed so the page
// does not show it again.
func (h *Handlers) writeOutcome(w http.ResponseWriter, r *http.Request, actionErr error) {
	if actionErr != nil && !handled(actionErr) {
		h.internalError(w, r, actionErr)
		return
	}
	st, err := h.ctrl.TakeNotice(r.Context(), SessionID(r.Context()))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	resp := stateResponse{State: st, Notice: st.Notice}
	resp.State.Notice = nil

	status := http.StatusOK
	var rce *registry.RemoteCallError
	switch {
	case errors.Is(actionErr, domain.ErrActionPending):
		status = http.StatusConflict
		resp.Error = actionErr.Error()
	case errors.As(actionErr, &rce):
		status = http.StatusBadGateway
		resp.Error = rce.Error()
	}
	writeJSON(w, status, resp)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, failed)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// handled reports errors the controller already turned into a notice.
func handled(err error) bool {
	var rce *registry.RemoteCallError
	return errors.Is(err, domain.ErrActionPending) || errors.As(err, &rce)
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	loggerFrom(r.Context(), h.logger).WithError(err).Error("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
