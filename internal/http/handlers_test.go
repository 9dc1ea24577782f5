package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-rsvp/internal/adapters/memory"
	"github.com/robertarktes/event-rsvp/internal/audit"
	"github.com/robertarktes/event-rsvp/internal/domain"
	"github.com/robertarktes/event-rsvp/internal/form"
	httphandler "github.com/robertarktes/event-rsvp/internal/http"
	"github.com/robertarktes/event-rsvp/internal/observability"
	"github.com/robertarktes/event-rsvp/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRegistry struct {
	mu  sync.Mutex
	rec domain.EventRecord
	err error
}

func (s *stubRegistry) set(rec domain.EventRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec, s.err = rec, err
}

func (s *stubRegistry) CreateEvent(context.Context, int64, float64, string) (domain.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, s.err
}

func (s *stubRegistry) RSVP(context.Context, string) (domain.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, s.err
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

type browser struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newBrowser(t *testing.T, reg form.Registry, rl httphandler.Limiter, checks map[string]httphandler.Check) *browser {
	t.Helper()
	logger := observability.NewDiscardLogger()
	ctrl := form.NewController(reg, memory.NewSessionStore(), memory.NewLocker(), audit.Nop{}, logger, time.Minute)
	h := httphandler.NewHandlers(ctrl, logger, checks)
	srv := httptest.NewServer(httphandler.SetupRouter(h, logger, rl, time.Hour))
	t.Cleanup(srv.Close)

	jar := newJar()
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &browser{t: t, srv: srv, client: client}
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.srv.URL + path)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (b *browser) postForm(path string, values url.Values) (int, http.Header) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.srv.URL+path, values)
	require.NoError(b.t, err)
	resp.Body.Close()
	return resp.StatusCode, resp.Header
}

func (b *browser) sendJSON(method, path, body string) (int, map[string]interface{}) {
	b.t.Helper()
	req, err := http.NewRequest(method, b.srv.URL+path, strings.NewReader(body))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	out := map[string]interface{}{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestPage_Initial(t *testing.T) {
	b := newBrowser(t, &stubRegistry{}, nil, nil)

	status, body := b.get("/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `id="createEventForm"`)
	assert.Contains(t, body, ">create<")
	assert.Contains(t, body, `name="eventId"`)
	assert.NotContains(t, body, "New event created")
	assert.NotContains(t, body, "RSVP Confirmed")
	assert.NotContains(t, body, `role="alert"`)
}

func TestPage_CreateEvent(t *testing.T) {
	reg := &stubRegistry{}
	reg.set(domain.EventRecord{UniqueID: "42", Name: "Launch Party", MaxCapacity: 50, Deposit: 10}, nil)
	b := newBrowser(t, reg, nil, nil)

	status, hdr := b.postForm("/events", url.Values{
		"eventName":   {"Launch Party"},
		"maxCapacity": {"50"},
		"price":       {"10"},
	})
	assert.Equal(t, http.StatusSeeOther, status)
	assert.Equal(t, "/", hdr.Get("Location"))

	_, body := b.get("/")
	assert.Contains(t, body, "New event created")
	assert.Contains(t, body, "Event Name: Launch Party")
	assert.Contains(t, body, "Event ID: 42")
	assert.Contains(t, body, "Max capacity: 50")
	assert.Contains(t, body, "Deposit: 10")
	assert.Contains(t, body, "Event created")
	assert.Contains(t, body, `role="alert"`)

	_, body = b.get("/")
	assert.NotContains(t, body, `role="alert"`, "notice is shown once")
	assert.Contains(t, body, "New event created", "confirmation stays")
}

func TestPage_RSVPFailure(t *testing.T) {
	reg := &stubRegistry{}
	reg.set(domain.EventRecord{}, &registry.RemoteCallError{Method: registry.MethodRSVP, Message: "Event full"})
	b := newBrowser(t, reg, nil, nil)

	status, _ := b.postForm("/rsvp", url.Values{"eventId": {"42"}})
	assert.Equal(t, http.StatusSeeOther, status)

	_, body := b.get("/")
	assert.Contains(t, body, "Event full")
	assert.NotContains(t, body, "RSVP Confirmed")
	assert.Contains(t, body, `value="42"`)
	assert.Contains(t, body, ">create<", "not loading")
}

func TestAPI_CreateThenRSVP(t *testing.T) {
	reg := &stubRegistry{}
	reg.set(domain.EventRecord{UniqueID: "42", Name: "Launch Party", MaxCapacity: 50, Deposit: 10}, nil)
	b := newBrowser(t, reg, nil, nil)

	status, out := b.sendJSON(http.MethodPost, "/api/events", `{"eventName":"Launch Party","maxCapacity":"50","deposit":"10"}`)
	require.Equal(t, http.StatusOK, status)
	st := out["state"].(map[string]interface{})
	assert.Equal(t, "42", st["eventId"])
	assert.Equal(t, true, st["eventCreationConfirmed"])
	assert.Equal(t, false, st["loading"])
	assert.Equal(t, "Event created", out["notice"].(map[string]interface{})["message"])

	reg.set(domain.EventRecord{}, &registry.RemoteCallError{Method: registry.MethodRSVP, Message: "Event full"})
	status, out = b.sendJSON(http.MethodPost, "/api/rsvp", `{"eventId":"42"}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "Event full", out["error"])
	st = out["state"].(map[string]interface{})
	assert.Equal(t, false, st["rsvpConfirmed"])
	assert.Equal(t, "Launch Party", st["eventName"])
}

func TestAPI_PatchFormCoerces(t *testing.T) {
	b := newBrowser(t, &stubRegistry{}, nil, nil)

	status, out := b.sendJSON(http.MethodPatch, "/api/form", `{"eventName":"x","maxCapacity":"abc","deposit":"2.5"}`)
	require.Equal(t, http.StatusOK, status)
	st := out["state"].(map[string]interface{})
	assert.Equal(t, "x", st["eventName"])
	assert.Equal(t, float64(0), st["maxCapacity"])
	assert.Equal(t, 2.5, st["deposit"])

	_, out = b.sendJSON(http.MethodPatch, "/api/form", `{"eventId":"7"}`)
	st = out["state"].(map[string]interface{})
	assert.Equal(t, "7", st["eventId"])
	assert.Equal(t, "x", st["eventName"], "untouched fields are kept")

	status, _ = b.sendJSON(http.MethodPatch, "/api/form", `{`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_Reset(t *testing.T) {
	reg := &stubRegistry{}
	reg.set(domain.EventRecord{UniqueID: "42"}, nil)
	b := newBrowser(t, reg, nil, nil)

	b.sendJSON(http.MethodPost, "/api/events", "")
	status, _ := b.sendJSON(http.MethodPost, "/api/reset", "")
	assert.Equal(t, http.StatusNoContent, status)

	_, out := b.sendJSON(http.MethodGet, "/api/state", "")
	st := out["state"].(map[string]interface{})
	assert.Equal(t, false, st["eventCreationConfirmed"])
}

func TestRateLimit(t *testing.T) {
	b := newBrowser(t, &stubRegistry{}, denyAll{}, nil)

	status, _ := b.postForm("/rsvp", url.Values{"eventId": {"1"}})
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, _ = b.get("/")
	assert.Equal(t, http.StatusOK, status, "reads are not limited")
}

func TestProbes(t *testing.T) {
	b := newBrowser(t, &stubRegistry{}, nil, map[string]httphandler.Check{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	status, _ := b.get("/v1/healthz")
	assert.Equal(t, http.StatusOK, status)

	status, body := b.get("/v1/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "connection refused")

	status, body = b.get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "rsvp_requests_total")
}
