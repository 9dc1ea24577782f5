package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/robertarktes/event-rsvp/internal/observability"
	"github.com/robertarktes/event-rsvp/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractGateway behaves like the deployed rsvp contract: create_event
// stores an event, rsvp takes one slot and reverts when none are left.
type contractGateway struct {
	mu     sync.Mutex
	nextID int
	events map[string]*gatewayEvent
}

type gatewayEvent struct {
	UniqueID    int     `json:"uniqueId"`
	Name        string  `json:"name"`
	MaxCapacity int64   `json:"maxCapacity"`
	Deposit     float64 `json:"deposit"`
	attendees   int64
}

func (g *contractGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
		Params struct {
			Args []json.RawMessage `json:"args"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Params.Args) == 0 {
		writeRPCError(w, "bad request")
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch req.Method {
	case registry.MethodCreateEvent:
		var ev gatewayEvent
		json.Unmarshal(req.Params.Args[0], &ev.MaxCapacity)
		json.Unmarshal(req.Params.Args[1], &ev.Deposit)
		json.Unmarshal(req.Params.Args[2], &ev.Name)
		ev.UniqueID = g.nextID
		g.nextID++
		g.events[strconv.Itoa(ev.UniqueID)] = &ev
		writeRPCResult(w, &ev)
	case registry.MethodRSVP:
		var id string
		json.Unmarshal(req.Params.Args[0], &id)
		ev, ok := g.events[id]
		if !ok {
			writeRPCError(w, "Event not found")
			return
		}
		if ev.attendees >= ev.MaxCapacity {
			writeRPCError(w, "Event full")
			return
		}
		ev.attendees++
		writeRPCResult(w, ev)
	default:
		writeRPCError(w, "unknown method")
	}
}

func writeRPCResult(w http.ResponseWriter, ev *gatewayEvent) {
	json.NewEncoder(w).Encode(map[string]interface{}{"result": map[string]interface{}{"value": ev}})
}

func writeRPCError(w http.ResponseWriter, msg string) {
	json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]interface{}{"code": -32000, "message": msg}})
}

func TestEndToEnd_CreateAndRSVP(t *testing.T) {
	gw := httptest.NewServer(&contractGateway{nextID: 42, events: map[string]*gatewayEvent{}})
	defer gw.Close()

	client, err := registry.NewClient(registry.Options{
		ServiceAddress: "0xabc",
		SigningKey:     []byte("secret"),
		Endpoint:       gw.URL,
		CallOptions:    registry.CallOptions{GasPrice: 1},
	}, observability.NewDiscardLogger())
	require.NoError(t, err)

	b := newBrowser(t, client, nil, nil)

	b.postForm("/events", url.Values{"eventName": {"Launch Party"}, "maxCapacity": {"1"}, "price": {"10"}})
	_, body := b.get("/")
	assert.Contains(t, body, "Event ID: 42")
	assert.Contains(t, body, "Max capacity: 1")

	b.postForm("/rsvp", url.Values{"eventId": {"42"}})
	_, body = b.get("/")
	assert.Contains(t, body, "RSVP Confirmed to the following event: Launch Party")
	assert.Contains(t, body, "rsvp successful")

	// the only slot is taken
	b.postForm("/rsvp", url.Values{"eventId": {"42"}})
	_, body = b.get("/")
	assert.Contains(t, body, "Event full")
	assert.Contains(t, body, "RSVP Confirmed", "earlier confirmation is kept")

	b.postForm("/rsvp", url.Values{"eventId": {""}})
	_, body = b.get("/")
	assert.Contains(t, body, "Event not found")
}
