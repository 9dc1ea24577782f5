// Package registry talks to the remote event-registry contract through its
// JSON-RPC gateway.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/event-rsvp/internal/domain"
	"github.com/robertarktes/event-rsvp/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MethodCreateEvent = "create_event"
	MethodRSVP        = "rsvp"

	maxResponseBytes = 1 << 20
)

type CallOptions struct {
	GasPrice uint64
}

// Options is fixed for the life of the process and shared by both calls.
type Options struct {
	ServiceAddress string
	SigningKey     []byte
	Endpoint       string
	CallOptions    CallOptions
	// HTTPClient defaults to a client with an otel transport and no timeout.
	HTTPClient *http.Client
}

type Client struct {
	endpoint string
	contract string
	call     CallOptions
	signer   signer
	http     *http.Client
	tracer   trace.Tracer
	logger   observability.Logger
}

func NewClient(opts Options, logger observability.Logger) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.Wrap(domain.ErrInvalidInput, "registry endpoint is required")
	}
	if len(opts.SigningKey) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "registry signing key is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		endpoint: opts.Endpoint,
		contract: opts.ServiceAddress,
		call:     opts.CallOptions,
		signer:   signer{key: opts.SigningKey, subject: opts.ServiceAddress, now: time.Now},
		http:     hc,
		tracer:   otel.Tracer("registry"),
		logger:   logger.WithField("component", "registry"),
	}, nil
}

// CreateEvent registers a new event. The argument order matches the
// contract's create_event(max_capacity, deposit, event_name).
func (c *Client) CreateEvent(ctx context.Context, maxCapacity int64, deposit float64, eventName string) (domain.EventRecord, error) {
	return c.invoke(ctx, MethodCreateEvent, maxCapacity, deposit, eventName)
}

// RSVP reserves a slot on an existing event. Unknown or empty ids are
// rejected by the contract, not here.
func (c *Client) RSVP(ctx context.Context, eventID string) (domain.EventRecord, error) {
	return c.invoke(ctx, MethodRSVP, eventID)
}

func (c *Client) invoke(ctx context.Context, method string, args ...interface{}) (rec domain.EventRecord, err error) {
	nonce := uuid.New().String()

	ctx, span := c.tracer.Start(ctx, "registry."+method, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("registry.contract_id", c.contract),
		attribute.String("registry.nonce", nonce),
		attribute.Int64("registry.gas_price", int64(c.call.GasPrice)),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RegistryCallsTotal.WithLabelValues(method, outcome).Inc()
		observability.RegistryCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		span.End()
	}()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      nonce,
		Method:  method,
		Params: callParams{
			ContractID: c.contract,
			Args:       args,
			TxParams:   txParams{GasPrice: c.call.GasPrice},
		},
	})
	if err != nil {
		return rec, remoteError(method, 0, "", errors.Wrap(err, "encode request"))
	}

	token, err := c.signer.sign(method, nonce)
	if err != nil {
		return rec, remoteError(method, 0, "", errors.Wrap(err, "sign request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return rec, remoteError(method, 0, "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	c.logger.WithFields(map[string]interface{}{"method": method, "nonce": nonce}).Debug("registry call")

	resp, err := c.http.Do(req)
	if err != nil {
		return rec, remoteError(method, 0, "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return rec, remoteError(method, resp.StatusCode, "", errors.Wrap(err, "read response"))
	}

	var out rpcResponse
	decodeErr := json.Unmarshal(payload, &out)
	if decodeErr == nil && out.Error != nil {
		return rec, remoteError(method, out.Error.Code, out.Error.Message, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rec, remoteError(method, resp.StatusCode, resp.Status, nil)
	}
	if decodeErr != nil {
		return rec, remoteError(method, resp.StatusCode, "", errors.Wrap(decodeErr, "malformed response"))
	}
	if out.Result == nil || out.Result.Value == nil {
		return rec, remoteError(method, resp.StatusCode, "malformed response: missing result value", nil)
	}

	rec, err = out.Result.Value.record()
	if err != nil {
		return domain.EventRecord{}, remoteError(method, resp.StatusCode, "", errors.Wrap(err, "malformed response"))
	}
	return rec, nil
}
