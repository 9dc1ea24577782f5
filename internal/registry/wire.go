package registry

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-rsvp/internal/domain"
)

type txParams struct {
	GasPrice uint64 `json:"gas_price"`
}

type callParams struct {
	ContractID string        `json:"contract_id"`
	Args       []interface{} `json:"args"`
	TxParams   txParams      `json:"tx_params"`
}

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Method  string     `json:"method"`
	Params  callParams `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     string      `json:"id"`
	Result *callResult `json:"result"`
	Error  *rpcError   `json:"error"`
}

type callResult struct {
	Value *eventValue `json:"value"`
}

// eventValue mirrors the contract's Event struct. 64-bit contract integers
// are sent either as JSON numbers or as decimal strings.
type eventValue struct {
	UniqueID    wireNumber `json:"uniqueId"`
	Name        string     `json:"name"`
	MaxCapacity wireNumber `json:"maxCapacity"`
	Deposit     wireNumber `json:"deposit"`
}

func (v eventValue) record() (domain.EventRecord, error) {
	maxCap, err := v.MaxCapacity.Int64()
	if err != nil {
		return domain.EventRecord{}, errors.Wrap(err, "maxCapacity")
	}
	deposit, err := v.Deposit.Float64()
	if err != nil {
		return domain.EventRecord{}, errors.Wrap(err, "deposit")
	}
	return domain.EventRecord{
		UniqueID:    v.UniqueID.String(),
		Name:        v.Name,
		MaxCapacity: maxCap,
		Deposit:     deposit,
	}, nil
}

// wireNumber accepts 42, 42.5 and "42". The zero value is "0".
type wireNumber struct {
	raw string
}

func (n *wireNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		n.raw = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n.raw = s
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return errors.Wrapf(err, "not a number: %s", b)
	}
	n.raw = num.String()
	return nil
}

func (n wireNumber) String() string {
	if n.raw == "" {
		return "0"
	}
	return n.raw
}

func (n wireNumber) Int64() (int64, error) {
	if n.raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(n.raw, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(n.raw, 64)
	if err != nil {
		return 0, errors.Newf("invalid integer %q", n.raw)
	}
	return int64(f), nil
}

func (n wireNumber) Float64() (float64, error) {
	if n.raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(n.raw, 64)
	if err != nil {
		return 0, errors.Newf("invalid number %q", n.raw)
	}
	return f, nil
}
