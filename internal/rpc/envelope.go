package rpc

import (
	"bytes"
	"encoding/json"
)

// Version is the only accepted envelope version.
const Version = "2.0"

// Request is a single call envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc" validate:"required,eq=2.0"`
	Method  string          `json:"method" validate:"required"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response is a single call result. Exactly one of Result and Error is
// emitted; a missing id is written as null.
type Response struct {
	JSONRPC string
	Result  any
	Error   *Error
	ID      json.RawMessage
}

type successBody struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result"`
	ID      json.RawMessage `json:"id"`
}

type errorBody struct {
	JSONRPC string          `json:"jsonrpc"`
	Error   *Error          `json:"error"`
	ID      json.RawMessage `json:"id"`
}

var nullID = json.RawMessage("null")

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if len(id) == 0 {
		id = nullID
	}
	if r.Error != nil {
		return json.Marshal(errorBody{JSONRPC: Version, Error: r.Error, ID: id})
	}
	return json.Marshal(successBody{JSONRPC: Version, Result: r.Result, ID: id})
}

// Code returns the error code of r, or 0 on success.
func (r Response) Code() int {
	if r.Error == nil {
		return 0
	}
	return r.Error.Code
}

// validID reports whether raw is absent, null, a string or a number.
func validID(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullID) {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch v.(type) {
	case string, float64:
		return true
	default:
		return false
	}
}

func failure(id json.RawMessage, err *Error) Response {
	return Response{JSONRPC: Version, Error: err, ID: id}
}
