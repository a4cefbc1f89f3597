package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage is returned for records that are not JSON objects or
// that lack a "type" field.
var ErrMalformedMessage = errors.New("malformed message")

// Decode parses one wire record.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return &msg, nil
}

// PeekType reads only the "type" field, so records whose other fields have
// an unexpected shape can still be routed.
func PeekType(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if head.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return head.Type, nil
}

// Encode serializes any outbound record.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Stamp rewrites the "from" field of a raw record while keeping every other
// field untouched. A sender-supplied "from" is always overwritten.
func Stamp(data []byte, from string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedMessage)
	}

	raw, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	fields["from"] = raw

	return json.Marshal(fields)
}
