package utils

import (
	"encoding/json"
	"fmt"
	"io"
)

// Payload is the envelope every AnySpecs endpoint answers with.
type Payload struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DecodePayload reads a Payload from r and, when out is non-nil and the
// payload carries data, unmarshals the data into out.
func DecodePayload(r io.Reader, out any) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if out == nil || len(p.Data) == 0 || string(p.Data) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(p.Data, out); err != nil {
		return p, fmt.Errorf("decode payload data: %w", err)
	}
	return p, nil
}
