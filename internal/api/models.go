package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DeviceRef identifies one heat-pump unit. A cloud account owns modules
// (one per installation), each exposing one or more controller units.
type DeviceRef struct {
	// ModuleID is the account-scoped module identifier
	ModuleID string `json:"module_id"`

	// UnitID is the controller unit within the module (usually "1")
	UnitID string `json:"unit_id"`
}

// ID returns the composite device identifier used throughout the client
func (r DeviceRef) ID() string {
	return r.ModuleID + "_" + r.UnitID
}

// ParseDeviceID splits a composite "<module>_<unit>" identifier
func ParseDeviceID(id string) (DeviceRef, error) {
	parts := strings.SplitN(id, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return DeviceRef{}, fmt.Errorf("invalid device id %q (expected <module>_<unit>)", id)
	}
	return DeviceRef{ModuleID: parts[0], UnitID: parts[1]}, nil
}

// Device is one entry of the account's device listing
type Device struct {
	DeviceRef

	// ModuleName is the human-readable installation name
	ModuleName string `json:"module_name"`

	// UnitName is the vendor's name for the controller unit
	UnitName string `json:"unit_name"`
}

// RawDeviceInfo is an adapter-parsed info payload before normalization.
// Field names and value types are version-specific; the normalizer's
// per-version tables map them onto the canonical DeviceInfo.
type RawDeviceInfo struct {
	Version Version
	Ref     DeviceRef
	Fields  map[string]any
}

// RawDeviceData is an adapter-parsed register payload before normalization.
// Register values are kept exactly as the wire carried them. Both the data
// and register operations produce this shape; they differ only in how the
// result is normalized.
type RawDeviceData struct {
	Version Version
	Ref     DeviceRef

	// Timestamp is the backend's epoch-seconds snapshot time, echoed back
	// as lastUpdateTime on delta fetches
	Timestamp int64

	// Registers maps register name (A_n, D_n, I_n) to raw wire value
	Registers map[string]string
}

// pumpEnvelope is the shared data-response envelope of both backends
type pumpEnvelope struct {
	Error     *envelopeError  `json:"error"`
	MessageID int             `json:"messageId"`
	Timestamp *int64          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// envelopeError is the vendor error block inside a pump envelope
type envelopeError struct {
	ID      int    `json:"errorId"`
	Message string `json:"errorMessage"`
}

// decodeJSON unmarshals a response body with taxonomy-aware failures: a
// type mismatch on a known field is format drift (ParseError), anything
// else means the body was not the expected JSON at all (Decode).
func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return NewParseError(typeErr.Field, snippet(body), err)
		}
		return NewDecodeError("response body is not the expected JSON", err)
	}
	return nil
}

// snippet trims a payload to a short excerpt suitable for error messages
func snippet(body []byte) string {
	const max = 120
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// unitKey zero-pads a unit id to the three-digit key used inside the
// varfile nesting ("1" -> "001")
func unitKey(unitID string) string {
	for len(unitID) < 3 {
		unitID = "0" + unitID
	}
	return unitID
}

// registerValues converts one unit's raw varfile block into register texts.
// The backends encode values as JSON strings ("46.2"); numbers are accepted
// too and keep their literal text, so no value is ever reformatted.
func registerValues(block map[string]json.RawMessage) (map[string]string, error) {
	out := make(map[string]string, len(block))
	for name, raw := range block {
		text, err := rawScalarText(raw)
		if err != nil {
			return nil, NewParseError(name, snippet(raw), err)
		}
		out[name] = text
	}
	return out, nil
}

// rawScalarText returns the exact textual content of a JSON scalar
func rawScalarText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", fmt.Errorf("empty value")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return "", fmt.Errorf("expected scalar register value")
	}
	return trimmed, nil
}

// parsePumpEnvelope pulls one unit's register block out of a data response.
// An absent block on a delta fetch means nothing changed since lastUpdate;
// on a full fetch it is format drift.
func parsePumpEnvelope(resp *Response, version Version, ref DeviceRef, varfileKey string, lastUpdate int64) (*RawDeviceData, error) {
	var envelope pumpEnvelope
	if err := decodeJSON(resp.Body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Error == nil {
		return nil, NewParseError("error", snippet(resp.Body), nil)
	}
	if envelope.Error.ID != 0 {
		return nil, &TransportError{
			Kind:       TransportHTTP,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("backend reported error %d: %s", envelope.Error.ID, envelope.Error.Message),
		}
	}
	if envelope.Timestamp == nil {
		return nil, NewParseError("timestamp", snippet(resp.Body), nil)
	}

	raw := &RawDeviceData{
		Version:   version,
		Ref:       ref,
		Timestamp: *envelope.Timestamp,
		Registers: map[string]string{},
	}

	// The legacy backend encodes an empty data set as [] rather than {}
	data := map[string]json.RawMessage{}
	if trimmed := strings.TrimSpace(string(envelope.Data)); trimmed != "" && trimmed != "[]" && trimmed != "null" {
		if err := decodeJSON(envelope.Data, &data); err != nil {
			return nil, err
		}
	}

	varfile, ok := data[varfileKey]
	if !ok {
		if lastUpdate > 0 {
			return raw, nil
		}
		return nil, NewParseError(varfileKey, snippet(resp.Body), nil)
	}

	units := map[string]json.RawMessage{}
	if err := decodeJSON(varfile, &units); err != nil {
		return nil, err
	}
	block, ok := units[unitKey(ref.UnitID)]
	if !ok {
		if lastUpdate > 0 {
			return raw, nil
		}
		return nil, NewParseError(varfileKey+"."+unitKey(ref.UnitID), snippet(resp.Body), nil)
	}

	registers := map[string]json.RawMessage{}
	if err := decodeJSON(block, &registers); err != nil {
		return nil, err
	}
	values, err := registerValues(registers)
	if err != nil {
		return nil, err
	}
	raw.Registers = values
	return raw, nil
}
