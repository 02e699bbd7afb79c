// Package decoder turns raw action payloads into typed request/response values
// and validates them against the schema registered for the action's protocol
// version. Each protocol version carries its own validation strategy behind the
// same Decoder contract.
package decoder

import (
	"bytes"
	"encoding/json"

	"cpsys/ocpp"
)

// Decoder decodes the payload of one action message. forResult selects the
// response shape instead of the request shape. A JSON null or empty object is
// "no payload" and decodes to an absent value, never to an error. Failures are
// FormationViolation (malformed) or SchemaValidation (well-formed but invalid);
// the latter carries the original payload.
type Decoder interface {
	Decode(action ocpp.Action, forResult bool, raw json.RawMessage) (ocpp.Payload, *ocpp.Error)
}

// absent reports whether the raw payload carries no content.
func absent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	return bytes.Equal(bytes.Join(bytes.Fields(trimmed), nil), []byte("{}"))
}

// ForVersion returns the decoder implementation for a protocol version.
func ForVersion(version ocpp.Version) (Decoder, error) {
	if version == ocpp.V15 {
		return NewV15(), nil
	}
	return NewV16()
}
