package server

import (
	"encoding/json"
	"fmt"

	"cpsys/ocpp"
	"cpsys/utility"
)

type CallType int

const (
	CallTypeRequest CallType = 2
	CallTypeResult  CallType = 3
	CallTypeError   CallType = 4
)

// Frame is one parsed wire message. The correlation id is round-tripped as the
// client sent it; it is never interpreted.
type Frame struct {
	Type             CallType
	UniqueId         string
	Action           string
	Payload          json.RawMessage
	ErrorCode        string
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// ParseFrame decodes one wire message array. Element count is checked per call
// type; anything structurally off is rejected before action lookup.
func ParseFrame(data []byte) (*Frame, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("malformed message frame: %w", err)
	}
	if len(fields) < 3 {
		return nil, utility.Err("message frame must have at least 3 elements")
	}
	var typeId int
	if err := json.Unmarshal(fields[0], &typeId); err != nil {
		return nil, utility.Err("invalid message type id")
	}
	frame := &Frame{Type: CallType(typeId)}
	if err := json.Unmarshal(fields[1], &frame.UniqueId); err != nil || frame.UniqueId == "" {
		return nil, utility.Err("invalid message unique id")
	}
	switch frame.Type {
	case CallTypeRequest:
		if len(fields) != 4 {
			return nil, utility.Err("call frame must have 4 elements")
		}
		if err := json.Unmarshal(fields[2], &frame.Action); err != nil || frame.Action == "" {
			return nil, utility.Err("invalid action name in call frame")
		}
		frame.Payload = fields[3]
	case CallTypeResult:
		if len(fields) != 3 {
			return nil, utility.Err("call result frame must have 3 elements")
		}
		frame.Payload = fields[2]
	case CallTypeError:
		if len(fields) != 4 && len(fields) != 5 {
			return nil, utility.Err("call error frame must have 4 or 5 elements")
		}
		if err := json.Unmarshal(fields[2], &frame.ErrorCode); err != nil {
			return nil, utility.Err("invalid error code in call error frame")
		}
		if err := json.Unmarshal(fields[3], &frame.ErrorDescription); err != nil {
			return nil, utility.Err("invalid error description in call error frame")
		}
		if len(fields) == 5 {
			frame.ErrorDetails = fields[4]
		}
	default:
		return nil, utility.Errf("unsupported message type id %d", typeId)
	}
	return frame, nil
}

// MarshalCall encodes an outgoing request frame.
func MarshalCall(uniqueId string, action string, payload ocpp.Request) ([]byte, error) {
	return json.Marshal([]interface{}{int(CallTypeRequest), uniqueId, action, payload})
}

// MarshalCallResult encodes a successful response frame.
func MarshalCallResult(uniqueId string, payload ocpp.Response) ([]byte, error) {
	return json.Marshal([]interface{}{int(CallTypeResult), uniqueId, payload})
}

// MarshalCallError encodes a failure response frame. Details is encoded as an
// empty object when the error carries none.
func MarshalCallError(uniqueId string, callErr *ocpp.Error) ([]byte, error) {
	details := callErr.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	return json.Marshal([]interface{}{int(CallTypeError), uniqueId, string(callErr.Code), callErr.Description, details})
}
