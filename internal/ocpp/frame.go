// Package ocpp implements the OCPP 1.6-J WebSocket gateway: one persistent
// bidirectional JSON-RPC channel per charge point, inbound action dispatch,
// and a typed outbound call primitive with per-action timeouts.
package ocpp

import (
	"encoding/json"
	"fmt"
)

// Message type codes per OCPP 1.6-J (§4.1).
const (
	TypeCall       = 2
	TypeCallResult = 3
	TypeCallError  = 4
)

// CallFrame is an inbound or outbound CALL: [2, uniqueId, action, payload].
type CallFrame struct {
	UniqueID string
	Action   string
	Payload  json.RawMessage
}

// CallResultFrame is a CALLRESULT: [3, uniqueId, payload].
type CallResultFrame struct {
	UniqueID string
	Payload  json.RawMessage
}

// CallErrorFrame is a CALLERROR: [4, uniqueId, errorCode, errorDescription, errorDetails].
type CallErrorFrame struct {
	UniqueID         string
	ErrorCode        string
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// DecodeFrame parses a raw WebSocket text frame into one of the three
// message shapes, returning the message type code and the typed frame.
func DecodeFrame(raw []byte) (int, interface{}, error) {
	var generic []json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return 0, nil, fmt.Errorf("ocpp: malformed frame: %w", err)
	}
	if len(generic) < 3 {
		return 0, nil, fmt.Errorf("ocpp: frame has too few elements (%d)", len(generic))
	}

	var msgType int
	if err := json.Unmarshal(generic[0], &msgType); err != nil {
		return 0, nil, fmt.Errorf("ocpp: malformed message type: %w", err)
	}

	var uniqueID string
	if err := json.Unmarshal(generic[1], &uniqueID); err != nil {
		return 0, nil, fmt.Errorf("ocpp: malformed uniqueId: %w", err)
	}

	switch msgType {
	case TypeCall:
		if len(generic) != 4 {
			return 0, nil, fmt.Errorf("ocpp: CALL frame must have 4 elements, got %d", len(generic))
		}
		var action string
		if err := json.Unmarshal(generic[2], &action); err != nil {
			return 0, nil, fmt.Errorf("ocpp: malformed action: %w", err)
		}
		return TypeCall, CallFrame{UniqueID: uniqueID, Action: action, Payload: generic[3]}, nil

	case TypeCallResult:
		if len(generic) != 3 {
			return 0, nil, fmt.Errorf("ocpp: CALLRESULT frame must have 3 elements, got %d", len(generic))
		}
		return TypeCallResult, CallResultFrame{UniqueID: uniqueID, Payload: generic[2]}, nil

	case TypeCallError:
		if len(generic) != 5 {
			return 0, nil, fmt.Errorf("ocpp: CALLERROR frame must have 5 elements, got %d", len(generic))
		}
		var code, desc string
		_ = json.Unmarshal(generic[2], &code)
		_ = json.Unmarshal(generic[3], &desc)
		return TypeCallError, CallErrorFrame{
			UniqueID: uniqueID, ErrorCode: code, ErrorDescription: desc, ErrorDetails: generic[4],
		}, nil

	default:
		return 0, nil, fmt.Errorf("ocpp: unknown message type %d", msgType)
	}
}

// EncodeCall serializes an outbound CALL frame.
func EncodeCall(uniqueID, action string, payload interface{}) ([]byte, error) {
	return json.Marshal([]interface{}{TypeCall, uniqueID, action, payload})
}

// EncodeCallResult serializes a CALLRESULT frame.
func EncodeCallResult(uniqueID string, payload interface{}) ([]byte, error) {
	return json.Marshal([]interface{}{TypeCallResult, uniqueID, payload})
}

// EncodeCallError serializes a CALLERROR frame.
func EncodeCallError(uniqueID, errorCode, errorDescription string) ([]byte, error) {
	return json.Marshal([]interface{}{TypeCallError, uniqueID, errorCode, errorDescription, struct{}{}})
}
