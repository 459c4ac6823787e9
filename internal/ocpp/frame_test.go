package ocpp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_Call(t *testing.T) {
	raw := []byte(`[2,"uid-1","BootNotification",{"vendor":"ACME"}]`)

	msgType, frame, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeCall, msgType)

	call, ok := frame.(CallFrame)
	require.True(t, ok)
	assert.Equal(t, "uid-1", call.UniqueID)
	assert.Equal(t, "BootNotification", call.Action)
	assert.JSONEq(t, `{"vendor":"ACME"}`, string(call.Payload))
}

func TestDecodeFrame_CallResult(t *testing.T) {
	raw := []byte(`[3,"uid-2",{"status":"Accepted"}]`)

	msgType, frame, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeCallResult, msgType)

	res, ok := frame.(CallResultFrame)
	require.True(t, ok)
	assert.Equal(t, "uid-2", res.UniqueID)
	assert.JSONEq(t, `{"status":"Accepted"}`, string(res.Payload))
}

func TestDecodeFrame_CallError(t *testing.T) {
	raw := []byte(`[4,"uid-3","InternalError","boom",{}]`)

	msgType, frame, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeCallError, msgType)

	ce, ok := frame.(CallErrorFrame)
	require.True(t, ok)
	assert.Equal(t, "uid-3", ce.UniqueID)
	assert.Equal(t, "InternalError", ce.ErrorCode)
	assert.Equal(t, "boom", ce.ErrorDescription)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	cases := []string{
		`not json`,
		`[]`,
		`[2,"uid"]`,
		`[2,"uid","Action"]`,
		`[9,"uid","Action",{}]`,
		`[2, 123, "Action", {}]`,
	}
	for _, raw := range cases {
		_, _, err := DecodeFrame([]byte(raw))
		assert.Error(t, err, "expected error for %q", raw)
	}
}

func TestEncodeCall_RoundTrips(t *testing.T) {
	raw, err := EncodeCall("uid-9", "Heartbeat", map[string]string{})
	require.NoError(t, err)

	var decoded []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 4)

	msgType, frame, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeCall, msgType)
	call := frame.(CallFrame)
	assert.Equal(t, "uid-9", call.UniqueID)
	assert.Equal(t, "Heartbeat", call.Action)
}

func TestEncodeCallResult(t *testing.T) {
	raw, err := EncodeCallResult("uid-5", map[string]string{"status": "Accepted"})
	require.NoError(t, err)

	msgType, frame, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeCallResult, msgType)
	res := frame.(CallResultFrame)
	assert.JSONEq(t, `{"status":"Accepted"}`, string(res.Payload))
}

func TestEncodeCallError(t *testing.T) {
	raw, err := EncodeCallError("uid-6", "NotSupported", "action not supported")
	require.NoError(t, err)

	msgType, frame, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeCallError, msgType)
	ce := frame.(CallErrorFrame)
	assert.Equal(t, "NotSupported", ce.ErrorCode)
	assert.Equal(t, "action not supported", ce.ErrorDescription)
}
