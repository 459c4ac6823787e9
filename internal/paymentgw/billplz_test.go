package paymentgw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBillplz(t *testing.T, key string, values url.Values) string {
	t.Helper()
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "x_signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+values.Get(k))
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestBillplzAdapter_VerifyCallback_ValidSignature(t *testing.T) {
	const key = "test-x-signature-key"
	a := NewBillplzAdapter(BillplzConfig{XSignatureKey: key})

	values := url.Values{
		"id":         {"bill-123"},
		"reference_1": {"TXN-20260216-ABCD"},
		"paid":       {"true"},
		"amount":     {"5000"},
	}
	values.Set("x_signature", signBillplz(t, key, values))

	result, err := a.VerifyCallback(nil, []byte(values.Encode()))
	require.NoError(t, err)
	assert.Equal(t, "TXN-20260216-ABCD", result.TransactionRef)
	assert.Equal(t, "bill-123", result.GatewayTransactionID)
	assert.True(t, result.Success)
	assert.True(t, result.Amount.Equal(mustDecimal(t, "50.00")))
}

func TestBillplzAdapter_VerifyCallback_BadSignature(t *testing.T) {
	a := NewBillplzAdapter(BillplzConfig{XSignatureKey: "real-key"})

	values := url.Values{
		"id":          {"bill-123"},
		"reference_1": {"TXN-20260216-ABCD"},
		"paid":        {"true"},
		"amount":      {"5000"},
	}
	values.Set("x_signature", signBillplz(t, "wrong-key", values))

	_, err := a.VerifyCallback(nil, []byte(values.Encode()))
	assert.Error(t, err)
}

func TestBillplzAdapter_VerifyCallback_MissingSignature(t *testing.T) {
	a := NewBillplzAdapter(BillplzConfig{XSignatureKey: "real-key"})

	values := url.Values{"id": {"bill-123"}}
	_, err := a.VerifyCallback(nil, []byte(values.Encode()))
	assert.Error(t, err)
}

func TestBillplzAdapter_Name(t *testing.T) {
	assert.Equal(t, "billplz", NewBillplzAdapter(BillplzConfig{}).Name())
}
