package paymentgw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signOCBC(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestOCBCAdapter_VerifyCallback_ValidSignature(t *testing.T) {
	const key = "ocbc-signing-key"
	a := NewOCBCAdapter(OCBCConfig{SigningKey: key})

	body := []byte(`{"transactionRef":"TXN-1","paymentId":"pay-1","status":"settled","amount":"25.00"}`)
	req := httptest.NewRequest("POST", "/callback", nil)
	req.Header.Set("X-Signature", signOCBC(key, body))

	result, err := a.VerifyCallback(req, body)
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", result.TransactionRef)
	assert.Equal(t, "pay-1", result.GatewayTransactionID)
	assert.True(t, result.Success)
	assert.True(t, result.Amount.Equal(mustDecimal(t, "25.00")))
}

func TestOCBCAdapter_VerifyCallback_BadSignature(t *testing.T) {
	a := NewOCBCAdapter(OCBCConfig{SigningKey: "real-key"})
	body := []byte(`{"transactionRef":"TXN-1","status":"settled","amount":"25.00"}`)
	req := httptest.NewRequest("POST", "/callback", nil)
	req.Header.Set("X-Signature", signOCBC("wrong-key", body))

	_, err := a.VerifyCallback(req, body)
	assert.Error(t, err)
}

func TestOCBCAdapter_VerifyCallback_MissingSignature(t *testing.T) {
	a := NewOCBCAdapter(OCBCConfig{SigningKey: "real-key"})
	body := []byte(`{}`)
	req := httptest.NewRequest("POST", "/callback", nil)

	_, err := a.VerifyCallback(req, body)
	assert.Error(t, err)
}

func TestOCBCAdapter_VerifyCallback_NonSettledStatusIsNotSuccess(t *testing.T) {
	const key = "ocbc-signing-key"
	a := NewOCBCAdapter(OCBCConfig{SigningKey: key})

	body := []byte(`{"transactionRef":"TXN-2","paymentId":"pay-2","status":"pending","amount":"10.00"}`)
	req := httptest.NewRequest("POST", "/callback", nil)
	req.Header.Set("X-Signature", signOCBC(key, body))

	result, err := a.VerifyCallback(req, body)
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestOCBCAdapter_Name(t *testing.T) {
	assert.Equal(t, "ocbc", NewOCBCAdapter(OCBCConfig{}).Name())
}
