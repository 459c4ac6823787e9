package paymentgw

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"csms/internal/pkg/errors"
)

// OCBCConfig carries the bank's OAuth2 client-credentials and request
// signing key.
type OCBCConfig struct {
	ClientID     string
	ClientSecret string
	SigningKey   string
	BaseURL      string
	CallbackURL  string
}

// OCBCAdapter signs the create-payment request body with HMAC-SHA256 and
// authenticates via a short-lived OAuth2 access token, refreshed lazily on
// expiry rather than on a background ticker.
type OCBCAdapter struct {
	cfg    OCBCConfig
	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewOCBCAdapter constructs the OCBC gateway adapter.
func NewOCBCAdapter(cfg OCBCConfig) *OCBCAdapter {
	return &OCBCAdapter{cfg: cfg}
}

func (a *OCBCAdapter) Name() string { return "ocbc" }

type ocbcTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (a *OCBCAdapter) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expiry) {
		return a.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Internal("build ocbc token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := httpClient().Do(req)
	if err != nil {
		return "", errors.GatewayError("ocbc", err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.Internal("read ocbc token response", err)
	}
	if res.StatusCode/100 != 2 {
		return "", errors.GatewayError("ocbc", fmt.Sprintf("token request failed (%d)", res.StatusCode))
	}

	var tok ocbcTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", errors.GatewayError("ocbc", "malformed token response")
	}

	a.token = tok.AccessToken
	a.expiry = time.Now().Add(time.Duration(tok.ExpiresIn-30) * time.Second)
	return a.token, nil
}

func (a *OCBCAdapter) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(a.cfg.SigningKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type ocbcCreatePaymentRequest struct {
	TransactionRef string `json:"transactionRef"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	CallbackURL    string `json:"callbackUrl"`
}

type ocbcCreatePaymentResponse struct {
	PaymentID  string `json:"paymentId"`
	CheckoutURL string `json:"checkoutUrl"`
	Status     string `json:"status"`
}

// CreatePayment posts a signed payment-creation request and returns the
// bank's hosted checkout URL.
func (a *OCBCAdapter) CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return CreateResult{}, err
	}

	payload, err := json.Marshal(ocbcCreatePaymentRequest{
		TransactionRef: req.TransactionRef,
		Amount:         req.Amount.StringFixed(2),
		Currency:       req.Currency,
		Description:    req.Description,
		CallbackURL:    a.cfg.CallbackURL,
	})
	if err != nil {
		return CreateResult{}, errors.Internal("encode ocbc request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return CreateResult{}, errors.Internal("build ocbc request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Signature", a.sign(payload))

	res, err := httpClient().Do(httpReq)
	if err != nil {
		return CreateResult{}, errors.GatewayError("ocbc", err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return CreateResult{}, errors.Internal("read ocbc response", err)
	}
	if res.StatusCode/100 != 2 {
		return CreateResult{}, errors.GatewayError("ocbc", fmt.Sprintf("create payment failed (%d): %s", res.StatusCode, string(body)))
	}

	var out ocbcCreatePaymentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return CreateResult{}, errors.GatewayError("ocbc", "malformed create-payment response")
	}

	return CreateResult{
		PaymentURL:           out.CheckoutURL,
		GatewayTransactionID: out.PaymentID,
		RawPayload:           string(body),
	}, nil
}

type ocbcCallbackPayload struct {
	TransactionRef string `json:"transactionRef"`
	PaymentID      string `json:"paymentId"`
	Status         string `json:"status"`
	Amount         string `json:"amount"`
}

// VerifyCallback checks the X-Signature header against an HMAC of the raw
// body before trusting any field in it.
func (a *OCBCAdapter) VerifyCallback(r *http.Request, body []byte) (CallbackResult, error) {
	signature := r.Header.Get("X-Signature")
	if signature == "" {
		return CallbackResult{}, errors.Validation("x-signature", "required")
	}
	expected := a.sign(body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return CallbackResult{}, errors.GatewayError("ocbc", "signature mismatch")
	}

	var payload ocbcCallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return CallbackResult{}, errors.Validation("body", "malformed ocbc callback")
	}

	amount, _ := decimal.NewFromString(payload.Amount)
	return CallbackResult{
		TransactionRef:       payload.TransactionRef,
		GatewayTransactionID: payload.PaymentID,
		Success:              strings.EqualFold(payload.Status, "settled"),
		Amount:               amount,
		RawPayload:           string(body),
	}, nil
}

// CheckStatus polls OCBC's payment status endpoint by transaction_ref.
func (a *OCBCAdapter) CheckStatus(ctx context.Context, transactionRef string) (CallbackResult, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return CallbackResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/payments/"+transactionRef, nil)
	if err != nil {
		return CallbackResult{}, errors.Internal("build ocbc status request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	res, err := httpClient().Do(httpReq)
	if err != nil {
		return CallbackResult{}, errors.GatewayError("ocbc", err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return CallbackResult{}, errors.Internal("read ocbc status response", err)
	}
	if res.StatusCode/100 != 2 {
		return CallbackResult{}, errors.GatewayError("ocbc", fmt.Sprintf("status check failed (%d)", res.StatusCode))
	}

	var payload ocbcCallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return CallbackResult{}, errors.GatewayError("ocbc", "malformed status response")
	}

	amount, _ := decimal.NewFromString(payload.Amount)
	return CallbackResult{
		TransactionRef:       payload.TransactionRef,
		GatewayTransactionID: payload.PaymentID,
		Success:              strings.EqualFold(payload.Status, "settled"),
		Amount:               amount,
		RawPayload:           string(body),
	}, nil
}
