package paymentgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"csms/internal/pkg/errors"
)

// EpayConfig carries a Halyk epay merchant terminal's OAuth2 client
// credentials and the widget the frontend renders a payment with.
type EpayConfig struct {
	TerminalID   string
	ClientID     string
	ClientSecret string
	OAuthURL     string
	APIBaseURL   string
	WidgetJSURL  string
	CallbackURL  string
}

// EpayAdapter authenticates against epay's OAuth2 client-credentials
// endpoint and keeps the token fresh on a background ticker rather than
// refreshing lazily on 401, matching the proactive-refresh shape epay's own
// terminal integration expects (a terminal token also scopes the invoice
// amount, so a stale token can reject an otherwise-valid charge outright).
type EpayAdapter struct {
	cfg EpayConfig

	mu     sync.Mutex
	token  epayToken
	expiry time.Time

	stop chan struct{}
}

type epayToken struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   decimal.Decimal `json:"expires_in"`
}

// NewEpayAdapter constructs the adapter and starts its token-refresh ticker.
// The first token fetch runs in that background goroutine rather than here,
// so a misconfigured terminal doesn't fail Bootstrap outright.
func NewEpayAdapter(cfg EpayConfig) *EpayAdapter {
	a := &EpayAdapter{cfg: cfg, stop: make(chan struct{})}
	go a.refreshLoop()
	return a
}

func (a *EpayAdapter) Name() string { return "epay" }

// refreshLoop proactively renews the terminal's client-credentials token 60
// seconds before it expires. It waits for a first token before arming the
// ticker, since ExpiresIn is only known after the first successful fetch.
// If that first fetch fails the loop exits, and each call then fetches a
// token on demand through ensureToken.
func (a *EpayAdapter) refreshLoop() {
	if _, err := a.ensureToken(context.Background()); err != nil {
		return
	}
	for {
		a.mu.Lock()
		wait := time.Until(a.expiry)
		a.mu.Unlock()
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			_, _ = a.ensureToken(context.Background())
		case <-a.stop:
			return
		}
	}
}

// Close stops the token-refresh ticker.
func (a *EpayAdapter) Close() { close(a.stop) }

func (a *EpayAdapter) ensureToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.token.AccessToken != "" && time.Now().Before(a.expiry) {
		tok := a.token.AccessToken
		a.mu.Unlock()
		return tok, nil
	}
	a.mu.Unlock()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	_ = writer.WriteField("client_id", a.cfg.ClientID)
	_ = writer.WriteField("client_secret", a.cfg.ClientSecret)
	_ = writer.WriteField("grant_type", "client_credentials")
	_ = writer.WriteField("scope", "payment")
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.OAuthURL+"/oauth2/token", body)
	if err != nil {
		return "", errors.Internal("build epay token request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	res, err := httpClient().Do(req)
	if err != nil {
		return "", errors.GatewayError("epay", err.Error())
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.Internal("read epay token response", err)
	}
	if res.StatusCode/100 != 2 {
		return "", errors.GatewayError("epay", fmt.Sprintf("token request failed (%d): %s", res.StatusCode, string(data)))
	}

	var tok epayToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", errors.GatewayError("epay", "malformed token response")
	}

	a.mu.Lock()
	a.token = tok
	a.expiry = time.Now().Add(time.Duration(tok.ExpiresIn.IntPart()-60) * time.Second)
	a.mu.Unlock()

	return tok.AccessToken, nil
}

type epayInvoiceRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Terminal    string `json:"terminalId"`
	InvoiceID   string `json:"invoiceId"`
	AccountID   string `json:"accountId"`
	Description string `json:"description"`
	BackLink    string `json:"backLink"`
	PostLink    string `json:"postLink"`
}

type epayInvoiceResponse struct {
	ID          string `json:"id"`
	InvoiceID   string `json:"invoiceID"`
	PaymentLink string `json:"paymentLink"`
}

// CreatePayment registers an invoice terminal-side and returns the widget
// token the frontend uses to render epay's hosted card-entry widget; the
// widget JS link travels alongside it in RawPayload since there is no
// server-rendered checkout page in this deployment (§6: JSON control plane
// only, no template rendering surface).
func (a *EpayAdapter) CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error) {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return CreateResult{}, err
	}

	payload, err := json.Marshal(epayInvoiceRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Terminal:    a.cfg.TerminalID,
		InvoiceID:   req.TransactionRef,
		AccountID:   req.UserID,
		Description: req.Description,
		BackLink:    a.cfg.CallbackURL,
		PostLink:    a.cfg.CallbackURL,
	})
	if err != nil {
		return CreateResult{}, errors.Internal("encode epay invoice", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIBaseURL+"/invoices", bytes.NewReader(payload))
	if err != nil {
		return CreateResult{}, errors.Internal("build epay invoice request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	res, err := httpClient().Do(httpReq)
	if err != nil {
		return CreateResult{}, errors.GatewayError("epay", err.Error())
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return CreateResult{}, errors.Internal("read epay invoice response", err)
	}
	if res.StatusCode/100 != 2 {
		return CreateResult{}, errors.GatewayError("epay", fmt.Sprintf("create invoice failed (%d): %s", res.StatusCode, string(data)))
	}

	var out epayInvoiceResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return CreateResult{}, errors.GatewayError("epay", "malformed invoice response")
	}

	rawPayload, _ := json.Marshal(map[string]string{
		"widget_js_url": a.cfg.WidgetJSURL,
		"widget_token":  out.ID,
		"raw":           string(data),
	})

	return CreateResult{
		PaymentURL:           out.PaymentLink,
		GatewayTransactionID: out.InvoiceID,
		RawPayload:           string(rawPayload),
	}, nil
}

// epayTransactionStatus mirrors the statusName vocabulary epay's
// check-status endpoint returns for a terminal transaction.
type epayTransactionStatus struct {
	InvoiceID  string          `json:"invoiceID"`
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	StatusName string          `json:"statusName"`
}

type epayStatusResponse struct {
	Transaction epayTransactionStatus `json:"transaction"`
}

func epaySucceeded(statusName string) bool { return statusName == "CHARGE" }

// VerifyCallback decodes epay's postback and confirms it against the
// check-status endpoint rather than trusting the postback body outright:
// epay's webhook carries no signature, only a shared terminal/invoice pair,
// so the gateway's own status lookup is the only trustworthy source of
// truth for whether a transaction actually charged.
func (a *EpayAdapter) VerifyCallback(_ *http.Request, body []byte) (CallbackResult, error) {
	var cb struct {
		InvoiceID string `json:"invoiceId"`
	}
	if err := json.Unmarshal(body, &cb); err != nil {
		return CallbackResult{}, errors.Validation("body", "malformed epay callback")
	}
	if cb.InvoiceID == "" {
		return CallbackResult{}, errors.Validation("invoiceId", "required")
	}

	return a.CheckStatus(context.Background(), cb.InvoiceID)
}

// CheckStatus polls epay's check-status endpoint for a terminal
// transaction, keyed by the CSMS's own transaction_ref (epay calls it
// invoiceID).
func (a *EpayAdapter) CheckStatus(ctx context.Context, transactionRef string) (CallbackResult, error) {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return CallbackResult{}, err
	}

	path, err := url.Parse(a.cfg.APIBaseURL)
	if err != nil {
		return CallbackResult{}, errors.Internal("parse epay base url", err)
	}
	path = path.JoinPath("check-status", "payment", "transaction", transactionRef)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, path.String(), nil)
	if err != nil {
		return CallbackResult{}, errors.Internal("build epay status request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	res, err := httpClient().Do(httpReq)
	if err != nil {
		return CallbackResult{}, errors.GatewayError("epay", err.Error())
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return CallbackResult{}, errors.Internal("read epay status response", err)
	}
	if res.StatusCode/100 != 2 {
		return CallbackResult{}, errors.GatewayError("epay", fmt.Sprintf("status check failed (%d)", res.StatusCode))
	}

	var out epayStatusResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return CallbackResult{}, errors.GatewayError("epay", "malformed status response")
	}

	return CallbackResult{
		TransactionRef:       out.Transaction.InvoiceID,
		GatewayTransactionID: out.Transaction.Reference,
		Success:              epaySucceeded(out.Transaction.StatusName),
		Amount:               out.Transaction.Amount,
		RawPayload:           string(data),
	}, nil
}
