package paymentgw

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"csms/internal/pkg/errors"
)

// BillplzConfig carries the Billplz collection credentials.
type BillplzConfig struct {
	APIKey        string
	XSignatureKey string
	CollectionID  string
	BaseURL       string
	CallbackURL   string
	RedirectURL   string
}

// BillplzAdapter creates bills against a Billplz collection and verifies
// the X-Signature Billplz attaches to both its redirect query string and
// its server-to-server callback POST.
type BillplzAdapter struct {
	cfg BillplzConfig
}

// NewBillplzAdapter constructs the Billplz gateway adapter.
func NewBillplzAdapter(cfg BillplzConfig) *BillplzAdapter {
	return &BillplzAdapter{cfg: cfg}
}

func (a *BillplzAdapter) Name() string { return "billplz" }

type billplzBill struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	State     string `json:"state"`
	Paid      bool   `json:"paid"`
	Amount    int    `json:"amount"`
	PaidAt    string `json:"paid_at"`
	DueAt     string `json:"due_at"`
	Reference string `json:"reference_1"`
}

// CreatePayment opens a Billplz bill for amount*100 cents, tagging the
// transaction_ref as reference_1 so the callback can be matched back.
func (a *BillplzAdapter) CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error) {
	form := url.Values{}
	form.Set("collection_id", a.cfg.CollectionID)
	form.Set("email", req.UserID+"@wallet.local")
	form.Set("name", req.UserID)
	form.Set("amount", strconv.FormatInt(req.Amount.Mul(decimal.NewFromInt(100)).IntPart(), 10))
	form.Set("description", req.Description)
	form.Set("callback_url", a.cfg.CallbackURL)
	form.Set("redirect_url", a.cfg.RedirectURL)
	form.Set("reference_1", req.TransactionRef)
	form.Set("reference_1_label", "transaction_ref")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/bills", strings.NewReader(form.Encode()))
	if err != nil {
		return CreateResult{}, errors.Internal("build billplz request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(a.cfg.APIKey, "")

	res, err := httpClient().Do(httpReq)
	if err != nil {
		return CreateResult{}, errors.GatewayError("billplz", err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return CreateResult{}, errors.Internal("read billplz response", err)
	}
	if res.StatusCode/100 != 2 {
		return CreateResult{}, errors.GatewayError("billplz", fmt.Sprintf("create bill failed (%d): %s", res.StatusCode, string(body)))
	}

	var bill billplzBill
	if err := json.Unmarshal(body, &bill); err != nil {
		return CreateResult{}, errors.GatewayError("billplz", "malformed bill response")
	}

	return CreateResult{
		PaymentURL:           bill.URL,
		GatewayTransactionID: bill.ID,
		RawPayload:           string(body),
	}, nil
}

// VerifyCallback recomputes Billplz's X-Signature over the posted fields
// (sorted key-value pairs joined by "|") and rejects a mismatch before any
// field is trusted.
func (a *BillplzAdapter) VerifyCallback(_ *http.Request, body []byte) (CallbackResult, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return CallbackResult{}, errors.Validation("body", "malformed billplz callback")
	}

	signature := values.Get("x_signature")
	if signature == "" {
		return CallbackResult{}, errors.Validation("x_signature", "required")
	}

	if !a.signatureMatches(values, signature) {
		return CallbackResult{}, errors.GatewayError("billplz", "signature mismatch")
	}

	amountCents, _ := strconv.ParseInt(values.Get("amount"), 10, 64)
	return CallbackResult{
		TransactionRef:       values.Get("reference_1"),
		GatewayTransactionID: values.Get("id"),
		Success:              values.Get("paid") == "true",
		Amount:               decimal.New(amountCents, -2),
		RawPayload:           string(body),
	}, nil
}

// CheckStatus polls Billplz for the current bill state, keyed by its own
// GatewayTransactionID rather than transaction_ref (Billplz has no lookup
// by reference).
func (a *BillplzAdapter) CheckStatus(ctx context.Context, gatewayTransactionID string) (CallbackResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/bills/"+gatewayTransactionID, nil)
	if err != nil {
		return CallbackResult{}, errors.Internal("build billplz status request", err)
	}
	httpReq.SetBasicAuth(a.cfg.APIKey, "")

	res, err := httpClient().Do(httpReq)
	if err != nil {
		return CallbackResult{}, errors.GatewayError("billplz", err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return CallbackResult{}, errors.Internal("read billplz status response", err)
	}
	if res.StatusCode/100 != 2 {
		return CallbackResult{}, errors.GatewayError("billplz", fmt.Sprintf("status check failed (%d)", res.StatusCode))
	}

	var bill billplzBill
	if err := json.Unmarshal(body, &bill); err != nil {
		return CallbackResult{}, errors.GatewayError("billplz", "malformed status response")
	}

	return CallbackResult{
		TransactionRef:       bill.Reference,
		GatewayTransactionID: bill.ID,
		Success:              bill.Paid,
		Amount:               decimal.New(int64(bill.Amount), -2),
		RawPayload:           string(body),
	}, nil
}

func (a *BillplzAdapter) signatureMatches(values url.Values, signature string) bool {
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
	source := strings.Join(parts, "|")

	mac := hmac.New(sha256.New, []byte(a.cfg.XSignatureKey))
	mac.Write([]byte(source))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
