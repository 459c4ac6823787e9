// Package paymentgw adapts external payment gateways into the uniform shape
// the Wallet Engine's credit_from_payment operation expects: create a
// payment intent, verify an inbound callback, or poll a status endpoint,
// keyed by the CSMS's own transaction_ref rather than the gateway's id,
// except Billplz's status poll, which takes the Billplz bill id.
package paymentgw

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// CreateRequest describes one top-up intent to hand off to a gateway.
type CreateRequest struct {
	TransactionRef string
	UserID         string
	Amount         decimal.Decimal
	Currency       string
	Description    string
}

// CreateResult is what the caller needs to redirect the user (or the admin
// console, for the manual adapter) to complete the payment.
type CreateResult struct {
	PaymentURL           string
	GatewayTransactionID string
	RawPayload           string
}

// CallbackResult is the gateway's outcome for one transaction_ref, whether
// obtained from an inbound webhook or a status poll.
type CallbackResult struct {
	TransactionRef       string
	GatewayTransactionID string
	Success              bool
	Amount               decimal.Decimal
	RawPayload           string
}

// Adapter is implemented once per supported payment gateway. Every method
// here is pure I/O against the gateway; the Wallet Engine's LockByRef/
// credit_from_payment transaction boundary is the adapter's caller's
// concern, not the adapter's.
type Adapter interface {
	Name() string
	CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error)
	VerifyCallback(r *http.Request, body []byte) (CallbackResult, error)
	CheckStatus(ctx context.Context, transactionRef string) (CallbackResult, error)
}

// Registry resolves an Adapter by its gateway name (the payment_transactions
// "gateway" column).
type Registry map[string]Adapter

// Get returns the adapter registered for name, or (nil, false).
func (r Registry) Get(name string) (Adapter, bool) {
	a, ok := r[name]
	return a, ok
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 20 * time.Second}
}
