package paymentgw

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"csms/internal/pkg/errors"
)

// ManualAdapter records a top-up intent for an operator to confirm out of
// band (bank transfer, counter cash, etc.). It has no callback or status
// endpoint of its own; an admin confirms the payment directly against the
// payment_transactions row, which the HTTP Control Plane then routes into
// credit_from_payment the same as any other gateway.
type ManualAdapter struct{}

// NewManualAdapter constructs the operator-confirmed gateway adapter.
func NewManualAdapter() *ManualAdapter { return &ManualAdapter{} }

func (a *ManualAdapter) Name() string { return "manual" }

// CreatePayment for the manual gateway issues no redirect; the
// GatewayTransactionID is simply the transaction_ref, since there is no
// external system to assign one.
func (a *ManualAdapter) CreatePayment(_ context.Context, req CreateRequest) (CreateResult, error) {
	return CreateResult{GatewayTransactionID: req.TransactionRef}, nil
}

// VerifyCallback always fails: manual payments are never confirmed by a
// gateway webhook.
func (a *ManualAdapter) VerifyCallback(_ *http.Request, _ []byte) (CallbackResult, error) {
	return CallbackResult{}, errors.GatewayError("manual", "manual payments have no callback; confirm via the admin console")
}

// CheckStatus is unsupported: the manual adapter has no remote state to
// poll, and decimal.Zero always stands in where an amount is expected.
func (a *ManualAdapter) CheckStatus(_ context.Context, transactionRef string) (CallbackResult, error) {
	return CallbackResult{TransactionRef: transactionRef, Amount: decimal.Zero}, errors.GatewayError("manual", "status polling not supported")
}
