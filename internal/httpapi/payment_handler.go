package httpapi

import (
	"crypto/hmac"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	walletengine "csms/internal/engine/wallet"
	"csms/internal/domain/payment"
	"csms/internal/paymentgw"
	"csms/internal/pkg/errors"
	"csms/internal/pkg/httputil"
	"csms/internal/pkg/reqctx"
	"csms/pkg/crypto"
)

// PaymentHandler exposes top-up creation, gateway callbacks, and manual
// approval over the Wallet Engine and the payment-gateway adapter registry
// (§4.3, §6).
type PaymentHandler struct {
	payments       payment.Repository
	wallets        *walletengine.Engine
	gateways       paymentgw.Registry
	callbackSecret string
	publicBaseURL  string
	logger         *zap.Logger
}

// NewPaymentHandler constructs the payment endpoints handler.
func NewPaymentHandler(payments payment.Repository, wallets *walletengine.Engine, gateways paymentgw.Registry, callbackSecret, publicBaseURL string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:       payments,
		wallets:        wallets,
		gateways:       gateways,
		callbackSecret: callbackSecret,
		publicBaseURL:  publicBaseURL,
		logger:         logger,
	}
}

type topupRequest struct {
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	GatewayName   string          `json:"gateway_name,omitempty"`
}

// Topup creates a PaymentTransaction and, for a non-manual gateway, a
// gateway-hosted payment intent; the response carries payment_url for the
// caller to redirect to. The resource-owner check (§4.5) rejects with 403
// unless the caller is admin or user_id names the caller's own account.
func (h *PaymentHandler) Topup(w http.ResponseWriter, r *http.Request) {
	var req topupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	callerID := reqctx.UserID(r.Context())
	userID := req.UserID
	if userID == "" {
		userID = callerID
	}
	if userID != callerID && !reqctx.IsAdmin(r.Context()) {
		respondErr(w, r, errors.Forbidden("topup", "wallet"))
		return
	}

	gatewayName := req.GatewayName
	if gatewayName == "" {
		gatewayName = "manual"
	}
	adapter, ok := h.gateways.Get(gatewayName)
	if !ok {
		respondErr(w, r, errors.ValidationInvalid("gateway_name", gatewayName))
		return
	}
	if err := h.wallets.ValidateTopup(req.Amount); err != nil {
		respondErr(w, r, err)
		return
	}

	suffix, err := crypto.GenerateRandomString(4)
	if err != nil {
		respondErr(w, r, errors.Internal("generate transaction reference", err))
		return
	}
	ref := fmt.Sprintf("TXN-%s-%s", time.Now().UTC().Format("20060102"), suffix)

	created, err := h.payments.Insert(r.Context(), payment.Entity{
		TransactionRef: ref,
		UserID:         userID,
		Gateway:        gatewayName,
		Amount:         req.Amount,
		Currency:       "MYR",
		Status:         payment.StatusPending,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	result, err := adapter.CreatePayment(r.Context(), paymentgw.CreateRequest{
		TransactionRef: ref,
		UserID:         userID,
		Amount:         req.Amount,
		Currency:       "MYR",
		Description:    fmt.Sprintf("wallet top-up %s", ref),
	})
	if err != nil {
		created.Status = payment.StatusFailed
		_ = h.payments.Update(r.Context(), created)
		respondErr(w, r, errors.External(gatewayName, err))
		return
	}

	created.GatewayTransactionID = result.GatewayTransactionID
	created.PaymentURL = result.PaymentURL
	created.RawPayload = result.RawPayload
	if gatewayName == "manual" {
		created.Status = payment.StatusPendingApproval
	} else {
		created.Status = payment.StatusProcessing
	}
	if err := h.payments.Update(r.Context(), created); err != nil {
		respondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction_ref": ref,
		"status":          created.Status,
		"payment_url":     created.PaymentURL,
	})
}

// Callback is the inbound webhook endpoint for every non-manual gateway
// (§6: POST /api/payment/callback/{gateway}). It is authenticated by a
// shared secret header rather than the JWT auth middleware.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.callbackSecret == "" {
		httputil.RespondError(w, http.StatusServiceUnavailable, "payment callbacks are not configured")
		return
	}
	if !hmac.Equal([]byte(r.Header.Get("X-Callback-Secret")), []byte(h.callbackSecret)) {
		httputil.RespondError(w, http.StatusUnauthorized, "invalid callback secret")
		return
	}

	gatewayName, err := httputil.GetURLParam(r, "gateway")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if gatewayName == "manual" {
		respondErr(w, r, errors.Forbidden("callback", "manual gateway has no webhook; use the approve endpoint"))
		return
	}
	adapter, ok := h.gateways.Get(gatewayName)
	if !ok {
		respondErr(w, r, errors.NotFound("gateway"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, r, errors.Validation("body", "unreadable"))
		return
	}

	result, err := adapter.VerifyCallback(r, body)
	if err != nil {
		h.logger.Warn("payment callback verification failed", zap.String("gateway", gatewayName), zap.Error(err))
		httputil.RespondError(w, http.StatusBadRequest, "callback verification failed")
		return
	}

	p, found, err := h.payments.ByRef(r.Context(), result.TransactionRef)
	if !found {
		p, found, err = h.payments.ByGatewayTransactionID(r.Context(), result.GatewayTransactionID)
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !found {
		respondErr(w, r, errors.NotFoundWithID("payment", result.TransactionRef))
		return
	}

	if p.Terminal() || p.WalletTransactionID != nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"status": "already_settled"})
		return
	}

	if !result.Success {
		p.Status = payment.StatusFailed
		if err := h.payments.Update(r.Context(), p); err != nil {
			respondErr(w, r, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"status": "failed"})
		return
	}

	now := time.Now().UTC()
	p.Status = payment.StatusSuccess
	p.GatewayTransactionID = result.GatewayTransactionID
	p.PaidAt = &now
	if err := h.payments.Update(r.Context(), p); err != nil {
		respondErr(w, r, err)
		return
	}

	if err := h.wallets.CreditFromPayment(r.Context(), p.TransactionRef); err != nil {
		respondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"status": "settled"})
}

// Approve is the admin-only manual-gateway confirmation path (§6: POST
// /api/payment/approve/{ref}).
func (h *PaymentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ref, err := httputil.GetURLParam(r, "ref")
	if err != nil {
		respondErr(w, r, err)
		return
	}

	p, found, err := h.payments.ByRef(r.Context(), ref)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !found {
		respondErr(w, r, errors.NotFoundWithID("payment", ref))
		return
	}
	if p.Gateway != "manual" {
		respondErr(w, r, errors.Validation("gateway", "approve is only valid for the manual gateway"))
		return
	}
	if p.Terminal() || p.WalletTransactionID != nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"status": "already_settled"})
		return
	}

	now := time.Now().UTC()
	p.Status = payment.StatusSuccess
	p.PaidAt = &now
	if err := h.payments.Update(r.Context(), p); err != nil {
		respondErr(w, r, err)
		return
	}

	if err := h.wallets.CreditFromPayment(r.Context(), p.TransactionRef); err != nil {
		respondErr(w, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"status": "settled"})
}

// ListTransactions returns the authenticated user's wallet ledger.
func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.wallets.ListTransactions(r.Context(), reqctx.UserID(r.Context()), 100)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, txns)
}
