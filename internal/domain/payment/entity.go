// Package payment holds the PaymentTransaction entity: the external
// settlement row bridging a user's top-up request and the Wallet Engine's
// credit_from_payment operation.
package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusPendingApproval Status = "pending_approval"
	StatusProcessing      Status = "processing"
	StatusSuccess         Status = "success"
	StatusFailed          Status = "failed"
	StatusExpired         Status = "expired"
	StatusRefunded        Status = "refunded"
)

// Entity is one external settlement attempt. At most one successful
// WalletTransaction may reference a given TransactionRef (I-5).
type Entity struct {
	TransactionRef      string
	UserID              string
	Gateway             string
	Amount              decimal.Decimal
	Currency            string
	Status              Status
	GatewayTransactionID string
	PaymentURL          string
	RawPayload          string
	WalletTransactionID *int64
	ExpiredAt           *time.Time
	PaidAt              *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Terminal reports whether the payment has reached a state that must not be
// mutated further by a callback (already credited, or a terminal failure).
func (e Entity) Terminal() bool {
	switch e.Status {
	case StatusSuccess, StatusFailed, StatusExpired, StatusRefunded:
		return true
	default:
		return false
	}
}
