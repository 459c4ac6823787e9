// Package wallet holds the Wallet and WalletTransaction entities, the
// built-in reward catalog, and the sole-writer contract enforced by the
// Wallet Engine. All monetary amounts are fixed-point decimals (2 dp, MYR).
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTopup          TransactionType = "topup"
	TransactionChargePayment  TransactionType = "charge_payment"
	TransactionPointsRedeemed TransactionType = "points_redeemed"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Entity is a user's wallet. Every mutation must go through the Wallet
// Engine under the Store's per-wallet exclusive lock (lock_wallet).
type Entity struct {
	UserID    string
	Balance   decimal.Decimal
	Points    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an immutable ledger row produced by every balance/point
// mutation (I-4: balance_after[n] == balance_before[n+1]).
type Transaction struct {
	ID              int64
	UserID          string
	Type            TransactionType
	Status          TransactionStatus
	Amount          decimal.Decimal
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
	PointsAmount    int64
	PointsBefore    int64
	PointsAfter     int64
	Method          string
	IdempotencyKey  string
	GatewayRef      string
	CreatedAt       time.Time
}

// Reward is one catalog entry: points cost to MYR credit.
type Reward struct {
	Key        string
	PointsCost int64
	CreditMYR  decimal.Decimal
}

// Catalog is the built-in reward redemption table (§4.3).
var Catalog = map[string]Reward{
	"voucher_5":          {Key: "voucher_5", PointsCost: 500, CreditMYR: decimal.NewFromInt(5)},
	"voucher_10":         {Key: "voucher_10", PointsCost: 1000, CreditMYR: decimal.NewFromInt(10)},
	"free_charge":        {Key: "free_charge", PointsCost: 2000, CreditMYR: decimal.NewFromInt(25)},
	"voucher_25":         {Key: "voucher_25", PointsCost: 2500, CreditMYR: decimal.NewFromInt(25)},
	"premium_membership": {Key: "premium_membership", PointsCost: 5000, CreditMYR: decimal.Zero},
}

// MinTopup and MaxTopup bound a single top-up transaction (§4.3).
var (
	MinTopup = decimal.NewFromInt(1)
	MaxTopup = decimal.NewFromInt(500)
)

// PointsEarned computes reward points for a credited top-up: floor(amount)*10,
// plus a 50-point bonus for amounts of RM 50 or more.
func PointsEarned(amount decimal.Decimal) int64 {
	earned := amount.Floor().IntPart() * 10
	if amount.GreaterThanOrEqual(decimal.NewFromInt(50)) {
		earned += 50
	}
	return earned
}
