package wallet

import (
	"context"
	"errors"
)

// ErrIdempotencyConflict is returned by InsertTransaction when a concurrent
// call already committed a row for the same (user_id, idempotency_key) pair
// after the engine's own pre-check missed it. Callers should re-read the
// existing transaction via TransactionByIdempotencyKey and return it instead
// of treating this as a failure (§4.3/§7).
var ErrIdempotencyConflict = errors.New("wallet: idempotency key already committed by a concurrent transaction")

// Repository persists Wallet and WalletTransaction rows.
type Repository interface {
	// LockWallet acquires the per-wallet exclusive lock (SELECT ... FOR
	// UPDATE equivalent) and returns the wallet, creating one with a zero
	// balance if it does not yet exist. Must be called within a
	// transaction; the lock is released on commit/rollback.
	LockWallet(ctx context.Context, userID string) (Entity, error)
	SaveWallet(ctx context.Context, w Entity) error

	// InsertTransaction may return ErrIdempotencyConflict; see its doc.
	InsertTransaction(ctx context.Context, t Transaction) (Transaction, error)
	TransactionByIdempotencyKey(ctx context.Context, userID, key string) (Transaction, bool, error)
	TransactionByGatewayRef(ctx context.Context, gatewayRef string, txType TransactionType) (Transaction, bool, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)

	// WithTx runs fn within a single database transaction; all LockWallet /
	// SaveWallet / InsertTransaction calls made through the ctx it passes to
	// fn participate in that transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
