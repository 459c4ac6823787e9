package payment

import "context"

// Repository persists PaymentTransaction rows.
type Repository interface {
	Insert(ctx context.Context, p Entity) (Entity, error)
	Update(ctx context.Context, p Entity) error

	// LockByRef locks the PaymentTransaction row by transaction_ref for the
	// duration of the enclosing transaction (credit_from_payment double-
	// callback protection).
	LockByRef(ctx context.Context, transactionRef string) (Entity, bool, error)
	ByRef(ctx context.Context, transactionRef string) (Entity, bool, error)
	ByGatewayTransactionID(ctx context.Context, gatewayTxID string) (Entity, bool, error)

	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
