package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"csms/internal/domain/payment"
	"csms/internal/pkg/errors"
)

func (s *Store) InsertPayment(ctx context.Context, p payment.Entity) (payment.Entity, error) {
	const q = `
		INSERT INTO payment_transactions (transaction_ref, user_id, gateway, amount, currency,
			status, gateway_transaction_id, payment_url, raw_payload, expired_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING transaction_ref, user_id, gateway, amount, currency, status,
			COALESCE(gateway_transaction_id, ''), COALESCE(payment_url, ''), COALESCE(raw_payload, ''),
			wallet_transaction_id, expired_at, paid_at, created_at, updated_at`

	var out payment.Entity
	row := s.q(ctx).QueryRow(ctx, q, p.TransactionRef, p.UserID, p.Gateway, p.Amount, p.Currency,
		p.Status, p.GatewayTransactionID, p.PaymentURL, p.RawPayload, p.ExpiredAt)
	if err := scanPayment(row, &out); err != nil {
		return payment.Entity{}, errors.Database("insert payment", err)
	}
	return out, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p payment.Entity) error {
	const q = `
		UPDATE payment_transactions SET status=$2, gateway_transaction_id=NULLIF($3, ''),
			raw_payload=NULLIF($4, ''), wallet_transaction_id=$5, paid_at=$6, updated_at=now()
		WHERE transaction_ref = $1`
	if _, err := s.q(ctx).Exec(ctx, q, p.TransactionRef, p.Status, p.GatewayTransactionID,
		p.RawPayload, p.WalletTransactionID, p.PaidAt); err != nil {
		return errors.Database("update payment", err)
	}
	return nil
}

func (s *Store) LockByRef(ctx context.Context, transactionRef string) (payment.Entity, bool, error) {
	const q = `
		SELECT transaction_ref, user_id, gateway, amount, currency, status,
			COALESCE(gateway_transaction_id, ''), COALESCE(payment_url, ''), COALESCE(raw_payload, ''),
			wallet_transaction_id, expired_at, paid_at, created_at, updated_at
		FROM payment_transactions WHERE transaction_ref = $1 FOR UPDATE`

	var out payment.Entity
	row := s.q(ctx).QueryRow(ctx, q, transactionRef)
	if err := scanPayment(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return payment.Entity{}, false, nil
		}
		return payment.Entity{}, false, errors.Database("lock payment", err)
	}
	return out, true, nil
}

func (s *Store) ByRef(ctx context.Context, transactionRef string) (payment.Entity, bool, error) {
	const q = `
		SELECT transaction_ref, user_id, gateway, amount, currency, status,
			COALESCE(gateway_transaction_id, ''), COALESCE(payment_url, ''), COALESCE(raw_payload, ''),
			wallet_transaction_id, expired_at, paid_at, created_at, updated_at
		FROM payment_transactions WHERE transaction_ref = $1`

	var out payment.Entity
	row := s.q(ctx).QueryRow(ctx, q, transactionRef)
	if err := scanPayment(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return payment.Entity{}, false, nil
		}
		return payment.Entity{}, false, errors.Database("get payment", err)
	}
	return out, true, nil
}

func (s *Store) ByGatewayTransactionID(ctx context.Context, gatewayTxID string) (payment.Entity, bool, error) {
	const q = `
		SELECT transaction_ref, user_id, gateway, amount, currency, status,
			COALESCE(gateway_transaction_id, ''), COALESCE(payment_url, ''), COALESCE(raw_payload, ''),
			wallet_transaction_id, expired_at, paid_at, created_at, updated_at
		FROM payment_transactions WHERE gateway_transaction_id = $1`

	var out payment.Entity
	row := s.q(ctx).QueryRow(ctx, q, gatewayTxID)
	if err := scanPayment(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return payment.Entity{}, false, nil
		}
		return payment.Entity{}, false, errors.Database("get payment by gateway tx id", err)
	}
	return out, true, nil
}

func scanPayment(row pgx.Row, out *payment.Entity) error {
	return row.Scan(&out.TransactionRef, &out.UserID, &out.Gateway, &out.Amount, &out.Currency,
		&out.Status, &out.GatewayTransactionID, &out.PaymentURL, &out.RawPayload,
		&out.WalletTransactionID, &out.ExpiredAt, &out.PaidAt, &out.CreatedAt, &out.UpdatedAt)
}
