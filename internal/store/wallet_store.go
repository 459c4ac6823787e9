package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"csms/internal/domain/wallet"
	"csms/internal/pkg/errors"
)

// LockWallet must be called within WithTx: it takes the row lock for the
// remainder of the transaction, which is what makes concurrent top-ups to
// the same wallet serialize instead of lost-update (§4.3, §8 scenario 4).
func (s *Store) LockWallet(ctx context.Context, userID string) (wallet.Entity, error) {
	const selectQ = `SELECT user_id, balance, points, created_at, updated_at
		FROM wallets WHERE user_id = $1 FOR UPDATE`

	var out wallet.Entity
	row := s.q(ctx).QueryRow(ctx, selectQ, userID)
	err := row.Scan(&out.UserID, &out.Balance, &out.Points, &out.CreatedAt, &out.UpdatedAt)
	if err == nil {
		return out, nil
	}
	if err != pgx.ErrNoRows {
		return wallet.Entity{}, errors.Database("lock wallet", err)
	}

	const insertQ = `INSERT INTO wallets (user_id, balance, points, created_at, updated_at)
		VALUES ($1, 0, 0, now(), now())
		ON CONFLICT (user_id) DO NOTHING
		RETURNING user_id, balance, points, created_at, updated_at`

	row = s.q(ctx).QueryRow(ctx, insertQ, userID)
	if err := row.Scan(&out.UserID, &out.Balance, &out.Points, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if err != pgx.ErrNoRows {
			return wallet.Entity{}, errors.Database("create wallet", err)
		}
		// Lost the insert race to a concurrent creator; lock the row they made.
		row = s.q(ctx).QueryRow(ctx, selectQ, userID)
		if err := row.Scan(&out.UserID, &out.Balance, &out.Points, &out.CreatedAt, &out.UpdatedAt); err != nil {
			return wallet.Entity{}, errors.Database("lock wallet after race", err)
		}
	}
	return out, nil
}

func (s *Store) SaveWallet(ctx context.Context, w wallet.Entity) error {
	const q = `UPDATE wallets SET balance = $2, points = $3, updated_at = now() WHERE user_id = $1`
	if _, err := s.q(ctx).Exec(ctx, q, w.UserID, w.Balance, w.Points); err != nil {
		return errors.Database("save wallet", err)
	}
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, t wallet.Transaction) (wallet.Transaction, error) {
	const q = `
		INSERT INTO wallet_transactions (user_id, type, status, amount, balance_before,
			balance_after, points_amount, points_before, points_after, method,
			idempotency_key, gateway_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''), now())
		RETURNING id, user_id, type, status, amount, balance_before, balance_after,
			points_amount, points_before, points_after, method,
			COALESCE(idempotency_key, ''), COALESCE(gateway_reference, ''), created_at`

	// A concurrent Topup with the same idempotency_key can slip past the
	// engine's pre-check and reach the uq_wallet_tx_idempotency unique index
	// here. A savepoint lets us recover from that specific failure instead
	// of aborting the whole enclosing transaction (Postgres marks a
	// transaction block failed after any statement error, so the recovery
	// read below would otherwise hit "current transaction is aborted").
	hasIdempotencyKey := t.IdempotencyKey != ""
	if hasIdempotencyKey {
		if _, err := s.q(ctx).Exec(ctx, "SAVEPOINT wallet_tx_insert"); err != nil {
			return wallet.Transaction{}, errors.Database("savepoint wallet transaction insert", err)
		}
	}

	var out wallet.Transaction
	row := s.q(ctx).QueryRow(ctx, q, t.UserID, t.Type, t.Status, t.Amount, t.BalanceBefore,
		t.BalanceAfter, t.PointsAmount, t.PointsBefore, t.PointsAfter, t.Method,
		t.IdempotencyKey, t.GatewayRef)
	if err := scanWalletTx(row, &out); err != nil {
		if hasIdempotencyKey && isUniqueViolation(err, "uq_wallet_tx_idempotency") {
			if _, rbErr := s.q(ctx).Exec(ctx, "ROLLBACK TO SAVEPOINT wallet_tx_insert"); rbErr != nil {
				return wallet.Transaction{}, errors.Database("rollback to savepoint wallet transaction insert", rbErr)
			}
			// Lost the race: another concurrent call with the same
			// idempotency key committed first. The engine re-reads and
			// returns that row instead of applying this one's balance delta.
			return wallet.Transaction{}, wallet.ErrIdempotencyConflict
		}
		return wallet.Transaction{}, errors.Database("insert wallet transaction", err)
	}
	if hasIdempotencyKey {
		if _, err := s.q(ctx).Exec(ctx, "RELEASE SAVEPOINT wallet_tx_insert"); err != nil {
			return wallet.Transaction{}, errors.Database("release savepoint wallet transaction insert", err)
		}
	}
	return out, nil
}

func (s *Store) TransactionByIdempotencyKey(ctx context.Context, userID, key string) (wallet.Transaction, bool, error) {
	const q = `
		SELECT id, user_id, type, status, amount, balance_before, balance_after,
			points_amount, points_before, points_after, method,
			COALESCE(idempotency_key, ''), COALESCE(gateway_reference, ''), created_at
		FROM wallet_transactions WHERE user_id = $1 AND idempotency_key = $2`

	var out wallet.Transaction
	row := s.q(ctx).QueryRow(ctx, q, userID, key)
	if err := scanWalletTx(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return wallet.Transaction{}, false, nil
		}
		return wallet.Transaction{}, false, errors.Database("get transaction by idempotency key", err)
	}
	return out, true, nil
}

func (s *Store) TransactionByGatewayRef(ctx context.Context, gatewayRef string, txType wallet.TransactionType) (wallet.Transaction, bool, error) {
	const q = `
		SELECT id, user_id, type, status, amount, balance_before, balance_after,
			points_amount, points_before, points_after, method,
			COALESCE(idempotency_key, ''), COALESCE(gateway_reference, ''), created_at
		FROM wallet_transactions
		WHERE gateway_reference = $1 AND type = $2 AND status = 'completed'`

	var out wallet.Transaction
	row := s.q(ctx).QueryRow(ctx, q, gatewayRef, txType)
	if err := scanWalletTx(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return wallet.Transaction{}, false, nil
		}
		return wallet.Transaction{}, false, errors.Database("get transaction by gateway ref", err)
	}
	return out, true, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]wallet.Transaction, error) {
	const q = `
		SELECT id, user_id, type, status, amount, balance_before, balance_after,
			points_amount, points_before, points_after, method,
			COALESCE(idempotency_key, ''), COALESCE(gateway_reference, ''), created_at
		FROM wallet_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := s.q(ctx).Query(ctx, q, userID, limit)
	if err != nil {
		return nil, errors.Database("list wallet transactions", err)
	}
	defer rows.Close()

	var out []wallet.Transaction
	for rows.Next() {
		var t wallet.Transaction
		if err := scanWalletTxRows(rows, &t); err != nil {
			return nil, errors.Database("scan wallet transaction", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanWalletTx(row pgx.Row, out *wallet.Transaction) error {
	return row.Scan(&out.ID, &out.UserID, &out.Type, &out.Status, &out.Amount, &out.BalanceBefore,
		&out.BalanceAfter, &out.PointsAmount, &out.PointsBefore, &out.PointsAfter, &out.Method,
		&out.IdempotencyKey, &out.GatewayRef, &out.CreatedAt)
}

func scanWalletTxRows(rows pgx.Rows, out *wallet.Transaction) error {
	return rows.Scan(&out.ID, &out.UserID, &out.Type, &out.Status, &out.Amount, &out.BalanceBefore,
		&out.BalanceAfter, &out.PointsAmount, &out.PointsBefore, &out.PointsAfter, &out.Method,
		&out.IdempotencyKey, &out.GatewayRef, &out.CreatedAt)
}
