// Package walletengine implements the Wallet Engine: the sole writer of
// Wallet/WalletTransaction/PaymentTransaction rows. Every balance-mutating
// operation runs under the per-wallet exclusive lock acquired by
// wallet.Repository.LockWallet (§4.3).
package walletengine

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"csms/internal/domain/audit"
	"csms/internal/domain/payment"
	"csms/internal/domain/wallet"
	"csms/internal/pkg/errors"
)

// EventPublisher is the Engine's view of the domain-event bus.
type EventPublisher interface {
	PublishPaymentCredited(ctx context.Context, transactionRef, userID, amount string) error
}

// Engine orchestrates top-up, payment settlement, session debit, and reward
// redemption against the wallet and payment repositories.
type Engine struct {
	wallets  wallet.Repository
	payments payment.Repository
	audits   audit.Repository
	events   EventPublisher
	logger   *zap.Logger
}

// New constructs a Wallet Engine.
func New(wallets wallet.Repository, payments payment.Repository, audits audit.Repository, logger *zap.Logger) *Engine {
	return &Engine{wallets: wallets, payments: payments, audits: audits, logger: logger}
}

// SetEventPublisher wires domain-event publishing; nil (the default) skips it.
func (e *Engine) SetEventPublisher(events EventPublisher) {
	e.events = events
}

// ValidateTopup enforces the per-transaction top-up bounds (§4.3). The daily
// cap is informational and enforced, if at all, by a sum-over-day audit
// query rather than here.
func (e *Engine) ValidateTopup(amount decimal.Decimal) error {
	if amount.LessThan(wallet.MinTopup) || amount.GreaterThan(wallet.MaxTopup) {
		return errors.ValidationRange("amount", wallet.MinTopup.String(), wallet.MaxTopup.String())
	}
	return nil
}

// Topup credits a wallet directly (an operator-confirmed or in-app top-up,
// as opposed to credit_from_payment's external-gateway path). A repeated
// idempotency_key returns the original transaction without a new mutation.
func (e *Engine) Topup(ctx context.Context, userID string, amount decimal.Decimal, method, idempotencyKey string) (wallet.Transaction, error) {
	if err := e.ValidateTopup(amount); err != nil {
		return wallet.Transaction{}, err
	}

	var result wallet.Transaction
	err := e.wallets.WithTx(ctx, func(ctx context.Context) error {
		if idempotencyKey != "" {
			existing, found, err := e.wallets.TransactionByIdempotencyKey(ctx, userID, idempotencyKey)
			if err != nil {
				return err
			}
			if found {
				result = existing
				return nil
			}
		}

		w, err := e.wallets.LockWallet(ctx, userID)
		if err != nil {
			return err
		}

		balanceBefore := w.Balance
		w.Balance = w.Balance.Add(amount)

		inserted, err := e.wallets.InsertTransaction(ctx, wallet.Transaction{
			UserID:         userID,
			Type:           wallet.TransactionTopup,
			Status:         wallet.TransactionStatusCompleted,
			Amount:         amount,
			BalanceBefore:  balanceBefore,
			BalanceAfter:   w.Balance,
			PointsBefore:   w.Points,
			PointsAfter:    w.Points,
			Method:         method,
			IdempotencyKey: idempotencyKey,
		})
		if stderrors.Is(err, wallet.ErrIdempotencyConflict) {
			// A concurrent Topup with the same key won the race and already
			// applied its own balance delta; w here is now stale, so it must
			// not be saved. Return the winner's row instead (§4.3/§7).
			existing, found, findErr := e.wallets.TransactionByIdempotencyKey(ctx, userID, idempotencyKey)
			if findErr != nil {
				return findErr
			}
			if found {
				result = existing
				return nil
			}
			return err
		}
		if err != nil {
			return err
		}
		if err := e.wallets.SaveWallet(ctx, w); err != nil {
			return err
		}

		result = inserted
		e.audit(ctx, userID, "wallet.topup", "wallet", userID, map[string]interface{}{
			"amount": amount.String(), "method": method,
		})
		return nil
	})
	return result, err
}

// CreditFromPayment links a successful external payment to a wallet credit,
// exactly once per payment_ref regardless of how many times the callback or
// a status poll invokes it (§4.3).
func (e *Engine) CreditFromPayment(ctx context.Context, paymentRef string) error {
	return e.payments.WithTx(ctx, func(ctx context.Context) error {
		p, found, err := e.payments.LockByRef(ctx, paymentRef)
		if err != nil {
			return err
		}
		if !found {
			return errors.NotFoundWithID("payment", paymentRef)
		}
		if p.WalletTransactionID != nil {
			return nil
		}

		if existing, found, err := e.wallets.TransactionByGatewayRef(ctx, paymentRef, wallet.TransactionTopup); err != nil {
			return err
		} else if found {
			p.WalletTransactionID = &existing.ID
			return e.payments.Update(ctx, p)
		}

		w, err := e.wallets.LockWallet(ctx, p.UserID)
		if err != nil {
			return err
		}

		pointsEarned := wallet.PointsEarned(p.Amount)
		balanceBefore := w.Balance
		pointsBefore := w.Points
		w.Balance = w.Balance.Add(p.Amount)
		w.Points += pointsEarned

		inserted, err := e.wallets.InsertTransaction(ctx, wallet.Transaction{
			UserID:        p.UserID,
			Type:          wallet.TransactionTopup,
			Status:        wallet.TransactionStatusCompleted,
			Amount:        p.Amount,
			BalanceBefore: balanceBefore,
			BalanceAfter:  w.Balance,
			PointsAmount:  pointsEarned,
			PointsBefore:  pointsBefore,
			PointsAfter:   w.Points,
			Method:        p.Gateway,
			GatewayRef:    paymentRef,
		})
		if err != nil {
			return err
		}
		if err := e.wallets.SaveWallet(ctx, w); err != nil {
			return err
		}

		p.WalletTransactionID = &inserted.ID
		if err := e.payments.Update(ctx, p); err != nil {
			return err
		}

		e.audit(ctx, p.UserID, "wallet.credit_from_payment", "payment", paymentRef, map[string]interface{}{
			"amount": p.Amount.String(), "points_earned": pointsEarned,
		})

		if e.events != nil {
			if err := e.events.PublishPaymentCredited(ctx, paymentRef, p.UserID, p.Amount.String()); err != nil {
				e.logger.Warn("failed to publish payment credited event", zap.String("transaction_ref", paymentRef), zap.Error(err))
			}
		}
		return nil
	})
}

// DebitForSession charges a completed charging session against the user's
// wallet balance.
func (e *Engine) DebitForSession(ctx context.Context, userID string, amount decimal.Decimal, chargePointID string, sessionID int64) (wallet.Transaction, error) {
	var result wallet.Transaction
	err := e.wallets.WithTx(ctx, func(ctx context.Context) error {
		w, err := e.wallets.LockWallet(ctx, userID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(amount) {
			return errors.Conflict("wallet", "insufficient balance")
		}

		balanceBefore := w.Balance
		w.Balance = w.Balance.Sub(amount)

		inserted, err := e.wallets.InsertTransaction(ctx, wallet.Transaction{
			UserID:        userID,
			Type:          wallet.TransactionChargePayment,
			Status:        wallet.TransactionStatusCompleted,
			Amount:        amount.Neg(),
			BalanceBefore: balanceBefore,
			BalanceAfter:  w.Balance,
			PointsBefore:  w.Points,
			PointsAfter:   w.Points,
			Method:        "wallet",
		})
		if err != nil {
			return err
		}
		if err := e.wallets.SaveWallet(ctx, w); err != nil {
			return err
		}

		result = inserted
		e.audit(ctx, userID, "wallet.debit_for_session", "session", strconv.FormatInt(sessionID, 10), map[string]interface{}{
			"amount": amount.String(), "charge_point_id": chargePointID,
		})
		return nil
	})
	return result, err
}

// RedeemReward exchanges points for a wallet balance credit per the built-in
// catalog. clientCost, if nonzero, must agree with the catalog's cost.
func (e *Engine) RedeemReward(ctx context.Context, userID, rewardKey string, clientCost int64) (wallet.Transaction, error) {
	reward, ok := wallet.Catalog[rewardKey]
	if !ok {
		return wallet.Transaction{}, errors.NotFound("reward")
	}
	if clientCost != 0 && clientCost != reward.PointsCost {
		return wallet.Transaction{}, errors.Conflict("reward", "client-supplied cost does not match catalog")
	}

	var result wallet.Transaction
	err := e.wallets.WithTx(ctx, func(ctx context.Context) error {
		w, err := e.wallets.LockWallet(ctx, userID)
		if err != nil {
			return err
		}
		if w.Points < reward.PointsCost {
			return errors.Conflict("wallet", "insufficient points")
		}

		balanceBefore := w.Balance
		pointsBefore := w.Points
		w.Points -= reward.PointsCost
		w.Balance = w.Balance.Add(reward.CreditMYR)

		inserted, err := e.wallets.InsertTransaction(ctx, wallet.Transaction{
			UserID:        userID,
			Type:          wallet.TransactionPointsRedeemed,
			Status:        wallet.TransactionStatusCompleted,
			Amount:        reward.CreditMYR,
			BalanceBefore: balanceBefore,
			BalanceAfter:  w.Balance,
			PointsAmount:  -reward.PointsCost,
			PointsBefore:  pointsBefore,
			PointsAfter:   w.Points,
			Method:        rewardKey,
		})
		if err != nil {
			return err
		}
		if err := e.wallets.SaveWallet(ctx, w); err != nil {
			return err
		}

		result = inserted
		e.audit(ctx, userID, "wallet.redeem_reward", "wallet", userID, map[string]interface{}{
			"reward_key": rewardKey, "points_cost": reward.PointsCost,
		})
		return nil
	})
	return result, err
}

// ListTransactions returns a user's wallet ledger, most recent first.
func (e *Engine) ListTransactions(ctx context.Context, userID string, limit int) ([]wallet.Transaction, error) {
	return e.wallets.ListTransactions(ctx, userID, limit)
}

func (e *Engine) audit(ctx context.Context, actorID, action, entity, entityID string, detail map[string]interface{}) {
	if err := e.audits.Insert(ctx, audit.Entity{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	}); err != nil {
		e.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
