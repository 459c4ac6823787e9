package walletengine

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csms/internal/domain/audit"
	"csms/internal/domain/payment"
	"csms/internal/domain/wallet"
)

// fakeWalletRepo is an in-memory wallet.Repository. WithTx holds mu for its
// whole body, the same granularity a single-wallet SELECT ... FOR UPDATE
// gives the real store, so concurrent Topup calls serialize completely
// rather than just around the individual Lock/Save calls.
type fakeWalletRepo struct {
	mu           sync.Mutex
	wallets      map[string]wallet.Entity
	transactions []wallet.Transaction
	nextID       int64
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[string]wallet.Entity)}
}

func (r *fakeWalletRepo) LockWallet(ctx context.Context, userID string) (wallet.Entity, error) {
	w, ok := r.wallets[userID]
	if !ok {
		w = wallet.Entity{UserID: userID, Balance: decimal.Zero}
		r.wallets[userID] = w
	}
	return w, nil
}

func (r *fakeWalletRepo) SaveWallet(ctx context.Context, w wallet.Entity) error {
	r.wallets[w.UserID] = w
	return nil
}

func (r *fakeWalletRepo) InsertTransaction(ctx context.Context, t wallet.Transaction) (wallet.Transaction, error) {
	r.nextID++
	t.ID = r.nextID
	r.transactions = append(r.transactions, t)
	return t, nil
}

func (r *fakeWalletRepo) TransactionByIdempotencyKey(ctx context.Context, userID, key string) (wallet.Transaction, bool, error) {
	for _, t := range r.transactions {
		if t.UserID == userID && t.IdempotencyKey == key && key != "" {
			return t, true, nil
		}
	}
	return wallet.Transaction{}, false, nil
}

func (r *fakeWalletRepo) TransactionByGatewayRef(ctx context.Context, gatewayRef string, txType wallet.TransactionType) (wallet.Transaction, bool, error) {
	for _, t := range r.transactions {
		if t.GatewayRef == gatewayRef && t.Type == txType {
			return t, true, nil
		}
	}
	return wallet.Transaction{}, false, nil
}

func (r *fakeWalletRepo) ListTransactions(ctx context.Context, userID string, limit int) ([]wallet.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []wallet.Transaction
	for _, t := range r.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

// walletBalance is a test helper that reads a wallet's balance without going
// through LockWallet's transaction semantics.
func (r *fakeWalletRepo) walletBalance(userID string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wallets[userID].Balance
}

func (r *fakeWalletRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

// fakePaymentRepo is an in-memory payment.Repository. WithTx holds mu for
// its whole body, mirroring LockByRef's row lock for the enclosing
// transaction.
type fakePaymentRepo struct {
	mu    sync.Mutex
	byRef map[string]payment.Entity
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byRef: make(map[string]payment.Entity)}
}

func (r *fakePaymentRepo) Insert(ctx context.Context, p payment.Entity) (payment.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRef[p.TransactionRef] = p
	return p, nil
}

func (r *fakePaymentRepo) Update(ctx context.Context, p payment.Entity) error {
	r.byRef[p.TransactionRef] = p
	return nil
}

func (r *fakePaymentRepo) LockByRef(ctx context.Context, transactionRef string) (payment.Entity, bool, error) {
	p, ok := r.byRef[transactionRef]
	return p, ok, nil
}

func (r *fakePaymentRepo) ByRef(ctx context.Context, transactionRef string) (payment.Entity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byRef[transactionRef]
	return p, ok, nil
}

func (r *fakePaymentRepo) ByGatewayTransactionID(ctx context.Context, gatewayTxID string) (payment.Entity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byRef {
		if p.GatewayTransactionID == gatewayTxID {
			return p, true, nil
		}
	}
	return payment.Entity{}, false, nil
}

func (r *fakePaymentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []audit.Entity
}

func (r *fakeAuditRepo) Insert(ctx context.Context, e audit.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func newTestEngine(wallets *fakeWalletRepo, payments *fakePaymentRepo) *Engine {
	return New(wallets, payments, &fakeAuditRepo{}, zap.NewNop())
}

// I-4: two concurrent RM10 top-ups for the same user must land as exactly
// RM20 across two contiguous, non-overlapping transactions.
func TestEngine_Topup_ConcurrentTopupsAreSerializedAndExact(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	const topups = 2
	amount := decimal.NewFromInt(10)

	var wg sync.WaitGroup
	errs := make([]error, topups)
	for i := 0; i < topups; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Topup(context.Background(), "u1", amount, "manual", "")
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	balance := wallets.walletBalance("u1")
	assert.True(t, decimal.NewFromInt(20).Equal(balance), "two concurrent RM10 top-ups must settle at exactly RM20, got %s", balance)

	txns, err := wallets.ListTransactions(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	if txns[0].BalanceAfter.Equal(txns[1].BalanceBefore) {
		assert.True(t, true)
	} else {
		assert.True(t, txns[1].BalanceAfter.Equal(txns[0].BalanceBefore), "the two transactions must be contiguous regardless of interleaving order")
	}
}

// A repeated idempotency_key must short-circuit to the original transaction
// rather than crediting the wallet twice.
func TestEngine_Topup_IdempotencyKeyDedupesRepeatedCall(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	first, err := e.Topup(context.Background(), "u1", decimal.NewFromInt(10), "manual", "key-1")
	require.NoError(t, err)

	second, err := e.Topup(context.Background(), "u1", decimal.NewFromInt(10), "manual", "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "a repeated idempotency_key must return the original transaction")

	balance := wallets.walletBalance("u1")
	assert.True(t, decimal.NewFromInt(10).Equal(balance), "the second call with the same idempotency_key must not credit again")
}

// raceWalletRepo wraps fakeWalletRepo and forces its first InsertTransaction
// call to behave like a lost race against a concurrent committer: it writes
// the "winning" row directly (bypassing the engine) and returns
// wallet.ErrIdempotencyConflict, the way the real store does after a
// uq_wallet_tx_idempotency violation.
type raceWalletRepo struct {
	*fakeWalletRepo
	triggered bool
}

func (r *raceWalletRepo) InsertTransaction(ctx context.Context, t wallet.Transaction) (wallet.Transaction, error) {
	if !r.triggered && t.IdempotencyKey != "" {
		r.triggered = true
		winner := t
		winner.ID = 999
		r.fakeWalletRepo.nextID = 999
		r.fakeWalletRepo.transactions = append(r.fakeWalletRepo.transactions, winner)
		return wallet.Transaction{}, wallet.ErrIdempotencyConflict
	}
	return r.fakeWalletRepo.InsertTransaction(ctx, t)
}

// §4.3/§7: a lost idempotency-key race at insert time must return the
// concurrent winner's transaction, not a generic Database error, and must
// not also apply this call's own (stale) balance delta on top.
func TestEngine_Topup_IdempotencyConflictAtInsertReturnsWinnerWithoutDoubleCredit(t *testing.T) {
	wallets := &raceWalletRepo{fakeWalletRepo: newFakeWalletRepo()}
	payments := newFakePaymentRepo()
	e := New(wallets, payments, &fakeAuditRepo{}, zap.NewNop())

	result, err := e.Topup(context.Background(), "u1", decimal.NewFromInt(10), "manual", "key-1")
	require.NoError(t, err)
	assert.Equal(t, int64(999), result.ID, "must return the concurrent winner's transaction")

	balance := wallets.walletBalance("u1")
	assert.True(t, decimal.Zero.Equal(balance),
		"the loser must not also save its own (stale) balance delta on top of the winner's, got %s", balance)
}

// CreditFromPayment must be safe against a duplicated callback: the second
// invocation for the same payment_ref must not credit the wallet twice.
func TestEngine_CreditFromPayment_DoubleCallbackSettlesOnce(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	payments.byRef["TXN-1"] = payment.Entity{
		TransactionRef: "TXN-1",
		UserID:         "u1",
		Gateway:        "billplz",
		Amount:         decimal.NewFromInt(20),
		Status:         payment.StatusSuccess,
	}

	require.NoError(t, e.CreditFromPayment(context.Background(), "TXN-1"))
	require.NoError(t, e.CreditFromPayment(context.Background(), "TXN-1"))

	balance := wallets.walletBalance("u1")
	assert.True(t, decimal.NewFromInt(20).Equal(balance), "a duplicated callback for the same transaction_ref must not double-credit")

	txns, err := wallets.ListTransactions(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

// Once a payment already carries a WalletTransactionID, CreditFromPayment
// must be a no-op even if invoked again.
func TestEngine_CreditFromPayment_SkipsAlreadySettledPayment(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	settledTxnID := int64(77)
	payments.byRef["TXN-2"] = payment.Entity{
		TransactionRef:      "TXN-2",
		UserID:              "u1",
		Amount:              decimal.NewFromInt(5),
		Status:              payment.StatusSuccess,
		WalletTransactionID: &settledTxnID,
	}

	require.NoError(t, e.CreditFromPayment(context.Background(), "TXN-2"))

	txns, err := wallets.ListTransactions(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, txns, "an already-settled payment must never reach InsertTransaction")
}

// DebitForSession must reject a debit that would overdraw the wallet.
func TestEngine_DebitForSession_RejectsInsufficientBalance(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	_, err := e.Topup(context.Background(), "u1", decimal.NewFromInt(5), "manual", "")
	require.NoError(t, err)

	_, err = e.DebitForSession(context.Background(), "u1", decimal.NewFromInt(10), "CP1", 1)
	assert.Error(t, err)
}

// ValidateTopup enforces the per-transaction bounds.
func TestEngine_ValidateTopup_RejectsOutOfBoundsAmounts(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	assert.Error(t, e.ValidateTopup(decimal.NewFromInt(0)))
	assert.Error(t, e.ValidateTopup(decimal.NewFromInt(501)))
	assert.NoError(t, e.ValidateTopup(decimal.NewFromInt(50)))
}

func TestEngine_RedeemReward_DeductsPointsAndCreditsBalance(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	wallets.wallets["u1"] = wallet.Entity{UserID: "u1", Balance: decimal.Zero, Points: 600}

	txn, err := e.RedeemReward(context.Background(), "u1", "voucher_5", 500)
	require.NoError(t, err)
	assert.Equal(t, wallet.TransactionPointsRedeemed, txn.Type)
	assert.True(t, txn.Amount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int64(-500), txn.PointsAmount)

	w := wallets.wallets["u1"]
	assert.Equal(t, int64(100), w.Points)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(5)))
}

func TestEngine_RedeemReward_RejectsInsufficientPoints(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	wallets.wallets["u1"] = wallet.Entity{UserID: "u1", Balance: decimal.Zero, Points: 100}

	_, err := e.RedeemReward(context.Background(), "u1", "voucher_5", 500)
	assert.Error(t, err)
}

func TestEngine_RedeemReward_RejectsCostMismatchWithCatalog(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	wallets.wallets["u1"] = wallet.Entity{UserID: "u1", Balance: decimal.Zero, Points: 600}

	_, err := e.RedeemReward(context.Background(), "u1", "voucher_5", 9999)
	assert.Error(t, err)
}

func TestEngine_RedeemReward_RejectsUnknownRewardKey(t *testing.T) {
	wallets := newFakeWalletRepo()
	payments := newFakePaymentRepo()
	e := newTestEngine(wallets, payments)

	_, err := e.RedeemReward(context.Background(), "u1", "not_a_reward", 0)
	assert.Error(t, err)
}
