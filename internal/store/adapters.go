package store

import (
	"context"
	"time"

	"csms/internal/domain/audit"
	"csms/internal/domain/charger"
	"csms/internal/domain/payment"
	"csms/internal/domain/session"
	"csms/internal/domain/ticket"
	"csms/internal/domain/user"
	"csms/internal/domain/wallet"
)

// Store's charger and wallet methods already match their domain Repository
// interfaces one-for-one, so *Store satisfies charger.Repository and
// wallet.Repository directly. The other domains share CRUD verbs (Insert,
// Update, ByID...) that would collide as methods on one receiver, so their
// underlying Store methods carry an entity-specific name and these adapters
// narrow them back to the exact interface shape each engine depends on.

type sessionRepo struct{ s *Store }

// SessionRepository returns the session.Repository view of the store.
func (s *Store) SessionRepository() session.Repository { return sessionRepo{s} }

func (r sessionRepo) Insert(ctx context.Context, e session.Entity) (session.Entity, error) {
	return r.s.InsertSession(ctx, e)
}
func (r sessionRepo) Update(ctx context.Context, e session.Entity) error {
	return r.s.UpdateSession(ctx, e)
}
func (r sessionRepo) Delete(ctx context.Context, id int64) error {
	return r.s.DeleteSession(ctx, id)
}
func (r sessionRepo) OpenOnCharger(ctx context.Context, chargePointID string) (session.Entity, bool, error) {
	return r.s.OpenOnCharger(ctx, chargePointID)
}
func (r sessionRepo) ByTransactionID(ctx context.Context, transactionID int64) (session.Entity, bool, error) {
	return r.s.ByTransactionID(ctx, transactionID)
}
func (r sessionRepo) ByID(ctx context.Context, id int64) (session.Entity, bool, error) {
	return r.s.SessionByID(ctx, id)
}
func (r sessionRepo) AppendMeterValue(ctx context.Context, mv session.MeterValue) error {
	return r.s.AppendMeterValue(ctx, mv)
}

type paymentRepo struct{ s *Store }

// PaymentRepository returns the payment.Repository view of the store.
func (s *Store) PaymentRepository() payment.Repository { return paymentRepo{s} }

func (r paymentRepo) Insert(ctx context.Context, p payment.Entity) (payment.Entity, error) {
	return r.s.InsertPayment(ctx, p)
}
func (r paymentRepo) Update(ctx context.Context, p payment.Entity) error {
	return r.s.UpdatePayment(ctx, p)
}
func (r paymentRepo) LockByRef(ctx context.Context, ref string) (payment.Entity, bool, error) {
	return r.s.LockByRef(ctx, ref)
}
func (r paymentRepo) ByRef(ctx context.Context, ref string) (payment.Entity, bool, error) {
	return r.s.ByRef(ctx, ref)
}
func (r paymentRepo) ByGatewayTransactionID(ctx context.Context, id string) (payment.Entity, bool, error) {
	return r.s.ByGatewayTransactionID(ctx, id)
}
func (r paymentRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.s.WithTx(ctx, fn)
}

type ticketRepo struct{ s *Store }

// TicketRepository returns the ticket.Repository view of the store.
func (s *Store) TicketRepository() ticket.Repository { return ticketRepo{s} }

func (r ticketRepo) Insert(ctx context.Context, t ticket.Entity) (ticket.Entity, error) {
	return r.s.InsertTicket(ctx, t)
}
func (r ticketRepo) Update(ctx context.Context, t ticket.Entity) error {
	return r.s.UpdateTicket(ctx, t)
}
func (r ticketRepo) ByNumber(ctx context.Context, ticketNumber string) (ticket.Entity, bool, error) {
	return r.s.TicketByNumber(ctx, ticketNumber)
}
func (r ticketRepo) ListByDepartment(ctx context.Context, department string) ([]ticket.Entity, error) {
	return r.s.TicketsByDepartment(ctx, department)
}
func (r ticketRepo) ListByAssignee(ctx context.Context, staffID string) ([]ticket.Entity, error) {
	return r.s.TicketsByAssignee(ctx, staffID)
}
func (r ticketRepo) ListAll(ctx context.Context) ([]ticket.Entity, error) {
	return r.s.TicketsAll(ctx)
}
func (r ticketRepo) NextSequenceForDay(ctx context.Context, day string) (int, error) {
	return r.s.NextSequenceForDay(ctx, day)
}
func (r ticketRepo) AppendMessage(ctx context.Context, m ticket.Message) error {
	return r.s.AppendTicketMessage(ctx, m)
}
func (r ticketRepo) OpenAssignedCount(ctx context.Context, staffID string) (int, error) {
	return r.s.OpenAssignedCount(ctx, staffID)
}
func (r ticketRepo) StaffInDepartment(ctx context.Context, department string) ([]ticket.Staff, error) {
	return r.s.StaffInDepartment(ctx, department)
}
func (r ticketRepo) StaffByID(ctx context.Context, staffID string) (ticket.Staff, bool, error) {
	return r.s.StaffByID(ctx, staffID)
}
func (r ticketRepo) DueForSLASweep(ctx context.Context, now time.Time, cooldown time.Duration) ([]ticket.Entity, error) {
	return r.s.TicketsDueForSLASweep(ctx, now, cooldown)
}

type userRepo struct{ s *Store }

// UserRepository returns the user.Repository view of the store.
func (s *Store) UserRepository() user.Repository { return userRepo{s} }

func (r userRepo) Create(ctx context.Context, e user.Entity) (user.Entity, error) {
	return r.s.CreateUser(ctx, e)
}
func (r userRepo) GetByEmail(ctx context.Context, email string) (user.Entity, bool, error) {
	return r.s.UserByEmail(ctx, email)
}
func (r userRepo) GetByID(ctx context.Context, id string) (user.Entity, bool, error) {
	return r.s.UserByID(ctx, id)
}

type auditRepo struct{ s *Store }

// AuditRepository returns the audit.Repository view of the store.
func (s *Store) AuditRepository() audit.Repository { return auditRepo{s} }

func (r auditRepo) Insert(ctx context.Context, e audit.Entity) error {
	return r.s.InsertAudit(ctx, e)
}

// walletRepo/chargerRepo are unnecessary: *Store's method names already match
// wallet.Repository and charger.Repository verbatim (see wallet_store.go,
// charger_store.go), so it satisfies both interfaces without an adapter.
var (
	_ wallet.Repository  = (*Store)(nil)
	_ charger.Repository = (*Store)(nil)
)
