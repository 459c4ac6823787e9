// Package ticketengine implements the Ticket SLA & Routing Engine: ticket
// numbering, department routing, least-loaded auto-assignment, status
// transitions, and the reminder sweep driven by the Reminder Scheduler.
package ticketengine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"csms/internal/clock"
	"csms/internal/domain/ticket"
	"csms/internal/mailer"
	"csms/internal/pkg/errors"
)

// slaSweepConcurrency bounds how many reminder emails/escalations RunSLASweep
// dispatches at once; a sweep can touch hundreds of tickets and each one
// blocks on an SMTP round trip, so fanning them out fully would open one
// socket per ticket.
const slaSweepConcurrency = 8

// staffCacheTTL bounds how stale a department's staff roster can be in
// autoAssign; a roster changes rarely enough that a short cache saves a
// repository round trip on every ticket creation without routing tickets
// against a meaningfully out-of-date staff list.
const staffCacheTTL = 30 * time.Second

// EventPublisher is the Engine's view of the domain-event bus: the one
// occurrence support staff or an external monitor cares to know about
// without polling the ticket table.
type EventPublisher interface {
	PublishTicketEscalated(ctx context.Context, ticketNumber, department string, dueAt time.Time) error
}

// Engine orchestrates ticket creation, routing, assignment, and the SLA
// sweep against the ticket repository.
type Engine struct {
	tickets    ticket.Repository
	mailer     mailer.Mailer
	clock      clock.Clock
	events     EventPublisher
	logger     *zap.Logger
	cooldown   time.Duration
	staffCache *cache.Cache
}

// New constructs a Ticket Engine. cooldown is REMINDER_COOLDOWN_HOURS
// translated to a time.Duration.
func New(tickets ticket.Repository, m mailer.Mailer, clk clock.Clock, cooldown time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		tickets:    tickets,
		mailer:     m,
		clock:      clk,
		cooldown:   cooldown,
		logger:     logger,
		staffCache: cache.New(staffCacheTTL, 2*staffCacheTTL),
	}
}

// SetEventPublisher wires domain-event publishing; nil (the default) makes
// escalation a no-op beyond the ticket row's own Escalated flag.
func (e *Engine) SetEventPublisher(events EventPublisher) {
	e.events = events
}

// CreateTicketParams describes a new ticket as submitted by a user.
type CreateTicketParams struct {
	UserID   string
	Category string
	Priority ticket.Priority
	Subject  string
	Message  string
}

// Create numbers, routes, and auto-assigns a new ticket, recording both the
// user's opening message and a system routing notice.
func (e *Engine) Create(ctx context.Context, p CreateTicketParams) (ticket.Entity, error) {
	if p.UserID == "" {
		return ticket.Entity{}, errors.ValidationRequired("user_id")
	}
	if p.Subject == "" {
		return ticket.Entity{}, errors.ValidationRequired("subject")
	}
	if _, ok := ticket.SLA[p.Priority]; !ok {
		return ticket.Entity{}, errors.ValidationInvalid("priority", string(p.Priority))
	}

	now := e.clock.Now()
	day := now.UTC().Format("20060102")
	seq, err := e.tickets.NextSequenceForDay(ctx, day)
	if err != nil {
		return ticket.Entity{}, err
	}
	department := ticket.DepartmentFor(p.Category)

	t := ticket.Entity{
		TicketNumber: fmt.Sprintf("TKT-%s-%04d", day, seq),
		UserID:       p.UserID,
		Category:     p.Category,
		Department:   department,
		Priority:     p.Priority,
		Status:       ticket.StatusOpen,
		Subject:      p.Subject,
		DueAt:        now.Add(ticket.SLA[p.Priority]),
	}

	inserted, err := e.tickets.Insert(ctx, t)
	if err != nil {
		return ticket.Entity{}, err
	}

	if err := e.tickets.AppendMessage(ctx, ticket.Message{
		TicketNumber: inserted.TicketNumber,
		AuthorID:     p.UserID,
		Body:         p.Message,
	}); err != nil {
		e.logger.Warn("failed to append opening ticket message", zap.Error(err))
	}

	assignee, routingNote := e.autoAssign(ctx, inserted)
	if assignee != "" {
		inserted.AssignedStaffID = &assignee
		if err := e.tickets.Update(ctx, inserted); err != nil {
			return ticket.Entity{}, err
		}
	}

	if err := e.tickets.AppendMessage(ctx, ticket.Message{
		TicketNumber: inserted.TicketNumber,
		IsSystem:     true,
		Body:         routingNote,
	}); err != nil {
		e.logger.Warn("failed to append routing notice", zap.Error(err))
	}

	return inserted, nil
}

// staffInDepartment is a cache-first read of the department roster;
// OpenAssignedCount still goes straight to the repository since ticket load
// changes far more often than who staffs a department.
func (e *Engine) staffInDepartment(ctx context.Context, department string) ([]ticket.Staff, error) {
	if cached, found := e.staffCache.Get(department); found {
		return cached.([]ticket.Staff), nil
	}

	staff, err := e.tickets.StaffInDepartment(ctx, department)
	if err != nil {
		return nil, err
	}
	e.staffCache.Set(department, staff, cache.DefaultExpiration)
	return staff, nil
}

// autoAssign picks the least-loaded eligible staff member for a ticket's
// department, restricting to managers first for urgent/high priority when
// any manager is available.
func (e *Engine) autoAssign(ctx context.Context, t ticket.Entity) (staffID, note string) {
	staff, err := e.staffInDepartment(ctx, t.Department)
	if err != nil {
		e.logger.Warn("failed to list department staff for assignment", zap.Error(err))
		return "", fmt.Sprintf("Routed to %s. Auto-assignment unavailable.", t.Department)
	}

	candidates := make([]ticket.Staff, 0, len(staff))
	for _, s := range staff {
		if s.AssignmentCandidate() {
			candidates = append(candidates, s)
		}
	}

	if t.Priority == ticket.PriorityUrgent || t.Priority == ticket.PriorityHigh {
		managers := make([]ticket.Staff, 0, len(candidates))
		for _, s := range candidates {
			if s.Role == ticket.RoleManager {
				managers = append(managers, s)
			}
		}
		if len(managers) > 0 {
			candidates = managers
		}
	}

	var best ticket.Staff
	bestLoad := -1
	for _, s := range candidates {
		load, err := e.tickets.OpenAssignedCount(ctx, s.ID)
		if err != nil {
			e.logger.Warn("failed to count staff load during assignment", zap.String("staff_id", s.ID), zap.Error(err))
			continue
		}
		if load >= s.MaxTickets {
			continue
		}
		if bestLoad == -1 || load < bestLoad {
			best = s
			bestLoad = load
		}
	}

	if bestLoad == -1 {
		return "", fmt.Sprintf("Routed to %s. No staff available for auto-assignment; left unassigned.", t.Department)
	}
	return best.ID, fmt.Sprintf("Routed to %s and assigned to %s.", t.Department, best.Name)
}

// Reply appends a message to a ticket's thread. The first staff reply on an
// open ticket transitions it to in_progress and sets first_response_at.
func (e *Engine) Reply(ctx context.Context, ticketNumber, authorID, body string, isStaff bool) (ticket.Entity, error) {
	t, found, err := e.tickets.ByNumber(ctx, ticketNumber)
	if err != nil {
		return ticket.Entity{}, err
	}
	if !found {
		return ticket.Entity{}, errors.NotFoundWithID("ticket", ticketNumber)
	}

	if err := e.tickets.AppendMessage(ctx, ticket.Message{
		TicketNumber: ticketNumber,
		AuthorID:     authorID,
		IsStaff:      isStaff,
		Body:         body,
	}); err != nil {
		return ticket.Entity{}, err
	}

	if isStaff && t.Status == ticket.StatusOpen && t.FirstResponseAt == nil {
		now := e.clock.Now()
		t.Status = ticket.StatusInProgress
		t.FirstResponseAt = &now
		if err := e.tickets.Update(ctx, t); err != nil {
			return ticket.Entity{}, err
		}
	}

	return t, nil
}

// SetStatus transitions a ticket's status, stamping resolved_at the first
// time it reaches resolved or closed.
func (e *Engine) SetStatus(ctx context.Context, ticketNumber string, status ticket.Status) (ticket.Entity, error) {
	t, found, err := e.tickets.ByNumber(ctx, ticketNumber)
	if err != nil {
		return ticket.Entity{}, err
	}
	if !found {
		return ticket.Entity{}, errors.NotFoundWithID("ticket", ticketNumber)
	}

	t.Status = status
	if (status == ticket.StatusResolved || status == ticket.StatusClosed) && t.ResolvedAt == nil {
		now := e.clock.Now()
		t.ResolvedAt = &now
	}

	if err := e.tickets.Update(ctx, t); err != nil {
		return ticket.Entity{}, err
	}
	return t, nil
}

// SetPriority changes a ticket's priority and recomputes due_at from
// created_at + SLA(new priority).
func (e *Engine) SetPriority(ctx context.Context, ticketNumber string, priority ticket.Priority) (ticket.Entity, error) {
	if _, ok := ticket.SLA[priority]; !ok {
		return ticket.Entity{}, errors.ValidationInvalid("priority", string(priority))
	}

	t, found, err := e.tickets.ByNumber(ctx, ticketNumber)
	if err != nil {
		return ticket.Entity{}, err
	}
	if !found {
		return ticket.Entity{}, errors.NotFoundWithID("ticket", ticketNumber)
	}

	t.Priority = priority
	t.DueAt = t.CreatedAt.Add(ticket.SLA[priority])

	if err := e.tickets.Update(ctx, t); err != nil {
		return ticket.Entity{}, err
	}
	return t, nil
}

// RunSLASweep dispatches reminders for tickets approaching or past their
// due_at, respecting the reminder cooldown, and escalates overdue tickets
// exactly once (I-6: resolved/closed tickets are excluded by the
// repository query itself).
func (e *Engine) RunSLASweep(ctx context.Context) (int, error) {
	now := e.clock.Now()
	due, err := e.tickets.DueForSLASweep(ctx, now, e.cooldown)
	if err != nil {
		return 0, err
	}

	var sent int64
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(slaSweepConcurrency)

	for _, t := range due {
		t := t
		group.Go(func() error {
			if err := e.remind(gctx, t, now); err != nil {
				e.logger.Warn("sla reminder failed", zap.String("ticket_number", t.TicketNumber), zap.Error(err))
				return nil
			}
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}
	_ = group.Wait()

	return int(sent), nil
}

func (e *Engine) remind(ctx context.Context, t ticket.Entity, now time.Time) error {
	overdue := now.After(t.DueAt)

	if t.AssignedStaffID != nil {
		staff, found, err := e.tickets.StaffByID(ctx, *t.AssignedStaffID)
		if err != nil {
			return err
		}
		if found && staff.Email != "" {
			status := "due"
			if overdue {
				status = "OVERDUE"
			}
			body := fmt.Sprintf("Ticket %s (%s) is %s. Subject: %s. Due: %s.",
				t.TicketNumber, t.Priority, status, t.Subject, t.DueAt.Format(time.RFC3339))
			if err := e.mailer.Send(mailer.Message{
				To:      staff.Email,
				Subject: fmt.Sprintf("[SLA] Ticket %s %s", t.TicketNumber, status),
				Body:    body,
			}); err != nil {
				e.logger.Warn("failed to send ticket reminder email", zap.String("ticket_number", t.TicketNumber), zap.Error(err))
			}
		}
	}

	t.ReminderSentAt = &now
	justEscalated := overdue && !t.Escalated
	if justEscalated {
		t.Escalated = true
	}

	if err := e.tickets.Update(ctx, t); err != nil {
		return err
	}

	if justEscalated && e.events != nil {
		if err := e.events.PublishTicketEscalated(ctx, t.TicketNumber, t.Department, t.DueAt); err != nil {
			e.logger.Warn("failed to publish ticket escalation event", zap.String("ticket_number", t.TicketNumber), zap.Error(err))
		}
	}
	return nil
}
