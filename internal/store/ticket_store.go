package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"csms/internal/domain/ticket"
	"csms/internal/pkg/errors"
)

func (s *Store) InsertTicket(ctx context.Context, t ticket.Entity) (ticket.Entity, error) {
	const q = `
		INSERT INTO support_tickets (ticket_number, user_id, category, department, priority,
			status, subject, assigned_staff_id, due_at, escalated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING ticket_number, user_id, category, department, priority, status, subject,
			assigned_staff_id, due_at, reminder_sent_at, escalated, first_response_at,
			resolved_at, created_at, updated_at`

	var out ticket.Entity
	row := s.q(ctx).QueryRow(ctx, q, t.TicketNumber, t.UserID, t.Category, t.Department, t.Priority,
		t.Status, t.Subject, t.AssignedStaffID, t.DueAt, t.Escalated)
	if err := scanTicket(row, &out); err != nil {
		return ticket.Entity{}, errors.Database("insert ticket", err)
	}
	return out, nil
}

func (s *Store) UpdateTicket(ctx context.Context, t ticket.Entity) error {
	const q = `
		UPDATE support_tickets SET priority=$2, status=$3, assigned_staff_id=$4, due_at=$5,
			reminder_sent_at=$6, escalated=$7, first_response_at=$8, resolved_at=$9, updated_at=now()
		WHERE ticket_number = $1`
	if _, err := s.q(ctx).Exec(ctx, q, t.TicketNumber, t.Priority, t.Status, t.AssignedStaffID,
		t.DueAt, t.ReminderSentAt, t.Escalated, t.FirstResponseAt, t.ResolvedAt); err != nil {
		return errors.Database("update ticket", err)
	}
	return nil
}

func (s *Store) TicketByNumber(ctx context.Context, ticketNumber string) (ticket.Entity, bool, error) {
	const q = `
		SELECT ticket_number, user_id, category, department, priority, status, subject,
			assigned_staff_id, due_at, reminder_sent_at, escalated, first_response_at,
			resolved_at, created_at, updated_at
		FROM support_tickets WHERE ticket_number = $1`

	var out ticket.Entity
	row := s.q(ctx).QueryRow(ctx, q, ticketNumber)
	if err := scanTicket(row, &out); err != nil {
		if err == pgx.ErrNoRows {
			return ticket.Entity{}, false, nil
		}
		return ticket.Entity{}, false, errors.Database("get ticket", err)
	}
	return out, true, nil
}

func (s *Store) TicketsByDepartment(ctx context.Context, department string) ([]ticket.Entity, error) {
	return s.queryTickets(ctx, `
		SELECT ticket_number, user_id, category, department, priority, status, subject,
			assigned_staff_id, due_at, reminder_sent_at, escalated, first_response_at,
			resolved_at, created_at, updated_at
		FROM support_tickets WHERE department = $1 ORDER BY created_at DESC`, department)
}

func (s *Store) TicketsByAssignee(ctx context.Context, staffID string) ([]ticket.Entity, error) {
	return s.queryTickets(ctx, `
		SELECT ticket_number, user_id, category, department, priority, status, subject,
			assigned_staff_id, due_at, reminder_sent_at, escalated, first_response_at,
			resolved_at, created_at, updated_at
		FROM support_tickets WHERE assigned_staff_id = $1 ORDER BY created_at DESC`, staffID)
}

func (s *Store) TicketsAll(ctx context.Context) ([]ticket.Entity, error) {
	return s.queryTickets(ctx, `
		SELECT ticket_number, user_id, category, department, priority, status, subject,
			assigned_staff_id, due_at, reminder_sent_at, escalated, first_response_at,
			resolved_at, created_at, updated_at
		FROM support_tickets ORDER BY created_at DESC`)
}

func (s *Store) queryTickets(ctx context.Context, q string, args ...interface{}) ([]ticket.Entity, error) {
	rows, err := s.q(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Database("list tickets", err)
	}
	defer rows.Close()

	var out []ticket.Entity
	for rows.Next() {
		var t ticket.Entity
		if err := rows.Scan(&t.TicketNumber, &t.UserID, &t.Category, &t.Department, &t.Priority,
			&t.Status, &t.Subject, &t.AssignedStaffID, &t.DueAt, &t.ReminderSentAt, &t.Escalated,
			&t.FirstResponseAt, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, errors.Database("scan ticket", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) NextSequenceForDay(ctx context.Context, day string) (int, error) {
	const q = `
		INSERT INTO ticket_day_sequences (day, next_seq) VALUES ($1, 2)
		ON CONFLICT (day) DO UPDATE SET next_seq = ticket_day_sequences.next_seq + 1
		RETURNING next_seq - 1`

	var next int
	row := s.q(ctx).QueryRow(ctx, q, day)
	if err := row.Scan(&next); err != nil {
		return 0, errors.Database("next ticket sequence", err)
	}
	return next, nil
}

func (s *Store) AppendTicketMessage(ctx context.Context, m ticket.Message) error {
	const q = `
		INSERT INTO ticket_messages (ticket_number, author_id, is_system, is_staff, body, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`
	if _, err := s.q(ctx).Exec(ctx, q, m.TicketNumber, m.AuthorID, m.IsSystem, m.IsStaff, m.Body); err != nil {
		return errors.Database("append ticket message", err)
	}
	return nil
}

func (s *Store) OpenAssignedCount(ctx context.Context, staffID string) (int, error) {
	const q = `
		SELECT count(*) FROM support_tickets
		WHERE assigned_staff_id = $1 AND status IN ('open', 'in_progress')`

	var n int
	row := s.q(ctx).QueryRow(ctx, q, staffID)
	if err := row.Scan(&n); err != nil {
		return 0, errors.Database("count assigned tickets", err)
	}
	return n, nil
}

func (s *Store) StaffInDepartment(ctx context.Context, department string) ([]ticket.Staff, error) {
	const q = `
		SELECT id, name, email, role, department, max_tickets, is_active
		FROM support_staff WHERE department = $1 AND is_active = true`

	rows, err := s.q(ctx).Query(ctx, q, department)
	if err != nil {
		return nil, errors.Database("list staff", err)
	}
	defer rows.Close()

	var out []ticket.Staff
	for rows.Next() {
		var st ticket.Staff
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.Role, &st.Department, &st.MaxTickets, &st.IsActive); err != nil {
			return nil, errors.Database("scan staff", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) StaffByID(ctx context.Context, staffID string) (ticket.Staff, bool, error) {
	const q = `SELECT id, name, email, role, department, max_tickets, is_active
		FROM support_staff WHERE id = $1`

	var st ticket.Staff
	row := s.q(ctx).QueryRow(ctx, q, staffID)
	if err := row.Scan(&st.ID, &st.Name, &st.Email, &st.Role, &st.Department, &st.MaxTickets, &st.IsActive); err != nil {
		if err == pgx.ErrNoRows {
			return ticket.Staff{}, false, nil
		}
		return ticket.Staff{}, false, errors.Database("get staff", err)
	}
	return st, true, nil
}

func (s *Store) TicketsDueForSLASweep(ctx context.Context, now time.Time, cooldown time.Duration) ([]ticket.Entity, error) {
	const q = `
		SELECT ticket_number, user_id, category, department, priority, status, subject,
			assigned_staff_id, due_at, reminder_sent_at, escalated, first_response_at,
			resolved_at, created_at, updated_at
		FROM support_tickets
		WHERE due_at <= $1 AND status NOT IN ('resolved', 'closed')
			AND (reminder_sent_at IS NULL OR reminder_sent_at < $2)
		ORDER BY due_at ASC`

	return s.queryTickets(ctx, q, now.Add(2*time.Hour), now.Add(-cooldown))
}

func scanTicket(row pgx.Row, out *ticket.Entity) error {
	return row.Scan(&out.TicketNumber, &out.UserID, &out.Category, &out.Department, &out.Priority,
		&out.Status, &out.Subject, &out.AssignedStaffID, &out.DueAt, &out.ReminderSentAt,
		&out.Escalated, &out.FirstResponseAt, &out.ResolvedAt, &out.CreatedAt, &out.UpdatedAt)
}
