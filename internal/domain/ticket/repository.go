package ticket

import (
	"context"
	"time"
)

// Repository persists SupportTicket, Message, and Staff rows.
type Repository interface {
	Insert(ctx context.Context, t Entity) (Entity, error)
	Update(ctx context.Context, t Entity) error
	ByNumber(ctx context.Context, ticketNumber string) (Entity, bool, error)
	ListByDepartment(ctx context.Context, department string) ([]Entity, error)
	ListByAssignee(ctx context.Context, staffID string) ([]Entity, error)
	ListAll(ctx context.Context) ([]Entity, error)

	// NextSequenceForDay returns the next NNNN sequence for a UTC day,
	// starting at 1 if none exist yet.
	NextSequenceForDay(ctx context.Context, day string) (int, error)

	AppendMessage(ctx context.Context, m Message) error

	// OpenAssignedCount counts a staff member's own open+in_progress tickets,
	// used by auto-assignment's least-loaded selection.
	OpenAssignedCount(ctx context.Context, staffID string) (int, error)

	StaffInDepartment(ctx context.Context, department string) ([]Staff, error)
	StaffByID(ctx context.Context, staffID string) (Staff, bool, error)

	// DueForSLASweep selects tickets eligible for a reminder per §4.4.
	DueForSLASweep(ctx context.Context, now time.Time, cooldown time.Duration) ([]Entity, error)
}
