// Package ticket holds the SupportTicket, SupportStaff, and TicketMessage
// entities and the fixed routing/SLA tables enforced by the Ticket Engine.
package ticket

import "time"

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Status string

const (
	StatusOpen        Status = "open"
	StatusInProgress  Status = "in_progress"
	StatusWaitingUser Status = "waiting_user"
	StatusResolved    Status = "resolved"
	StatusClosed      Status = "closed"
)

type StaffRole string

const (
	RoleAdmin   StaffRole = "admin"
	RoleManager StaffRole = "manager"
	RoleStaff   StaffRole = "staff"
)

// SLA maps priority to the duration added to created_at to compute due_at.
var SLA = map[Priority]time.Duration{
	PriorityUrgent: 4 * time.Hour,
	PriorityHigh:   12 * time.Hour,
	PriorityMedium: 24 * time.Hour,
	PriorityLow:    48 * time.Hour,
}

// CategoryDepartment is the fixed category -> department routing table.
var CategoryDepartment = map[string]string{
	"login_account": "IT",
	"app_issue":     "IT",
	"charging":      "Operations",
	"vehicle":       "Operations",
	"wallet_payment": "Finance",
	"rewards":       "Marketing",
	"general":       "Customer Service",
}

// DepartmentFor returns the routed department for a category, defaulting to
// Customer Service for unknown categories.
func DepartmentFor(category string) string {
	if dept, ok := CategoryDepartment[category]; ok {
		return dept
	}
	return "Customer Service"
}

// Entity is one support ticket.
type Entity struct {
	TicketNumber    string
	UserID          string
	Category        string
	Department      string
	Priority        Priority
	Status          Status
	Subject         string
	AssignedStaffID *string
	DueAt           time.Time
	ReminderSentAt  *time.Time
	Escalated       bool
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OpenForSLA reports whether the ticket is still subject to reminder/escalation
// sweeps (I-6: resolved/closed tickets must never fire a reminder).
func (e Entity) OpenForSLA() bool {
	return e.Status != StatusResolved && e.Status != StatusClosed
}

// Message is one entry in a ticket's conversation thread, including
// system-authored routing/assignment notices.
type Message struct {
	ID        int64
	TicketNumber string
	AuthorID  string
	IsSystem  bool
	IsStaff   bool
	Body      string
	CreatedAt time.Time
}

// Staff is a support agent or manager eligible for auto-assignment.
type Staff struct {
	ID         string
	Name       string
	Email      string
	Role       StaffRole
	Department string
	MaxTickets int
	IsActive   bool
}

// AssignmentCandidate reports whether a staff member may receive new tickets
// via auto-assignment.
func (s Staff) AssignmentCandidate() bool {
	return s.IsActive && (s.Role == RoleManager || s.Role == RoleStaff)
}
