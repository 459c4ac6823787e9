package ticketengine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csms/internal/clock"
	"csms/internal/domain/ticket"
	"csms/internal/mailer"
)

// fakeTicketRepo is an in-memory ticket.Repository, enough to drive Create,
// autoAssign, and the SLA sweep without a database. RunSLASweep dispatches
// reminders concurrently, so every method takes mu.
type fakeTicketRepo struct {
	mu                sync.Mutex
	staff             map[string][]ticket.Staff
	staffByID         map[string]ticket.Staff
	staffLookups      int
	tickets           map[string]ticket.Entity
	seq               int
	openAssignedCount map[string]int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		staff:             make(map[string][]ticket.Staff),
		staffByID:         make(map[string]ticket.Staff),
		tickets:           make(map[string]ticket.Entity),
		openAssignedCount: make(map[string]int),
	}
}

func (r *fakeTicketRepo) Insert(ctx context.Context, t ticket.Entity) (ticket.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.CreatedAt = time.Now().UTC()
	r.tickets[t.TicketNumber] = t
	return t, nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, t ticket.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[t.TicketNumber] = t
	return nil
}

func (r *fakeTicketRepo) ByNumber(ctx context.Context, ticketNumber string) (ticket.Entity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketNumber]
	return t, ok, nil
}

func (r *fakeTicketRepo) ListByDepartment(ctx context.Context, department string) ([]ticket.Entity, error) {
	return nil, nil
}

func (r *fakeTicketRepo) ListByAssignee(ctx context.Context, staffID string) ([]ticket.Entity, error) {
	return nil, nil
}

func (r *fakeTicketRepo) ListAll(ctx context.Context) ([]ticket.Entity, error) {
	return nil, nil
}

func (r *fakeTicketRepo) NextSequenceForDay(ctx context.Context, day string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *fakeTicketRepo) AppendMessage(ctx context.Context, m ticket.Message) error {
	return nil
}

func (r *fakeTicketRepo) OpenAssignedCount(ctx context.Context, staffID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openAssignedCount[staffID], nil
}

func (r *fakeTicketRepo) StaffInDepartment(ctx context.Context, department string) ([]ticket.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staffLookups++
	return r.staff[department], nil
}

func (r *fakeTicketRepo) StaffByID(ctx context.Context, staffID string) (ticket.Staff, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.staffByID[staffID]
	return s, ok, nil
}

func (r *fakeTicketRepo) DueForSLASweep(ctx context.Context, now time.Time, cooldown time.Duration) ([]ticket.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []ticket.Entity
	for _, t := range r.tickets {
		if t.OpenForSLA() && now.After(t.DueAt) {
			due = append(due, t)
		}
	}
	return due, nil
}

// countingEscalationPublisher counts PublishTicketEscalated calls.
type countingEscalationPublisher struct {
	mu    sync.Mutex
	count int
}

func (p *countingEscalationPublisher) PublishTicketEscalated(ctx context.Context, ticketNumber, department string, dueAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return nil
}

func newTestEngine(repo *fakeTicketRepo, clk clock.Clock) *Engine {
	return New(repo, mailer.NewNoopMailer(zap.NewNop()), clk, time.Hour, zap.NewNop())
}

func TestEngine_Create_RoutesAndAssignsLeastLoaded(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.staff["IT"] = []ticket.Staff{
		{ID: "s1", Name: "Alice", Role: ticket.RoleStaff, IsActive: true, MaxTickets: 5},
		{ID: "s2", Name: "Bob", Role: ticket.RoleStaff, IsActive: true, MaxTickets: 5},
	}
	repo.openAssignedCount["s1"] = 2
	repo.openAssignedCount["s2"] = 0

	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	got, err := e.Create(context.Background(), CreateTicketParams{
		UserID:   "u1",
		Category: "login_account",
		Priority: ticket.PriorityMedium,
		Subject:  "can't log in",
		Message:  "help",
	})

	require.NoError(t, err)
	assert.Equal(t, "IT", got.Department)
	require.NotNil(t, got.AssignedStaffID)
	assert.Equal(t, "s2", *got.AssignedStaffID)
}

func TestEngine_Create_RejectsUnknownPriority(t *testing.T) {
	repo := newFakeTicketRepo()
	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	_, err := e.Create(context.Background(), CreateTicketParams{
		UserID:   "u1",
		Subject:  "subject",
		Priority: ticket.Priority("made_up"),
	})

	assert.Error(t, err)
}

func TestEngine_Create_UrgentPrefersManagerWhenAvailable(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.staff["Operations"] = []ticket.Staff{
		{ID: "mgr", Name: "Manager", Role: ticket.RoleManager, IsActive: true, MaxTickets: 10},
		{ID: "staffer", Name: "Staffer", Role: ticket.RoleStaff, IsActive: true, MaxTickets: 10},
	}
	repo.openAssignedCount["mgr"] = 3
	repo.openAssignedCount["staffer"] = 0

	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	got, err := e.Create(context.Background(), CreateTicketParams{
		UserID:   "u1",
		Category: "charging",
		Priority: ticket.PriorityUrgent,
		Subject:  "charger is on fire",
	})

	require.NoError(t, err)
	require.NotNil(t, got.AssignedStaffID)
	assert.Equal(t, "mgr", *got.AssignedStaffID, "urgent tickets should prefer an available manager over a less-loaded staff member")
}

// staffInDepartment must serve repeated lookups for the same department from
// cache rather than hitting the repository every time.
func TestEngine_StaffInDepartment_CachesRoster(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.staff["IT"] = []ticket.Staff{
		{ID: "s1", Name: "Alice", Role: ticket.RoleStaff, IsActive: true, MaxTickets: 5},
	}

	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	staff1, err := e.staffInDepartment(context.Background(), "IT")
	require.NoError(t, err)
	staff2, err := e.staffInDepartment(context.Background(), "IT")
	require.NoError(t, err)

	assert.Equal(t, staff1, staff2)
	assert.Equal(t, 1, repo.staffLookups, "second lookup within the cache TTL must not reach the repository")
}

func TestEngine_StaffInDepartment_MissesCacheForDifferentDepartments(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.staff["IT"] = []ticket.Staff{{ID: "s1", IsActive: true, Role: ticket.RoleStaff, MaxTickets: 5}}
	repo.staff["Finance"] = []ticket.Staff{{ID: "s2", IsActive: true, Role: ticket.RoleStaff, MaxTickets: 5}}

	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	_, err := e.staffInDepartment(context.Background(), "IT")
	require.NoError(t, err)
	_, err = e.staffInDepartment(context.Background(), "Finance")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.staffLookups)
}

func TestEngine_SetPriority_RecomputesDueAt(t *testing.T) {
	repo := newFakeTicketRepo()
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.tickets["TKT-1"] = ticket.Entity{
		TicketNumber: "TKT-1",
		Priority:     ticket.PriorityLow,
		CreatedAt:    createdAt,
		DueAt:        createdAt.Add(ticket.SLA[ticket.PriorityLow]),
	}

	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	got, err := e.SetPriority(context.Background(), "TKT-1", ticket.PriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, createdAt.Add(ticket.SLA[ticket.PriorityUrgent]), got.DueAt)
}

func TestEngine_SetPriority_RejectsUnknownPriority(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.tickets["TKT-1"] = ticket.Entity{TicketNumber: "TKT-1", Priority: ticket.PriorityLow}
	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	_, err := e.SetPriority(context.Background(), "TKT-1", ticket.Priority("bogus"))
	assert.Error(t, err)
}

func TestEngine_RunSLASweep_EscalatesOverdueExactlyOnce(t *testing.T) {
	repo := newFakeTicketRepo()
	staffID := "s1"
	repo.staffByID[staffID] = ticket.Staff{ID: staffID, Email: "s1@example.com"}
	repo.tickets["TKT-1"] = ticket.Entity{
		TicketNumber:    "TKT-1",
		Status:          ticket.StatusOpen,
		Priority:        ticket.PriorityHigh,
		AssignedStaffID: &staffID,
		DueAt:           time.Now().UTC().Add(-time.Hour),
	}

	clk := clock.NewFixed(time.Now().UTC())
	e := newTestEngine(repo, clk)
	pub := &countingEscalationPublisher{}
	e.SetEventPublisher(pub)

	sent, err := e.RunSLASweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.True(t, repo.tickets["TKT-1"].Escalated)

	// Advance past cooldown; the fake repo's DueForSLASweep doesn't model
	// cooldown itself, but escalation is idempotent once Escalated is set.
	clk.Advance(2 * time.Hour)
	_, err = e.RunSLASweep(context.Background())
	require.NoError(t, err)
	assert.True(t, repo.tickets["TKT-1"].Escalated)
	assert.Equal(t, 1, pub.count, "escalation event must be published only on the first overdue sweep")
}

// RunSLASweep fans its per-ticket reminders out across a bounded errgroup;
// this drives enough concurrent tickets to exercise that pool and checks
// every one is still accounted for exactly once.
func TestEngine_RunSLASweep_ProcessesConcurrentTicketsExactlyOnce(t *testing.T) {
	repo := newFakeTicketRepo()
	staffID := "s1"
	repo.staffByID[staffID] = ticket.Staff{ID: staffID, Email: "s1@example.com"}

	const ticketCount = 20
	overdue := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < ticketCount; i++ {
		number := fmt.Sprintf("TKT-%02d", i)
		repo.tickets[number] = ticket.Entity{
			TicketNumber:    number,
			Status:          ticket.StatusOpen,
			Priority:        ticket.PriorityHigh,
			AssignedStaffID: &staffID,
			DueAt:           overdue,
		}
	}

	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	sent, err := e.RunSLASweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ticketCount, sent)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, tk := range repo.tickets {
		assert.True(t, tk.Escalated)
		require.NotNil(t, tk.ReminderSentAt)
	}
}

// I-6: once a ticket is resolved or closed, the SLA sweep must never fire a
// reminder for it, even if due_at has already passed.
func TestEngine_RunSLASweep_SkipsResolvedAndClosedTickets(t *testing.T) {
	repo := newFakeTicketRepo()
	staffID := "s1"
	repo.staffByID[staffID] = ticket.Staff{ID: staffID, Email: "s1@example.com"}
	overdue := time.Now().UTC().Add(-time.Hour)
	repo.tickets["TKT-RESOLVED"] = ticket.Entity{
		TicketNumber: "TKT-RESOLVED", Status: ticket.StatusResolved,
		Priority: ticket.PriorityHigh, AssignedStaffID: &staffID, DueAt: overdue,
	}
	repo.tickets["TKT-CLOSED"] = ticket.Entity{
		TicketNumber: "TKT-CLOSED", Status: ticket.StatusClosed,
		Priority: ticket.PriorityHigh, AssignedStaffID: &staffID, DueAt: overdue,
	}

	e := newTestEngine(repo, clock.NewFixed(time.Now().UTC()))

	sent, err := e.RunSLASweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Nil(t, repo.tickets["TKT-RESOLVED"].ReminderSentAt)
	assert.Nil(t, repo.tickets["TKT-CLOSED"].ReminderSentAt)
	assert.False(t, repo.tickets["TKT-RESOLVED"].Escalated)
	assert.False(t, repo.tickets["TKT-CLOSED"].Escalated)
}
