package httpapi

import (
	"net/http"

	ticketengine "csms/internal/engine/ticket"
	"csms/internal/domain/ticket"
	"csms/internal/pkg/errors"
	"csms/internal/pkg/httputil"
	"csms/internal/pkg/reqctx"
	"csms/pkg/validation"
)

// TicketHandler exposes ticket creation to end users and ticket
// management (reply, status, priority, listing) to support staff, enforcing
// the role-scoped visibility rule of §4.4: admin sees everything, a manager
// sees their own department, a staff member sees only what is assigned to
// them.
type TicketHandler struct {
	tickets ticket.Repository
	engine  *ticketengine.Engine
}

// NewTicketHandler constructs the ticket endpoints handler.
func NewTicketHandler(tickets ticket.Repository, engine *ticketengine.Engine) *TicketHandler {
	return &TicketHandler{tickets: tickets, engine: engine}
}

type createTicketRequest struct {
	Category string          `json:"category"`
	Priority ticket.Priority `json:"priority"`
	Subject  string          `json:"subject"`
	Message  string          `json:"message"`
}

// Create opens and routes a new support ticket on behalf of the
// authenticated user.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validation.RequiredString(req.Category, "category"); err != nil {
		respondErr(w, r, err)
		return
	}
	if err := validation.ValidateStringLength(req.Subject, "subject", 3, 200); err != nil {
		respondErr(w, r, err)
		return
	}

	t, err := h.engine.Create(r.Context(), ticketengine.CreateTicketParams{
		UserID:   reqctx.UserID(r.Context()),
		Category: req.Category,
		Priority: req.Priority,
		Subject:  req.Subject,
		Message:  req.Message,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, t)
}

// Get returns one ticket by number, to its owner or to staff permitted to
// see it under the role-scoped visibility rule.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	number, err := httputil.GetURLParam(r, "ticketNumber")
	if err != nil {
		respondErr(w, r, err)
		return
	}

	t, found, err := h.tickets.ByNumber(r.Context(), number)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !found {
		respondErr(w, r, errors.NotFoundWithID("ticket", number))
		return
	}

	if !h.canView(r, t) {
		respondErr(w, r, errors.Forbidden("view", "ticket"))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, t)
}

// List returns the tickets visible to the authenticated staff member:
// every ticket for an admin, the manager's own department for a manager,
// or only self-assigned tickets for a staff member.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	staff, found, err := h.tickets.StaffByID(r.Context(), reqctx.UserID(r.Context()))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !found {
		respondErr(w, r, errors.Forbidden("list", "tickets"))
		return
	}

	var tickets []ticket.Entity
	switch staff.Role {
	case ticket.RoleAdmin:
		tickets, err = h.tickets.ListAll(r.Context())
	case ticket.RoleManager:
		tickets, err = h.tickets.ListByDepartment(r.Context(), staff.Department)
	default:
		tickets, err = h.tickets.ListByAssignee(r.Context(), staff.ID)
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tickets)
}

type replyRequest struct {
	Body string `json:"body"`
}

// Reply appends a message to a ticket's thread, either from its owner or
// from assigned/visible staff.
func (h *TicketHandler) Reply(w http.ResponseWriter, r *http.Request) {
	number, err := httputil.GetURLParam(r, "ticketNumber")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req replyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if req.Body == "" {
		respondErr(w, r, errors.ValidationRequired("body"))
		return
	}

	t, found, err := h.tickets.ByNumber(r.Context(), number)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !found {
		respondErr(w, r, errors.NotFoundWithID("ticket", number))
		return
	}
	if !h.canView(r, t) {
		respondErr(w, r, errors.Forbidden("reply", "ticket"))
		return
	}

	userID := reqctx.UserID(r.Context())
	_, isStaff, err := h.tickets.StaffByID(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	updated, err := h.engine.Reply(r.Context(), number, userID, req.Body, isStaff)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

type setStatusRequest struct {
	Status ticket.Status `json:"status"`
}

// SetStatus transitions a ticket's status. Staff-only.
func (h *TicketHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	number, err := httputil.GetURLParam(r, "ticketNumber")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !h.isStaffPrincipal(r) {
		respondErr(w, r, errors.Forbidden("set_status", "ticket"))
		return
	}

	var req setStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	updated, err := h.engine.SetStatus(r.Context(), number, req.Status)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

type setPriorityRequest struct {
	Priority ticket.Priority `json:"priority"`
}

// SetPriority changes a ticket's priority and recomputes due_at. Staff-only.
func (h *TicketHandler) SetPriority(w http.ResponseWriter, r *http.Request) {
	number, err := httputil.GetURLParam(r, "ticketNumber")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !h.isStaffPrincipal(r) {
		respondErr(w, r, errors.Forbidden("set_priority", "ticket"))
		return
	}

	var req setPriorityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	updated, err := h.engine.SetPriority(r.Context(), number, req.Priority)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, updated)
}

// canView applies the role-scoped visibility rule: the ticket's own user,
// or staff whose role/department/assignment covers it.
func (h *TicketHandler) canView(r *http.Request, t ticket.Entity) bool {
	userID := reqctx.UserID(r.Context())
	if t.UserID == userID {
		return true
	}

	staff, found, err := h.tickets.StaffByID(r.Context(), userID)
	if err != nil || !found {
		return false
	}
	switch staff.Role {
	case ticket.RoleAdmin:
		return true
	case ticket.RoleManager:
		return staff.Department == t.Department
	default:
		return t.AssignedStaffID != nil && *t.AssignedStaffID == staff.ID
	}
}

func (h *TicketHandler) isStaffPrincipal(r *http.Request) bool {
	_, found, err := h.tickets.StaffByID(r.Context(), reqctx.UserID(r.Context()))
	return err == nil && found
}
