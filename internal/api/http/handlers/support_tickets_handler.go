package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lankaconnect/support-service/internal/api/dto"
	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/repository"
	"github.com/lankaconnect/support-service/internal/service"
	apperrors "github.com/lankaconnect/support-service/pkg/util/errorutil"
)

// SupportTicketsHandler exposes the staff ticket queue.
type SupportTicketsHandler struct {
	support *service.SupportService
}

// NewSupportTicketsHandler constructs handler.
func NewSupportTicketsHandler(support *service.SupportService) *SupportTicketsHandler {
	return &SupportTicketsHandler{support: support}
}

// List GET /api/admin/support/tickets.
func (h *SupportTicketsHandler) List(c *fiber.Ctx) error {
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	page, err := h.support.List(requestContext(c), query)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(page.Items))
	for _, ticket := range page.Items {
		items = append(items, ticketSummary(ticket))
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": dto.NewPagination(page.Page, page.PageSize, page.TotalCount),
	})
}

// Get GET /api/admin/support/tickets/:id.
func (h *SupportTicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.support.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Stats GET /api/admin/support/stats.
func (h *SupportTicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.support.Stats(requestContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketStatsResponse{
		Total:      stats.Total,
		ByStatus:   stats.ByStatus,
		ByPriority: stats.ByPriority,
		Unassigned: stats.Unassigned,
	}})
}

// Reply POST /api/admin/support/tickets/:id/replies.
func (h *SupportTicketsHandler) Reply(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.support.Reply(requestContext(c), c.Params("id"), req.Content, principal.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AddNote POST /api/admin/support/tickets/:id/notes.
func (h *SupportTicketsHandler) AddNote(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.support.AddNote(requestContext(c), c.Params("id"), req.Content, principal.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateStatus PUT /api/admin/support/tickets/:id/status.
func (h *SupportTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, err := domain.ParseTicketStatus(req.Status)
	if err != nil {
		return apperrors.NewValidationProblems("Invalid ticket status")
	}
	ticket, err := h.support.UpdateStatus(requestContext(c), c.Params("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdatePriority PUT /api/admin/support/tickets/:id/priority.
func (h *SupportTicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority, err := domain.ParseTicketPriority(req.Priority)
	if err != nil {
		return apperrors.NewValidationProblems("Invalid ticket priority")
	}
	ticket, err := h.support.UpdatePriority(requestContext(c), c.Params("id"), priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Assign PUT /api/admin/support/tickets/:id/assignee.
func (h *SupportTicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.support.Assign(requestContext(c), c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Unassign DELETE /api/admin/support/tickets/:id/assignee.
func (h *SupportTicketsHandler) Unassign(c *fiber.Ctx) error {
	ticket, err := h.support.Unassign(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) (repository.TicketQuery, error) {
	query := repository.TicketQuery{
		Page:       parseInt(c.Query("page"), 1),
		PageSize:   parseInt(c.Query("page_size"), repository.DefaultPageSize),
		SearchTerm: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return query, apperrors.NewValidationProblems("Invalid ticket status")
		}
		query.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority, err := domain.ParseTicketPriority(raw)
		if err != nil {
			return query, apperrors.NewValidationProblems("Invalid ticket priority")
		}
		query.Priority = &priority
	}
	if assignee := strings.TrimSpace(c.Query("assigned_to")); assignee != "" {
		query.AssignedTo = &assignee
	}
	query.UnassignedOnly = c.QueryBool("unassigned", false)
	return query, nil
}
