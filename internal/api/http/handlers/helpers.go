package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/lankaconnect/support-service/internal/api/dto"
	"github.com/lankaconnect/support-service/internal/auth"
	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/events"
	apperrors "github.com/lankaconnect/support-service/pkg/util/errorutil"
)

// requestContext carries the caller's identity into the services so events
// and audit entries can be attributed.
func requestContext(c *fiber.Ctx) context.Context {
	actor := events.Actor{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actor.ID = principal.ID
	}
	return events.WithActor(c.UserContext(), actor)
}

// RequireTicketID rejects ticket routes whose :id is not a UUID, so a
// malformed id reads as a missing ticket on every store.
func RequireTicketID(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return c.Next()
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func optional(val string, ok bool) *string {
	if !ok {
		return nil
	}
	return &val
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:             ticket.ID(),
		ReferenceID:    ticket.ReferenceID(),
		SubmitterName:  ticket.SubmitterName(),
		SubmitterEmail: ticket.SubmitterEmail().String(),
		Subject:        ticket.Subject(),
		Status:         ticket.Status(),
		Priority:       ticket.Priority(),
		AssignedTo:     optional(ticket.AssignedTo()),
		ReplyCount:     len(ticket.Replies()),
		CreatedAt:      ticket.CreatedAt(),
		UpdatedAt:      ticket.UpdatedAt(),
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	replies := ticket.Replies()
	notes := ticket.Notes()
	detail := dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Message:       ticket.Message(),
		Version:       ticket.Version(),
		Replies:       make([]dto.MessageResponse, 0, len(replies)),
		Notes:         make([]dto.MessageResponse, 0, len(notes)),
	}
	for _, r := range replies {
		detail.Replies = append(detail.Replies, dto.MessageResponse{
			ID: r.ID, Content: r.Content, AuthorID: r.AuthorID, CreatedAt: r.CreatedAt,
		})
	}
	for _, n := range notes {
		detail.Notes = append(detail.Notes, dto.MessageResponse{
			ID: n.ID, Content: n.Content, AuthorID: n.AuthorID, CreatedAt: n.CreatedAt,
		})
	}
	return detail
}

func ticketStatusResponse(ticket *domain.Ticket) dto.TicketStatusResponse {
	return dto.TicketStatusResponse{
		ReferenceID: ticket.ReferenceID(),
		Subject:     ticket.Subject(),
		Status:      ticket.Status(),
		StatusLabel: ticket.Status().Label(),
		ReplyCount:  len(ticket.Replies()),
		CreatedAt:   ticket.CreatedAt(),
		UpdatedAt:   ticket.UpdatedAt(),
	}
}

func auditEntryResponse(entry *domain.AuditLogEntry) dto.AuditEntryResponse {
	return dto.AuditEntryResponse{
		ID:               entry.ID(),
		ActorID:          entry.ActorID(),
		Action:           entry.Action(),
		TargetUserID:     optional(entry.TargetUserID()),
		TargetEntityID:   optional(entry.TargetEntityID()),
		TargetEntityType: optional(entry.TargetEntityType()),
		Details:          entry.Details(),
		IPAddress:        optional(entry.IPAddress()),
		UserAgent:        optional(entry.UserAgent()),
		CreatedAt:        entry.CreatedAt(),
	}
}
