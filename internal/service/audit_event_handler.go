package service

import (
	"context"
	"fmt"

	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/events"
)

// AuditEventHandler turns dispatched ticket events into audit entries.
type AuditEventHandler struct {
	audit *AuditService
}

// NewAuditEventHandler creates the handler.
func NewAuditEventHandler(audit *AuditService) *AuditEventHandler {
	return &AuditEventHandler{audit: audit}
}

// RegisterHandlers subscribes to every ticket event.
func (h *AuditEventHandler) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || h.audit == nil {
		return
	}
	for _, eventType := range events.TicketEventTypes() {
		dispatcher.Subscribe(eventType, h.Handle)
	}
}

// Handle records one audit entry for event.
func (h *AuditEventHandler) Handle(ctx context.Context, event events.Event) error {
	action, details, err := auditRecordFor(event.Payload)
	if err != nil {
		return err
	}
	return h.audit.recordTicket(ctx, event.Actor, action, event.TicketID, details)
}

func auditRecordFor(payload domain.DomainEvent) (string, map[string]any, error) {
	switch e := payload.(type) {
	case domain.TicketCreated:
		return domain.AuditActionTicketCreated, map[string]any{
			"reference_id": e.ReferenceID,
			"subject":      e.Subject,
		}, nil
	case domain.TicketReplied:
		return domain.AuditActionTicketReplied, map[string]any{
			"reference_id": e.ReferenceID,
			"author_id":    e.AuthorID,
		}, nil
	case domain.TicketStatusChanged:
		return domain.AuditActionTicketStatusChanged, map[string]any{
			"old_status": e.OldStatus.String(),
			"new_status": e.NewStatus.String(),
		}, nil
	case domain.TicketAssigned:
		details := map[string]any{"assigned_to": e.AssignedTo}
		if e.PreviousAssignee != nil {
			details["previous_assignee"] = *e.PreviousAssignee
		}
		return domain.AuditActionTicketAssigned, details, nil
	default:
		return "", nil, fmt.Errorf("no audit mapping for %T", payload)
	}
}
