package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/events"
	"github.com/lankaconnect/support-service/internal/repository"
)

var auditCSVHeader = []string{
	"id", "created_at", "actor_id", "action",
	"target_user_id", "target_entity_type", "target_entity_id",
	"ip_address", "user_agent", "details",
}

// AuditService writes and reads the append-only admin audit log.
type AuditService struct {
	stores repository.Provider
	logger *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(stores repository.Provider, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{stores: stores, logger: logger}
}

// RecordTicketAction audits an action on a ticket by the caller in ctx.
func (s *AuditService) RecordTicketAction(ctx context.Context, action, ticketID string, details any) error {
	actor, _ := events.ActorFromContext(ctx)
	return s.recordTicket(ctx, actor, action, ticketID, details)
}

// RecordUserAction audits an action on a user account by the caller in ctx
// and returns the stored entry.
func (s *AuditService) RecordUserAction(ctx context.Context, action, targetUserID string, details any) (*domain.AuditLogEntry, error) {
	actor, _ := events.ActorFromContext(ctx)
	opts, err := actorOptions(actor, details)
	if err != nil {
		return nil, err
	}
	entry, err := domain.NewUserAuditEntry(actorID(actor), action, targetUserID, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Record audits an action with no fixed target, such as an export.
func (s *AuditService) Record(ctx context.Context, action string, details any) error {
	actor, _ := events.ActorFromContext(ctx)
	opts, err := actorOptions(actor, details)
	if err != nil {
		return err
	}
	entry, err := domain.NewAuditEntry(actorID(actor), action, opts...)
	if err != nil {
		return err
	}
	return s.save(ctx, entry)
}

// List returns one page of entries, newest first.
func (s *AuditService) List(ctx context.Context, query repository.AuditQuery) (repository.AuditPage, error) {
	return s.stores.Audit().GetPaged(ctx, query)
}

// ForUser returns every entry targeting userID, newest first.
func (s *AuditService) ForUser(ctx context.Context, userID string) ([]*domain.AuditLogEntry, error) {
	return s.stores.Audit().GetByTargetUser(ctx, userID)
}

// Export writes every entry matching query to w as CSV and audits the export.
// It returns the number of rows written.
func (s *AuditService) Export(ctx context.Context, query repository.AuditQuery, w io.Writer) (int, error) {
	out := csv.NewWriter(w)
	if err := out.Write(auditCSVHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	store := s.stores.Audit()
	query.Page = 1
	query.PageSize = repository.MaxPageSize
	written := 0
	for {
		page, err := store.GetPaged(ctx, query)
		if err != nil {
			return written, err
		}
		for _, entry := range page.Items {
			if err := out.Write(auditCSVRow(entry)); err != nil {
				return written, fmt.Errorf("write csv row: %w", err)
			}
			written++
		}
		if len(page.Items) == 0 || query.Page*query.PageSize >= page.TotalCount {
			break
		}
		query.Page++
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return written, fmt.Errorf("flush csv: %w", err)
	}

	details := map[string]any{"rows": written}
	if query.ActorID != "" {
		details["actor_id"] = query.ActorID
	}
	if query.Action != "" {
		details["action"] = query.Action
	}
	if query.TargetUserID != "" {
		details["target_user_id"] = query.TargetUserID
	}
	if err := s.Record(ctx, domain.AuditActionAuditLogExported, details); err != nil {
		return written, err
	}
	return written, nil
}

func (s *AuditService) recordTicket(ctx context.Context, actor events.Actor, action, ticketID string, details any) error {
	opts, err := actorOptions(actor, details)
	if err != nil {
		return err
	}
	entry, err := domain.NewTicketAuditEntry(actorID(actor), action, ticketID, opts...)
	if err != nil {
		return err
	}
	return s.save(ctx, entry)
}

func (s *AuditService) save(ctx context.Context, entry *domain.AuditLogEntry) error {
	store := s.stores.Audit()
	store.Add(entry)
	if err := store.SaveChanges(ctx); err != nil {
		return err
	}
	s.logger.Debug("audit entry recorded",
		zap.String("audit_id", entry.ID()),
		zap.String("actor_id", entry.ActorID()),
		zap.String("action", entry.Action()))
	return nil
}

func actorID(actor events.Actor) string {
	if actor.ID == "" {
		return domain.SystemActorID
	}
	return actor.ID
}

func actorOptions(actor events.Actor, details any) ([]domain.AuditOption, error) {
	opts := []domain.AuditOption{
		domain.WithIPAddress(actor.IPAddress),
		domain.WithUserAgent(actor.UserAgent),
	}
	if details == nil {
		return opts, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode audit details: %w", err)
	}
	return append(opts, domain.WithDetails(string(raw))), nil
}

func auditCSVRow(entry *domain.AuditLogEntry) []string {
	targetUser, _ := entry.TargetUserID()
	entityType, _ := entry.TargetEntityType()
	entityID, _ := entry.TargetEntityID()
	ip, _ := entry.IPAddress()
	agent, _ := entry.UserAgent()
	return []string{
		entry.ID(),
		entry.CreatedAt().UTC().Format(time.RFC3339),
		entry.ActorID(),
		entry.Action(),
		targetUser,
		entityType,
		entityID,
		ip,
		agent,
		entry.Details(),
	}
}
