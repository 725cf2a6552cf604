package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lankaconnect/support-service/internal/cache"
	"github.com/lankaconnect/support-service/internal/domain"
	"github.com/lankaconnect/support-service/internal/events"
	"github.com/lankaconnect/support-service/internal/repository"
)

// maxSaveAttempts bounds retries after optimistic concurrency failures.
const maxSaveAttempts = 3

// afterCommitTimeout bounds the work that follows a successful save, which
// does not share the request deadline.
const afterCommitTimeout = 10 * time.Second

// Cache is the subset of the Redis cache the services use.
type Cache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// OperationRecorder counts ticket operations by outcome.
type OperationRecorder interface {
	RecordTicketOperation(operation, outcome string)
}

// SupportService coordinates ticket workflows: it loads the aggregate, runs
// one operation, persists it, then dispatches the recorded events.
type SupportService struct {
	stores     repository.Provider
	dispatcher events.Dispatcher
	audit      *AuditService
	cache      Cache
	metrics    OperationRecorder
	logger     *zap.Logger
	ticketTTL  time.Duration
	statsTTL   time.Duration
}

// SupportDependencies bundles collaborators for the support service.
type SupportDependencies struct {
	Stores     repository.Provider
	Dispatcher events.Dispatcher
	Audit      *AuditService
	Cache      Cache
	Metrics    OperationRecorder
	Logger     *zap.Logger
	TicketTTL  time.Duration
	StatsTTL   time.Duration
}

// SubmitInput is a contact form submission.
type SubmitInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// TicketStats feeds the admin dashboard. Maps are keyed by enum name.
type TicketStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	Unassigned int            `json:"unassigned"`
}

// NewSupportService constructs the service.
func NewSupportService(deps SupportDependencies) *SupportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupportService{
		stores:     deps.Stores,
		dispatcher: deps.Dispatcher,
		audit:      deps.Audit,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
		ticketTTL:  deps.TicketTTL,
		statsTTL:   deps.StatsTTL,
	}
}

// Submit opens a ticket from a contact form submission.
func (s *SupportService) Submit(ctx context.Context, input SubmitInput) (*domain.Ticket, error) {
	for attempt := 1; ; attempt++ {
		ticket, err := domain.CreateTicket(input.Name, input.Email, input.Subject, input.Message)
		if err != nil {
			s.record("submit", err)
			return nil, err
		}

		store := s.stores.Tickets()
		store.Add(ticket)
		err = store.SaveChanges(ctx)
		if errors.Is(err, repository.ErrDuplicateReference) && attempt < maxSaveAttempts {
			s.logger.Warn("reference id collision; regenerating", zap.String("reference_id", ticket.ReferenceID()))
			continue
		}
		if err != nil {
			s.record("submit", err)
			return nil, err
		}

		s.record("submit", nil)
		s.logger.Info("support ticket created",
			zap.String("ticket_id", ticket.ID()),
			zap.String("reference_id", ticket.ReferenceID()))
		s.afterCommit(ctx, ticket)
		return ticket, nil
	}
}

// Reply adds a customer-visible reply.
func (s *SupportService) Reply(ctx context.Context, ticketID, content, authorID string) (*domain.Ticket, error) {
	return s.mutate(ctx, "reply", ticketID, func(t *domain.Ticket) error {
		return t.AddReply(content, authorID)
	})
}

// AddNote adds an internal note. Notes record no domain event, so the action
// is audited here.
func (s *SupportService) AddNote(ctx context.Context, ticketID, content, authorID string) (*domain.Ticket, error) {
	ticket, err := s.mutate(ctx, "add_note", ticketID, func(t *domain.Ticket) error {
		return t.AddNote(content, authorID)
	})
	if err != nil {
		return nil, err
	}
	notes := ticket.Notes()
	s.auditTicket(ctx, domain.AuditActionTicketNoteAdded, ticket.ID(), map[string]any{
		"note_id": notes[len(notes)-1].ID,
	})
	return ticket, nil
}

// UpdateStatus moves the ticket to status.
func (s *SupportService) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	return s.mutate(ctx, "update_status", ticketID, func(t *domain.Ticket) error {
		return t.UpdateStatus(status)
	})
}

// UpdatePriority changes the ticket's priority and audits the change.
func (s *SupportService) UpdatePriority(ctx context.Context, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	var old domain.TicketPriority
	ticket, err := s.mutate(ctx, "update_priority", ticketID, func(t *domain.Ticket) error {
		old = t.Priority()
		return t.UpdatePriority(priority)
	})
	if err != nil {
		return nil, err
	}
	s.auditTicket(ctx, domain.AuditActionTicketPriorityChanged, ticket.ID(), map[string]any{
		"old_priority": old.String(),
		"new_priority": priority.String(),
	})
	return ticket, nil
}

// Assign hands the ticket to agentID.
func (s *SupportService) Assign(ctx context.Context, ticketID, agentID string) (*domain.Ticket, error) {
	return s.mutate(ctx, "assign", ticketID, func(t *domain.Ticket) error {
		return t.AssignTo(agentID)
	})
}

// Unassign clears the assignee and audits the change.
func (s *SupportService) Unassign(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var previous string
	ticket, err := s.mutate(ctx, "unassign", ticketID, func(t *domain.Ticket) error {
		previous, _ = t.AssignedTo()
		return t.Unassign()
	})
	if err != nil {
		return nil, err
	}
	s.auditTicket(ctx, domain.AuditActionTicketUnassigned, ticket.ID(), map[string]any{
		"previous_assignee": previous,
	})
	return ticket, nil
}

// Get loads a ticket by id for staff.
func (s *SupportService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.stores.Tickets().GetByID(ctx, ticketID)
}

// LookupByReference serves the public status lookup, cached by reference id.
func (s *SupportService) LookupByReference(ctx context.Context, referenceID string) (*domain.Ticket, error) {
	key := cache.TicketRefKey(referenceID)
	var snap domain.TicketSnapshot
	if s.cache != nil && s.cache.Get(ctx, key, &snap) {
		return domain.RestoreTicket(snap), nil
	}

	ticket, err := s.stores.Tickets().GetByReferenceID(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, ticket.Snapshot(), s.ticketTTL)
	}
	return ticket, nil
}

// List returns one page of tickets matching query.
func (s *SupportService) List(ctx context.Context, query repository.TicketQuery) (repository.TicketPage, error) {
	return s.stores.Tickets().GetPaged(ctx, query)
}

// Stats summarizes the queue for the dashboard.
func (s *SupportService) Stats(ctx context.Context) (TicketStats, error) {
	var stats TicketStats
	if s.cache != nil && s.cache.Get(ctx, cache.StatsKey, &stats) {
		return stats, nil
	}

	store := s.stores.Tickets()
	byStatus, err := store.CountsByStatus(ctx)
	if err != nil {
		return TicketStats{}, err
	}
	byPriority, err := store.CountsByPriority(ctx)
	if err != nil {
		return TicketStats{}, err
	}
	unassigned, err := store.UnassignedCount(ctx)
	if err != nil {
		return TicketStats{}, err
	}

	stats = TicketStats{
		ByStatus:   make(map[string]int, len(domain.TicketStatuses())),
		ByPriority: make(map[string]int, len(domain.TicketPriorities())),
		Unassigned: unassigned,
	}
	for _, status := range domain.TicketStatuses() {
		stats.ByStatus[status.String()] = byStatus[status]
		stats.Total += byStatus[status]
	}
	for _, priority := range domain.TicketPriorities() {
		stats.ByPriority[priority.String()] = byPriority[priority]
	}
	if s.cache != nil {
		s.cache.Set(ctx, cache.StatsKey, stats, s.statsTTL)
	}
	return stats, nil
}

// mutate runs op against a freshly loaded ticket and saves it, reloading and
// retrying when another writer got there first.
func (s *SupportService) mutate(ctx context.Context, name, ticketID string, op func(*domain.Ticket) error) (*domain.Ticket, error) {
	for attempt := 1; ; attempt++ {
		store := s.stores.Tickets()
		ticket, err := store.GetByID(ctx, ticketID)
		if err != nil {
			s.record(name, err)
			return nil, err
		}
		if err := op(ticket); err != nil {
			s.record(name, err)
			return nil, err
		}

		store.Update(ticket)
		err = store.SaveChanges(ctx)
		if errors.Is(err, repository.ErrConcurrentUpdate) && attempt < maxSaveAttempts {
			s.logger.Info("concurrent ticket update; retrying",
				zap.String("ticket_id", ticketID),
				zap.String("operation", name),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			s.record(name, err)
			return nil, err
		}

		s.record(name, nil)
		s.afterCommit(ctx, ticket)
		return ticket, nil
	}
}

// afterCommit invalidates cached reads and dispatches the drained events once
// the ticket is durable. A request that times out after the save still gets
// its events delivered.
func (s *SupportService) afterCommit(ctx context.Context, ticket *domain.Ticket) {
	ctx, cancel := detach(ctx)
	defer cancel()
	s.invalidate(ctx, ticket)
	s.publish(ctx, ticket)
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
}

func (s *SupportService) publish(ctx context.Context, ticket *domain.Ticket) {
	pending := ticket.TakeEvents()
	if s.dispatcher == nil {
		return
	}
	actor, _ := events.ActorFromContext(ctx)
	for _, ev := range pending {
		if err := s.dispatcher.Publish(ctx, events.NewEvent(actor, ev)); err != nil {
			s.logger.Error("event dispatch failed",
				zap.String("ticket_id", ticket.ID()),
				zap.String("event_type", ev.EventName()),
				zap.Error(err))
		}
	}
}

func (s *SupportService) invalidate(ctx context.Context, ticket *domain.Ticket) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, cache.TicketRefKey(ticket.ReferenceID()), cache.StatsKey)
}

// auditTicket records actions that produce no domain event. The ticket change
// is already committed, so a failure here is logged rather than returned.
func (s *SupportService) auditTicket(ctx context.Context, action, ticketID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := s.audit.RecordTicketAction(ctx, action, ticketID, details); err != nil {
		s.logger.Error("audit record failed",
			zap.String("ticket_id", ticketID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *SupportService) record(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrStateConflict):
		outcome = "rejected"
	case errors.Is(err, repository.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, repository.ErrConcurrentUpdate):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	s.metrics.RecordTicketOperation(operation, outcome)
}
