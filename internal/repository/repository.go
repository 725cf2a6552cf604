package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lankaconnect/support-service/internal/domain"
)

var (
	// ErrNotFound is returned when no ticket matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConcurrentUpdate is returned by SaveChanges when a staged ticket was
	// modified by someone else after it was loaded.
	ErrConcurrentUpdate = errors.New("ticket was modified concurrently")
	// ErrDuplicateReference is returned when a new ticket's reference id is taken.
	ErrDuplicateReference = errors.New("duplicate ticket reference")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TicketQuery captures staff search parameters. Zero values mean "no filter".
type TicketQuery struct {
	Page           int
	PageSize       int
	SearchTerm     string
	Status         *domain.TicketStatus
	Priority       *domain.TicketPriority
	AssignedTo     *string
	UnassignedOnly bool
}

// TicketPage is one page of tickets, newest first.
type TicketPage struct {
	Items      []*domain.Ticket
	TotalCount int
	Page       int
	PageSize   int
}

// AuditQuery filters the audit log. From and To are inclusive.
type AuditQuery struct {
	Page         int
	PageSize     int
	ActorID      string
	Action       string
	TargetUserID string
	From         *time.Time
	To           *time.Time
}

// AuditPage is one page of audit entries, newest first.
type AuditPage struct {
	Items      []*domain.AuditLogEntry
	TotalCount int
	Page       int
	PageSize   int
}

// TicketStore persists Ticket aggregates. Add and Update only stage changes;
// nothing is written until SaveChanges.
type TicketStore interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.Ticket, error)
	GetPaged(ctx context.Context, query TicketQuery) (TicketPage, error)
	CountsByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
	CountsByPriority(ctx context.Context) (map[domain.TicketPriority]int, error)
	UnassignedCount(ctx context.Context) (int, error)
	Add(ticket *domain.Ticket)
	Update(ticket *domain.Ticket)
	SaveChanges(ctx context.Context) error
}

// AuditStore persists audit entries. It is append-only.
type AuditStore interface {
	Add(entry *domain.AuditLogEntry)
	GetPaged(ctx context.Context, query AuditQuery) (AuditPage, error)
	GetByTargetUser(ctx context.Context, userID string) ([]*domain.AuditLogEntry, error)
	SaveChanges(ctx context.Context) error
}

// Provider hands out stores scoped to one unit of work. Stores are not safe
// for concurrent use; take fresh ones per request.
type Provider interface {
	Tickets() TicketStore
	Audit() AuditStore
}

// normalizePage applies the 1-based page default and clamps the page size.
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}
