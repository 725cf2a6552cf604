package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lankaconnect/support-service/internal/domain"
)

// MemoryDB keeps tickets and audit entries in process. It has the same
// paging, search, and concurrency semantics as the Postgres stores and backs
// tests and DSN-less development runs.
type MemoryDB struct {
	mu       sync.RWMutex
	tickets  map[string]domain.TicketSnapshot
	refIndex map[string]string
	audit    []domain.AuditEntrySnapshot
}

// NewMemoryDB returns an empty database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		tickets:  make(map[string]domain.TicketSnapshot),
		refIndex: make(map[string]string),
	}
}

func (db *MemoryDB) Tickets() TicketStore { return &memoryTicketStore{db: db} }
func (db *MemoryDB) Audit() AuditStore    { return &memoryAuditStore{db: db} }

type memoryTicketStore struct {
	db      *MemoryDB
	pending []stagedTicket
}

func (s *memoryTicketStore) Add(ticket *domain.Ticket) {
	s.pending = append(s.pending, stagedTicket{ticket: ticket, insert: true})
}

func (s *memoryTicketStore) Update(ticket *domain.Ticket) {
	s.pending = append(s.pending, stagedTicket{ticket: ticket})
}

func (s *memoryTicketStore) SaveChanges(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.pending) == 0 {
		return nil
	}
	staged := s.pending
	s.pending = nil

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	// Validate everything first so a failure commits nothing.
	refs := make(map[string]bool)
	for _, st := range staged {
		snap := st.ticket.Snapshot()
		if st.insert {
			if _, taken := s.db.refIndex[snap.ReferenceID]; taken || refs[snap.ReferenceID] {
				return ErrDuplicateReference
			}
			refs[snap.ReferenceID] = true
			continue
		}
		stored, ok := s.db.tickets[snap.ID]
		if !ok || stored.Version != snap.Version {
			return ErrConcurrentUpdate
		}
	}

	for _, st := range staged {
		snap := st.ticket.Snapshot()
		if st.insert {
			snap.Version = 1
		} else {
			stored := s.db.tickets[snap.ID]
			snap.Version = stored.Version + 1
			snap.Replies = appendOnly(stored.Replies, snap.Replies)
			snap.Notes = appendOnlyNotes(stored.Notes, snap.Notes)
		}
		s.db.tickets[snap.ID] = snap
		s.db.refIndex[snap.ReferenceID] = snap.ID
		st.ticket.IncrementVersion()
	}
	return nil
}

func appendOnly(stored, current []domain.TicketReply) []domain.TicketReply {
	seen := make(map[string]bool, len(stored))
	out := append([]domain.TicketReply(nil), stored...)
	for _, r := range stored {
		seen[r.ID] = true
	}
	for _, r := range current {
		if !seen[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func appendOnlyNotes(stored, current []domain.TicketNote) []domain.TicketNote {
	seen := make(map[string]bool, len(stored))
	out := append([]domain.TicketNote(nil), stored...)
	for _, n := range stored {
		seen[n.ID] = true
	}
	for _, n := range current {
		if !seen[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func (s *memoryTicketStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	snap, ok := s.db.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return domain.RestoreTicket(snap), nil
}

func (s *memoryTicketStore) GetByReferenceID(ctx context.Context, referenceID string) (*domain.Ticket, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	id, ok := s.db.refIndex[strings.TrimSpace(referenceID)]
	if !ok {
		return nil, ErrNotFound
	}
	return domain.RestoreTicket(s.db.tickets[id]), nil
}

func (s *memoryTicketStore) GetPaged(ctx context.Context, q TicketQuery) (TicketPage, error) {
	page, size := normalizePage(q.Page, q.PageSize)
	term := strings.ToLower(strings.TrimSpace(q.SearchTerm))

	s.db.mu.RLock()
	matched := make([]domain.TicketSnapshot, 0, len(s.db.tickets))
	for _, t := range s.db.tickets {
		if matchesTicket(t, q, term) {
			matched = append(matched, t)
		}
	}
	s.db.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	result := TicketPage{TotalCount: len(matched), Page: page, PageSize: size}
	start := (page - 1) * size
	if start >= len(matched) {
		return result, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	for _, snap := range matched[start:end] {
		result.Items = append(result.Items, domain.RestoreTicket(snap))
	}
	return result, nil
}

func matchesTicket(t domain.TicketSnapshot, q TicketQuery, term string) bool {
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	if q.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *q.AssignedTo) {
		return false
	}
	if q.UnassignedOnly && t.AssignedTo != nil {
		return false
	}
	if term == "" {
		return true
	}
	for _, field := range []string{t.SubmitterName, t.Subject, t.ReferenceID, t.SubmitterEmail} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (s *memoryTicketStore) CountsByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make(map[domain.TicketStatus]int)
	for _, t := range s.db.tickets {
		out[t.Status]++
	}
	return out, nil
}

func (s *memoryTicketStore) CountsByPriority(ctx context.Context) (map[domain.TicketPriority]int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make(map[domain.TicketPriority]int)
	for _, t := range s.db.tickets {
		out[t.Priority]++
	}
	return out, nil
}

func (s *memoryTicketStore) UnassignedCount(ctx context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	count := 0
	for _, t := range s.db.tickets {
		if t.AssignedTo == nil {
			count++
		}
	}
	return count, nil
}

type memoryAuditStore struct {
	db      *MemoryDB
	pending []*domain.AuditLogEntry
}

func (s *memoryAuditStore) Add(entry *domain.AuditLogEntry) {
	s.pending = append(s.pending, entry)
}

func (s *memoryAuditStore) SaveChanges(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.pending {
		s.db.audit = append(s.db.audit, e.Snapshot())
	}
	s.pending = nil
	return nil
}

func (s *memoryAuditStore) GetPaged(ctx context.Context, q AuditQuery) (AuditPage, error) {
	page, size := normalizePage(q.Page, q.PageSize)
	actor := strings.TrimSpace(q.ActorID)
	action := strings.ToUpper(strings.TrimSpace(q.Action))
	target := strings.TrimSpace(q.TargetUserID)

	matched := s.newestFirst(func(e domain.AuditEntrySnapshot) bool {
		switch {
		case actor != "" && e.ActorID != actor:
			return false
		case action != "" && e.Action != action:
			return false
		case target != "" && e.TargetUserID != target:
			return false
		case q.From != nil && e.CreatedAt.Before(*q.From):
			return false
		case q.To != nil && e.CreatedAt.After(*q.To):
			return false
		}
		return true
	})

	result := AuditPage{TotalCount: len(matched), Page: page, PageSize: size}
	start := (page - 1) * size
	if start >= len(matched) {
		return result, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	result.Items = matched[start:end]
	return result, nil
}

func (s *memoryAuditStore) GetByTargetUser(ctx context.Context, userID string) ([]*domain.AuditLogEntry, error) {
	userID = strings.TrimSpace(userID)
	return s.newestFirst(func(e domain.AuditEntrySnapshot) bool {
		return e.TargetUserID == userID
	}), nil
}

func (s *memoryAuditStore) newestFirst(keep func(domain.AuditEntrySnapshot) bool) []*domain.AuditLogEntry {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []*domain.AuditLogEntry
	for i := len(s.db.audit) - 1; i >= 0; i-- {
		if keep(s.db.audit[i]) {
			out = append(out, domain.RestoreAuditEntry(s.db.audit[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	return out
}
