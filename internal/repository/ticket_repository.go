package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lankaconnect/support-service/internal/domain"
)

const uniqueViolation = "23505"

const ticketColumns = `id, reference_id, name, email, subject, message, status, priority,
               assigned_to_user_id, created_at, updated_at, version`

type stagedTicket struct {
	ticket *domain.Ticket
	insert bool
}

type ticketRepository struct {
	pool    *pgxpool.Pool
	pending []stagedTicket
}

// NewTicketRepository builds a Postgres-backed TicketStore.
func NewTicketRepository(pool *pgxpool.Pool) TicketStore {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Add(ticket *domain.Ticket) {
	r.pending = append(r.pending, stagedTicket{ticket: ticket, insert: true})
}

func (r *ticketRepository) Update(ticket *domain.Ticket) {
	r.pending = append(r.pending, stagedTicket{ticket: ticket})
}

// SaveChanges writes every staged ticket in one transaction. Versions are
// bumped only after the commit succeeds.
func (r *ticketRepository) SaveChanges(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	staged := r.pending
	r.pending = nil

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, s := range staged {
			snap := s.ticket.Snapshot()
			var err error
			if s.insert {
				err = insertTicket(ctx, tx, snap)
			} else {
				err = updateTicket(ctx, tx, snap)
			}
			if err != nil {
				return err
			}
			if err := insertMessages(ctx, tx, snap); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, s := range staged {
		s.ticket.IncrementVersion()
	}
	return nil
}

func insertTicket(ctx context.Context, tx pgx.Tx, t domain.TicketSnapshot) error {
	const query = `
        INSERT INTO support.support_tickets (id, reference_id, name, email, subject, message, status, priority,
            assigned_to_user_id, created_at, updated_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := tx.Exec(ctx, query,
		t.ID,
		t.ReferenceID,
		t.SubmitterName,
		t.SubmitterEmail,
		t.Subject,
		t.Message,
		int(t.Status),
		int(t.Priority),
		t.AssignedTo,
		t.CreatedAt,
		t.UpdatedAt,
		t.Version+1,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateReference, t.ReferenceID)
	}
	return err
}

func updateTicket(ctx context.Context, tx pgx.Tx, t domain.TicketSnapshot) error {
	const query = `
        UPDATE support.support_tickets SET status=$1, priority=$2, assigned_to_user_id=$3,
            updated_at=$4, version=version+1
        WHERE id=$5 AND version=$6`
	cmd, err := tx.Exec(ctx, query,
		int(t.Status),
		int(t.Priority),
		t.AssignedTo,
		t.UpdatedAt,
		t.ID,
		t.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	// The column is a UUID; anything else cannot match a row.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM support.support_tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByReferenceID(ctx context.Context, referenceID string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM support.support_tickets WHERE reference_id=$1`, strings.TrimSpace(referenceID))
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	snaps, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	tickets, err := r.hydrate(ctx, snaps)
	if err != nil {
		return nil, err
	}
	return tickets[0], nil
}

func (r *ticketRepository) GetPaged(ctx context.Context, q TicketQuery) (TicketPage, error) {
	page, size := normalizePage(q.Page, q.PageSize)
	clauses := []string{"1=1"}
	args := []any{}

	if q.Status != nil {
		args = append(args, int(*q.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if q.Priority != nil {
		args = append(args, int(*q.Priority))
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if q.AssignedTo != nil {
		args = append(args, *q.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to_user_id=$%d", len(args)))
	}
	if q.UnassignedOnly {
		clauses = append(clauses, "assigned_to_user_id IS NULL")
	}
	if term := strings.TrimSpace(q.SearchTerm); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(name) LIKE %s OR LOWER(subject) LIKE %s OR LOWER(reference_id) LIKE %s OR LOWER(email) LIKE %s)",
			p, p, p, p))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM support.support_tickets WHERE `+where, args...).Scan(&total); err != nil {
		return TicketPage{}, err
	}

	query := fmt.Sprintf(`SELECT %s FROM support.support_tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, size, (page-1)*size)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return TicketPage{}, err
	}
	snaps, err := scanTickets(rows)
	if err != nil {
		return TicketPage{}, err
	}
	items, err := r.hydrate(ctx, snaps)
	if err != nil {
		return TicketPage{}, err
	}
	return TicketPage{Items: items, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *ticketRepository) CountsByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	counts, err := r.groupCount(ctx, "status")
	if err != nil {
		return nil, err
	}
	out := make(map[domain.TicketStatus]int, len(counts))
	for k, v := range counts {
		out[domain.TicketStatus(k)] = v
	}
	return out, nil
}

func (r *ticketRepository) CountsByPriority(ctx context.Context) (map[domain.TicketPriority]int, error) {
	counts, err := r.groupCount(ctx, "priority")
	if err != nil {
		return nil, err
	}
	out := make(map[domain.TicketPriority]int, len(counts))
	for k, v := range counts {
		out[domain.TicketPriority(k)] = v
	}
	return out, nil
}

// groupCount is only called with fixed column names.
func (r *ticketRepository) groupCount(ctx context.Context, column string) (map[int]int, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %[1]s, COUNT(*) FROM support.support_tickets GROUP BY %[1]s`, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var key, count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}

func (r *ticketRepository) UnassignedCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM support.support_tickets WHERE assigned_to_user_id IS NULL`).Scan(&count)
	return count, err
}

func (r *ticketRepository) hydrate(ctx context.Context, snaps []domain.TicketSnapshot) ([]*domain.Ticket, error) {
	if len(snaps) == 0 {
		return nil, nil
	}
	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID
	}
	replies, notes, err := loadMessages(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Ticket, len(snaps))
	for i, s := range snaps {
		s.Replies = replies[s.ID]
		s.Notes = notes[s.ID]
		out[i] = domain.RestoreTicket(s)
	}
	return out, nil
}

func scanTickets(rows pgx.Rows) ([]domain.TicketSnapshot, error) {
	defer rows.Close()
	var result []domain.TicketSnapshot
	for rows.Next() {
		var (
			s                  domain.TicketSnapshot
			status, priority   int
			createdAt, updated time.Time
		)
		if err := rows.Scan(
			&s.ID,
			&s.ReferenceID,
			&s.SubmitterName,
			&s.SubmitterEmail,
			&s.Subject,
			&s.Message,
			&status,
			&priority,
			&s.AssignedTo,
			&createdAt,
			&updated,
			&s.Version,
		); err != nil {
			return nil, err
		}
		s.Status = domain.TicketStatus(status)
		s.Priority = domain.TicketPriority(priority)
		s.CreatedAt = createdAt.UTC()
		s.UpdatedAt = updated.UTC()
		result = append(result, s)
	}
	return result, rows.Err()
}
