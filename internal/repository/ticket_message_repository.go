package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lankaconnect/support-service/internal/domain"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// insertMessages writes every reply and note of the ticket. Existing rows are
// left untouched, so the thread can only grow.
func insertMessages(ctx context.Context, tx pgx.Tx, t domain.TicketSnapshot) error {
	const replyQuery = `
        INSERT INTO support.support_ticket_replies (id, support_ticket_id, position, content, replied_by_user_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO NOTHING`
	const noteQuery = `
        INSERT INTO support.support_ticket_notes (id, support_ticket_id, position, content, created_by_user_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for i, reply := range t.Replies {
		batch.Queue(replyQuery, reply.ID, t.ID, i, reply.Content, reply.AuthorID, reply.CreatedAt)
	}
	for i, note := range t.Notes {
		batch.Queue(noteQuery, note.ID, t.ID, i, note.Content, note.AuthorID, note.CreatedAt)
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

// loadMessages fetches the replies and notes of the given tickets keyed by ticket id.
func loadMessages(ctx context.Context, q querier, ticketIDs []string) (map[string][]domain.TicketReply, map[string][]domain.TicketNote, error) {
	const replyQuery = `
        SELECT support_ticket_id, id, content, replied_by_user_id, created_at
        FROM support.support_ticket_replies WHERE support_ticket_id = ANY($1::uuid[]) ORDER BY support_ticket_id, position`
	const noteQuery = `
        SELECT support_ticket_id, id, content, created_by_user_id, created_at
        FROM support.support_ticket_notes WHERE support_ticket_id = ANY($1::uuid[]) ORDER BY support_ticket_id, position`

	replies := make(map[string][]domain.TicketReply)
	err := scanMessages(ctx, q, replyQuery, ticketIDs, func(ticketID, id, content, author string, at time.Time) {
		replies[ticketID] = append(replies[ticketID], domain.TicketReply{ID: id, Content: content, AuthorID: author, CreatedAt: at})
	})
	if err != nil {
		return nil, nil, err
	}

	notes := make(map[string][]domain.TicketNote)
	err = scanMessages(ctx, q, noteQuery, ticketIDs, func(ticketID, id, content, author string, at time.Time) {
		notes[ticketID] = append(notes[ticketID], domain.TicketNote{ID: id, Content: content, AuthorID: author, CreatedAt: at})
	})
	if err != nil {
		return nil, nil, err
	}
	return replies, notes, nil
}

func scanMessages(ctx context.Context, q querier, query string, ticketIDs []string, add func(ticketID, id, content, author string, at time.Time)) error {
	rows, err := q.Query(ctx, query, ticketIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ticketID, id, content, author string
			createdAt                     time.Time
		)
		if err := rows.Scan(&ticketID, &id, &content, &author, &createdAt); err != nil {
			return err
		}
		add(ticketID, id, content, author, createdAt.UTC())
	}
	return rows.Err()
}
