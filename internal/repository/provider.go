package repository

import "github.com/jackc/pgx/v5/pgxpool"

// PostgresProvider hands out Postgres-backed stores sharing one pool.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider wraps pool.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

func (p *PostgresProvider) Tickets() TicketStore { return NewTicketRepository(p.pool) }
func (p *PostgresProvider) Audit() AuditStore    { return NewAuditLogRepository(p.pool) }
