package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lankaconnect/support-service/internal/domain"
)

const auditColumns = `id, admin_user_id, action, target_user_id, target_entity_id, target_entity_type,
               details, ip_address, user_agent, created_at`

type auditLogRepository struct {
	pool    *pgxpool.Pool
	pending []*domain.AuditLogEntry
}

// NewAuditLogRepository builds a Postgres-backed AuditStore.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditStore {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Add(entry *domain.AuditLogEntry) {
	r.pending = append(r.pending, entry)
}

func (r *auditLogRepository) SaveChanges(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	const query = `
        INSERT INTO support.admin_audit_logs (id, admin_user_id, action, target_user_id, target_entity_id,
            target_entity_type, details, ip_address, user_agent, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	staged := r.pending
	r.pending = nil
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range staged {
			s := e.Snapshot()
			batch.Queue(query,
				s.ID,
				s.ActorID,
				s.Action,
				nullable(s.TargetUserID),
				nullable(s.TargetEntityID),
				nullable(s.TargetEntityType),
				nullable(s.Details),
				nullable(s.IPAddress),
				nullable(s.UserAgent),
				s.CreatedAt,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (r *auditLogRepository) GetPaged(ctx context.Context, q AuditQuery) (AuditPage, error) {
	page, size := normalizePage(q.Page, q.PageSize)
	clauses := []string{"1=1"}
	args := []any{}

	if v := strings.TrimSpace(q.ActorID); v != "" {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("admin_user_id=$%d", len(args)))
	}
	if v := strings.TrimSpace(q.Action); v != "" {
		args = append(args, strings.ToUpper(v))
		clauses = append(clauses, fmt.Sprintf("action=$%d", len(args)))
	}
	if v := strings.TrimSpace(q.TargetUserID); v != "" {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("target_user_id=$%d", len(args)))
	}
	if q.From != nil {
		args = append(args, *q.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if q.To != nil {
		args = append(args, *q.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM support.admin_audit_logs WHERE `+where, args...).Scan(&total); err != nil {
		return AuditPage{}, err
	}

	query := fmt.Sprintf(`SELECT %s FROM support.admin_audit_logs WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		auditColumns, where, size, (page-1)*size)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return AuditPage{}, err
	}
	items, err := scanAuditEntries(rows)
	if err != nil {
		return AuditPage{}, err
	}
	return AuditPage{Items: items, TotalCount: total, Page: page, PageSize: size}, nil
}

func (r *auditLogRepository) GetByTargetUser(ctx context.Context, userID string) ([]*domain.AuditLogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM support.admin_audit_logs WHERE target_user_id=$1 ORDER BY created_at DESC`,
		strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows pgx.Rows) ([]*domain.AuditLogEntry, error) {
	defer rows.Close()
	var result []*domain.AuditLogEntry
	for rows.Next() {
		var (
			s                                domain.AuditEntrySnapshot
			targetUser, entityID, entityType *string
			details, ipAddress, userAgent    *string
			createdAt                        time.Time
		)
		if err := rows.Scan(
			&s.ID,
			&s.ActorID,
			&s.Action,
			&targetUser,
			&entityID,
			&entityType,
			&details,
			&ipAddress,
			&userAgent,
			&createdAt,
		); err != nil {
			return nil, err
		}
		s.TargetUserID = deref(targetUser)
		s.TargetEntityID = deref(entityID)
		s.TargetEntityType = deref(entityType)
		s.Details = deref(details)
		s.IPAddress = deref(ipAddress)
		s.UserAgent = deref(userAgent)
		s.CreatedAt = createdAt.UTC()
		result = append(result, domain.RestoreAuditEntry(s))
	}
	return result, rows.Err()
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
