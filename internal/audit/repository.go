package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
)

// Repository reads audit entries.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGRepository reads audit_logs from PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs the audit repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

func applyFilters(builder sq.SelectBuilder, f TimelineFilters) sq.SelectBuilder {
	if !f.From.IsZero() {
		builder = builder.Where(sq.GtOrEq{"a.occurred_at": f.From})
	}
	if !f.To.IsZero() {
		builder = builder.Where(sq.Lt{"a.occurred_at": f.To})
	}
	if f.ActorID > 0 {
		builder = builder.Where(sq.Eq{"a.actor_id": f.ActorID})
	}
	if v := strings.TrimSpace(f.Entity); v != "" {
		builder = builder.Where(sq.Eq{"a.entity": v})
	}
	if v := strings.TrimSpace(f.EntityID); v != "" {
		builder = builder.Where(sq.Eq{"a.entity_id": v})
	}
	if v := strings.TrimSpace(f.Action); v != "" {
		builder = builder.Where(sq.Eq{"a.action": v})
	}
	return builder
}

// Window returns up to limit entries, newest first.
func (r *PGRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	query, args, err := applyFilters(psql.
		Select("a.id", "a.occurred_at", "a.actor_id", "COALESCE(u.email, '')", "a.action", "a.entity", "a.entity_id", "a.meta").
		From("audit_logs a").
		LeftJoin("users u ON u.id = a.actor_id"), filters).
		OrderBy("a.occurred_at DESC", "a.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.ID, &row.At, &row.ActorID, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta for %d: %w", row.ID, err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
