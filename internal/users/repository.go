package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rpc/internal/platform/httpx"
)

// ErrNotFound is returned when the user does not exist.
var ErrNotFound = fmt.Errorf("users: %w", httpx.ErrNotFound)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]User, int, error)
	Options(ctx context.Context, filter OptionsFilter) ([]Option, error)
	Get(ctx context.Context, id int64) (User, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository implements RepositoryPort on PostgreSQL.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs the user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var userColumns = []string{
	"u.id", "u.email", "u.name", "u.is_active",
	"ARRAY(SELECT r.code FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id AND ur.active ORDER BY r.code)",
	"u.created_at", "u.updated_at",
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return u, err
}

func applyFilter(builder sq.SelectBuilder, filter ListFilter) sq.SelectBuilder {
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		builder = builder.Where(sq.Or{sq.ILike{"u.email": like}, sq.ILike{"u.name": like}})
	}
	if filter.IsActive != nil {
		builder = builder.Where(sq.Eq{"u.is_active": *filter.IsActive})
	}
	if filter.RoleID > 0 {
		builder = builder.Where(sq.Expr("EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id AND ur.role_id = ? AND ur.active)", filter.RoleID))
	}
	return builder
}

// List returns one page of users and the total matching count.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]User, int, error) {
	countQuery, countArgs, err := applyFilter(psql.Select("COUNT(*)").From("users u"), filter).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := applyFilter(psql.Select(userColumns...).From("users u"), filter).
		OrderBy("u.email").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

// Options returns active users as dropdown entries.
func (r *Repository) Options(ctx context.Context, filter OptionsFilter) ([]Option, error) {
	builder := psql.Select("id", "name", "email").
		From("users").
		Where(sq.Eq{"is_active": true}).
		OrderBy("name", "email").
		Limit(uint64(filter.Limit))
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		builder = builder.Where(sq.Or{sq.ILike{"email": like}, sq.ILike{"name": like}})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.Value, &o.Label, &o.Email); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Get fetches a user by ID.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	query, args, err := psql.Select(userColumns...).From("users u").Where(sq.Eq{"u.id": id}).ToSql()
	if err != nil {
		return User{}, err
	}
	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}
