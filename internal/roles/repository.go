package roles

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

var (
	// ErrNotFound is returned when the role does not exist.
	ErrNotFound = fmt.Errorf("roles: %w", httpx.ErrNotFound)
	// ErrDuplicateCode is returned when the role code is taken.
	ErrDuplicateCode = fmt.Errorf("roles: code already exists: %w", httpx.ErrDuplicate)
	// ErrReservedCode is returned when the code is reserved for global admins.
	ErrReservedCode = fmt.Errorf("roles: code is reserved: %w", httpx.ErrValidation)
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Role, int, error)
	Options(ctx context.Context, filter OptionsFilter) ([]Option, error)
	Get(ctx context.Context, id int64) (Role, error)
	Create(ctx context.Context, in CreateInput) (Role, error)
	Update(ctx context.Context, in UpdateInput) (Role, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository implements RepositoryPort on PostgreSQL.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs the role repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var roleColumns = []string{
	"r.id", "r.code", "r.name", "r.description", "r.is_system", "r.active", "r.admin_modules",
	"(SELECT COUNT(*) FROM role_permissions rp WHERE rp.role_id = r.id AND rp.active)",
	"(SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id AND ur.active)",
	"r.created_at", "r.updated_at",
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Code, &role.Name, &role.Description, &role.IsSystem, &role.Active,
		&role.AdminModules, &role.Permissions, &role.Members, &role.CreatedAt, &role.UpdatedAt)
	if role.AdminModules == nil {
		role.AdminModules = map[string]bool{}
	}
	return role, err
}

func applyFilter(builder sq.SelectBuilder, filter ListFilter) sq.SelectBuilder {
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		builder = builder.Where(sq.Or{sq.ILike{"r.code": like}, sq.ILike{"r.name": like}})
	}
	if filter.Active != nil {
		builder = builder.Where(sq.Eq{"r.active": *filter.Active})
	}
	return builder
}

// List returns one page of roles and the total matching count.
func (r *Repository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Role, int, error) {
	countQuery, countArgs, err := applyFilter(psql.Select("COUNT(*)").From("roles r"), filter).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := applyFilter(psql.Select(roleColumns...).From("roles r"), filter).
		OrderBy("r.code").
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
	items := make([]Role, 0, limit)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, role)
	}
	return items, total, rows.Err()
}

// Options returns active roles as dropdown entries.
func (r *Repository) Options(ctx context.Context, filter OptionsFilter) ([]Option, error) {
	builder := psql.Select("id", "name", "code").
		From("roles").
		Where(sq.Eq{"active": true}).
		OrderBy("name").
		Limit(uint64(filter.Limit))
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		builder = builder.Where(sq.Or{sq.ILike{"code": like}, sq.ILike{"name": like}})
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
		if err := rows.Scan(&o.Value, &o.Label, &o.Code); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Get fetches a role by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	query, args, err := psql.Select(roleColumns...).From("roles r").Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return Role{}, err
	}
	role, err := scanRole(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	return role, err
}

// Create inserts a role. Roles created here are never system roles.
func (r *Repository) Create(ctx context.Context, in CreateInput) (Role, error) {
	query, args, err := psql.Insert("roles").
		Columns("code", "name", "description").
		Values(in.Code, in.Name, in.Description).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Role{}, err
	}
	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if db.IsUniqueViolation(err) {
			return Role{}, ErrDuplicateCode
		}
		return Role{}, err
	}
	return r.Get(ctx, id)
}

// Update changes the descriptive fields of a role.
func (r *Repository) Update(ctx context.Context, in UpdateInput) (Role, error) {
	query, args, err := psql.Update("roles").
		Set("name", in.Name).
		Set("description", in.Description).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": in.ID}).
		ToSql()
	if err != nil {
		return Role{}, err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return Role{}, err
	}
	if tag.RowsAffected() == 0 {
		return Role{}, ErrNotFound
	}
	return r.Get(ctx, in.ID)
}
