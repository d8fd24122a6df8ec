package rbac

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=repository.go -destination=../mocks/rbac_repository.go -package=mocks

// Repository is the source of truth for roles, permissions, and their links.
type Repository interface {
	ActiveRolesForUser(ctx context.Context, userID int64) ([]Role, error)
	ActivePermissionKeysForRoles(ctx context.Context, roleIDs []int64) ([]string, error)
	ActiveOverrideKeysForUser(ctx context.Context, userID int64) ([]string, error)
	ActiveUserIDsForRole(ctx context.Context, roleID int64) ([]int64, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	PermissionByKey(ctx context.Context, key string) (Permission, error)
	ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error)
	RolePermissionKeys(ctx context.Context, roleID int64) ([]string, error)
	SetRolePermissionActive(ctx context.Context, roleID, permissionID int64, active bool) error
	SetRoleActive(ctx context.Context, roleID int64, active bool) error
	SetRoleAdminModules(ctx context.Context, roleID int64, modules map[string]bool) error
	SetUserRoleActive(ctx context.Context, userID, roleID, actorID int64, active bool) error
	SetUserPermissionActive(ctx context.Context, userID, permissionID, actorID int64, active bool) error
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

// PermissionFilter narrows catalog listings.
type PermissionFilter struct {
	Module     string
	Search     string
	ActiveOnly bool
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	db   db.DBTX
	pool db.TxBeginner
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

// WithTx runs fn inside a transaction. Nested calls reuse the open transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{db: tx})
	})
}

var roleColumns = []string{"r.id", "r.code", "r.name", "r.description", "r.is_system", "r.active", "r.admin_modules", "r.created_at", "r.updated_at"}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Code, &role.Name, &role.Description, &role.IsSystem, &role.Active, &role.AdminModules, &role.CreatedAt, &role.UpdatedAt)
	if role.AdminModules == nil {
		role.AdminModules = map[string]bool{}
	}
	return role, err
}

// ActiveRolesForUser returns active roles reachable through active assignments.
func (r *PGRepository) ActiveRolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	query, args, err := psql.Select(roleColumns...).
		From("user_roles ur").
		Join("roles r ON r.id = ur.role_id").
		Where(sq.Eq{"ur.user_id": userID, "ur.active": true, "r.active": true}).
		OrderBy("r.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ActivePermissionKeysForRoles returns keys of active catalog entries linked
// through active role links.
func (r *PGRepository) ActivePermissionKeysForRoles(ctx context.Context, roleIDs []int64) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	return r.strings(ctx, psql.Select("DISTINCT p.key").
		From("role_permissions rp").
		Join("permissions p ON p.id = rp.permission_id").
		Where(sq.Eq{"rp.role_id": roleIDs, "rp.active": true, "p.active": true}).
		OrderBy("p.key"))
}

// ActiveOverrideKeysForUser returns keys directly granted to the user.
func (r *PGRepository) ActiveOverrideKeysForUser(ctx context.Context, userID int64) ([]string, error) {
	return r.strings(ctx, psql.Select("p.key").
		From("user_permissions up").
		Join("permissions p ON p.id = up.permission_id").
		Where(sq.Eq{"up.user_id": userID, "up.active": true, "p.active": true}).
		OrderBy("p.key"))
}

// RolePermissionKeys returns keys linked to the role through active links.
func (r *PGRepository) RolePermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	return r.strings(ctx, psql.Select("p.key").
		From("role_permissions rp").
		Join("permissions p ON p.id = rp.permission_id").
		Where(sq.Eq{"rp.role_id": roleID, "rp.active": true}).
		OrderBy("p.key"))
}

// ActiveUserIDsForRole returns users currently holding the role.
func (r *PGRepository) ActiveUserIDsForRole(ctx context.Context, roleID int64) ([]int64, error) {
	query, args, err := psql.Select("user_id").
		From("user_roles").
		Where(sq.Eq{"role_id": roleID, "active": true}).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	query, args, err := psql.Select(roleColumns...).From("roles r").Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return Role{}, err
	}
	role, err := scanRole(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// PermissionByKey fetches a catalog entry.
func (r *PGRepository) PermissionByKey(ctx context.Context, key string) (Permission, error) {
	query, args, err := psql.Select("id", "key", "module", "resource", "action", "description", "active").
		From("permissions").
		Where(sq.Eq{"key": strings.ToLower(strings.TrimSpace(key))}).
		ToSql()
	if err != nil {
		return Permission{}, err
	}
	var p Permission
	if err := r.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.Key, &p.Module, &p.Resource, &p.Action, &p.Description, &p.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// ListPermissions returns catalog entries ordered by key.
func (r *PGRepository) ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error) {
	builder := psql.Select("id", "key", "module", "resource", "action", "description", "active").
		From("permissions").
		OrderBy("key")
	if filter.Module != "" {
		builder = builder.Where(sq.Eq{"module": filter.Module})
	}
	if filter.ActiveOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		builder = builder.Where(sq.Or{sq.ILike{"key": "%" + s + "%"}, sq.ILike{"description": "%" + s + "%"}})
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
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Key, &p.Module, &p.Resource, &p.Action, &p.Description, &p.Active); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// SetRolePermissionActive upserts the role link with the given state.
func (r *PGRepository) SetRolePermissionActive(ctx context.Context, roleID, permissionID int64, active bool) error {
	return r.exec(ctx, psql.Insert("role_permissions").
		Columns("role_id", "permission_id", "active", "updated_at").
		Values(roleID, permissionID, active, sq.Expr("NOW()")).
		Suffix("ON CONFLICT (role_id, permission_id) DO UPDATE SET active = EXCLUDED.active, updated_at = NOW()"))
}

// SetRoleActive toggles the role flag.
func (r *PGRepository) SetRoleActive(ctx context.Context, roleID int64, active bool) error {
	return r.update(ctx, psql.Update("roles").
		Set("active", active).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": roleID}))
}

// SetRoleAdminModules replaces the admin-scope map.
func (r *PGRepository) SetRoleAdminModules(ctx context.Context, roleID int64, modules map[string]bool) error {
	if modules == nil {
		modules = map[string]bool{}
	}
	return r.update(ctx, psql.Update("roles").
		Set("admin_modules", modules).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": roleID}))
}

// SetUserRoleActive upserts the assignment with the given state.
func (r *PGRepository) SetUserRoleActive(ctx context.Context, userID, roleID, actorID int64, active bool) error {
	return r.exec(ctx, psql.Insert("user_roles").
		Columns("user_id", "role_id", "active", "assigned_by", "assigned_at", "updated_at").
		Values(userID, roleID, active, actorID, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix(`ON CONFLICT (user_id, role_id) DO UPDATE SET
			active = EXCLUDED.active,
			assigned_by = EXCLUDED.assigned_by,
			assigned_at = CASE WHEN EXCLUDED.active AND NOT user_roles.active THEN NOW() ELSE user_roles.assigned_at END,
			updated_at = NOW()`))
}

// SetUserPermissionActive upserts the direct grant with the given state.
func (r *PGRepository) SetUserPermissionActive(ctx context.Context, userID, permissionID, actorID int64, active bool) error {
	return r.exec(ctx, psql.Insert("user_permissions").
		Columns("user_id", "permission_id", "active", "granted_by", "updated_at").
		Values(userID, permissionID, active, actorID, sq.Expr("NOW()")).
		Suffix("ON CONFLICT (user_id, permission_id) DO UPDATE SET active = EXCLUDED.active, granted_by = EXCLUDED.granted_by, updated_at = NOW()"))
}

func (r *PGRepository) strings(ctx context.Context, builder sq.SelectBuilder) ([]string, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PGRepository) exec(ctx context.Context, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *PGRepository) update(ctx context.Context, builder sq.UpdateBuilder) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
