package role

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"
)

// RoleRepo resolves roles together with their current permission set. The
// permission membership always reflects live database state: callers re-resolve
// on every sign-in, refresh and protected request so revocations take effect
// without re-login.
type RoleRepo interface {
	GetByID(ctx context.Context, id int64) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
}

const (
	selectRoleByIDQuery = `
						SELECT id, name, description, is_active, created_at, updated_at
						FROM roles
						WHERE id = $1
						`
	selectRoleByNameQuery = `
						SELECT id, name, description, is_active, created_at, updated_at
						FROM roles
						WHERE name = $1
						`
	selectRolePermissionsQuery = `
						SELECT p.id, p.name, p.api_path, p.method, p.module
						FROM permissions p
						JOIN role_permissions rp ON rp.permission_id = p.id
						WHERE rp.role_id = $1
						ORDER BY p.id
						`
)

type roleRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRoleRepo(db *sql.DB, logger *zap.Logger) RoleRepo {
	return &roleRepo{db: db, logger: logger}
}

func (r *roleRepo) GetByID(ctx context.Context, id int64) (*Role, error) {
	return r.get(ctx, selectRoleByIDQuery, id)
}

func (r *roleRepo) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.get(ctx, selectRoleByNameQuery, name)
}

func (r *roleRepo) get(ctx context.Context, query string, arg any) (*Role, error) {
	row := r.db.QueryRowContext(ctx, query, arg)

	var rec Role
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		r.logger.Error("failed to load role", zap.Error(err))
		return nil, err
	}

	perms, err := r.permissionsOf(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Permissions = perms
	return &rec, nil
}

func (r *roleRepo) permissionsOf(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.db.QueryContext(ctx, selectRolePermissionsQuery, roleID)
	if err != nil {
		r.logger.Error("failed to load role permissions", zap.Int64("role_id", roleID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	perms := make([]Permission, 0)
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.APIPath, &p.Method, &p.Module); err != nil {
			r.logger.Error("failed to scan permission", zap.Error(err))
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}
