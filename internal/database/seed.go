package database

import (
	"context"
	"database/sql"
	"os"

	"github.com/jobdesk/jobdesk/internal/password"
	"go.uber.org/zap"
)

type seedPermission struct {
	name    string
	apiPath string
	method  string
	module  string
}

// permissionCatalog is the bulk import the authorizer reads from. apiPath
// values use chi placeholder syntax and include the versioned prefix so they
// equal the guard's resolved route patterns one-to-one.
var permissionCatalog = []seedPermission{
	{"Create a user", "/api/v1/users", "POST", "USERS"},
	{"Fetch users with pagination", "/api/v1/users", "GET", "USERS"},
	{"Fetch a user by id", "/api/v1/users/{id}", "GET", "USERS"},
	{"Update a user", "/api/v1/users/{id}", "PATCH", "USERS"},
	{"Delete a user", "/api/v1/users/{id}", "DELETE", "USERS"},

	{"Create a company", "/api/v1/companies", "POST", "COMPANIES"},
	{"Fetch companies with pagination", "/api/v1/companies", "GET", "COMPANIES"},
	{"Fetch a company by id", "/api/v1/companies/{id}", "GET", "COMPANIES"},
	{"Update a company", "/api/v1/companies/{id}", "PATCH", "COMPANIES"},
	{"Delete a company", "/api/v1/companies/{id}", "DELETE", "COMPANIES"},

	{"Create a job", "/api/v1/jobs", "POST", "JOBS"},
	{"Fetch jobs with pagination", "/api/v1/jobs", "GET", "JOBS"},
	{"Fetch a job by id", "/api/v1/jobs/{id}", "GET", "JOBS"},
	{"Update a job", "/api/v1/jobs/{id}", "PATCH", "JOBS"},
	{"Delete a job", "/api/v1/jobs/{id}", "DELETE", "JOBS"},

	{"Create a resume", "/api/v1/resumes", "POST", "RESUMES"},
	{"Fetch resumes with pagination", "/api/v1/resumes", "GET", "RESUMES"},
	{"Fetch a resume by id", "/api/v1/resumes/{id}", "GET", "RESUMES"},
	{"Update a resume status", "/api/v1/resumes/{id}", "PATCH", "RESUMES"},
	{"Delete a resume", "/api/v1/resumes/{id}", "DELETE", "RESUMES"},

	{"Create a permission", "/api/v1/permissions", "POST", "PERMISSIONS"},
	{"Fetch permissions with pagination", "/api/v1/permissions", "GET", "PERMISSIONS"},
	{"Fetch a permission by id", "/api/v1/permissions/{id}", "GET", "PERMISSIONS"},
	{"Update a permission", "/api/v1/permissions/{id}", "PATCH", "PERMISSIONS"},
	{"Delete a permission", "/api/v1/permissions/{id}", "DELETE", "PERMISSIONS"},

	{"Create a role", "/api/v1/roles", "POST", "ROLES"},
	{"Fetch roles with pagination", "/api/v1/roles", "GET", "ROLES"},
	{"Fetch a role by id", "/api/v1/roles/{id}", "GET", "ROLES"},
	{"Update a role", "/api/v1/roles/{id}", "PATCH", "ROLES"},
	{"Delete a role", "/api/v1/roles/{id}", "DELETE", "ROLES"},

	{"Create a subscriber", "/api/v1/subscribers", "POST", "SUBSCRIBERS"},
	{"Fetch subscribers with pagination", "/api/v1/subscribers", "GET", "SUBSCRIBERS"},
	{"Update a subscriber", "/api/v1/subscribers", "PATCH", "SUBSCRIBERS"},

	{"Upload a file", "/api/v1/files/upload", "POST", "FILES"},
}

// Seed performs the one-off bootstrap the INIT_DB flag requests: the
// permission catalog, the ADMIN role holding every permission, the USER role
// holding none, and the initial admin account. Each step only runs when its
// table is still empty, so re-running is harmless.
func Seed(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if os.Getenv("INIT_DB") != "true" {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var permissionCount int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM permissions`).Scan(&permissionCount); err != nil {
		return err
	}
	if permissionCount == 0 {
		for _, p := range permissionCatalog {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO permissions (name, api_path, method, module) VALUES ($1, $2, $3, $4)`,
				p.name, p.apiPath, p.method, p.module,
			)
			if err != nil {
				return err
			}
		}
		logger.Info("seeded permission catalog", zap.Int("count", len(permissionCatalog)))
	}

	var roleCount int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM roles`).Scan(&roleCount); err != nil {
		return err
	}
	if roleCount == 0 {
		var adminRoleID int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO roles (name, description, is_active) VALUES ($1, $2, TRUE) RETURNING id`,
			"ADMIN", "System Admin (Full permissions)",
		).Scan(&adminRoleID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) SELECT $1, id FROM permissions`,
			adminRoleID,
		)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO roles (name, description, is_active) VALUES ($1, $2, TRUE)`,
			"USER", "Normal User",
		)
		if err != nil {
			return err
		}
		logger.Info("seeded roles")
	}

	var userCount int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&userCount); err != nil {
		return err
	}
	if userCount == 0 {
		hashed, err := password.Hash(os.Getenv("INIT_PASSWORD"))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (email, password, name, age, gender, address, role_id)
			 SELECT $1, $2, $3, $4, $5, $6, id FROM roles WHERE name = 'ADMIN'`,
			"admin@gmail.com", hashed, "Admin", 18, "MALE", "VietNam",
		)
		if err != nil {
			return err
		}
		logger.Info("seeded admin account")
	}

	return tx.Commit()
}
