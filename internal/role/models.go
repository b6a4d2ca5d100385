package role

import "time"

// Permission is an atomic authorizable action: one HTTP method plus one route
// pattern, e.g. (DELETE, /api/v1/jobs/{id}).
type Permission struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	APIPath string `json:"apiPath"`
	Method  string `json:"method"`
	Module  string `json:"module"`
}

type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	IsActive    bool         `json:"is_active"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

const (
	// RoleNameUser is attached to every self-registered account.
	RoleNameUser = "USER"
	// RoleNameAdmin holds the full permission catalog after seeding.
	RoleNameAdmin = "ADMIN"
)
