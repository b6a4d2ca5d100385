package user

import (
	"time"

	"github.com/jobdesk/jobdesk/internal/role"
)

// RoleRef is the role snapshot carried on user records and inside token
// payloads: the identifier and name only, never the permission set.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID           int64     `json:"-"`
	PublicID     string    `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"-"` // bcrypt hash, never serialised
	Name         string    `json:"name"`
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Address      string    `json:"address"`
	Role         RoleRef   `json:"role"`
	RefreshToken string    `json:"-"` // session slot, never serialised
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the resolved, request-scoped representation of "who is calling".
// Permissions are always derived from the live role at resolution time, never
// read back from client input or token payloads.
type Identity struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Role        RoleRef           `json:"role"`
	Permissions []role.Permission `json:"permissions"`
}
