package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/jobdesk/jobdesk/internal/user"
)

// Claims is the signed payload shared by access and refresh tokens. It carries
// the identity snapshot and the role reference only. Permissions are excluded
// on purpose and re-resolved from the live role on every protected request.
type Claims struct {
	UserID string       `json:"userId"`
	Email  string       `json:"email"`
	Name   string       `json:"name"`
	Role   user.RoleRef `json:"role"`
	jwt.RegisteredClaims
}
