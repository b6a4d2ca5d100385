package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jobdesk/jobdesk/internal/password"
	"github.com/jobdesk/jobdesk/internal/role"
	"github.com/jobdesk/jobdesk/internal/token"
	"github.com/jobdesk/jobdesk/internal/user"
	"go.uber.org/zap"
)

// Session is the result of a successful sign-in or refresh. The refresh token
// never appears in a response body; the handler moves it into an http-only
// cookie with MaxAge = RefreshTTL.
type Session struct {
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
	Identity     *user.Identity
}

type Registration struct {
	Name     string
	Email    string
	Password string
	Age      int
	Gender   string
	Address  string
}

type SignUpResult struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthService interface {
	// VerifyCredentials returns the fully resolved identity on a match and
	// (nil, nil) for both unknown email and wrong password.
	VerifyCredentials(ctx context.Context, email, plaintext string) (*user.Identity, error)
	SignIn(ctx context.Context, identity *user.Identity) (*Session, error)
	SignUp(ctx context.Context, reg *Registration) (*SignUpResult, error)
	Refresh(ctx context.Context, presented string) (*Session, error)
	SignOut(ctx context.Context, identity *user.Identity) error
}

type authService struct {
	users  user.UserRepo
	roles  role.RoleRepo
	tokens token.Service
	logger *zap.Logger
}

func NewAuthService(users user.UserRepo, roles role.RoleRepo, tokens token.Service, logger *zap.Logger) AuthService {
	return &authService{
		users:  users,
		roles:  roles,
		tokens: tokens,
		logger: logger,
	}
}

func (a *authService) VerifyCredentials(ctx context.Context, email, plaintext string) (*user.Identity, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	if !password.Verify(plaintext, u.Password) {
		return nil, nil
	}
	return a.resolveIdentity(ctx, u)
}

// SignIn issues the token pair and persists the refresh token into the user's
// session slot. A slot write failure is fatal to the whole call: no token
// leaves this function unless the session is durably stored.
func (a *authService) SignIn(ctx context.Context, identity *user.Identity) (*Session, error) {
	accessToken, err := a.tokens.IssueAccess(identity)
	if err != nil {
		return nil, err
	}
	refreshToken, err := a.tokens.IssueRefresh(identity)
	if err != nil {
		return nil, err
	}

	if err := a.users.SetRefreshToken(ctx, identity.ID, refreshToken); err != nil {
		return nil, err
	}

	a.logger.Info("user signed in", zap.String("user_id", identity.ID))
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RefreshTTL:   a.tokens.RefreshTTL(),
		Identity:     identity,
	}, nil
}

func (a *authService) SignUp(ctx context.Context, reg *Registration) (*SignUpResult, error) {
	hashed, err := password.Hash(reg.Password)
	if err != nil {
		a.logger.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	defaultRole, err := a.roles.GetByName(ctx, role.RoleNameUser)
	if err != nil {
		a.logger.Error("failed to resolve default role", zap.Error(err))
		return nil, err
	}

	publicID, createdAt, err := a.users.Create(ctx, &user.CreateUserDTO{
		Email:    reg.Email,
		Password: hashed,
		Name:     reg.Name,
		Age:      reg.Age,
		Gender:   reg.Gender,
		Address:  reg.Address,
		RoleID:   defaultRole.ID,
	})
	if err != nil {
		return nil, err
	}

	return &SignUpResult{ID: publicID, CreatedAt: createdAt}, nil
}

// Refresh exchanges a presented refresh token for a new token pair. The token
// must both verify cryptographically and match the stored session slot; the
// slot is rotated with a compare-and-swap so a concurrently rotated token
// fails cleanly instead of silently overwriting the winner.
func (a *authService) Refresh(ctx context.Context, presented string) (*Session, error) {
	if _, err := a.tokens.VerifyRefresh(presented); err != nil {
		a.logger.Debug("refresh token failed verification", zap.Error(err))
		return nil, ErrSessionExpired
	}

	u, err := a.users.FindByRefreshToken(ctx, presented)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrSessionExpired
	}

	// Role membership may have changed since original issuance.
	identity, err := a.resolveIdentity(ctx, u)
	if err != nil {
		return nil, err
	}

	accessToken, err := a.tokens.IssueAccess(identity)
	if err != nil {
		return nil, err
	}
	nextRefresh, err := a.tokens.IssueRefresh(identity)
	if err != nil {
		return nil, err
	}

	if err := a.users.RotateRefreshToken(ctx, identity.ID, presented, nextRefresh); err != nil {
		if errors.Is(err, user.ErrStaleRefreshToken) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	a.logger.Debug("refresh token rotated", zap.String("user_id", identity.ID))
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: nextRefresh,
		RefreshTTL:   a.tokens.RefreshTTL(),
		Identity:     identity,
	}, nil
}

func (a *authService) SignOut(ctx context.Context, identity *user.Identity) error {
	if err := a.users.ClearRefreshToken(ctx, identity.ID); err != nil {
		return err
	}
	a.logger.Info("user signed out", zap.String("user_id", identity.ID))
	return nil
}

func (a *authService) resolveIdentity(ctx context.Context, u *user.User) (*user.Identity, error) {
	rec, err := a.roles.GetByID(ctx, u.Role.ID)
	if err != nil {
		a.logger.Error("failed to resolve role", zap.Int64("role_id", u.Role.ID), zap.Error(err))
		return nil, err
	}
	return &user.Identity{
		ID:          u.PublicID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        user.RoleRef{ID: rec.ID, Name: rec.Name},
		Permissions: rec.Permissions,
	}, nil
}
