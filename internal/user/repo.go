package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// CreateUserDTO carries the fields needed to persist a new account.
// Password must already be hashed.
type CreateUserDTO struct {
	Email    string
	Password string
	Name     string
	Age      int
	Gender   string
	Address  string
	RoleID   int64
}

type UserRepo interface {
	Create(ctx context.Context, dto *CreateUserDTO) (publicID string, createdAt time.Time, err error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPublicID(ctx context.Context, publicID string) (*User, error)
	FindByRefreshToken(ctx context.Context, token string) (*User, error)
	SetRefreshToken(ctx context.Context, publicID, token string) error
	RotateRefreshToken(ctx context.Context, publicID, presented, next string) error
	ClearRefreshToken(ctx context.Context, publicID string) error
}

const (
	insertUserQuery = `
						INSERT INTO users (email, password, name, age, gender, address, role_id)
						VALUES ($1, $2, $3, $4, $5, $6, $7)
						RETURNING public_id, created_at
						`
	selectUserColumns = `
						SELECT u.id, u.public_id, u.email, u.password, u.name, u.age, u.gender,
						       u.address, u.refresh_token, u.created_at, u.updated_at, r.id, r.name
						FROM users u
						JOIN roles r ON r.id = u.role_id
						`
	selectUserByEmailQuery        = selectUserColumns + ` WHERE u.email = $1`
	selectUserByPublicIDQuery     = selectUserColumns + ` WHERE u.public_id = $1`
	selectUserByRefreshTokenQuery = selectUserColumns + ` WHERE u.refresh_token = $1 AND u.refresh_token <> ''`

	setRefreshTokenQuery = `
						UPDATE users
						SET refresh_token = $2, updated_at = now()
						WHERE public_id = $1
						`
	rotateRefreshTokenQuery = `
						UPDATE users
						SET refresh_token = $3, updated_at = now()
						WHERE public_id = $1 AND refresh_token = $2
						`
	clearRefreshTokenQuery = `
						UPDATE users
						SET refresh_token = '', updated_at = now()
						WHERE public_id = $1
						`
)

type userRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewUserRepo(db *sql.DB, logger *zap.Logger) UserRepo {
	return &userRepo{db: db, logger: logger}
}

func (u *userRepo) Create(ctx context.Context, dto *CreateUserDTO) (string, time.Time, error) {
	row := u.db.QueryRowContext(ctx,
		insertUserQuery,
		strings.ToLower(strings.TrimSpace(dto.Email)),
		dto.Password,
		strings.TrimSpace(dto.Name),
		dto.Age,
		dto.Gender,
		dto.Address,
		dto.RoleID,
	)

	var publicID string
	var createdAt time.Time
	if err := row.Scan(&publicID, &createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == "users_email_key" || strings.Contains(strings.ToLower(pgErr.Detail), "(email)") {
				u.logger.Debug("duplicate email", zap.String("email", dto.Email))
				return "", time.Time{}, ErrDuplicateEmail
			}
		}
		u.logger.Error("failed to insert user", zap.Error(err))
		return "", time.Time{}, err
	}

	u.logger.Debug("user created", zap.String("public_id", publicID))
	return publicID, createdAt, nil
}

// GetByEmail returns (nil, nil) when no account exists: sign-in must not be
// able to distinguish unknown email from wrong password.
func (u *userRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return u.get(ctx, selectUserByEmailQuery, strings.ToLower(strings.TrimSpace(email)))
}

func (u *userRepo) GetByPublicID(ctx context.Context, publicID string) (*User, error) {
	return u.get(ctx, selectUserByPublicIDQuery, publicID)
}

// FindByRefreshToken looks the user up by matching the presented token against
// the stored session slot. A token that verifies cryptographically but was
// already rotated or cleared finds no row here.
func (u *userRepo) FindByRefreshToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	return u.get(ctx, selectUserByRefreshTokenQuery, token)
}

func (u *userRepo) get(ctx context.Context, query string, arg any) (*User, error) {
	row := u.db.QueryRowContext(ctx, query, arg)

	var rec User
	err := row.Scan(
		&rec.ID, &rec.PublicID, &rec.Email, &rec.Password, &rec.Name, &rec.Age,
		&rec.Gender, &rec.Address, &rec.RefreshToken, &rec.CreatedAt, &rec.UpdatedAt,
		&rec.Role.ID, &rec.Role.Name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		u.logger.Error("failed to load user", zap.Error(err))
		return nil, err
	}
	return &rec, nil
}

func (u *userRepo) SetRefreshToken(ctx context.Context, publicID, token string) error {
	res, err := u.db.ExecContext(ctx, setRefreshTokenQuery, publicID, token)
	if err != nil {
		u.logger.Error("failed to persist refresh token", zap.String("public_id", publicID), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		u.logger.Warn("refresh token persisted for unknown user", zap.String("public_id", publicID))
		return sql.ErrNoRows
	}
	return nil
}

// RotateRefreshToken overwrites the session slot only if it still holds the
// presented token. The compare-and-swap closes the race where two concurrent
// refresh calls both read the old slot value: exactly one wins, the loser gets
// ErrStaleRefreshToken.
func (u *userRepo) RotateRefreshToken(ctx context.Context, publicID, presented, next string) error {
	res, err := u.db.ExecContext(ctx, rotateRefreshTokenQuery, publicID, presented, next)
	if err != nil {
		u.logger.Error("failed to rotate refresh token", zap.String("public_id", publicID), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		u.logger.Debug("refresh token rotation lost the slot", zap.String("public_id", publicID))
		return ErrStaleRefreshToken
	}
	return nil
}

func (u *userRepo) ClearRefreshToken(ctx context.Context, publicID string) error {
	_, err := u.db.ExecContext(ctx, clearRefreshTokenQuery, publicID)
	if err != nil {
		u.logger.Error("failed to clear refresh token", zap.String("public_id", publicID), zap.Error(err))
	}
	return err
}
