package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jobdesk/jobdesk/internal/config"
	"github.com/jobdesk/jobdesk/internal/user"
	"go.uber.org/zap"
)

const (
	// Subjects distinguish the two token families; verification rejects a
	// refresh token presented where an access token is expected.
	subjectAccess  = "sign-in-access-token"
	subjectRefresh = "refresh-token"
)

var ErrInvalidToken = errors.New("invalid token")

// Service issues and verifies the two token families. Access tokens are
// short-lived; refresh tokens live longer and are signed with a separate
// secret so an access-secret compromise cannot forge them.
type Service interface {
	IssueAccess(identity *user.Identity) (string, error)
	IssueRefresh(identity *user.Identity) (string, error)
	VerifyAccess(tokenString string) (*Claims, error)
	VerifyRefresh(tokenString string) (*Claims, error)
	// RefreshTTL exposes the configured refresh lifetime so the handler can
	// size the cookie Max-Age to match the token expiry.
	RefreshTTL() time.Duration
}

type tokenService struct {
	logger     *zap.Logger
	cfg        *config.JWTConfig
	signingAlg jwt.SigningMethod
}

func NewTokenService(logger *zap.Logger, cfg *config.JWTConfig) Service {
	return &tokenService{
		logger:     logger,
		cfg:        cfg,
		signingAlg: jwt.SigningMethodHS256,
	}
}

func (s *tokenService) IssueAccess(identity *user.Identity) (string, error) {
	return s.issue(identity, subjectAccess, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

func (s *tokenService) IssueRefresh(identity *user.Identity) (string, error) {
	return s.issue(identity, subjectRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

func (s *tokenService) issue(identity *user.Identity, subject, secret string, ttl time.Duration) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &Claims{
		UserID: identity.ID,
		Email:  identity.Email,
		Name:   identity.Name,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			NotBefore: jwt.NewNumericDate(issuedAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			// the jti keeps back-to-back rotations from minting identical
			// token strings within the same second
			ID: s.generateJTI(),
		},
	}

	signed, err := jwt.NewWithClaims(s.signingAlg, claims).SignedString([]byte(secret))
	if err != nil {
		s.logger.Error("failed to sign token", zap.String("subject", subject), zap.Error(err))
		return "", err
	}
	return signed, nil
}

func (s *tokenService) RefreshTTL() time.Duration {
	return s.cfg.RefreshTTL
}

func (s *tokenService) generateJTI() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (s *tokenService) VerifyAccess(tokenString string) (*Claims, error) {
	return s.verify(tokenString, subjectAccess, s.cfg.AccessSecret)
}

func (s *tokenService) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verify(tokenString, subjectRefresh, s.cfg.RefreshSecret)
}

func (s *tokenService) verify(tokenString, subject, secret string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.signingAlg.Alg()}),
	)

	var claims Claims
	tkn, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Issuer != s.cfg.Issuer {
		return nil, ErrInvalidToken
	}
	if claims.Subject != subject {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
