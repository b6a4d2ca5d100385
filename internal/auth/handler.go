package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/jobdesk/jobdesk/internal/config"
	"github.com/jobdesk/jobdesk/internal/guard"
	"github.com/jobdesk/jobdesk/internal/httpx"
	"github.com/jobdesk/jobdesk/internal/user"
	"go.uber.org/zap"
)

const refreshCookieName = "refresh_token"

type AuthenticationHandler interface {
	SignIn(w http.ResponseWriter, r *http.Request)
	SignUp(w http.ResponseWriter, r *http.Request)
	Account(w http.ResponseWriter, r *http.Request)
	RefreshToken(w http.ResponseWriter, r *http.Request)
	SignOut(w http.ResponseWriter, r *http.Request)
	Routes() chi.Router
}

type authenticationHandler struct {
	logger      *zap.Logger
	authService AuthService
	validator   *validator.Validate
	cookieCfg   *config.CookieConfig
}

func NewAuthenticationHandler(authService AuthService, cookieCfg *config.CookieConfig, l *zap.Logger) AuthenticationHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &authenticationHandler{
		logger:      l,
		authService: authService,
		validator:   v,
		cookieCfg:   cookieCfg,
	}
}

func (a *authenticationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		// brute-force throttling on the credential endpoints
		r.Use(httprate.LimitByIP(20, time.Minute))
		r.Post("/sign-in", a.SignIn)
		r.Post("/sign-up", a.SignUp)
	})
	r.Get("/account", a.Account)
	r.Get("/refresh-token", a.RefreshToken)
	r.Post("/sign-out", a.SignOut)
	return r
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type signUpRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=128"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Age      int    `json:"age"      validate:"omitempty,gte=0,lte=150"`
	Gender   string `json:"gender"   validate:"omitempty,max=32"`
	Address  string `json:"address"  validate:"omitempty,max=256"`
}

type sessionResponse struct {
	AccessToken string         `json:"access_token"`
	User        *user.Identity `json:"user"`
}

func (a *authenticationHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !a.decode(w, r, &req) {
		return
	}

	identity, err := a.authService.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		a.logger.Error("failed to verify credentials", zap.Error(err))
		a.internalError(w)
		return
	}
	if identity == nil {
		// unknown email and wrong password collapse to the same response
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: ErrInvalidCredentials.Error(),
		})
		return
	}

	session, err := a.authService.SignIn(r.Context(), identity)
	if err != nil {
		a.logger.Error("failed to sign in", zap.String("user_id", identity.ID), zap.Error(err))
		a.internalError(w)
		return
	}

	a.setRefreshCookie(w, session.RefreshToken, session.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		AccessToken: session.AccessToken,
		User:        session.Identity,
	})
}

func (a *authenticationHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !a.decode(w, r, &req) {
		return
	}

	result, err := a.authService.SignUp(r.Context(), &Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
		Gender:   req.Gender,
		Address:  req.Address,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			a.logger.Debug("duplicate email", zap.String("email", req.Email))
			httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
				Code:    httpx.ErrBadRequest,
				Message: "Email already exists",
			})
			return
		}
		a.logger.Error("failed to sign up", zap.Error(err))
		a.internalError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, result)
}

// Account returns the guard-resolved identity, permissions included, so the
// client can render its capabilities without a second round trip.
func (a *authenticationHandler) Account(w http.ResponseWriter, r *http.Request) {
	identity, ok := guard.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "Invalid token",
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]*user.Identity{"user": identity})
}

func (a *authenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrBadRequest,
			Message: ErrSessionExpired.Error(),
		})
		return
	}

	session, err := a.authService.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
				Code:    httpx.ErrBadRequest,
				Message: ErrSessionExpired.Error(),
			})
			return
		}
		a.logger.Error("failed to refresh session", zap.Error(err))
		a.internalError(w)
		return
	}

	a.setRefreshCookie(w, session.RefreshToken, session.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		AccessToken: session.AccessToken,
		User:        session.Identity,
	})
}

func (a *authenticationHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	identity, ok := guard.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "Invalid token",
		})
		return
	}

	if err := a.authService.SignOut(r.Context(), identity); err != nil {
		a.logger.Error("failed to sign out", zap.String("user_id", identity.ID), zap.Error(err))
		a.internalError(w)
		return
	}

	a.clearRefreshCookie(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"signed_out": true})
}

/** helpers */

// decode applies the common body checks: content type, size cap, strict JSON,
// single object, struct validation. Returns false if a response was written.
func (a *authenticationHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		httpx.WriteError(w, http.StatusUnsupportedMediaType, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnsupportedMedia,
			Message: "Content-Type must be application/json",
		})
		return false
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.logger.Warn("failed to decode request body", zap.Error(err))
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInvalidJSON,
			Message: "invalid request body",
		})
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF { // check if there's any trailing data
		a.logger.Warn("trailing data after JSON body", zap.Error(err))
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInvalidJSON,
			Message: "request body must contain a single JSON object",
		})
		return false
	}

	if err := a.validator.Struct(v); err != nil {
		a.logger.Warn("request validation failed", zap.Error(err))
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[[]httpx.FieldError]{
			Code:    httpx.ErrValidationFailed,
			Message: "validation failed",
			Details: httpx.ValidationDetails(err),
		})
		return false
	}
	return true
}

func (a *authenticationHandler) internalError(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
		Code:    httpx.ErrInternal,
		Message: "internal server error",
	})
}

func (a *authenticationHandler) setRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     a.cookieCfg.Path,
		Domain:   a.cookieCfg.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   a.cookieCfg.Secure,
		SameSite: sameSite(a.cookieCfg.SameSite),
	})
}

func (a *authenticationHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     a.cookieCfg.Path,
		Domain:   a.cookieCfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieCfg.Secure,
		SameSite: sameSite(a.cookieCfg.SameSite),
	})
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
