package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jobdesk/jobdesk/internal/auth"
	"github.com/jobdesk/jobdesk/internal/config"
	"github.com/jobdesk/jobdesk/internal/guard"
	"github.com/jobdesk/jobdesk/internal/role"
	"github.com/jobdesk/jobdesk/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testApp wires the handler, guard and fakes the way cmd/main.go does.
type testApp struct {
	router http.Handler
	users  *memoryUserRepo
	roles  *memoryRoleRepo
}

func newTestApp() *testApp {
	logger := zap.NewNop()
	users := newMemoryUserRepo()
	roles := &memoryRoleRepo{roles: map[int64]*role.Role{
		2: {ID: 2, Name: role.RoleNameUser, IsActive: true, Permissions: userRolePermissions()},
	}}
	tokens := token.NewTokenService(logger, jwtTestConfig())
	svc := auth.NewAuthService(users, roles, tokens, logger)
	handler := auth.NewAuthenticationHandler(svc, &config.CookieConfig{Path: "/"}, logger)

	table := guard.NewTable()
	table.Register(http.MethodPost, "/api/v1/auth/sign-in", guard.Meta{Public: true})
	table.Register(http.MethodPost, "/api/v1/auth/sign-up", guard.Meta{Public: true})
	table.Register(http.MethodGet, "/api/v1/auth/refresh-token", guard.Meta{Public: true})
	table.Register(http.MethodGet, "/api/v1/auth/account", guard.Meta{})
	table.Register(http.MethodPost, "/api/v1/auth/sign-out", guard.Meta{})
	g := guard.New(table, tokens, roles, logger)

	r := chi.NewRouter()
	r.Use(g.Middleware)
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", handler.Routes())
	})

	return &testApp{router: r, users: users, roles: roles}
}

func (a *testApp) do(t *testing.T, method, path, body string, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

const signUpBody = `{"name":"Jane","email":"jane@example.com","password":"s3cret-pass","age":30,"gender":"FEMALE","address":"Hanoi"}`
const signInBody = `{"email":"jane@example.com","password":"s3cret-pass"}`

func TestSignUpEndpoint(t *testing.T) {
	app := newTestApp()

	rec := app.do(t, http.MethodPost, "/api/v1/auth/sign-up", signUpBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result struct {
		ID        string `json:"id"`
		CreatedAt string `json:"createdAt"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.NotEmpty(t, result.ID)
	assert.NotEmpty(t, result.CreatedAt)

	// second registration with the same email fails
	rec = app.do(t, http.MethodPost, "/api/v1/auth/sign-up", signUpBody, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Email already exists", env.Error.Message)
}

func TestSignUpValidation(t *testing.T) {
	app := newTestApp()

	rec := app.do(t, http.MethodPost, "/api/v1/auth/sign-up", `{"name":"Jane","email":"not-an-email","password":"s3cret-pass"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/auth/sign-up", `{"name":"Jane","email":"jane@example.com","password":"s3cret-pass","extra":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignInEndpoint(t *testing.T) {
	app := newTestApp()
	app.do(t, http.MethodPost, "/api/v1/auth/sign-up", signUpBody, nil)

	rec := app.do(t, http.MethodPost, "/api/v1/auth/sign-in", signInBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID          string `json:"id"`
			Email       string `json:"email"`
			Permissions []struct {
				Method  string `json:"method"`
				APIPath string `json:"apiPath"`
			} `json:"permissions"`
		} `json:"user"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "jane@example.com", result.User.Email)
	require.Len(t, result.User.Permissions, 1)
	assert.Equal(t, "/api/v1/jobs", result.User.Permissions[0].APIPath)

	cookie := refreshCookie(rec)
	require.NotNil(t, cookie, "sign-in must set the refresh cookie")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int((168 * 3600)), cookie.MaxAge)
	assert.NotEmpty(t, cookie.Value)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	app := newTestApp()
	app.do(t, http.MethodPost, "/api/v1/auth/sign-up", signUpBody, nil)

	rec := app.do(t, http.MethodPost, "/api/v1/auth/sign-in", `{"email":"jane@example.com","password":"wrong-pass"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/auth/sign-in", `{"email":"nobody@example.com","password":"s3cret-pass"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshTokenEndpointRotatesCookie(t *testing.T) {
	app := newTestApp()
	app.do(t, http.MethodPost, "/api/v1/auth/sign-up", signUpBody, nil)

	signIn := app.do(t, http.MethodPost, "/api/v1/auth/sign-in", signInBody, nil)
	first := refreshCookie(signIn)
	require.NotNil(t, first)

	// refresh with the first cookie rotates the slot
	refreshed := app.do(t, http.MethodGet, "/api/v1/auth/refresh-token", "", func(r *http.Request) {
		r.AddCookie(first)
	})
	require.Equal(t, http.StatusOK, refreshed.Code)
	second := refreshCookie(refreshed)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	// the rotated-out cookie is dead
	replayed := app.do(t, http.MethodGet, "/api/v1/auth/refresh-token", "", func(r *http.Request) {
		r.AddCookie(first)
	})
	require.Equal(t, http.StatusBadRequest, replayed.Code)
	env := decodeEnvelope(t, replayed)
	require.NotNil(t, env.Error)
	assert.Equal(t, "expired refresh token, sign in again", env.Error.Message)
}

func TestRefreshTokenWithoutCookie(t *testing.T) {
	app := newTestApp()

	rec := app.do(t, http.MethodGet, "/api/v1/auth/refresh-token", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountEndpoint(t *testing.T) {
	app := newTestApp()
	app.do(t, http.MethodPost, "/api/v1/auth/sign-up", signUpBody, nil)

	// no token: the guard rejects before the handler runs
	rec := app.do(t, http.MethodGet, "/api/v1/auth/account", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	signIn := app.do(t, http.MethodPost, "/api/v1/auth/sign-in", signInBody, nil)
	var session struct {
		AccessToken string `json:"access_token"`
	}
	env := decodeEnvelope(t, signIn)
	require.NoError(t, json.Unmarshal(env.Data, &session))

	rec = app.do(t, http.MethodGet, "/api/v1/auth/account", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+session.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var account struct {
		User struct {
			Email       string `json:"email"`
			Permissions []any  `json:"permissions"`
		} `json:"user"`
	}
	env = decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Equal(t, "jane@example.com", account.User.Email)
	assert.Len(t, account.User.Permissions, 1)
}

func TestSignOutEndpoint(t *testing.T) {
	app := newTestApp()
	app.do(t, http.MethodPost, "/api/v1/auth/sign-up", signUpBody, nil)

	signIn := app.do(t, http.MethodPost, "/api/v1/auth/sign-in", signInBody, nil)
	first := refreshCookie(signIn)
	require.NotNil(t, first)

	var session struct {
		AccessToken string `json:"access_token"`
	}
	env := decodeEnvelope(t, signIn)
	require.NoError(t, json.Unmarshal(env.Data, &session))

	rec := app.do(t, http.MethodPost, "/api/v1/auth/sign-out", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+session.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := refreshCookie(rec)
	require.NotNil(t, cleared, "sign-out must delete the refresh cookie")
	assert.Less(t, cleared.MaxAge, 0)

	// the cleared session slot rejects the old cookie even before expiry
	replayed := app.do(t, http.MethodGet, "/api/v1/auth/refresh-token", "", func(r *http.Request) {
		r.AddCookie(first)
	})
	assert.Equal(t, http.StatusBadRequest, replayed.Code)
}
