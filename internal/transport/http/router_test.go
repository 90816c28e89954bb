package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/school_backend/internal/audit"
	"github.com/Skotchmaster/school_backend/internal/handlers"
	"github.com/Skotchmaster/school_backend/internal/middleware/auth"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/notify"
	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/internal/repo/repotest"
	"github.com/Skotchmaster/school_backend/internal/service"
	httpserver "github.com/Skotchmaster/school_backend/internal/transport/http"
	"github.com/Skotchmaster/school_backend/pkg/authclient"
	"github.com/Skotchmaster/school_backend/pkg/middleware/metrics"
	"github.com/Skotchmaster/school_backend/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/school_backend/pkg/tokens"
)

type server struct {
	srv    *httptest.Server
	db     *gorm.DB
	client *authclient.Client
	reg    *prometheus.Registry
}

func newServer(t *testing.T, limiter *ratelimit.Limiter) *server {
	t.Helper()

	db := repotest.InitTestDB(t)
	roles := repotest.SeedCatalog(t, db)
	users := repo.NewGormRepo(db)
	reg := prometheus.NewRegistry()
	rec := audit.NewRecorder(reg)

	tok := tokens.NewService(tokens.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})

	authSvc := service.NewAuthService(users, roles, tok, notify.LogMailer{}, rec)
	authSvc.PasswordCost = bcrypt.MinCost
	userSvc := service.NewUserService(users, roles, notify.LogMailer{}, rec)
	userSvc.PasswordCost = bcrypt.MinCost

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	e := httpserver.New(logger, false, handlers.NewValidator(models.IsKnownRole), nil)
	httpserver.Register(e, &httpserver.Deps{
		Auth:          &handlers.AuthHandler{Svc: authSvc, Cookies: handlers.CookieConfig{AccessTTL: tok.AccessTTL(), RefreshTTL: tok.RefreshTTL()}},
		Users:         &handlers.UserHandler{Svc: userSvc},
		Roles:         &handlers.RoleHandler{Svc: service.NewRoleService(roles)},
		Search:        &handlers.SearchHandler{},
		Authenticator: auth.NewAuthenticator(tok, users),
		Guard:         auth.Guard{Audit: rec},
		Limiter:       limiter,
		Metrics:       metrics.NewHTTP(reg),
		Gatherer:      reg,
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &server{srv: srv, db: db, client: authclient.NewClient(srv.URL), reg: reg}
}

func (s *server) user(t *testing.T, email, active string, roles ...string) *models.User {
	t.Helper()
	return repotest.CreateUser(t, s.db, repotest.UserOpts{Email: email, Active: active, Roles: roles})
}

func (s *server) get(t *testing.T, path, token string) (int, handlers.Response) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body handlers.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var ae *authclient.APIError
	require.True(t, errors.As(err, &ae), "expected APIError, got %v", err)
	return ae.Status
}

func TestSessionLifecycle(t *testing.T) {
	s := newServer(t, nil)
	s.user(t, "teacher@school.edu", models.RoleTeacher, models.RoleTeacher, models.RoleCounselor)
	ctx := context.Background()

	sess, err := s.client.Login(ctx, "teacher@school.edu", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, sess.User.ActiveRole)

	switched, err := s.client.SwitchRole(ctx, sess.AccessToken, models.RoleCounselor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCounselor, switched.User.ActiveRole)

	// switching rotated the refresh token
	_, err = s.client.RefreshTokens(ctx, sess.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))

	fresh, err := s.client.RefreshTokens(ctx, switched.RefreshToken)
	require.NoError(t, err)

	me, err := s.client.User(ctx, fresh.AccessToken, sess.User.UserID)
	require.NoError(t, err)
	assert.Equal(t, "teacher@school.edu", me.Email)

	require.NoError(t, s.client.Logout(ctx, fresh.AccessToken))
	_, err = s.client.RefreshTokens(ctx, fresh.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))
}

func TestProtectedRoutes(t *testing.T) {
	s := newServer(t, nil)
	student := s.user(t, "s1@school.edu", models.RoleStudent)
	other := s.user(t, "s2@school.edu", models.RoleStudent)
	s.user(t, "admin@school.edu", models.RoleAdministrator)
	ctx := context.Background()

	code, body := s.get(t, "/api/v1/roles", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, body.Success)
	assert.Equal(t, "Not authorized, no token", body.Message)

	code, _ = s.get(t, "/api/v1/roles", "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	st, err := s.client.Login(ctx, "s1@school.edu", "Passw0rd!")
	require.NoError(t, err)

	code, body = s.get(t, "/api/v1/roles", st.AccessToken)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Access denied. Required role ADMINISTRATOR", body.Message)

	code, _ = s.get(t, "/api/v1/users/"+student.ID, st.AccessToken)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.get(t, "/api/v1/users/"+other.ID, st.AccessToken)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.get(t, "/api/v1/users/missing", st.AccessToken)
	assert.Equal(t, http.StatusNotFound, code)

	ad, err := s.client.Login(ctx, "admin@school.edu", "Passw0rd!")
	require.NoError(t, err)

	code, body = s.get(t, "/api/v1/roles", ad.AccessToken)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body.Data, len(models.RoleCatalog))

	code, _ = s.get(t, "/api/v1/users/"+other.ID, ad.AccessToken)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.get(t, "/api/v1/permissions", ad.AccessToken)
	assert.Equal(t, http.StatusOK, code)

	// audit search is not configured in this server
	code, _ = s.get(t, "/api/v1/audit/events", ad.AccessToken)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSuspendedUserLosesAccess(t *testing.T) {
	s := newServer(t, nil)
	s.user(t, "admin@school.edu", models.RoleAdministrator)
	s.user(t, "s@school.edu", models.RoleStudent)
	ctx := context.Background()

	st, err := s.client.Login(ctx, "s@school.edu", "Passw0rd!")
	require.NoError(t, err)
	ad, err := s.client.Login(ctx, "admin@school.edu", "Passw0rd!")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPatch, s.srv.URL+"/api/v1/administration/users/suspend", strings.NewReader(`{"identifier":"s@school.edu"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ad.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = s.client.User(ctx, st.AccessToken, st.User.UserID)
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))

	_, err = s.client.RefreshTokens(ctx, st.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))

	_, err = s.client.Login(ctx, "s@school.edu", "Passw0rd!")
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))
}

func TestLoginRateLimited(t *testing.T) {
	s := newServer(t, ratelimit.New(0.001, 2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.client.Login(ctx, "nobody@school.edu", "Passw0rd!")
		assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))
	}
	_, err := s.client.Login(ctx, "nobody@school.edu", "Passw0rd!")
	var ae *authclient.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusTooManyRequests, ae.Status)
	assert.Equal(t, "Too many requests, please try again later", ae.Message)

	// refresh is not behind the limiter
	_, err = s.client.RefreshTokens(ctx, "")
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))
}

func TestValidationEnvelope(t *testing.T) {
	s := newServer(t, nil)

	_, err := s.client.Login(context.Background(), "not-an-email", "")
	var ae *authclient.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "Please provide a valid email address", ae.Fields["email"])
	assert.Equal(t, "Password is required", ae.Fields["password"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, nil)

	resp, err := http.Get(s.srv.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, _ = s.client.Login(context.Background(), "nobody@school.edu", "Passw0rd!")

	resp, err = http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(out), "auth_security_events_total")
	assert.Contains(t, string(out), `type="login_failed"`)
}

func TestUnknownRoute(t *testing.T) {
	s := newServer(t, nil)

	code, body := s.get(t, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, body.Success)
}

func TestWrongMethod(t *testing.T) {
	s := newServer(t, nil)

	resp, err := http.Post(s.srv.URL+"/health/live", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var body handlers.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
}
