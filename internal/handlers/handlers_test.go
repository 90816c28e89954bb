package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/audit"
	"github.com/Skotchmaster/school_backend/internal/middleware/auth"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/notify"
	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/internal/repo/repotest"
	"github.com/Skotchmaster/school_backend/internal/service"
	"github.com/Skotchmaster/school_backend/pkg/tokens"
)

type testEnv struct {
	e     *echo.Echo
	db    *gorm.DB
	users *repo.GormRepo
	auth  *AuthHandler
	admin *UserHandler
	roles *RoleHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := repotest.InitTestDB(t)
	roles := repotest.SeedCatalog(t, db)
	users := repo.NewGormRepo(db)
	rec := audit.NewRecorder(nil)

	tok := tokens.NewService(tokens.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})

	authSvc := service.NewAuthService(users, roles, tok, notify.LogMailer{}, rec)
	authSvc.PasswordCost = bcrypt.MinCost
	authSvc.GenerateOTP = func() (string, error) { return "123456", nil }

	userSvc := service.NewUserService(users, roles, notify.LogMailer{}, rec)
	userSvc.PasswordCost = bcrypt.MinCost

	e := echo.New()
	e.Validator = NewValidator(models.IsKnownRole)

	return &testEnv{
		e:     e,
		db:    db,
		users: users,
		auth:  &AuthHandler{Svc: authSvc, Cookies: CookieConfig{AccessTTL: tok.AccessTTL(), RefreshTTL: tok.RefreshTTL()}},
		admin: &UserHandler{Svc: userSvc},
		roles: &RoleHandler{Svc: service.NewRoleService(roles)},
	}
}

func (env *testEnv) call(t *testing.T, h echo.HandlerFunc, method, target, body string, u *models.User) (*httptest.ResponseRecorder, error) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if u != nil {
		loaded, err := env.users.FindByID(context.Background(), u.ID)
		require.NoError(t, err)
		c.SetRequest(req.WithContext(auth.WithUser(req.Context(), loaded)))
	}
	return rec, h(c)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) (Response, map[string]any) {
	t.Helper()
	var raw struct {
		Response
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	return raw.Response, raw.Data
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "teacher@school.edu", Active: models.RoleTeacher, Roles: []string{models.RoleTeacher}})

	rec, err := env.call(t, env.auth.Login, http.MethodPost, "/api/v1/auth/login",
		`{"email":"  Teacher@School.EDU ","password":"Passw0rd!"}`, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	resp, data := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Login successful", resp.Message)
	assert.NotEmpty(t, data["accessToken"])
	assert.NotEmpty(t, data["refreshToken"])

	user := data["user"].(map[string]any)
	assert.Equal(t, "teacher@school.edu", user["email"])
	assert.NotContains(t, user, "password")

	access := cookie(rec, auth.AccessCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, 15*60, access.MaxAge)
	require.NotNil(t, cookie(rec, auth.RefreshCookie))
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.call(t, env.auth.Login, http.MethodPost, "/api/v1/auth/login", `{"email":"nope","password":""}`, nil)
	require.Error(t, err)

	ae := apperr.As(err)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "Please provide a valid email address", ae.Fields["email"])
	assert.Equal(t, "Password is required", ae.Fields["password"])
}

func TestLogin_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.call(t, env.auth.Login, http.MethodPost, "/api/v1/auth/login", `{"email":`, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "a@school.edu", Active: models.RoleStudent})

	rec, err := env.call(t, env.auth.Login, http.MethodPost, "/api/v1/auth/login", `{"email":"a@school.edu","password":"wrong"}`, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Nil(t, cookie(rec, auth.AccessCookie))
}

func TestRefreshToken_FromCookie(t *testing.T) {
	env := newTestEnv(t)
	repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "a@school.edu", Active: models.RoleStudent})

	rec, err := env.call(t, env.auth.Login, http.MethodPost, "/", `{"email":"a@school.edu","password":"Passw0rd!"}`, nil)
	require.NoError(t, err)
	refresh := cookie(rec, auth.RefreshCookie)
	require.NotNil(t, refresh)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: refresh.Value})
	out := httptest.NewRecorder()
	require.NoError(t, env.auth.RefreshToken(env.e.NewContext(req, out)))

	resp, data := decode(t, out)
	assert.Equal(t, "Token refreshed", resp.Message)
	assert.NotEqual(t, refresh.Value, data["refreshToken"])
	require.NotNil(t, cookie(out, auth.RefreshCookie))
	assert.Equal(t, data["refreshToken"], cookie(out, auth.RefreshCookie).Value)

	// the rotated-out token is dead
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: refresh.Value})
	err = env.auth.RefreshToken(env.e.NewContext(req, httptest.NewRecorder()))
	assert.ErrorIs(t, err, apperr.ErrTokenRevoked)
}

func TestRefreshToken_Missing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.call(t, env.auth.RefreshToken, http.MethodPost, "/", `{}`, nil)
	assert.ErrorIs(t, err, apperr.ErrRefreshTokenRequired)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "p@school.edu", Active: models.RoleParent})

	rec, err := env.call(t, env.auth.ForgotPassword, http.MethodPost, "/", `{"email":"P@school.edu"}`, nil)
	require.NoError(t, err)
	resp, _ := decode(t, rec)
	assert.Equal(t, "OTP sent to your email", resp.Message)

	_, err = env.call(t, env.auth.VerifyResetOTP, http.MethodPost, "/", `{"email":"p@school.edu","otp":"12345"}`, nil)
	require.Error(t, err)
	assert.Equal(t, "OTP must be exactly 6 digits", apperr.As(err).Fields["otp"])

	_, err = env.call(t, env.auth.VerifyResetOTP, http.MethodPost, "/", `{"email":"p@school.edu","otp":"654321"}`, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidOTP)

	_, err = env.call(t, env.auth.VerifyResetOTP, http.MethodPost, "/", `{"email":"p@school.edu","otp":"123456"}`, nil)
	require.NoError(t, err)

	_, err = env.call(t, env.auth.ResetPassword, http.MethodPut, "/", `{"email":"p@school.edu","password":"weakpassword"}`, nil)
	require.Error(t, err)
	assert.Contains(t, apperr.As(err).Fields["password"], "uppercase")

	rec, err = env.call(t, env.auth.ResetPassword, http.MethodPut, "/", `{"email":"p@school.edu","password":"N3wPassword"}`, nil)
	require.NoError(t, err)
	resp, data := decode(t, rec)
	assert.Equal(t, "Password reset successful", resp.Message)
	assert.NotEmpty(t, data["accessToken"])

	_, err = env.call(t, env.auth.Login, http.MethodPost, "/", `{"email":"p@school.edu","password":"N3wPassword"}`, nil)
	assert.NoError(t, err)
}

func TestSwitchRole(t *testing.T) {
	env := newTestEnv(t)
	u := repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "t@school.edu", Active: models.RoleTeacher, Roles: []string{models.RoleTeacher, models.RoleCounselor}})

	rec, err := env.call(t, env.auth.SwitchRole, http.MethodPost, "/", `{"role":"COUNSELOR"}`, u)
	require.NoError(t, err)
	resp, data := decode(t, rec)
	assert.Equal(t, "Role switched to COUNSELOR", resp.Message)
	assert.Equal(t, "COUNSELOR", data["user"].(map[string]any)["active_role"])

	_, err = env.call(t, env.auth.SwitchRole, http.MethodPost, "/", `{"role":"PRINCIPAL"}`, u)
	assert.ErrorIs(t, err, apperr.ErrRoleNotPermitted)

	_, err = env.call(t, env.auth.SwitchRole, http.MethodPost, "/", `{"role":"JANITOR"}`, u)
	require.Error(t, err)
	assert.Equal(t, "Role is not recognised", apperr.As(err).Fields["role"])
}

func TestLogout_ClearsCookies(t *testing.T) {
	env := newTestEnv(t)
	u := repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "a@school.edu", Active: models.RoleStudent})

	rec, err := env.call(t, env.auth.Logout, http.MethodPost, "/", "", u)
	require.NoError(t, err)

	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		c := cookie(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestAssignRole(t *testing.T) {
	env := newTestEnv(t)
	admin := repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "admin@school.edu", Active: models.RoleAdministrator})

	body := `{"email":"New@School.edu","full_name":"New Teacher","role":"TEACHER"}`
	rec, err := env.call(t, env.admin.AssignRole, http.MethodPost, "/", body, admin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, err = env.call(t, env.admin.AssignRole, http.MethodPost, "/", `{"email":"new@school.edu","full_name":"New Teacher","role":"COUNSELOR"}`, admin)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, data := decode(t, rec)
	assert.ElementsMatch(t, []any{"TEACHER", "COUNSELOR"}, data["roles"])
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	for _, e := range []string{"a@school.edu", "b@school.edu", "c@school.edu"} {
		repotest.CreateUser(t, env.db, repotest.UserOpts{Email: e, Active: models.RoleStudent})
	}

	rec, err := env.call(t, env.admin.ListUsers, http.MethodGet, "/?page=2&limit=2", "", nil)
	require.NoError(t, err)
	_, data := decode(t, rec)
	assert.EqualValues(t, 3, data["total"])
	assert.EqualValues(t, 2, data["total_pages"])
	assert.Len(t, data["items"], 1)

	_, err = env.call(t, env.admin.ListUsers, http.MethodGet, "/?page=abc", "", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSuspend(t *testing.T) {
	env := newTestEnv(t)
	admin := repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "admin@school.edu", Active: models.RoleAdministrator})
	repotest.CreateUser(t, env.db, repotest.UserOpts{Email: "s@school.edu", Active: models.RoleStudent})

	rec, err := env.call(t, env.admin.Suspend, http.MethodPatch, "/", `{"identifier":"s@school.edu"}`, admin)
	require.NoError(t, err)
	_, data := decode(t, rec)
	assert.Equal(t, "suspended", data["status"])

	_, err = env.call(t, env.admin.Suspend, http.MethodPatch, "/", `{"identifier":"s@school.edu"}`, admin)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)

	_, err = env.call(t, env.admin.Unsuspend, http.MethodPatch, "/", `{"identifier":"s@school.edu"}`, admin)
	require.NoError(t, err)

	_, err = env.call(t, env.admin.Suspend, http.MethodPatch, "/", `{}`, admin)
	require.Error(t, err)
	assert.Equal(t, "User identifier is required", apperr.As(err).Fields["identifier"])
}

func TestGetRole(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("x")
	assert.ErrorIs(t, env.roles.GetRole(c), apperr.ErrValidation)

	c = env.e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("999")
	assert.ErrorIs(t, env.roles.GetRole(c), apperr.ErrNotFound)

	rec, err := env.call(t, env.roles.ListPermissions, http.MethodGet, "/", "", nil)
	require.NoError(t, err)
	var out struct {
		Data []models.Permission `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Data, len(models.PermissionCatalog))
}

type fakeSearcher struct {
	got audit.Query
}

func (f *fakeSearcher) Search(_ context.Context, q audit.Query) (int64, []audit.Event, error) {
	f.got = q
	return 1, []audit.Event{{ID: "01J", Type: audit.LoginFailed}}, nil
}

func TestAuditEvents(t *testing.T) {
	e := echo.New()

	err := (&SearchHandler{}).Events(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	fs := &fakeSearcher{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?q=login&user_id=u1&type=login_failed&page=3&limit=10", nil)
	require.NoError(t, (&SearchHandler{Store: fs}).Events(e.NewContext(req, rec)))

	assert.Equal(t, audit.Query{Text: "login", UserID: "u1", Type: "login_failed", From: 20, Size: 10}, fs.got)
	_, data := decode(t, rec)
	assert.EqualValues(t, 1, data["total"])
	assert.EqualValues(t, 3, data["page"])
}
