package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/middleware/auth"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/service"
	"github.com/Skotchmaster/school_backend/pkg/logging"
	"github.com/Skotchmaster/school_backend/pkg/tokens"
)

type AuthHandler struct {
	Svc     *service.AuthService
	Cookies CookieConfig
}

type sessionData struct {
	User         models.Projection `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

type tokenData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) session(c echo.Context, s service.Session, msg string) error {
	h.Cookies.set(c, s.Tokens)
	return ok(c, sessionData{User: s.User, AccessToken: s.Tokens.AccessToken, RefreshToken: s.Tokens.RefreshToken}, msg)
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	s, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		l.Warn("login_failed", "status", apperr.As(err).Status(), "email", logging.RedactEmail(req.Email))
		return err
	}

	l.Info("login_successful", "user_id", s.User.UserID)
	return h.session(c, s, "Login successful")
}

// RefreshToken accepts the token from the body or, failing that, the refreshToken cookie.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()

	var req refreshRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return apperr.ErrInvalidRequest.WithMessage("Malformed request body")
		}
	}
	if req.RefreshToken == "" {
		if ck, err := c.Cookie(auth.RefreshCookie); err == nil {
			req.RefreshToken = ck.Value
		}
	}

	pair, err := h.Svc.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		logging.FromContext(ctx).Warn("refresh_failed", "status", apperr.As(err).Status(), "reason", apperr.As(err).Kind)
		return err
	}

	h.Cookies.set(c, pair)
	return ok(c, tokenPayload(pair), "Token refreshed")
}

func tokenPayload(p tokens.Pair) tokenData {
	return tokenData{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Svc.SendPasswordResetOTP(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return ok(c, nil, "OTP sent to your email")
}

func (h *AuthHandler) VerifyResetOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Svc.VerifyPasswordResetOTP(c.Request().Context(), req.Email, req.OTP); err != nil {
		return err
	}
	return ok(c, nil, "OTP verified successfully")
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Svc.ResetPasswordAfterOTP(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.session(c, s, "Password reset successful")
}

func (h *AuthHandler) SwitchRole(c echo.Context) error {
	u, found := auth.CurrentUser(c)
	if !found {
		return apperr.ErrUnauthorized
	}

	var req switchRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	s, err := h.Svc.SwitchRole(c.Request().Context(), u.ID, req.Role)
	if err != nil {
		return err
	}
	return h.session(c, s, "Role switched to "+s.User.ActiveRole)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if u, found := auth.CurrentUser(c); found {
		if err := h.Svc.Logout(ctx, u.ID); err != nil {
			h.Cookies.clear(c)
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
			return err
		}
	}

	h.Cookies.clear(c)
	l.Info("successful_logout")
	return ok(c, nil, "Logged out successfully")
}
