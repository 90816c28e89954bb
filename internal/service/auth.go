package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/audit"
	"github.com/Skotchmaster/school_backend/internal/hash"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/notify"
	"github.com/Skotchmaster/school_backend/internal/otp"
	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/pkg/logging"
	"github.com/Skotchmaster/school_backend/pkg/tokens"
)

var errNoRole = apperr.Forbidden("No role assigned to this account")

// Session is what a successful login, reset, switch or refresh hands back to the client.
type Session struct {
	User   models.Projection
	Tokens tokens.Pair
}

type AuthService struct {
	Users  repo.UserStore
	Roles  repo.RoleStore
	Tokens *tokens.Service
	Mailer notify.Mailer
	Audit  *audit.Recorder

	OTPTTL       time.Duration
	PasswordCost int
	Now          func() time.Time
	GenerateOTP  func() (string, error)
}

func NewAuthService(users repo.UserStore, roles repo.RoleStore, tok *tokens.Service, mailer notify.Mailer, rec *audit.Recorder) *AuthService {
	return &AuthService{
		Users:        users,
		Roles:        roles,
		Tokens:       tok,
		Mailer:       mailer,
		Audit:        rec,
		OTPTTL:       otp.DefaultTTL,
		PasswordCost: hash.DefaultCost,
		Now:          time.Now,
		GenerateOTP:  otp.Generate,
	}
}

func (s *AuthService) now() time.Time { return s.Now().UTC() }

// roleFor loads the role record backing name; a role missing from the catalog yields nil.
func (s *AuthService) roleFor(ctx context.Context, name string) (*models.Role, *string, error) {
	role, err := s.Roles.FindByName(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperr.Internal(fmt.Errorf("find role %s: %w", name, err))
	}
	code := role.Code
	return role, &code, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	log := logging.FromContext(ctx)

	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		hash.CompareDummy(password, s.PasswordCost)
		s.Audit.Record(ctx, audit.Event{Type: audit.LoginFailed, Outcome: audit.OutcomeFailure, Email: email, Reason: "unknown email"})
		return Session{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	if !hash.CheckPassword(u.PasswordHash, password) {
		s.Audit.Record(ctx, audit.Event{Type: audit.LoginFailed, Outcome: audit.OutcomeFailure, UserID: u.ID, Email: email, Reason: "password mismatch"})
		return Session{}, apperr.ErrInvalidCredentials
	}

	if !u.IsActive() {
		s.Audit.Record(ctx, audit.Event{Type: audit.LoginFailed, Outcome: audit.OutcomeDenied, UserID: u.ID, Reason: "account " + string(u.Status)})
		return Session{}, apperr.ErrAccountInactive
	}

	sr, ok := ResolveSessionRoles(u)
	if !ok {
		log.Warn("login without any role", slog.String("user_id", u.ID))
		return Session{}, errNoRole
	}

	role, code, err := s.roleFor(ctx, sr.ActiveRole)
	if err != nil {
		return Session{}, err
	}

	pair, err := s.Tokens.IssuePair(u.ID, sr.ActiveRole, sr.Roles)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("issue tokens: %w", err))
	}

	now := s.now()
	if err := s.Users.CompleteLogin(ctx, u.ID, sr.ActiveRole, sr.Roles, code, tokens.Fingerprint(pair.RefreshToken), now); err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("complete login: %w", err))
	}

	u.ActiveRole, u.Roles, u.RoleCode, u.RoleData = sr.ActiveRole, models.RoleList(sr.Roles), code, role
	u.LastLoginAt = &now

	s.Audit.Record(ctx, audit.Event{Type: audit.LoginSucceeded, UserID: u.ID, Role: sr.ActiveRole})
	log.Info("user logged in", slog.String("user_id", u.ID), slog.String("role", sr.ActiveRole))
	return Session{User: u.Projection(), Tokens: pair}, nil
}

// SendPasswordResetOTP stores a fresh code and mails it; a failed delivery rolls the code back.
func (s *AuthService) SendPasswordResetOTP(ctx context.Context, email string) error {
	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.ErrUserNotFound
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	code, err := s.GenerateOTP()
	if err != nil {
		return apperr.Internal(fmt.Errorf("generate otp: %w", err))
	}

	if err := s.Users.SaveOTP(ctx, u.ID, otp.Hash(code), s.now().Add(s.OTPTTL)); err != nil {
		return apperr.Internal(fmt.Errorf("save otp: %w", err))
	}

	if err := s.Mailer.SendPasswordResetOTP(ctx, u.Email, code); err != nil {
		if cerr := s.Users.ClearOTP(ctx, u.ID); cerr != nil {
			logging.FromContext(ctx).Error("failed to roll back otp", slog.String("user_id", u.ID), slog.Any("error", cerr))
		}
		return apperr.EmailDelivery(err)
	}

	s.Audit.Record(ctx, audit.Event{Type: audit.ResetOTPRequested, UserID: u.ID})
	return nil
}

func (s *AuthService) VerifyPasswordResetOTP(ctx context.Context, email, code string) error {
	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.ErrInvalidRequest
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	if u.PasswordResetOTP == "" {
		return apperr.ErrInvalidRequest.WithMessage("No password reset was requested")
	}
	if otp.Expired(u.PasswordResetOTPExpire, s.now()) {
		s.Audit.Record(ctx, audit.Event{Type: audit.ResetOTPRejected, Outcome: audit.OutcomeFailure, UserID: u.ID, Reason: "expired"})
		return apperr.ErrOTPExpired
	}
	if !otp.Matches(code, u.PasswordResetOTP) {
		s.Audit.Record(ctx, audit.Event{Type: audit.ResetOTPRejected, Outcome: audit.OutcomeFailure, UserID: u.ID, Reason: "mismatch"})
		return apperr.ErrInvalidOTP
	}

	if err := s.Users.MarkOTPVerified(ctx, u.ID); err != nil {
		return apperr.Internal(fmt.Errorf("mark otp verified: %w", err))
	}
	s.Audit.Record(ctx, audit.Event{Type: audit.ResetOTPVerified, UserID: u.ID})
	return nil
}

// ResetPasswordAfterOTP sets the new password and signs the user in with one write.
func (s *AuthService) ResetPasswordAfterOTP(ctx context.Context, email, newPassword string) (Session, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return Session{}, apperr.ErrInvalidRequest
	}
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	if !u.PasswordResetOTPVerified {
		return Session{}, apperr.ErrOTPNotVerified
	}
	if otp.Expired(u.PasswordResetOTPExpire, s.now()) {
		return Session{}, apperr.ErrOTPExpired
	}
	if !u.IsActive() {
		return Session{}, apperr.ErrAccountInactive
	}

	sr, ok := ResolveSessionRoles(u)
	if !ok {
		return Session{}, errNoRole
	}
	role, code, err := s.roleFor(ctx, sr.ActiveRole)
	if err != nil {
		return Session{}, err
	}

	pwHash, err := hash.HashPassword(newPassword, s.PasswordCost)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	pair, err := s.Tokens.IssuePair(u.ID, sr.ActiveRole, sr.Roles)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("issue tokens: %w", err))
	}

	if err := s.Users.ResetPassword(ctx, u.ID, pwHash, tokens.Fingerprint(pair.RefreshToken)); err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("reset password: %w", err))
	}

	u.ActiveRole, u.Roles, u.RoleCode, u.RoleData = sr.ActiveRole, models.RoleList(sr.Roles), code, role
	s.Audit.Record(ctx, audit.Event{Type: audit.PasswordReset, UserID: u.ID, Role: sr.ActiveRole})
	return Session{User: u.Projection(), Tokens: pair}, nil
}

func (s *AuthService) SwitchRole(ctx context.Context, userID, requested string) (Session, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return Session{}, apperr.ErrUserNotFound
	}
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	sr, ok := ResolveSessionRoles(u)
	if !ok || !contains(sr.Roles, requested) {
		logging.FromContext(ctx).Warn("role switch denied",
			slog.String("user_id", u.ID),
			slog.String("role", u.ActiveRole),
			slog.String("requested_role", requested),
		)
		s.Audit.Record(ctx, audit.Event{
			Type: audit.RoleSwitchDenied, Outcome: audit.OutcomeDenied,
			UserID: u.ID, Role: u.ActiveRole, RequestedRole: requested, Reason: "role not held",
		})
		return Session{}, apperr.ErrRoleNotPermitted
	}

	role, code, err := s.roleFor(ctx, requested)
	if err != nil {
		return Session{}, err
	}

	pair, err := s.Tokens.IssuePair(u.ID, requested, sr.Roles)
	if err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("issue tokens: %w", err))
	}
	if err := s.Users.SwitchRole(ctx, u.ID, requested, code, tokens.Fingerprint(pair.RefreshToken)); err != nil {
		return Session{}, apperr.Internal(fmt.Errorf("switch role: %w", err))
	}

	previous := u.ActiveRole
	u.ActiveRole, u.Roles, u.RoleCode, u.RoleData = requested, models.RoleList(sr.Roles), code, role
	s.Audit.Record(ctx, audit.Event{Type: audit.RoleSwitched, UserID: u.ID, Role: previous, RequestedRole: requested})
	return Session{User: u.Projection(), Tokens: pair}, nil
}

// RefreshToken rotates a refresh token. Each token is accepted once; replaying an old one fails.
func (s *AuthService) RefreshToken(ctx context.Context, token string) (tokens.Pair, error) {
	if token == "" {
		return tokens.Pair{}, apperr.ErrRefreshTokenRequired
	}

	claims, err := s.Tokens.VerifyRefresh(token)
	if errors.Is(err, tokens.ErrTokenExpired) {
		return tokens.Pair{}, apperr.ErrTokenExpired
	}
	if err != nil {
		return tokens.Pair{}, apperr.ErrTokenInvalid
	}

	u, err := s.Users.FindByID(ctx, claims.Subject)
	if errors.Is(err, repo.ErrNotFound) {
		return tokens.Pair{}, apperr.ErrTokenRevoked
	}
	if err != nil {
		return tokens.Pair{}, apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	presented := tokens.Fingerprint(token)
	if u.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(u.RefreshToken), []byte(presented)) != 1 {
		s.Audit.Record(ctx, audit.Event{Type: audit.RefreshRejected, Outcome: audit.OutcomeDenied, UserID: u.ID, Reason: "not the current token"})
		return tokens.Pair{}, apperr.ErrTokenRevoked
	}
	if !u.IsActive() {
		return tokens.Pair{}, apperr.ErrAccountInactive
	}

	sr, ok := ResolveSessionRoles(u)
	if !ok {
		return tokens.Pair{}, errNoRole
	}

	pair, err := s.Tokens.IssuePair(u.ID, sr.ActiveRole, sr.Roles)
	if err != nil {
		return tokens.Pair{}, apperr.Internal(fmt.Errorf("issue tokens: %w", err))
	}

	err = s.Users.RotateRefreshToken(ctx, u.ID, presented, tokens.Fingerprint(pair.RefreshToken))
	if errors.Is(err, repo.ErrStaleRefreshToken) {
		s.Audit.Record(ctx, audit.Event{Type: audit.RefreshRejected, Outcome: audit.OutcomeDenied, UserID: u.ID, Reason: "concurrent rotation"})
		return tokens.Pair{}, apperr.ErrTokenRevoked
	}
	if err != nil {
		return tokens.Pair{}, apperr.Internal(fmt.Errorf("rotate refresh token: %w", err))
	}

	s.Audit.Record(ctx, audit.Event{Type: audit.TokenRefreshed, UserID: u.ID, Role: sr.ActiveRole})
	return pair, nil
}

// Logout revokes the stored refresh token. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	err := s.Users.ClearRefreshToken(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return apperr.Internal(fmt.Errorf("clear refresh token: %w", err))
	}
	s.Audit.Record(ctx, audit.Event{Type: audit.LoggedOut, UserID: userID})
	return nil
}
