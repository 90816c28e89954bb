package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/audit"
	"github.com/Skotchmaster/school_backend/internal/hash"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/notify"
	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/internal/util"
	"github.com/Skotchmaster/school_backend/pkg/logging"
)

const tempPasswordLength = 12

// UserService backs the administration endpoints.
type UserService struct {
	Users  repo.UserStore
	Roles  repo.RoleStore
	Mailer notify.Mailer
	Audit  *audit.Recorder

	PasswordCost int
}

func NewUserService(users repo.UserStore, roles repo.RoleStore, mailer notify.Mailer, rec *audit.Recorder) *UserService {
	return &UserService{Users: users, Roles: roles, Mailer: mailer, Audit: rec, PasswordCost: hash.DefaultCost}
}

type AssignRoleInput struct {
	Email    string
	FullName string
	Role     string
}

type AssignRoleResult struct {
	User    models.Projection
	Created bool
}

// AssignRole grants a role, creating the account with a temporary password when the e-mail is new.
func (s *UserService) AssignRole(ctx context.Context, actorID string, in AssignRoleInput) (AssignRoleResult, error) {
	log := logging.FromContext(ctx)

	role, err := s.Roles.FindByName(ctx, in.Role)
	if errors.Is(err, repo.ErrNotFound) {
		return AssignRoleResult{}, apperr.Validation(map[string]string{"role": "Role is not recognised"})
	}
	if err != nil {
		return AssignRoleResult{}, apperr.Internal(fmt.Errorf("find role: %w", err))
	}

	u, err := s.Users.FindByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return s.createWithRole(ctx, actorID, in, role)
	case err != nil:
		return AssignRoleResult{}, apperr.Internal(fmt.Errorf("find user: %w", err))
	}

	if u.HasRole(role.Name) {
		return AssignRoleResult{User: u.Projection()}, nil
	}

	roles := append(models.RoleList{}, u.Roles...)
	if len(roles) == 0 && u.ActiveRole != "" {
		roles = append(roles, u.ActiveRole)
	}
	if !roles.Contains(role.Name) {
		roles = append(roles, role.Name)
	}

	if err := s.Users.SetRoles(ctx, u.ID, roles, actorID); err != nil {
		return AssignRoleResult{}, apperr.Internal(fmt.Errorf("set roles: %w", err))
	}
	u.Roles = roles

	s.Audit.Record(ctx, audit.Event{Type: audit.RoleAssigned, UserID: u.ID, RequestedRole: role.Name, Reason: "by " + actorID})
	log.Info("role assigned", slog.String("user_id", u.ID), slog.String("role", role.Name))
	return AssignRoleResult{User: u.Projection()}, nil
}

func (s *UserService) createWithRole(ctx context.Context, actorID string, in AssignRoleInput, role *models.Role) (AssignRoleResult, error) {
	log := logging.FromContext(ctx)

	tmp, err := hash.GenerateTemporaryPassword(tempPasswordLength)
	if err != nil {
		return AssignRoleResult{}, apperr.Internal(fmt.Errorf("temporary password: %w", err))
	}
	pwHash, err := hash.HashPassword(tmp, s.PasswordCost)
	if err != nil {
		return AssignRoleResult{}, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	code := role.Code
	u := &models.User{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: pwHash,
		ActiveRole:   role.Name,
		Roles:        models.RoleList{role.Name},
		RoleCode:     &code,
		RoleData:     role,
		Status:       models.StatusActive,
		CreatedBy:    actorID,
		UpdatedBy:    actorID,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return AssignRoleResult{}, apperr.ErrConflict.WithMessage("A user with this email already exists")
		}
		return AssignRoleResult{}, apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	if err := s.Mailer.SendWelcomeEmail(ctx, u.Email, u.FullName, tmp); err != nil {
		log.Error("welcome email failed", slog.String("user_id", u.ID), slog.Any("error", err))
	}

	s.Audit.Record(ctx, audit.Event{Type: audit.RoleAssigned, UserID: u.ID, RequestedRole: role.Name, Reason: "account created by " + actorID})
	log.Info("user created", slog.String("user_id", u.ID), slog.String("role", role.Name))
	return AssignRoleResult{User: u.Projection(), Created: true}, nil
}

type UserPage struct {
	Items      []models.Projection `json:"items"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
}

func (s *UserService) List(ctx context.Context, page, limit int) (UserPage, error) {
	offset, limit := util.Calculate(page, limit)
	if page < 1 {
		page = 1
	}

	users, total, err := s.Users.List(ctx, offset, limit)
	if err != nil {
		return UserPage{}, apperr.Internal(fmt.Errorf("list users: %w", err))
	}

	items := make([]models.Projection, len(users))
	for i := range users {
		items[i] = users[i].Projection()
	}
	return UserPage{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: util.TotalPages(total, limit),
	}, nil
}

// Get accepts a user id or an e-mail address.
func (s *UserService) Get(ctx context.Context, identifier string) (models.Projection, error) {
	u, err := s.find(ctx, identifier)
	if err != nil {
		return models.Projection{}, err
	}
	return u.Projection(), nil
}

// Owner returns the id of the user behind a route parameter; used by the self-access guard.
func (s *UserService) Owner(ctx context.Context, id string) (string, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (s *UserService) find(ctx context.Context, identifier string) (*models.User, error) {
	u, err := s.Users.FindByIdentifier(ctx, identifier)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find user: %w", err))
	}
	return u, nil
}

func (s *UserService) Suspend(ctx context.Context, actorID, identifier string) (models.Projection, error) {
	u, err := s.find(ctx, identifier)
	if err != nil {
		return models.Projection{}, err
	}
	if u.ID == actorID {
		return models.Projection{}, apperr.Forbidden("You cannot suspend your own account")
	}
	if u.Status == models.StatusSuspended {
		return models.Projection{}, apperr.ErrInvalidRequest.WithMessage("User is already suspended")
	}
	return s.setStatus(ctx, actorID, u, models.StatusSuspended)
}

func (s *UserService) Unsuspend(ctx context.Context, actorID, identifier string) (models.Projection, error) {
	u, err := s.find(ctx, identifier)
	if err != nil {
		return models.Projection{}, err
	}
	if u.Status != models.StatusSuspended {
		return models.Projection{}, apperr.ErrInvalidRequest.WithMessage("User is not suspended")
	}
	return s.setStatus(ctx, actorID, u, models.StatusActive)
}

func (s *UserService) setStatus(ctx context.Context, actorID string, u *models.User, status models.Status) (models.Projection, error) {
	if err := s.Users.UpdateStatus(ctx, u.ID, status, actorID); err != nil {
		return models.Projection{}, apperr.Internal(fmt.Errorf("update status: %w", err))
	}
	u.Status = status
	s.Audit.Record(ctx, audit.Event{Type: audit.AccountStatusChanged, UserID: u.ID, Reason: string(status) + " by " + actorID})
	return u.Projection(), nil
}
