package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Skotchmaster/school_backend/internal/hash"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/pkg/logging"
)

type SeedResult struct {
	Permissions  int
	Roles        int
	AdminCreated bool
}

// Seeder loads the permission catalog, the system roles and the bootstrap administrator.
// Running it again updates the catalog in place and leaves an existing administrator alone.
type Seeder struct {
	Users repo.UserStore
	Roles repo.RoleStore

	AdminEmail    string
	AdminPassword string
	PasswordCost  int
}

func (s *Seeder) Run(ctx context.Context) (SeedResult, error) {
	log := logging.FromContext(ctx)
	var res SeedResult

	for _, p := range models.PermissionCatalog {
		if err := s.Roles.UpsertPermission(ctx, p); err != nil {
			return res, fmt.Errorf("seed permission %s: %w", p.Key, err)
		}
		res.Permissions++
	}
	for _, r := range models.RoleCatalog {
		if _, err := s.Roles.UpsertRole(ctx, r); err != nil {
			return res, fmt.Errorf("seed role %s: %w", r.Code, err)
		}
		res.Roles++
	}
	log.Info("catalog seeded", slog.Int("permissions", res.Permissions), slog.Int("roles", res.Roles))

	if s.AdminEmail == "" {
		log.Warn("SEED_ADMIN_EMAIL not set, skipping administrator")
		return res, nil
	}

	_, err := s.Users.FindByEmail(ctx, s.AdminEmail)
	if err == nil {
		log.Info("administrator already exists", slog.String("email", logging.RedactEmail(s.AdminEmail)))
		return res, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return res, fmt.Errorf("find administrator: %w", err)
	}

	if len(s.AdminPassword) < 8 {
		return res, fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}
	pw, err := hash.HashPassword(s.AdminPassword, s.PasswordCost)
	if err != nil {
		return res, fmt.Errorf("hash administrator password: %w", err)
	}

	code := models.CodeForRole(models.RoleAdministrator)
	admin := &models.User{
		Email:        s.AdminEmail,
		FullName:     "System Administrator",
		PasswordHash: pw,
		ActiveRole:   models.RoleAdministrator,
		Roles:        models.RoleList{models.RoleAdministrator},
		RoleCode:     &code,
		Status:       models.StatusActive,
		CreatedBy:    "seed",
	}
	if err := s.Users.Create(ctx, admin); err != nil {
		return res, fmt.Errorf("create administrator: %w", err)
	}

	res.AdminCreated = true
	log.Info("administrator created", slog.String("user_id", admin.ID))
	return res, nil
}
