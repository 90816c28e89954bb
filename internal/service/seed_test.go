package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/school_backend/internal/hash"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/internal/repo/repotest"
)

func TestSeeder(t *testing.T) {
	db := repotest.InitTestDB(t)
	users := repo.NewGormRepo(db)
	s := &Seeder{
		Users:         users,
		Roles:         repo.NewGormRoleRepo(db),
		AdminEmail:    "Admin@School.edu",
		AdminPassword: "Adm1nPassword",
		PasswordCost:  bcrypt.MinCost,
	}
	ctx := context.Background()

	res, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Permissions: len(models.PermissionCatalog), Roles: len(models.RoleCatalog), AdminCreated: true}, res)

	admin, err := users.FindByEmail(ctx, "admin@school.edu")
	require.NoError(t, err)
	assert.True(t, hash.CheckPassword(admin.PasswordHash, "Adm1nPassword"))

	loaded, err := users.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.RoleData)
	assert.Equal(t, "R05", loaded.RoleData.Code)

	res, err = s.Run(ctx)
	require.NoError(t, err)
	assert.False(t, res.AdminCreated)
}

func TestSeeder_RejectsShortPassword(t *testing.T) {
	db := repotest.InitTestDB(t)
	s := &Seeder{Users: repo.NewGormRepo(db), Roles: repo.NewGormRoleRepo(db), AdminEmail: "a@school.edu", AdminPassword: "short"}

	_, err := s.Run(context.Background())
	assert.ErrorContains(t, err, "SEED_ADMIN_PASSWORD")
}

func TestSeeder_NoAdmin(t *testing.T) {
	db := repotest.InitTestDB(t)
	s := &Seeder{Users: repo.NewGormRepo(db), Roles: repo.NewGormRoleRepo(db)}

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.AdminCreated)
}
