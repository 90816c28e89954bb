package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/internal/repo/repotest"
)

func TestGormRoleRepo_SeedIsIdempotent(t *testing.T) {
	db := repotest.InitTestDB(t)
	roles := repotest.SeedCatalog(t, db)
	repotest.SeedCatalog(t, db)
	ctx := context.Background()

	perms, err := roles.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, len(models.PermissionCatalog))

	all, err := roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(models.RoleCatalog))
	assert.Equal(t, "R01", all[0].Code)

	teacher, err := roles.FindByName(ctx, models.RoleTeacher)
	require.NoError(t, err)
	assert.Len(t, teacher.Permissions, 15)
	assert.True(t, teacher.IsSystem)
	assert.True(t, teacher.HasPermission("ATTENDANCE", models.ActionUpdate))

	byID, err := roles.FindByID(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, teacher.Code, byID.Code)
}

func TestGormRoleRepo_UpsertRole_ReplacesPermissions(t *testing.T) {
	db := repotest.InitTestDB(t)
	roles := repotest.SeedCatalog(t, db)
	ctx := context.Background()

	_, err := roles.UpsertRole(ctx, models.RoleSeed{Code: "R12", Name: models.RoleITAdmin, Permissions: []string{"AUTH:LOGIN"}})
	require.NoError(t, err)

	it, err := roles.FindByName(ctx, models.RoleITAdmin)
	require.NoError(t, err)
	require.Len(t, it.Permissions, 1)
	assert.Equal(t, "AUTH:LOGIN", it.Permissions[0].Key)
}

func TestGormRoleRepo_UpsertRole_UnknownPermission(t *testing.T) {
	db := repotest.InitTestDB(t)
	roles := repotest.SeedCatalog(t, db)

	_, err := roles.UpsertRole(context.Background(), models.RoleSeed{Code: "R99", Name: "GHOST", Permissions: []string{"NOPE:READ"}})
	assert.Error(t, err)
}

func TestGormRoleRepo_NotFound(t *testing.T) {
	db := repotest.InitTestDB(t)
	roles := repo.NewGormRoleRepo(db)

	_, err := roles.FindByName(context.Background(), "GHOST")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, err = roles.FindByID(context.Background(), 999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
