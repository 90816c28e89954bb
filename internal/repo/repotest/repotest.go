// Package repotest provides in-memory sqlite stores for tests.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/repo"
)

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	// every pooled connection to ":memory:" would otherwise see its own empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

// SeedCatalog loads the full permission catalog and the twelve system roles.
func SeedCatalog(t *testing.T, db *gorm.DB) *repo.GormRoleRepo {
	t.Helper()

	ctx := context.Background()
	roles := repo.NewGormRoleRepo(db)
	for _, p := range models.PermissionCatalog {
		if err := roles.UpsertPermission(ctx, p); err != nil {
			t.Fatalf("seed permission %s: %v", p.Key, err)
		}
	}
	for _, r := range models.RoleCatalog {
		if _, err := roles.UpsertRole(ctx, r); err != nil {
			t.Fatalf("seed role %s: %v", r.Name, err)
		}
	}
	return roles
}

type UserOpts struct {
	Email    string
	Password string
	FullName string
	Active   string
	Roles    []string
	Status   models.Status
}

// CreateUser inserts a user with a cheap bcrypt hash; role_data follows the active role.
func CreateUser(t *testing.T, db *gorm.DB, o UserOpts) *models.User {
	t.Helper()

	if o.Password == "" {
		o.Password = "Passw0rd!"
	}
	if o.FullName == "" {
		o.FullName = "Test User"
	}
	if o.Status == "" {
		o.Status = models.StatusActive
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	u := &models.User{
		Email:        o.Email,
		FullName:     o.FullName,
		PasswordHash: string(hash),
		ActiveRole:   o.Active,
		Roles:        models.RoleList(o.Roles),
		Status:       o.Status,
	}
	if code := models.CodeForRole(o.Active); code != "" {
		u.RoleCode = &code
	}
	if err := repo.NewGormRepo(db).Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", o.Email, err)
	}
	return u
}
