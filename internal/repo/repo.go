package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/school_backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("repo: not found")
	ErrConflict          = errors.New("repo: already exists")
	ErrStaleRefreshToken = errors.New("repo: refresh token superseded")
)

// UserStore is the credential store. Every mutating method is a single write.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	List(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	Create(ctx context.Context, u *models.User) error

	CompleteLogin(ctx context.Context, id, activeRole string, roles []string, roleCode *string, refreshHash string, at time.Time) error
	SaveOTP(ctx context.Context, id, otpHash string, expires time.Time) error
	ClearOTP(ctx context.Context, id string) error
	MarkOTPVerified(ctx context.Context, id string) error
	ResetPassword(ctx context.Context, id, passwordHash, refreshHash string) error
	SwitchRole(ctx context.Context, id, role string, roleCode *string, refreshHash string) error
	RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error
	ClearRefreshToken(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.Status, by string) error
	SetRoles(ctx context.Context, id string, roles []string, by string) error
}

type RoleStore interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	FindByID(ctx context.Context, id uint) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	UpsertPermission(ctx context.Context, p models.Permission) error
	UpsertRole(ctx context.Context, seed models.RoleSeed) (*models.Role, error)
}

// NormalizeEmail is applied before every e-mail lookup and insert.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Migrate creates the credential tables; roles must exist before users reference them.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&models.Permission{}, &models.Role{}, &models.User{})
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
