package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/school_backend/internal/models"
	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) first(ctx context.Context, q *gorm.DB) (*models.User, error) {
	var user models.User
	if err := q.WithContext(ctx).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, r.DB.Where("email = ?", NormalizeEmail(email)))
}

// FindByID loads the user together with its role and the role's permissions.
func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, r.DB.Preload("RoleData.Permissions").Where("id = ?", id))
}

func (r *GormRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return r.FindByEmail(ctx, identifier)
	}
	return r.FindByID(ctx, identifier)
}

func (r *GormRepo) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *GormRepo) Create(ctx context.Context, u *models.User) error {
	u.Email = NormalizeEmail(u.Email)
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *GormRepo) update(ctx context.Context, id string, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) CompleteLogin(ctx context.Context, id, activeRole string, roles []string, roleCode *string, refreshHash string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"active_role":   activeRole,
		"roles":         models.RoleList(roles),
		"role_code":     roleCode,
		"refresh_token": refreshHash,
		"last_login_at": at,
	})
}

func (r *GormRepo) SaveOTP(ctx context.Context, id, otpHash string, expires time.Time) error {
	return r.update(ctx, id, map[string]any{
		"password_reset_otp":          otpHash,
		"password_reset_otp_expire":   expires,
		"password_reset_otp_verified": false,
	})
}

func (r *GormRepo) ClearOTP(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{
		"password_reset_otp":          "",
		"password_reset_otp_expire":   nil,
		"password_reset_otp_verified": false,
	})
}

func (r *GormRepo) MarkOTPVerified(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"password_reset_otp_verified": true})
}

func (r *GormRepo) ResetPassword(ctx context.Context, id, passwordHash, refreshHash string) error {
	return r.update(ctx, id, map[string]any{
		"password_hash":               passwordHash,
		"password_reset_otp":          "",
		"password_reset_otp_expire":   nil,
		"password_reset_otp_verified": false,
		"refresh_token":               refreshHash,
	})
}

func (r *GormRepo) SwitchRole(ctx context.Context, id, role string, roleCode *string, refreshHash string) error {
	return r.update(ctx, id, map[string]any{
		"active_role":   role,
		"role_code":     roleCode,
		"refresh_token": refreshHash,
	})
}

// RotateRefreshToken replaces the stored fingerprint only if it still equals oldHash.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, id, oldHash, newHash string) error {
	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", id, oldHash).
		Update("refresh_token", newHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRefreshToken
	}
	return nil
}

func (r *GormRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"refresh_token": ""})
}

// UpdateStatus revokes the live refresh token whenever the account leaves the active state.
func (r *GormRepo) UpdateStatus(ctx context.Context, id string, status models.Status, by string) error {
	fields := map[string]any{"status": status, "updated_by": by}
	if status != models.StatusActive {
		fields["refresh_token"] = ""
	}
	return r.update(ctx, id, fields)
}

func (r *GormRepo) SetRoles(ctx context.Context, id string, roles []string, by string) error {
	return r.update(ctx, id, map[string]any{"roles": models.RoleList(roles), "updated_by": by})
}
