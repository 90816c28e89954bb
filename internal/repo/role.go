package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/school_backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormRoleRepo struct {
	DB *gorm.DB
}

func NewGormRoleRepo(db *gorm.DB) *GormRoleRepo {
	return &GormRoleRepo{DB: db}
}

func (r *GormRoleRepo) first(ctx context.Context, q *gorm.DB) (*models.Role, error) {
	var role models.Role
	if err := q.WithContext(ctx).Preload("Permissions").First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepo) FindByName(ctx context.Context, name string) (*models.Role, error) {
	return r.first(ctx, r.DB.Where("name = ?", name))
}

func (r *GormRoleRepo) FindByID(ctx context.Context, id uint) (*models.Role, error) {
	return r.first(ctx, r.DB.Where("id = ?", id))
}

func (r *GormRoleRepo) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.DB.WithContext(ctx).Preload("Permissions").Order("code").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *GormRoleRepo) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	if err := r.DB.WithContext(ctx).Order("id").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *GormRoleRepo) UpsertPermission(ctx context.Context, p models.Permission) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"resource", "action", "is_sensitive"}),
	}).Create(&p).Error
}

// UpsertRole creates or updates the role by code and replaces its permission set.
func (r *GormRoleRepo) UpsertRole(ctx context.Context, seed models.RoleSeed) (*models.Role, error) {
	var out models.Role
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keys := make([]any, len(seed.Permissions))
		for i, k := range seed.Permissions {
			keys[i] = k
		}
		var perms []models.Permission
		if err := tx.Where(clause.IN{Column: clause.Column{Name: "key"}, Values: keys}).Order("id").Find(&perms).Error; err != nil {
			return err
		}
		if len(perms) != len(seed.Permissions) {
			return fmt.Errorf("role %s: %d of %d permissions exist", seed.Code, len(perms), len(seed.Permissions))
		}

		var role models.Role
		err := tx.Where("code = ?", seed.Code).First(&role).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			role = models.Role{Code: seed.Code, Name: seed.Name, IsSystem: true, IsActive: true}
			if err := tx.Omit("Permissions").Create(&role).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&role).Updates(map[string]any{"name": seed.Name, "is_system": true}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
			return err
		}
		role.Permissions = perms
		out = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
