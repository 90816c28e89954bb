package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/repo"
)

type RoleService struct {
	Roles repo.RoleStore
}

func NewRoleService(roles repo.RoleStore) *RoleService {
	return &RoleService{Roles: roles}
}

func (s *RoleService) List(ctx context.Context) ([]models.Role, error) {
	roles, err := s.Roles.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list roles: %w", err))
	}
	return roles, nil
}

func (s *RoleService) Get(ctx context.Context, id uint) (*models.Role, error) {
	role, err := s.Roles.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound("Role not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find role: %w", err))
	}
	return role, nil
}

func (s *RoleService) Permissions(ctx context.Context) ([]models.Permission, error) {
	perms, err := s.Roles.ListPermissions(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list permissions: %w", err))
	}
	return perms, nil
}
