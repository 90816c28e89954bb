package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Skotchmaster/school_backend/internal/models"
)

func TestResolveSessionRoles(t *testing.T) {
	cases := []struct {
		name       string
		user       models.User
		wantRoles  []string
		wantActive string
		wantOK     bool
	}{
		{
			name:       "active role held",
			user:       models.User{ActiveRole: "TEACHER", Roles: models.RoleList{"STUDENT", "TEACHER"}},
			wantRoles:  []string{"STUDENT", "TEACHER"},
			wantActive: "TEACHER",
			wantOK:     true,
		},
		{
			name:       "duplicates removed in order",
			user:       models.User{ActiveRole: "PARENT", Roles: models.RoleList{"PARENT", "TEACHER", "PARENT", ""}},
			wantRoles:  []string{"PARENT", "TEACHER"},
			wantActive: "PARENT",
			wantOK:     true,
		},
		{
			name:       "empty roles fall back to active role",
			user:       models.User{ActiveRole: "LIBRARIAN"},
			wantRoles:  []string{"LIBRARIAN"},
			wantActive: "LIBRARIAN",
			wantOK:     true,
		},
		{
			name:       "stale active role replaced by first role",
			user:       models.User{ActiveRole: "PRINCIPAL", Roles: models.RoleList{"TEACHER", "COUNSELOR"}},
			wantRoles:  []string{"TEACHER", "COUNSELOR"},
			wantActive: "TEACHER",
			wantOK:     true,
		},
		{
			name:   "no role at all",
			user:   models.User{},
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveSessionRoles(&tc.user)
			assert.Equal(t, tc.wantOK, ok)
			if !tc.wantOK {
				return
			}
			assert.Equal(t, tc.wantRoles, got.Roles)
			assert.Equal(t, tc.wantActive, got.ActiveRole)
			assert.Contains(t, got.Roles, got.ActiveRole)
		})
	}
}
