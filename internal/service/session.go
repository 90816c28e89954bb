package service

import "github.com/Skotchmaster/school_backend/internal/models"

type SessionRoles struct {
	Roles      []string
	ActiveRole string
}

// ResolveSessionRoles derives the role set and active role a session is issued with.
// Login, reset, role switch and refresh all go through here so they never disagree.
func ResolveSessionRoles(u *models.User) (SessionRoles, bool) {
	seen := make(map[string]struct{}, len(u.Roles))
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}

	if len(roles) == 0 {
		if u.ActiveRole == "" {
			return SessionRoles{}, false
		}
		roles = []string{u.ActiveRole}
	}

	active := roles[0]
	if _, ok := seen[u.ActiveRole]; ok {
		active = u.ActiveRole
	}
	return SessionRoles{Roles: roles, ActiveRole: active}, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
