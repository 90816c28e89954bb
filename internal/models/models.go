package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionRead    Action = "READ"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionApprove Action = "APPROVE"
	ActionExport  Action = "EXPORT"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove, ActionExport:
		return true
	}
	return false
}

type Permission struct {
	ID          uint   `gorm:"primaryKey"                  json:"id"           bson:"-"`
	Key         string `gorm:"uniqueIndex;size:64;not null" json:"key"          bson:"key"`
	Resource    string `gorm:"index;size:32;not null"       json:"resource"     bson:"resource"`
	Action      Action `gorm:"size:16;not null"             json:"action"       bson:"action"`
	IsSensitive bool   `gorm:"default:false"                json:"is_sensitive" bson:"is_sensitive"`
}

type Role struct {
	ID          uint         `gorm:"primaryKey"                    json:"id"          bson:"id"`
	Code        string       `gorm:"uniqueIndex;size:8;not null"   json:"code"        bson:"code"`
	Name        string       `gorm:"uniqueIndex;size:64;not null"  json:"name"        bson:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions"    json:"permissions" bson:"permissions"`
	IsSystem    bool         `gorm:"default:false"                 json:"is_system"   bson:"is_system"`
	IsActive    bool         `gorm:"default:true"                  json:"is_active"   bson:"is_active"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
}

// HasPermission reports whether any permission of the role covers (resource, action).
func (r *Role) HasPermission(resource string, action Action) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Permissions {
		if p.Resource == resource && p.Action == action {
			return true
		}
	}
	return false
}

// RoleList is stored as a JSON array in a text column.
type RoleList []string

func (l RoleList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *RoleList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("role list: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("role list: %w", err)
	}
	*l = out
	return nil
}

func (l RoleList) Contains(role string) bool {
	for _, r := range l {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           string   `gorm:"primaryKey;size:36"              json:"user_id"     bson:"_id"`
	Email        string   `gorm:"uniqueIndex;size:254;not null"   json:"email"       bson:"email"`
	FullName     string   `gorm:"size:100;not null"               json:"full_name"   bson:"full_name"`
	PasswordHash string   `gorm:"not null"                        json:"-"           bson:"password_hash"`
	ActiveRole   string   `gorm:"size:64;not null"                json:"active_role" bson:"active_role"`
	Roles        RoleList `gorm:"type:text"                       json:"roles"       bson:"roles"`

	RoleCode *string `gorm:"size:8;index"                               json:"-"                   bson:"role_code,omitempty"`
	RoleData *Role   `gorm:"foreignKey:RoleCode;references:Code"         json:"role_data,omitempty" bson:"-"`

	PasswordResetOTP         string     `gorm:"size:64"       json:"-" bson:"password_reset_otp,omitempty"`
	PasswordResetOTPExpire   *time.Time `json:"-"             bson:"password_reset_otp_expire,omitempty"`
	PasswordResetOTPVerified bool       `gorm:"default:false" json:"-" bson:"password_reset_otp_verified"`

	RefreshToken string `gorm:"size:64" json:"-" bson:"refresh_token,omitempty"`

	Status      Status     `gorm:"size:16;not null;default:active" json:"status"        bson:"status"`
	LastLoginAt *time.Time `json:"last_login_at"                   bson:"last_login_at,omitempty"`
	CreatedBy   string     `gorm:"size:64"                         json:"created_by"    bson:"created_by"`
	UpdatedBy   string     `gorm:"size:64"                         json:"updated_by"    bson:"updated_by"`
	CreatedAt   time.Time  `json:"created_at"                      bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"                      bson:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	return nil
}

func (u *User) IsActive() bool { return u.Status == StatusActive }

func (u *User) HasRole(role string) bool { return u.Roles.Contains(role) }

// Projection is the client-facing view: no hash, OTP state or refresh token.
type Projection struct {
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	ActiveRole  string     `json:"active_role"`
	Roles       []string   `json:"roles"`
	Status      Status     `json:"status"`
	RoleData    *Role      `json:"role_data,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u *User) Projection() Projection {
	roles := []string(u.Roles)
	if roles == nil {
		roles = []string{}
	}
	return Projection{
		UserID:      u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		ActiveRole:  u.ActiveRole,
		Roles:       roles,
		Status:      u.Status,
		RoleData:    u.RoleData,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
