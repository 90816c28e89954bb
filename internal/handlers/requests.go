package handlers

import "strings"

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() { r.Email = normEmail(r.Email) }

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *emailRequest) normalize() { r.Email = normEmail(r.Email) }

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

func (r *verifyOTPRequest) normalize() {
	r.Email = normEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

type resetPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128,password"`
}

func (r *resetPasswordRequest) normalize() { r.Email = normEmail(r.Email) }

type switchRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

func (r *switchRoleRequest) normalize() { r.Role = strings.ToUpper(strings.TrimSpace(r.Role)) }

type assignRoleRequest struct {
	Email    string `json:"email"     validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Role     string `json:"role"      validate:"required,role"`
}

func (r *assignRoleRequest) normalize() {
	r.Email = normEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
}

type identifierRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

func (r *identifierRequest) normalize() { r.Identifier = strings.TrimSpace(r.Identifier) }
