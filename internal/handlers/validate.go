package handlers

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
)

// messages maps "field.tag" to the text a client sees; "*.tag" applies to any field.
var messages = map[string]string{
	"email.required":        "Email is required",
	"email.email":           "Please provide a valid email address",
	"password.required":     "Password is required",
	"password.min":          "Password must be at least 8 characters long",
	"password.max":          "Password must be at most 128 characters long",
	"password.password":     "Password must contain an uppercase letter, a lowercase letter and a digit",
	"otp.required":          "OTP is required",
	"otp.len":               "OTP must be exactly 6 digits",
	"otp.numeric":           "OTP must be exactly 6 digits",
	"role.required":         "Role is required",
	"role.role":             "Role is not recognised",
	"refreshToken.required": "Refresh token is required",
	"full_name.required":    "Full name is required",
	"full_name.max":         "Full name must be at most 100 characters long",
	"identifier.required":   "User identifier is required",
	"*.required":            "This field is required",
}

type Validator struct {
	v *validator.Validate
}

// NewValidator builds the request validator, with field errors keyed by their JSON names.
func NewValidator(knownRole func(string) bool) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return knownRole(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate satisfies echo.Validator.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.ErrInvalidRequest
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = message(name, fe.Tag())
	}
	return apperr.Validation(fields)
}

func message(field, tag string) string {
	if m, ok := messages[field+"."+tag]; ok {
		return m
	}
	if m, ok := messages["*."+tag]; ok {
		return m
	}
	return field + " is invalid"
}

func strongPassword(s string) bool {
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// bind decodes the body and runs validation; e-mail fields arrive trimmed and lowercased.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.ErrInvalidRequest.WithMessage("Malformed request body")
	}
	if n, ok := req.(interface{ normalize() }); ok {
		n.normalize()
	}
	return c.Validate(req)
}

func normEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
