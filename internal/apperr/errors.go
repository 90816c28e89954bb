package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

type Kind string

const (
	KindInvalidCredentials   Kind = "InvalidCredentials"
	KindAccountInactive      Kind = "AccountInactive"
	KindUnauthorized         Kind = "Unauthorized"
	KindTokenInvalid         Kind = "TokenInvalid"
	KindTokenExpired         Kind = "TokenExpired"
	KindTokenRevoked         Kind = "TokenRevoked"
	KindRefreshTokenRequired Kind = "RefreshTokenRequired"
	KindForbidden            Kind = "Forbidden"
	KindRoleNotPermitted     Kind = "RoleNotPermitted"
	KindOTPNotVerified       Kind = "OTPNotVerified"
	KindUserNotFound         Kind = "UserNotFound"
	KindNotFound             Kind = "ResourceNotFound"
	KindValidation           Kind = "ValidationError"
	KindInvalidRequest       Kind = "InvalidRequest"
	KindMethodNotAllowed     Kind = "MethodNotAllowed"
	KindOTPExpired           Kind = "OTPExpired"
	KindInvalidOTP           Kind = "InvalidOTP"
	KindConflict             Kind = "Conflict"
	KindTooManyRequests      Kind = "TooManyRequests"
	KindEmailDeliveryFailed  Kind = "EmailDeliveryFailed"
	KindInternal             Kind = "Internal"
)

var statusByKind = map[Kind]int{
	KindInvalidCredentials:   http.StatusUnauthorized,
	KindAccountInactive:      http.StatusForbidden,
	KindUnauthorized:         http.StatusUnauthorized,
	KindTokenInvalid:         http.StatusUnauthorized,
	KindTokenExpired:         http.StatusUnauthorized,
	KindTokenRevoked:         http.StatusUnauthorized,
	KindRefreshTokenRequired: http.StatusUnauthorized,
	KindForbidden:            http.StatusForbidden,
	KindRoleNotPermitted:     http.StatusForbidden,
	KindOTPNotVerified:       http.StatusForbidden,
	KindUserNotFound:         http.StatusNotFound,
	KindNotFound:             http.StatusNotFound,
	KindValidation:           http.StatusBadRequest,
	KindInvalidRequest:       http.StatusBadRequest,
	KindMethodNotAllowed:     http.StatusMethodNotAllowed,
	KindOTPExpired:           http.StatusBadRequest,
	KindInvalidOTP:           http.StatusBadRequest,
	KindConflict:             http.StatusConflict,
	KindTooManyRequests:      http.StatusTooManyRequests,
	KindEmailDeliveryFailed:  http.StatusInternalServerError,
	KindInternal:             http.StatusInternalServerError,
}

// Error is the typed failure every service returns. Two errors are equal under
// errors.Is when their kinds match, so callers compare against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error

	stack []uintptr
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// StackTrace is empty unless the error was built by Internal or EmailDelivery.
func (e *Error) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}
	frames := runtime.CallersFrames(e.stack)
	var b strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// WithMessage copies e with a caller-specific message, keeping the kind.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func callers() []uintptr {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err, stack: callers()}
}

func EmailDelivery(err error) *Error {
	return &Error{Kind: KindEmailDeliveryFailed, Message: "Failed to send email. Please try again later", Err: err, stack: callers()}
}

func Validation(fields map[string]string) *Error {
	msgs := make([]string, 0, len(fields))
	for _, m := range fields {
		msgs = append(msgs, m)
	}
	msg := "Validation failed"
	if len(msgs) == 1 {
		msg = msgs[0]
	}
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Forbidden(msg string) *Error { return New(KindForbidden, msg) }
func NotFound(msg string) *Error  { return New(KindNotFound, msg) }

// As extracts the *Error from a chain, wrapping anything else as Internal.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

var (
	ErrInvalidCredentials   = New(KindInvalidCredentials, "Invalid email or password")
	ErrAccountInactive      = New(KindAccountInactive, "Account is not active")
	ErrUnauthorized         = New(KindUnauthorized, "Not authorized")
	ErrTokenInvalid         = New(KindTokenInvalid, "Invalid token")
	ErrTokenExpired         = New(KindTokenExpired, "Token expired")
	ErrTokenRevoked         = New(KindTokenRevoked, "Token invalid or revoked")
	ErrRefreshTokenRequired = New(KindRefreshTokenRequired, "Refresh token required")
	ErrForbidden            = New(KindForbidden, "Forbidden")
	ErrRoleNotPermitted     = New(KindRoleNotPermitted, "You are not permitted to switch to this role")
	ErrOTPNotVerified       = New(KindOTPNotVerified, "OTP not verified")
	ErrUserNotFound         = New(KindUserNotFound, "User not found")
	ErrNotFound             = New(KindNotFound, "Resource not found")
	ErrValidation           = New(KindValidation, "Validation failed")
	ErrInvalidRequest       = New(KindInvalidRequest, "Invalid request")
	ErrMethodNotAllowed     = New(KindMethodNotAllowed, "Method not allowed")
	ErrOTPExpired           = New(KindOTPExpired, "OTP has expired")
	ErrInvalidOTP           = New(KindInvalidOTP, "Invalid OTP")
	ErrConflict             = New(KindConflict, "Resource already exists")
	ErrTooManyRequests      = New(KindTooManyRequests, "Too many requests, please try again later")
	ErrEmailDeliveryFailed  = New(KindEmailDeliveryFailed, "Failed to send email")
	ErrInternal             = New(KindInternal, "Internal server error")
)
