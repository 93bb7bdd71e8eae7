// Package apperr 定义工具与编排层共享的错误分类
// Package apperr defines the error taxonomy shared by the tool and
// orchestration layers. Callers branch on Kind instead of parsing messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is the catch-all for unexpected failures.
	KindInternal Kind = iota
	// KindValidation marks bad or missing input.
	KindValidation
	// KindUnauthorized marks an unknown or mismatched user.
	KindUnauthorized
	// KindNotFound marks an absent record. Ownership mismatches are reported
	// as not-found on purpose so task existence never leaks across users.
	KindNotFound
	// KindRateLimit marks a caller exceeding its request budget.
	KindRateLimit
	// KindUpstream marks a completion-service failure.
	KindUpstream
)

// String returns the wire name of the kind, e.g. "ValidationError".
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindUnauthorized:
		return "UnauthorizedError"
	case KindNotFound:
		return "NotFoundError"
	case KindRateLimit:
		return "RateLimitError"
	case KindUpstream:
		return "UpstreamError"
	default:
		return "InternalServerError"
	}
}

// HTTPStatus maps a kind to its HTTP response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a kinded error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates an error with an explicit kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func RateLimit(format string, args ...any) *Error {
	return New(KindRateLimit, format, args...)
}

func Upstream(format string, args ...any) *Error {
	return New(KindUpstream, format, args...)
}

func Internal(format string, args ...any) *Error {
	return New(KindInternal, format, args...)
}

// KindOf classifies any error. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the bare message for kinded errors, otherwise err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
