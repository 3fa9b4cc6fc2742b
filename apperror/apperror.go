// Package apperror classifies failures into a small taxonomy, keeps a bounded
// history of them and fans them out to logs, notifications and a reporter.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/CreativeUnicorns/navsync"
)

// Kind is the classified category of an error.
type Kind string

const (
	KindNetwork          Kind = "NETWORK_ERROR"
	KindAuth             Kind = "AUTH_ERROR"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindNotFound         Kind = "NOT_FOUND"
	KindTimeout          Kind = "TIMEOUT_ERROR"
	KindValidation       Kind = "VALIDATION_ERROR"
	KindUnknown          Kind = "UNKNOWN_ERROR"
)

// Kinds lists every kind in classification order.
var Kinds = []Kind{
	KindNetwork, KindAuth, KindPermissionDenied, KindNotFound,
	KindTimeout, KindValidation, KindUnknown,
}

// Title returns the short human-readable heading used in notifications.
func (k Kind) Title() string {
	switch k {
	case KindNetwork:
		return "Network error"
	case KindAuth:
		return "Authentication error"
	case KindPermissionDenied:
		return "Permission denied"
	case KindNotFound:
		return "Resource not found"
	case KindTimeout:
		return "Request timed out"
	case KindValidation:
		return "Validation error"
	case KindUnknown:
		return "Unknown error"
	default:
		return "Error"
	}
}

// AppError is a classified error. Values recorded in a Handler are never
// mutated afterwards.
type AppError struct {
	Kind       Kind           `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Context    string         `json:"context,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Context, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError of the same kind, so errors.Is(err, &AppError{Kind: KindNotFound}) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// KindOf returns the kind of the first *AppError in err's chain, or
// KindUnknown when there is none.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Classify maps err to a Kind. Typed failures are checked first; the error
// text is only inspected when nothing in the chain is recognized.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, navsync.ErrUnauthorized):
		return KindAuth
	case errors.Is(err, navsync.ErrForbidden):
		return KindPermissionDenied
	case errors.Is(err, navsync.ErrNotFound):
		return KindNotFound
	case errors.Is(err, navsync.ErrValidation):
		return KindValidation
	case errors.Is(err, navsync.ErrTransport), errors.Is(err, navsync.ErrRateLimited):
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	return classifyMessage(err.Error())
}

// classifyMessage is case-sensitive; the first matching rule wins.
func classifyMessage(msg string) Kind {
	switch {
	case strings.Contains(msg, "fetch"):
		return KindNetwork
	case strings.Contains(msg, "401") || strings.Contains(msg, "Unauthorized"):
		return KindAuth
	case strings.Contains(msg, "403") || strings.Contains(msg, "Forbidden"):
		return KindPermissionDenied
	case strings.Contains(msg, "404") || strings.Contains(msg, "Not Found"):
		return KindNotFound
	case strings.Contains(msg, "timeout"):
		return KindTimeout
	default:
		return KindUnknown
	}
}
