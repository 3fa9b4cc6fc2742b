package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CreativeUnicorns/navsync"
)

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "dial tcp: i/o" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: KindTimeout},
		{name: "unauthorized sentinel", err: fmt.Errorf("get: %w", navsync.ErrUnauthorized), want: KindAuth},
		{name: "forbidden sentinel", err: navsync.ErrForbidden, want: KindPermissionDenied},
		{name: "not found sentinel", err: fmt.Errorf("navigation.json: %w", navsync.ErrNotFound), want: KindNotFound},
		{name: "validation sentinel", err: navsync.ErrValidation, want: KindValidation},
		{name: "transport sentinel", err: navsync.ErrTransport, want: KindNetwork},
		{name: "rate limited sentinel", err: navsync.ErrRateLimited, want: KindNetwork},
		{name: "net timeout", err: timeoutErr{timeout: true}, want: KindTimeout},
		{name: "net failure", err: timeoutErr{}, want: KindNetwork},
		{name: "existing app error", err: fmt.Errorf("wrapped: %w", &AppError{Kind: KindAuth}), want: KindAuth},
		{name: "fetch text", err: errors.New("failed to fetch"), want: KindNetwork},
		{name: "401 text", err: errors.New("HTTP 401"), want: KindAuth},
		{name: "Unauthorized text", err: errors.New("Unauthorized"), want: KindAuth},
		{name: "403 text", err: errors.New("HTTP 403"), want: KindPermissionDenied},
		{name: "404 Not Found text", err: errors.New("404 Not Found"), want: KindNotFound},
		{name: "timeout text", err: errors.New("request timeout"), want: KindTimeout},
		{name: "case sensitive", err: errors.New("not found"), want: KindUnknown},
		{name: "fetch wins over 404", err: errors.New("fetch 404"), want: KindNetwork},
		{name: "unknown", err: errors.New("boom"), want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("x: %w", navsync.ErrNotFound)
	ae := &AppError{Kind: KindNotFound, Message: "x: remote file not found", Context: "navigation", Cause: cause}

	assert.Equal(t, "NOT_FOUND [navigation]: x: remote file not found", ae.Error())
	assert.ErrorIs(t, ae, navsync.ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("outer: %w", ae), &AppError{Kind: KindNotFound})
	assert.NotErrorIs(t, ae, &AppError{Kind: KindAuth})
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("outer: %w", ae)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))

	assert.Equal(t, "NETWORK_ERROR: down", (&AppError{Kind: KindNetwork, Message: "down"}).Error())
}

func TestKindTitle(t *testing.T) {
	for _, k := range Kinds {
		assert.NotEqual(t, "Error", k.Title(), k)
	}
	assert.Equal(t, "Error", Kind("OTHER").Title())
}
