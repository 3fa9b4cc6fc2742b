package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CreativeUnicorns/navsync"
)

// permanent errors never succeed on a second attempt.
var permanent = []error{
	navsync.ErrNotFound,
	navsync.ErrConflict,
	navsync.ErrUnauthorized,
	navsync.ErrForbidden,
	navsync.ErrValidation,
	navsync.ErrInvalidInput,
	navsync.ErrSerialization,
	context.Canceled,
}

// Transient reports whether err may clear up on its own: rate limits,
// transport failures, timeouts and unclassified errors.
func Transient(err error) bool {
	for _, target := range permanent {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

func messageContains(words ...string) func(error) bool {
	return func(err error) bool {
		msg := strings.ToLower(err.Error())
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
}

// NetworkPreset retries transport failures three times with backoff from 1s.
func NetworkPreset() []Option {
	return []Option{
		WithMaxAttempts(3),
		WithDelay(time.Second),
		WithBackoff(true),
		WithRetryCondition(messageContains("network", "fetch", "timeout", "transport")),
	}
}

// APIPreset retries server errors twice at a fixed 500ms.
func APIPreset() []Option {
	return []Option{
		WithMaxAttempts(2),
		WithDelay(500 * time.Millisecond),
		WithBackoff(false),
		WithRetryCondition(messageContains("500", "502", "503")),
	}
}

// FilePreset retries file I/O failures five times, backing off up to 10s.
func FilePreset() []Option {
	return []Option{
		WithMaxAttempts(5),
		WithDelay(2 * time.Second),
		WithBackoff(true),
		WithMaxDelay(10 * time.Second),
		WithRetryCondition(messageContains("file", "read", "write")),
	}
}

// DatabasePreset retries transient database failures three times from 1.5s.
func DatabasePreset() []Option {
	return []Option{
		WithMaxAttempts(3),
		WithDelay(1500 * time.Millisecond),
		WithBackoff(true),
		WithRetryCondition(messageContains("connection", "timeout", "lock")),
	}
}

// RemoteStorePreset retries transient remote store failures three times
// with backoff from 1s up to 10s.
func RemoteStorePreset() []Option {
	return []Option{
		WithMaxAttempts(3),
		WithDelay(time.Second),
		WithBackoff(true),
		WithMaxDelay(10 * time.Second),
		WithRetryCondition(Transient),
	}
}
