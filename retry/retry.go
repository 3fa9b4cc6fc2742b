// Package retry runs operations with bounded attempts and exponential backoff,
// and classifies the final failure through an apperror.Handler.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/apperror"
	"github.com/CreativeUnicorns/navsync/metrics"
	"github.com/CreativeUnicorns/navsync/notify"
)

// ErrCannotRetry is returned by Retry when the last execution cannot be retried.
var ErrCannotRetry = errors.New("cannot retry: no previous error or max attempts reached")

// Defaults applied by New.
const (
	DefaultMaxAttempts       = 3
	DefaultDelay             = time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultMaxDelay          = 30 * time.Second
)

// Operation is a unit of work run by an Engine.
type Operation func(ctx context.Context) (any, error)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Config holds the engine settings. Use the With* options to build one.
type Config struct {
	MaxAttempts       int
	Delay             time.Duration
	Backoff           bool
	BackoffMultiplier float64
	MaxDelay          time.Duration
	RetryCondition    func(err error) bool
	OnRetry           func(attempt int, err error)
	OnSuccess         func(result any, attempts int)
	OnFailure         func(err error, attempts int)

	handler    *apperror.Handler
	notifier   notify.Notifier
	logger     navsync.Logger
	sleeper    Sleeper
	handleOpts []apperror.HandleOption
}

// Option configures an Engine.
type Option func(*Config)

// WithMaxAttempts sets the total number of attempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n >= 1 {
			c.MaxAttempts = n
		}
	}
}

// WithDelay sets the base delay between attempts. Negative values are ignored.
func WithDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.Delay = d
		}
	}
}

// WithBackoff toggles exponential growth of the delay between attempts.
func WithBackoff(enabled bool) Option {
	return func(c *Config) {
		c.Backoff = enabled
	}
}

// WithBackoffMultiplier sets the growth factor. Non-positive values are ignored.
func WithBackoffMultiplier(m float64) Option {
	return func(c *Config) {
		if m > 0 {
			c.BackoffMultiplier = m
		}
	}
}

// WithMaxDelay caps a single wait. Non-positive values are ignored.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

// WithRetryCondition stops retrying as soon as fn returns false.
func WithRetryCondition(fn func(err error) bool) Option {
	return func(c *Config) {
		c.RetryCondition = fn
	}
}

// WithOnRetry runs fn before each wait with the attempt that just failed.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(c *Config) {
		c.OnRetry = fn
	}
}

// WithOnSuccess runs fn once the operation succeeds.
func WithOnSuccess(fn func(result any, attempts int)) Option {
	return func(c *Config) {
		c.OnSuccess = fn
	}
}

// WithOnFailure runs fn once every attempt has failed or retrying stopped.
func WithOnFailure(fn func(err error, attempts int)) Option {
	return func(c *Config) {
		c.OnFailure = fn
	}
}

// WithHandler sets the handler used to classify final failures.
func WithHandler(h *apperror.Handler) Option {
	return func(c *Config) {
		c.handler = h
	}
}

// WithNotifier sets where the "succeeded after N attempts" notice goes.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Config) {
		c.notifier = n
	}
}

// WithLogger sets the logger for attempt and outcome messages.
func WithLogger(l navsync.Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

// WithSleeper replaces the context-aware timer used between attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Config) {
		c.sleeper = s
	}
}

// WithHandleOptions are appended to every final-failure Handle call.
func WithHandleOptions(opts ...apperror.HandleOption) Option {
	return func(c *Config) {
		c.handleOpts = append(c.handleOpts, opts...)
	}
}

// State describes one Execute call.
type State struct {
	Attempt   int   `json:"attempt"`
	LastError error `json:"-"`
}

// Info describes what a Retry of the last execution would do.
type Info struct {
	AttemptsLeft int           `json:"attemptsLeft"`
	NextDelay    time.Duration `json:"nextDelay"`
	Progress     float64       `json:"progress"`
}

// Stats are cumulative across every Execute call since the last Reset.
type Stats struct {
	TotalAttempts int     `json:"totalAttempts"`
	SuccessCount  int     `json:"successCount"`
	FailureCount  int     `json:"failureCount"`
	SuccessRate   float64 `json:"successRate"`
}

// Engine runs operations under one retry policy. It is safe for concurrent
// use; each Execute call tracks its own State.
type Engine struct {
	cfg Config

	mu            sync.Mutex
	last          State
	totalAttempts int
	successCount  int
	failureCount  int
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	cfg := Config{
		MaxAttempts:       DefaultMaxAttempts,
		Delay:             DefaultDelay,
		Backoff:           true,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MaxDelay:          DefaultMaxDelay,
		RetryCondition:    func(error) bool { return true },
		notifier:          notify.Discard{},
		sleeper:           sleep,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = navsync.NewDefaultLogger()
	}
	if cfg.handler == nil {
		cfg.handler = apperror.NewHandler(apperror.WithLogger(cfg.logger))
	}
	if cfg.RetryCondition == nil {
		cfg.RetryCondition = func(error) bool { return true }
	}
	return &Engine{cfg: cfg}
}

// Config returns a copy of the engine settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// Handler returns the handler used for final failures.
func (e *Engine) Handler() *apperror.Handler {
	return e.cfg.handler
}

// Delay returns the wait after the n-th failed attempt (0-based):
// min(delay * multiplier^n, maxDelay) with backoff, delay otherwise.
func (e *Engine) Delay(n int) time.Duration {
	if !e.cfg.Backoff {
		return e.cfg.Delay
	}
	d := float64(e.cfg.Delay) * math.Pow(e.cfg.BackoffMultiplier, float64(n))
	if d > float64(e.cfg.MaxDelay) {
		return e.cfg.MaxDelay
	}
	return time.Duration(d)
}

// Execute runs op until it succeeds, the retry condition rejects its error,
// attempts run out or ctx is done. Final failures are returned as *apperror.AppError.
func (e *Engine) Execute(ctx context.Context, op Operation) (any, error) {
	return e.execute(ctx, op, nil)
}

// Do is the typed form of Execute.
func Do[T any](ctx context.Context, e *Engine, op func(ctx context.Context) (T, error)) (T, error) {
	v, err := e.Execute(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

func (e *Engine) execute(ctx context.Context, op Operation, extra []apperror.HandleOption) (any, error) {
	cfg := e.cfg
	var st State

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(st, cancelled(err, st.LastError), quiet(extra))
		}
		st.Attempt = attempt
		e.mu.Lock()
		e.totalAttempts++
		e.mu.Unlock()

		result, err := op(ctx)
		if err == nil {
			e.mu.Lock()
			e.successCount++
			e.last = st
			e.mu.Unlock()
			metrics.RetryAttempts.WithLabelValues("success").Inc()
			if cfg.OnSuccess != nil {
				cfg.OnSuccess(result, attempt)
			}
			if attempt > 1 {
				cfg.notifier.Success("Operation succeeded", fmt.Sprintf("Completed after %d attempts", attempt))
			}
			return result, nil
		}

		st.LastError = err
		e.mu.Lock()
		e.failureCount++
		e.mu.Unlock()

		if attempt >= cfg.MaxAttempts || !cfg.RetryCondition(err) {
			break
		}

		metrics.RetryAttempts.WithLabelValues("retry").Inc()
		wait := e.Delay(attempt - 1)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		cfg.logger.Warn("Operation failed, retrying",
			"attempt", attempt, "next_attempt", attempt+1, "delay", wait, "error", err)
		if serr := cfg.sleeper(ctx, wait); serr != nil {
			return nil, e.fail(st, cancelled(serr, err), quiet(extra))
		}
	}
	return nil, e.fail(st, st.LastError, extra)
}

// quiet keeps cancellations out of logs and notifications; they are still recorded.
func quiet(extra []apperror.HandleOption) []apperror.HandleOption {
	return append(extra[:len(extra):len(extra)], apperror.Silent())
}

func cancelled(ctxErr, last error) error {
	if last == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last error: %v)", ctxErr, last)
}

func (e *Engine) fail(st State, err error, extra []apperror.HandleOption) *apperror.AppError {
	cfg := e.cfg
	e.mu.Lock()
	e.last = st
	e.mu.Unlock()
	metrics.RetryAttempts.WithLabelValues("failure").Inc()

	if cfg.OnFailure != nil {
		cfg.OnFailure(err, st.Attempt)
	}
	opts := []apperror.HandleOption{apperror.WithContext(fmt.Sprintf("retry failed after %d attempts", st.Attempt))}
	opts = append(opts, cfg.handleOpts...)
	opts = append(opts, extra...)
	return cfg.handler.Handle(err, opts...)
}

// State returns the state of the last completed Execute call.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// CanRetry reports whether the last execution failed with attempts left and
// an error the retry condition accepts.
func (e *Engine) CanRetry() bool {
	e.mu.Lock()
	last := e.last
	e.mu.Unlock()
	return last.LastError != nil &&
		last.Attempt < e.cfg.MaxAttempts &&
		e.cfg.RetryCondition(last.LastError)
}

// RetryInfo describes the last execution relative to MaxAttempts.
func (e *Engine) RetryInfo() Info {
	e.mu.Lock()
	attempt := e.last.Attempt
	e.mu.Unlock()
	return Info{
		AttemptsLeft: e.cfg.MaxAttempts - attempt,
		NextDelay:    e.Delay(attempt),
		Progress:     float64(attempt) / float64(e.cfg.MaxAttempts),
	}
}

// Stats returns the cumulative counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{
		TotalAttempts: e.totalAttempts,
		SuccessCount:  e.successCount,
		FailureCount:  e.failureCount,
	}
	if s.TotalAttempts > 0 {
		s.SuccessRate = float64(s.SuccessCount) / float64(s.TotalAttempts)
	}
	return s
}

// Reset clears the last state and the counters.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = State{}
	e.totalAttempts = 0
	e.successCount = 0
	e.failureCount = 0
}

// Retry runs op again when CanRetry allows it.
func (e *Engine) Retry(ctx context.Context, op Operation) (any, error) {
	if !e.CanRetry() {
		return nil, ErrCannotRetry
	}
	return e.Execute(ctx, op)
}
