// Package notify keeps a list of user-facing notifications with auto-dismiss
// timers and optionally forwards them to an external channel.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CreativeUnicorns/navsync"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// DefaultDuration is how long a notification stays listed when no duration is given.
const DefaultDuration = 4 * time.Second

// Notification is a single entry of the center.
type Notification struct {
	ID        string        `json:"id"`
	Level     Level         `json:"level"`
	Title     string        `json:"title"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration"`
	Closable  bool          `json:"closable"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Persistent reports whether the notification stays until removed.
func (n Notification) Persistent() bool {
	return n.Duration <= 0
}

// Notifier is the sink used by the error handler, the retry engine and the
// sync coordinator.
type Notifier interface {
	Success(title, message string, opts ...Option) string
	Error(title, message string, opts ...Option) string
	Warning(title, message string, opts ...Option) string
	Info(title, message string, opts ...Option) string
}

// Forwarder receives a copy of every notification added to a Center.
type Forwarder interface {
	Forward(ctx context.Context, n Notification) error
}

// Settings is the resolved form of a list of Options.
type Settings struct {
	Duration time.Duration
	Closable bool
}

// Option configures a single notification.
type Option func(*Settings)

// ApplyOptions resolves opts on top of the defaults.
func ApplyOptions(opts ...Option) Settings {
	s := Settings{Duration: DefaultDuration, Closable: true}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithDuration sets the auto-dismiss delay. Zero or a negative value keeps the
// notification until it is removed.
func WithDuration(d time.Duration) Option {
	return func(s *Settings) {
		s.Duration = d
	}
}

// WithClosable sets whether the user may dismiss the notification.
func WithClosable(closable bool) Option {
	return func(s *Settings) {
		s.Closable = closable
	}
}

type centerConfig struct {
	logger     navsync.Logger
	forwarders []Forwarder
	now        func() time.Time
}

// CenterOption configures a Center.
type CenterOption func(*centerConfig)

func WithLogger(l navsync.Logger) CenterOption {
	return func(c *centerConfig) {
		c.logger = l
	}
}

// WithForwarder adds a forwarder called asynchronously for each notification.
func WithForwarder(f Forwarder) CenterOption {
	return func(c *centerConfig) {
		c.forwarders = append(c.forwarders, f)
	}
}

func WithClock(now func() time.Time) CenterOption {
	return func(c *centerConfig) {
		c.now = now
	}
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Center is a concurrency-safe Notifier that keeps notifications in insertion order.
type Center struct {
	mu         sync.Mutex
	entries    []*entry
	logger     navsync.Logger
	forwarders []Forwarder
	now        func() time.Time
	closed     bool
	wg         sync.WaitGroup
}

// NewCenter creates an empty notification center.
func NewCenter(opts ...CenterOption) *Center {
	cfg := &centerConfig{
		logger: navsync.NewDefaultLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Center{
		logger:     cfg.logger,
		forwarders: cfg.forwarders,
		now:        cfg.now,
	}
}

func (c *Center) Success(title, message string, opts ...Option) string {
	return c.add(LevelSuccess, title, message, opts)
}

func (c *Center) Error(title, message string, opts ...Option) string {
	return c.add(LevelError, title, message, opts)
}

func (c *Center) Warning(title, message string, opts ...Option) string {
	return c.add(LevelWarning, title, message, opts)
}

func (c *Center) Info(title, message string, opts ...Option) string {
	return c.add(LevelInfo, title, message, opts)
}

func (c *Center) add(level Level, title, message string, opts []Option) string {
	s := ApplyOptions(opts...)
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		Duration:  s.Duration,
		Closable:  s.Closable,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return n.ID
	}
	e := &entry{n: n}
	if !n.Persistent() {
		id := n.ID
		e.timer = time.AfterFunc(n.Duration, func() { c.Remove(id) })
	}
	c.entries = append(c.entries, e)
	forwarders := c.forwarders
	c.wg.Add(len(forwarders))
	c.mu.Unlock()

	c.logger.Debug("Notification added", "id", n.ID, "level", level, "title", title)
	for _, f := range forwarders {
		go func(f Forwarder) {
			defer c.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := f.Forward(ctx, n); err != nil {
				c.logger.Warn("Failed to forward notification", "id", n.ID, "error", err)
			}
		}(f)
	}
	return n.ID
}

// Remove dismisses the notification with the given id. It reports whether it was listed.
func (c *Center) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.n.ID == id {
			if e.timer != nil {
				e.timer.Stop()
			}
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAll dismisses every notification.
func (c *Center) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	c.entries = nil
}

// List returns the listed notifications, oldest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.n
	}
	return out
}

// Close stops all timers and waits for pending forwards.
func (c *Center) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.ClearAll()
	c.wg.Wait()
	return nil
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Success(string, string, ...Option) string { return "" }
func (Discard) Error(string, string, ...Option) string   { return "" }
func (Discard) Warning(string, string, ...Option) string { return "" }
func (Discard) Info(string, string, ...Option) string    { return "" }
