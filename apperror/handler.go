package apperror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/metrics"
	"github.com/CreativeUnicorns/navsync/notify"
)

// DefaultHistoryLimit bounds both the error history and the network record list.
const DefaultHistoryLimit = 100

const recentLimit = 10

// Notification durations per kind.
const (
	NetworkNotifyDuration    = 5 * time.Second
	ValidationNotifyDuration = 6 * time.Second
)

// NetworkInfo describes the request that produced a network failure.
type NetworkInfo struct {
	URL        string `json:"url,omitempty"`
	Method     string `json:"method,omitempty"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"statusText,omitempty"`
}

// NetworkRecord is a NetworkInfo stamped with the time it was handled.
type NetworkRecord struct {
	NetworkInfo
	OccurredAt time.Time `json:"occurredAt"`
}

// Reporter ships handled errors to an external service.
type Reporter interface {
	Report(ctx context.Context, e *AppError) error
}

// Stats summarizes the error history.
type Stats struct {
	Total         int          `json:"total"`
	ByCode        map[Kind]int `json:"byCode"`
	NetworkErrors int          `json:"networkErrors"`
	Recent        []AppError   `json:"recent"`
}

// ErrorLog is the full export of a Handler.
type ErrorLog struct {
	Errors        []AppError      `json:"errors"`
	NetworkErrors []NetworkRecord `json:"networkErrors"`
	Stats         Stats           `json:"stats"`
	ExportedAt    time.Time       `json:"exportedAt"`
}

type handleOptions struct {
	context string
	notify  bool
	log     bool
	report  bool
}

// HandleOption tunes a single Handle call.
type HandleOption func(*handleOptions)

// WithContext labels the error with where it happened.
func WithContext(c string) HandleOption {
	return func(o *handleOptions) {
		o.context = c
	}
}

// WithNotify toggles the user notification. Default true.
func WithNotify(enabled bool) HandleOption {
	return func(o *handleOptions) {
		o.notify = enabled
	}
}

// WithLog toggles logging. Default true.
func WithLog(enabled bool) HandleOption {
	return func(o *handleOptions) {
		o.log = enabled
	}
}

// WithReport toggles the Reporter call. Default false.
func WithReport(enabled bool) HandleOption {
	return func(o *handleOptions) {
		o.report = enabled
	}
}

// Silent disables logging and notification.
func Silent() HandleOption {
	return func(o *handleOptions) {
		o.notify = false
		o.log = false
	}
}

type config struct {
	notifier     notify.Notifier
	logger       navsync.Logger
	reporter     Reporter
	onLogout     func()
	now          func() time.Time
	historyLimit int
}

// Option configures a Handler.
type Option func(*config)

// WithNotifier sets where user-facing messages go. Defaults to notify.Discard.
func WithNotifier(n notify.Notifier) Option {
	return func(c *config) {
		c.notifier = n
	}
}

// WithLogger sets the logger used for handled errors.
func WithLogger(l navsync.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithReporter sets the sink for errors handled with WithReport(true).
func WithReporter(r Reporter) Option {
	return func(c *config) {
		c.reporter = r
	}
}

// WithLogoutHook sets fn to run after every AUTH_ERROR is dispatched,
// whether it came through Handle or HandleAuthError. fn may run more than
// once for the same failure and must be safe to repeat.
func WithLogoutHook(fn func()) Option {
	return func(c *config) {
		c.onLogout = fn
	}
}

// WithClock overrides time.Now for OccurredAt stamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithHistoryLimit overrides DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// Handler classifies and records errors. It is safe for concurrent use.
type Handler struct {
	mu       sync.Mutex
	errors   []AppError
	network  []NetworkRecord
	limit    int
	notifier notify.Notifier
	logger   navsync.Logger
	reporter Reporter
	onLogout func()
	now      func() time.Time
}

// NewHandler creates a Handler. Without options it logs through the default
// logger and discards notifications.
func NewHandler(opts ...Option) *Handler {
	cfg := &config{
		notifier:     notify.Discard{},
		logger:       navsync.NewDefaultLogger(),
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Handler{
		limit:    cfg.historyLimit,
		notifier: cfg.notifier,
		logger:   cfg.logger,
		reporter: cfg.reporter,
		onLogout: cfg.onLogout,
		now:      cfg.now,
	}
}

func resolve(opts []HandleOption) handleOptions {
	o := handleOptions{notify: true, log: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds an AppError of the given kind from err, stamped now.
func (h *Handler) New(kind Kind, err error, where string) *AppError {
	msg := KindUnknown.Title()
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &AppError{
		Kind:       kind,
		Message:    msg,
		Context:    where,
		OccurredAt: h.now(),
		Cause:      err,
	}
}

// Handle classifies err, records it and applies the side effects selected by
// opts. An *AppError is passed through unchanged. A nil err returns nil.
func (h *Handler) Handle(err error, opts ...HandleOption) *AppError {
	if err == nil {
		return nil
	}
	o := resolve(opts)
	ae, ok := err.(*AppError)
	if !ok {
		ae = h.New(Classify(err), err, o.context)
	}
	h.dispatch(ae, o)
	return ae
}

// HandleNetworkError records the request and handles err as a NETWORK_ERROR
// with the record attached under details["networkInfo"].
func (h *Handler) HandleNetworkError(err error, info NetworkInfo, opts ...HandleOption) *AppError {
	record := NetworkRecord{NetworkInfo: info, OccurredAt: h.now()}
	h.mu.Lock()
	h.network = appendBounded(h.network, record, h.limit)
	h.mu.Unlock()

	o := resolve(append([]HandleOption{WithContext("Network")}, opts...))
	if err == nil {
		err = errors.New("network request failed")
	}
	ae := h.New(KindNetwork, err, o.context)
	ae.Details = map[string]any{"networkInfo": record}
	var inner *AppError
	if errors.As(err, &inner) {
		for k, v := range inner.Details {
			if k != "networkInfo" {
				ae.Details[k] = v
			}
		}
	}
	h.dispatch(ae, o)
	return ae
}

// HandleAuthError handles err as an AUTH_ERROR and always notifies, even
// when opts ask for silence.
func (h *Handler) HandleAuthError(err error, opts ...HandleOption) *AppError {
	o := resolve(append([]HandleOption{WithContext("Authentication")}, opts...))
	o.notify = true
	if err == nil {
		err = navsync.ErrUnauthorized
	}
	ae := h.New(KindAuth, err, o.context)
	h.dispatch(ae, o)
	return ae
}

// HandleValidationError reports a list of field errors as one VALIDATION_ERROR.
func (h *Handler) HandleValidationError(fields []navsync.FieldError, opts ...HandleOption) *AppError {
	o := resolve(opts)
	ae := &AppError{
		Kind:       KindValidation,
		Message:    fmt.Sprintf("validation failed: %d error(s)", len(fields)),
		Details:    map[string]any{"validationErrors": fields},
		Context:    o.context,
		OccurredAt: h.now(),
		Cause:      navsync.ErrValidation,
	}
	h.dispatch(ae, o)
	return ae
}

func (h *Handler) dispatch(ae *AppError, o handleOptions) {
	h.mu.Lock()
	h.errors = appendBounded(h.errors, *ae, h.limit)
	h.mu.Unlock()
	metrics.ErrorsClassified.WithLabelValues(string(ae.Kind)).Inc()

	if o.log {
		h.logger.Error("Handled error", "code", ae.Kind, "message", ae.Message, "context", ae.Context)
	}
	if o.notify {
		h.notifyFor(ae)
	}
	if o.report && h.reporter != nil {
		if err := h.reporter.Report(context.Background(), ae); err != nil {
			h.logger.Warn("Failed to report error", "code", ae.Kind, "error", err)
		}
	}
	if ae.Kind == KindAuth && h.onLogout != nil {
		h.onLogout()
	}
}

func (h *Handler) notifyFor(ae *AppError) {
	title := ae.Kind.Title()
	switch ae.Kind {
	case KindNetwork:
		h.notifier.Error(title, ae.Message, notify.WithDuration(NetworkNotifyDuration))
	case KindAuth:
		h.notifier.Error(title, ae.Message, notify.WithDuration(0))
	case KindValidation:
		h.notifier.Warning(title, ae.Message, notify.WithDuration(ValidationNotifyDuration))
	default:
		h.notifier.Error(title, ae.Message)
	}
}

func appendBounded[T any](list []T, v T, limit int) []T {
	list = append(list, v)
	if len(list) > limit {
		trimmed := make([]T, limit)
		copy(trimmed, list[len(list)-limit:])
		return trimmed
	}
	return list
}

// Errors returns a copy of the history, oldest first.
func (h *Handler) Errors() []AppError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]AppError(nil), h.errors...)
}

// NetworkErrors returns a copy of the network records, oldest first.
func (h *Handler) NetworkErrors() []NetworkRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]NetworkRecord(nil), h.network...)
}

// ClearErrors empties the error history.
func (h *Handler) ClearErrors() {
	h.mu.Lock()
	h.errors = nil
	h.mu.Unlock()
}

// ClearNetworkErrors empties the network records.
func (h *Handler) ClearNetworkErrors() {
	h.mu.Lock()
	h.network = nil
	h.mu.Unlock()
}

// Stats summarizes the history.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statsLocked()
}

func (h *Handler) statsLocked() Stats {
	s := Stats{
		Total:         len(h.errors),
		ByCode:        make(map[Kind]int),
		NetworkErrors: len(h.network),
	}
	for _, e := range h.errors {
		s.ByCode[e.Kind]++
	}
	start := len(h.errors) - recentLimit
	if start < 0 {
		start = 0
	}
	s.Recent = append([]AppError{}, h.errors[start:]...)
	return s
}

// ExportLog returns the history, the network records and stats in one value.
func (h *Handler) ExportLog() ErrorLog {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ErrorLog{
		Errors:        append([]AppError{}, h.errors...),
		NetworkErrors: append([]NetworkRecord{}, h.network...),
		Stats:         h.statsLocked(),
		ExportedAt:    h.now(),
	}
}
