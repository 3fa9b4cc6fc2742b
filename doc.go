// Package navsync provides a resilient data-access layer for content kept in a
// remote, versioned file store.
//
// The root package holds the domain types shared by every subpackage, the
// interfaces for the remote store and local persistence, sentinel errors and
// the default logger. The moving parts live in subpackages: cache (bounded TTL
// cache), apperror (error classification and history), retry (retry/backoff
// engine), notify (notification center), content (collection repository) and
// datasync (periodic reconciliation, backups).
package navsync
