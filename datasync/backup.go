package datasync

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/CreativeUnicorns/navsync"
	"github.com/CreativeUnicorns/navsync/apperror"
	"github.com/CreativeUnicorns/navsync/encryption"
	"github.com/CreativeUnicorns/navsync/metrics"
	"github.com/CreativeUnicorns/navsync/retry"
)

const (
	// BackupPrefix starts every backup key; the rest is unix milliseconds.
	BackupPrefix = "backup_"
	// MaxBackups is how many local backups are kept by default.
	MaxBackups = 5
)

// BackupInfo describes a stored backup without decoding it.
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Size      int       `json:"size"`
	Encrypted bool      `json:"encrypted"`
}

func backupTime(key string) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimPrefix(key, BackupPrefix), 10, 64)
	if err != nil || !strings.HasPrefix(key, BackupPrefix) {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// backupKeys returns backup keys oldest first. Keys without a millisecond
// suffix are ignored.
func (c *Coordinator) backupKeys(ctx context.Context) ([]string, error) {
	keys, err := c.cfg.local.Keys(ctx, BackupPrefix)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	stamps := make(map[string]int64, len(keys))
	valid := keys[:0]
	for _, k := range keys {
		if t, ok := backupTime(k); ok {
			stamps[k] = t.UnixMilli()
			valid = append(valid, k)
		}
	}
	slices.SortFunc(valid, func(a, b string) int {
		return cmp.Compare(stamps[a], stamps[b])
	})
	return valid, nil
}

// CreateBackup snapshots every collection and stores it locally under
// backup_<unix-ms>, sealed when an encrypter is configured. Only the most
// recent backups are kept. The snapshot is not atomic across collections.
func (c *Coordinator) CreateBackup(ctx context.Context) (navsync.Snapshot, error) {
	var key string
	snap, err := retry.Do(ctx, c.cfg.retry, func(ctx context.Context) (navsync.Snapshot, error) {
		snap, err := c.source.Snapshot(ctx)
		if err != nil {
			return snap, err
		}
		payload, err := json.Marshal(snap)
		if err != nil {
			return snap, fmt.Errorf("encode backup: %w: %v", navsync.ErrSerialization, err)
		}
		value := string(payload)
		if c.cfg.encrypter != nil {
			if value, err = c.cfg.encrypter.Encrypt(value); err != nil {
				return snap, fmt.Errorf("seal backup: %w", err)
			}
		}
		key = fmt.Sprintf("%s%d", BackupPrefix, c.cfg.now().UnixMilli())
		if err := c.cfg.local.Set(ctx, key, value); err != nil {
			return snap, fmt.Errorf("store backup: %w", err)
		}
		return snap, nil
	})
	if err != nil {
		c.cfg.logger.Error("Backup failed", "error", err)
		c.cfg.notifier.Error("Backup failed", err.Error())
		return navsync.Snapshot{}, err
	}
	metrics.BackupsCreated.Inc()
	c.prune(ctx)
	c.cfg.logger.Info("Backup created", "key", key)
	c.cfg.notifier.Success("Backup created", "Data backed up locally")
	return snap, nil
}

// prune deletes all but the newest maxBackups backups. Failures are logged.
func (c *Coordinator) prune(ctx context.Context) {
	keys, err := c.backupKeys(ctx)
	if err != nil {
		c.cfg.logger.Warn("Failed to prune backups", "error", err)
		return
	}
	if len(keys) <= c.cfg.maxBackups {
		return
	}
	for _, k := range keys[:len(keys)-c.cfg.maxBackups] {
		if err := c.cfg.local.Delete(ctx, k); err != nil && !errors.Is(err, navsync.ErrKeyNotFound) {
			c.cfg.logger.Warn("Failed to delete old backup", "key", k, "error", err)
		}
	}
}

// ListLocalBackups returns the stored backups, oldest first.
func (c *Coordinator) ListLocalBackups(ctx context.Context) ([]BackupInfo, error) {
	keys, err := c.backupKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BackupInfo, 0, len(keys))
	for _, k := range keys {
		value, err := c.cfg.local.Get(ctx, k)
		if errors.Is(err, navsync.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read backup %s: %w", k, err)
		}
		ts, _ := backupTime(k)
		out = append(out, BackupInfo{
			Key:       k,
			Timestamp: ts,
			Size:      len(value),
			Encrypted: encryption.IsSealed(value),
		})
	}
	return out, nil
}

// RestoreLocalBackup writes the backup stored under key back to the remote
// store and then forces a full sync. Collections are written independently;
// a failure part way leaves the others restored.
func (c *Coordinator) RestoreLocalBackup(ctx context.Context, key string) error {
	value, err := c.cfg.local.Get(ctx, key)
	if errors.Is(err, navsync.ErrKeyNotFound) {
		nf := c.cfg.handler.New(apperror.KindNotFound, fmt.Errorf("%w: %s", ErrBackupNotFound, key), "Restore backup")
		return c.cfg.handler.Handle(nf)
	}
	if err != nil {
		return c.cfg.handler.Handle(fmt.Errorf("read backup %s: %w", key, err), apperror.WithContext("Restore backup"))
	}

	snap, err := c.decodeBackup(value)
	if err != nil {
		return c.cfg.handler.Handle(err, apperror.WithContext("Restore backup"))
	}
	if err := c.source.Restore(ctx, snap); err != nil {
		return c.cfg.handler.Handle(err, apperror.WithContext("Restore backup"))
	}
	c.cfg.logger.Info("Backup restored", "key", key)
	if err := c.ForceSync(ctx); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			return c.cfg.handler.Handle(err, apperror.WithContext("Restore backup"))
		}
		return err
	}
	return nil
}

func (c *Coordinator) decodeBackup(value string) (navsync.Snapshot, error) {
	var snap navsync.Snapshot
	if encryption.IsSealed(value) {
		if c.cfg.encrypter == nil {
			return snap, fmt.Errorf("backup is encrypted and no key is configured: %w", navsync.ErrInvalidInput)
		}
		plain, err := c.cfg.encrypter.Decrypt(value)
		if err != nil {
			return snap, fmt.Errorf("open backup: %w", err)
		}
		value = plain
	}
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		return snap, fmt.Errorf("decode backup: %w: %v", navsync.ErrSerialization, err)
	}
	return snap, nil
}
