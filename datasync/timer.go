package datasync

import (
	"context"
	"time"
)

// StartAutoSync (re)starts the periodic check when auto-sync is enabled. A
// running timer is stopped first, so at most one exists.
func (c *Coordinator) StartAutoSync() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.stopLocked()

	c.mu.Lock()
	enabled, interval := c.autoEnabled, c.interval
	c.mu.Unlock()
	if !enabled {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.stop, c.done = cancel, done
	go c.run(ctx, interval, done)
	c.cfg.logger.Debug("Auto-sync started", "interval", interval)
}

// StopAutoSync stops the periodic check and waits for the timer goroutine to
// exit. No tick fires after it returns.
func (c *Coordinator) StopAutoSync() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	c.stopLocked()
}

func (c *Coordinator) stopLocked() {
	if c.stop == nil {
		return
	}
	c.stop()
	<-c.done
	c.stop, c.done = nil, nil
	c.cfg.logger.Debug("Auto-sync stopped")
}

// SetSyncInterval changes the period, restarting the timer when auto-sync
// is enabled. Non-positive intervals are ignored.
func (c *Coordinator) SetSyncInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.interval = d
	enabled := c.autoEnabled
	c.mu.Unlock()
	if enabled {
		c.StartAutoSync()
	}
}

// ToggleAutoSync enables and starts, or disables and stops, the timer.
func (c *Coordinator) ToggleAutoSync(enabled bool) {
	c.mu.Lock()
	c.autoEnabled = enabled
	c.mu.Unlock()
	if enabled {
		c.StartAutoSync()
	} else {
		c.StopAutoSync()
	}
}

func (c *Coordinator) run(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !c.cfg.ready() || c.State() != StateIdle {
				continue
			}
			c.CheckSync(ctx)
		}
	}
}
