// Package fs provides periodic cleanup of the work and public directories.
package fs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RemoteCleaner expires remotely published artifacts.
type RemoteCleaner interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// Cleaner removes stale files from the local staging directories and,
// when configured, from remote storage.
type Cleaner struct {
	dirs     []string
	maxAge   time.Duration
	interval time.Duration

	remote       RemoteCleaner // nil when publishing locally
	remoteMaxAge time.Duration

	log    *slog.Logger
	stopCh chan struct{}
}

// CleanerConfig holds cleanup settings.
type CleanerConfig struct {
	Dirs         []string // work and public directories
	MaxAge       time.Duration
	Interval     time.Duration
	Remote       RemoteCleaner
	RemoteMaxAge time.Duration
}

// NewCleaner creates a Cleaner.
func NewCleaner(cfg *CleanerConfig, log *slog.Logger) *Cleaner {
	return &Cleaner{
		dirs:         cfg.Dirs,
		maxAge:       cfg.MaxAge,
		interval:     cfg.Interval,
		remote:       cfg.Remote,
		remoteMaxAge: cfg.RemoteMaxAge,
		log:          log,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the cleanup loop. It returns immediately.
func (c *Cleaner) Start(ctx context.Context) {
	if c.interval <= 0 {
		return
	}
	go c.loop(ctx)
}

// Stop terminates the cleanup loop.
func (c *Cleaner) Stop() {
	close(c.stopCh)
}

func (c *Cleaner) loop(ctx context.Context) {
	c.log.Info("starting file cleanup",
		"dirs", c.dirs,
		"max_age", c.maxAge,
		"interval", c.interval,
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			c.sweep(ctx)
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		}
	}
}

// SweepNow performs one immediate cleanup pass.
func (c *Cleaner) SweepNow(ctx context.Context) {
	c.sweep(ctx)
}

func (c *Cleaner) sweep(ctx context.Context) {
	threshold := time.Now().Add(-c.maxAge)

	for _, dir := range c.dirs {
		deleted := 0
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if info.ModTime().Before(threshold) {
				if rerr := os.Remove(path); rerr != nil {
					c.log.Warn("failed to delete stale file", "path", path, "error", rerr)
				} else {
					deleted++
				}
			}
			return nil
		})
		if err != nil {
			c.log.Error("cleanup walk failed", "dir", dir, "error", err)
		}
		if deleted > 0 {
			c.log.Info("stale files removed", "dir", dir, "deleted", deleted)
		}
	}

	if c.remote != nil && c.remoteMaxAge > 0 {
		deleted, err := c.remote.DeleteOlderThan(ctx, c.remoteMaxAge)
		if err != nil {
			c.log.Error("remote cleanup failed", "error", err)
		} else if deleted > 0 {
			c.log.Info("remote artifacts expired", "deleted", deleted)
		}
	}
}
