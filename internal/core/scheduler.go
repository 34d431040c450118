package core

// scheduler.go polls a drop directory for new exports.
//
// Measurement PCs copy their exports into a shared directory; the scheduler
// runs IngestDir on it periodically. It is long-running and context-aware
// for graceful shutdown, and logs failures without stopping.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DirScheduleConfig holds configuration for the directory scheduler.
type DirScheduleConfig struct {
	Dir           string        // Drop directory to scan
	CheckInterval time.Duration // How often to scan (default: 1m)
}

// StartDirScheduler scans cfg.Dir immediately, then every CheckInterval,
// until ctx is cancelled.
func (s *Service) StartDirScheduler(ctx context.Context, cfg DirScheduleConfig) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	slog.Info("directory scheduler started", "dir", cfg.Dir, "interval", cfg.CheckInterval)

	s.runDirJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("directory scheduler stopped")
			return
		case <-ticker.C:
			s.runDirJob(ctx, cfg)
		}
	}
}

// runDirJob performs one scan.
func (s *Service) runDirJob(ctx context.Context, cfg DirScheduleConfig) {
	slog.Debug("directory scan started", "dir", cfg.Dir)

	res, err := s.IngestDir(ctx, cfg.Dir)
	switch {
	case errors.Is(err, ErrPipelineLocked):
		slog.Info("directory scan skipped, another worker holds the lock", "dir", cfg.Dir)
		return
	case err != nil:
		slog.Error("directory scan failed", "dir", cfg.Dir, "error", err)
		return
	}

	for _, f := range res.Failed() {
		slog.Warn("file left in drop directory",
			"file", f.FileName,
			"code", MapError(f.Err).Code,
			"error", f.Err,
		)
	}
}
