package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionSweeper deletes expired sessions. The authenticator satisfies it.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// RunSweepSessions deletes every expired session once and reports how many were removed.
//
// Requirements: Database must be migrated and accessible.
func RunSweepSessions(
	ctx context.Context,
	sweeper SessionSweeper,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("sweeping expired sessions")

	removed, err := sweeper.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"removed": removed}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Removed %d expired session(s)\n", removed)
	}

	logger.Info("sweep completed", slog.Int64("removed", removed))
	return nil
}

// NewSweepScheduler builds a cron scheduler running the expiry sweep on schedule.
// Returns nil when schedule is empty. The caller starts and stops it.
// Overlapping runs are skipped and every run is bounded by timeout.
func NewSweepScheduler(
	ctx context.Context,
	schedule string,
	timeout time.Duration,
	sweeper SessionSweeper,
	logger *slog.Logger,
) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	scheduler := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	_, err := scheduler.AddFunc(schedule, func() {
		sweepOnce(ctx, timeout, sweeper, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", schedule, err)
	}

	return scheduler, nil
}

func sweepOnce(ctx context.Context, timeout time.Duration, sweeper SessionSweeper, logger *slog.Logger) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	removed, err := sweeper.SweepExpired(ctx)
	if err != nil {
		logger.Error("scheduled session sweep failed", slog.Any("error", err))
		return
	}
	logger.Info("scheduled session sweep completed", slog.Int64("removed", removed))
}
