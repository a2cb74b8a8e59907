// Package scheduler drives the fetch-classify-dispatch cycle on a fixed
// period and performs the planned process restart.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"groupcal/internal/notify"
)

// Scheduler runs the notification cycle on a fixed cadence. A single logical
// stream drives the loop; overlapping ticks are skipped rather than queued.
type Scheduler struct {
	logger       *slog.Logger
	notifier     *notify.Notifier
	pollEvery    time.Duration
	restartEvery time.Duration

	ctx context.Context
}

// New creates a Scheduler. restartEvery <= 0 disables the planned restart.
func New(logger *slog.Logger, notifier *notify.Notifier, pollEvery, restartEvery time.Duration) *Scheduler {
	return &Scheduler{
		logger:       logger,
		notifier:     notifier,
		pollEvery:    pollEvery,
		restartEvery: restartEvery,
	}
}

// Run blocks until ctx is canceled. The first cycle fires immediately rather
// than waiting a full poll period.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.pollEvery), s.tick); err != nil {
		return fmt.Errorf("failed to schedule poll job: %w", err)
	}
	if s.restartEvery > 0 {
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.restartEvery), s.restart); err != nil {
			return fmt.Errorf("failed to schedule restart job: %w", err)
		}
	}

	s.logger.Info("Scheduler started.", "pollEvery", s.pollEvery, "restartEvery", s.restartEvery)
	s.tick()
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped.")
	return nil
}

// tick runs one cycle. A fetch failure is logged and the loop simply waits
// for the next tick; poll frequency naturally rate-limits retries.
func (s *Scheduler) tick() {
	now := time.Now().UTC()
	s.logger.Debug("Checking events.", "now", now.Format(time.RFC3339))

	report, err := s.notifier.RunOneCycle(s.ctx, now)
	if err != nil {
		s.logger.Error("Cycle failed, will retry next tick.", "error", err)
		return
	}
	if report.NotificationsEmitted > 0 {
		s.logger.Info("Cycle finished.",
			"eventsSeen", report.EventsSeen, "notificationsEmitted", report.NotificationsEmitted)
	}
}

// restart re-execs the process in place as a reliability measure. The
// persisted ledger prevents re-notification; pending deferred deletions are
// abandoned.
func (s *Scheduler) restart() {
	exe, err := os.Executable()
	if err != nil {
		s.logger.Error("Planned restart failed to resolve executable.", "error", err)
		return
	}
	s.logger.Info("Performing planned restart for reliability.")
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		s.logger.Error("Planned restart failed.", "error", err)
	}
}
