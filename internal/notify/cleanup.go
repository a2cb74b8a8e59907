package notify

import (
	"context"
	"log/slog"
	"time"

	"groupcal/internal/models"
)

// Janitor owns the deferred deletion of sent notification messages. Each
// scheduled deletion runs as an independent background task; pending
// deletions are abandoned when the janitor's context is canceled (process
// restart). Deletion is best-effort cleanup, never a correctness requirement.
type Janitor struct {
	ctx    context.Context
	logger *slog.Logger
	sender Messenger
}

// NewJanitor creates a Janitor whose pending work is abandoned when ctx is
// canceled.
func NewJanitor(ctx context.Context, logger *slog.Logger, sender Messenger) *Janitor {
	return &Janitor{ctx: ctx, logger: logger, sender: sender}
}

// ScheduleDelete registers a deferred deletion of msg after the given
// retention period. It never blocks the caller. Failures (message already
// removed, destination gone) are swallowed.
func (j *Janitor) ScheduleDelete(msg models.SentMessage, after time.Duration) {
	go func() {
		timer := time.NewTimer(after)
		defer timer.Stop()

		select {
		case <-j.ctx.Done():
			return
		case <-timer.C:
		}

		if err := j.sender.Delete(j.ctx, msg); err != nil {
			j.logger.Debug("Deferred message deletion failed, ignoring.",
				"channelID", msg.ChannelID, "messageID", msg.MessageID, "error", err)
		}
	}()
}
