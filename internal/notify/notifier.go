package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"groupcal/internal/models"
)

// EventSource is the calendar collaborator, read-only for this package.
type EventSource interface {
	ListUpcoming(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]models.Event, error)
}

// Messenger is the chat destination collaborator.
type Messenger interface {
	Send(ctx context.Context, channelID, text string) (models.SentMessage, error)
	Delete(ctx context.Context, msg models.SentMessage) error
}

// Options configures a Notifier. All inputs are explicit; the Notifier holds
// no global state.
type Options struct {
	Logger     *slog.Logger
	Source     EventSource
	Sender     Messenger
	Ledger     *Ledger
	Janitor    *Janitor
	Specs      []Spec
	Location   *time.Location
	CalendarID string
	Horizon    time.Duration // Look-ahead window for each fetch
	MaxResults int64
	RoleID     string // Optional role to mention in messages
	// Destinations returns the current channel list; it is read once at the
	// start of each dispatch so admin commands can mutate it between cycles.
	Destinations func() []string
	DryRun       bool
}

// Notifier drives classify-dedup-send for one calendar. It is the only owner
// of the ledger during operation.
type Notifier struct {
	opts       Options
	classifier *Classifier
}

// NewNotifier creates a Notifier from explicit options.
func NewNotifier(opts Options) *Notifier {
	return &Notifier{
		opts:       opts,
		classifier: NewClassifier(opts.Specs, opts.Location),
	}
}

// Emitted describes one notification that fired during a dispatch.
type Emitted struct {
	Event    models.Event
	Category Category
	Text     string
	Messages []models.SentMessage
}

// RunOneCycle fetches the upcoming event window and dispatches any due
// notifications. A fetch failure changes no state; the caller retries on the
// next tick.
func (n *Notifier) RunOneCycle(ctx context.Context, now time.Time) (models.CycleReport, error) {
	events, err := n.opts.Source.ListUpcoming(ctx, n.opts.CalendarID, now, now.Add(n.opts.Horizon), n.opts.MaxResults)
	if err != nil {
		return models.CycleReport{}, fmt.Errorf("failed to fetch upcoming events: %w", err)
	}

	emitted := n.Dispatch(ctx, now, events, n.opts.Destinations())
	return models.CycleReport{
		EventsSeen:           len(events),
		NotificationsEmitted: len(emitted),
	}, nil
}

// Dispatch evaluates every event against every applicable category and sends
// each due notification exactly once. The ledger key is checked and recorded
// before fan-out to destinations begins, so re-running with the same inputs
// emits nothing new.
func (n *Notifier) Dispatch(ctx context.Context, now time.Time, events []models.Event, destinations []string) []Emitted {
	var emitted []Emitted

	for _, ev := range events {
		n.opts.Logger.Debug("Evaluating event.",
			"title", ev.DisplayTitle(), "id", ev.ID, "allDay", ev.AllDay, "untilStart", ev.Start.Sub(now).String())

		for _, match := range n.classifier.Classify(now, ev) {
			if !match.Holds {
				continue
			}

			key := KeyFor(ev, match.Category)
			if n.opts.Ledger.Has(key) {
				continue
			}

			spec, ok := n.classifier.Spec(match.Category)
			if !ok {
				continue
			}
			text := n.render(match.Category, ev)

			if n.opts.DryRun {
				n.opts.Logger.Info("[DRY RUN] Would send notification.",
					"category", match.Category, "title", ev.DisplayTitle())
				continue
			}

			// Mark fired before any send attempt: a duplicate-safe miss beats
			// a double send on retry or restart.
			if err := n.opts.Ledger.Record(key); err != nil {
				n.opts.Logger.Error("Failed to persist notification ledger; in-memory state updated.",
					"key", key, "error", err)
			}

			n.opts.Logger.Info("Notification triggered.",
				"category", match.Category, "title", ev.DisplayTitle(), "id", ev.ID)

			sent := n.fanOut(ctx, destinations, text)
			for _, msg := range sent {
				n.opts.Janitor.ScheduleDelete(msg, spec.Retention)
			}

			emitted = append(emitted, Emitted{
				Event:    ev,
				Category: match.Category,
				Text:     text,
				Messages: sent,
			})
		}
	}

	return emitted
}

// fanOut sends text to every destination concurrently. A failure on one
// destination is logged and does not affect the others; the ledger
// commitment has already been made by the caller.
func (n *Notifier) fanOut(ctx context.Context, destinations []string, text string) []models.SentMessage {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent []models.SentMessage
	)

	for _, dest := range destinations {
		wg.Add(1)
		go func(dest string) {
			defer wg.Done()
			msg, err := n.opts.Sender.Send(ctx, dest, text)
			if err != nil {
				n.opts.Logger.Error("Failed to send notification to destination.",
					"channelID", dest, "error", err)
				return
			}
			mu.Lock()
			sent = append(sent, msg)
			mu.Unlock()
		}(dest)
	}
	wg.Wait()

	return sent
}

// render builds the message text for a category. Times are shown in the
// configured zone, in both 24-hour and 12-hour form.
func (n *Notifier) render(cat Category, ev models.Event) string {
	title := ev.DisplayTitle()
	mention := ""
	if n.opts.RoleID != "" {
		mention = "<@&" + n.opts.RoleID + ">\n"
	}

	if ev.AllDay {
		switch cat {
		case OneDayBefore:
			return fmt.Sprintf("📆 %s# **Tomorrow** we have `%s` (all day)", mention, title)
		case SameDay:
			return fmt.Sprintf("📣 %s# Today we have `%s` (all day)", mention, title)
		}
	}

	local := ev.Start.In(n.opts.Location)
	t24 := local.Format("15:04")
	t12 := local.Format("03:04 PM")

	switch cat {
	case OneDayBefore:
		return fmt.Sprintf("📆 %s# **Tomorrow** we have `%s` at %s (%s)", mention, title, t24, t12)
	case SameDay:
		return fmt.Sprintf("📣 %s# Today we have `%s` at %s (%s)", mention, title, t24, t12)
	case OneHourBefore:
		return fmt.Sprintf("⏰ %s# `%s` starts in **1 hour**, at %s (%s)", mention, title, t24, t12)
	case TenMinutesBefore:
		return fmt.Sprintf("⚠️ %s# `%s` at %s (%s) starts in **10 minutes**, get ready!", mention, title, t24, t12)
	default:
		return fmt.Sprintf("🚀 %s# It's time for `%s`, starting now (%s / %s)", mention, title, t24, t12)
	}
}
