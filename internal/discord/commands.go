package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"groupcal/internal/command"
	"groupcal/internal/config"
	"groupcal/internal/models"
)

// Calendar is the calendar collaborator the command glue mutates. Both the
// Google and CalDAV clients satisfy it.
type Calendar interface {
	ListUpcoming(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]models.Event, error)
	CreateEvent(ctx context.Context, calendarID, title string, start time.Time, allDay bool) (models.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// CommandHandler executes parsed admin commands against the calendar and the
// runtime config.
type CommandHandler struct {
	Logger     *slog.Logger
	Config     *config.Config
	Calendar   Calendar
	CalendarID string
	Location   *time.Location
}

// HandleCommands registers the message handler that parses and executes text
// commands. When a role ID is configured, only members holding that role may
// issue commands.
func (d *Session) HandleCommands(h *CommandHandler) {
	d.s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}

		cmd, isCommand, err := command.Parse(m.Content, h.Location)
		if !isCommand {
			return
		}
		if !h.authorized(m) {
			d.reply(m.ChannelID, "You don't have permission to use bot commands.")
			return
		}
		if err != nil {
			d.reply(m.ChannelID, err.Error())
			return
		}

		h.Logger.Info("Executing command.", "author", m.Author.Username, "content", m.Content)
		d.reply(m.ChannelID, h.execute(context.Background(), cmd))
	})
}

func (h *CommandHandler) authorized(m *discordgo.MessageCreate) bool {
	roleID := h.Config.RoleID
	if roleID == "" {
		return true
	}
	return m.Member != nil && slices.Contains(m.Member.Roles, roleID)
}

// execute runs one command and returns the reply text.
func (h *CommandHandler) execute(ctx context.Context, cmd command.Command) string {
	switch cmd.Kind {
	case command.Help:
		return command.Usage

	case command.ListEvents:
		return h.listEvents(ctx)

	case command.AddEvent:
		ev, err := h.Calendar.CreateEvent(ctx, h.CalendarID, cmd.Title, cmd.Start, cmd.AllDay)
		if err != nil {
			h.Logger.Error("Failed to create event.", "title", cmd.Title, "error", err)
			return "Failed to create event: " + err.Error()
		}
		return fmt.Sprintf("Created `%s` (%s)", ev.DisplayTitle(), h.formatStart(ev))

	case command.DeleteEvent:
		if err := h.Calendar.DeleteEvent(ctx, h.CalendarID, cmd.EventID); err != nil {
			h.Logger.Error("Failed to delete event.", "id", cmd.EventID, "error", err)
			return "Failed to delete event: " + err.Error()
		}
		return fmt.Sprintf("Deleted event `%s`", cmd.EventID)

	case command.ChannelAdd:
		added, err := h.Config.AddChannel(cmd.ChannelID)
		if err != nil {
			h.Logger.Error("Failed to save channel list.", "error", err)
			return "Failed to save channel list: " + err.Error()
		}
		if !added {
			return "Channel is already on the notification list."
		}
		return fmt.Sprintf("Added channel `%s` to the notification list.", cmd.ChannelID)

	case command.ChannelRemove:
		removed, err := h.Config.RemoveChannel(cmd.ChannelID)
		if err != nil {
			h.Logger.Error("Failed to save channel list.", "error", err)
			return "Failed to save channel list: " + err.Error()
		}
		if !removed {
			return "Channel is not on the notification list."
		}
		return fmt.Sprintf("Removed channel `%s` from the notification list.", cmd.ChannelID)

	case command.ChannelList:
		channels := h.Config.Destinations()
		if len(channels) == 0 {
			return "No notification channels configured."
		}
		return "Notification channels: `" + strings.Join(channels, "`, `") + "`"

	default:
		return command.Usage
	}
}

func (h *CommandHandler) listEvents(ctx context.Context) string {
	now := time.Now()
	horizon := time.Duration(h.Config.HorizonDays) * 24 * time.Hour
	events, err := h.Calendar.ListUpcoming(ctx, h.CalendarID, now, now.Add(horizon), h.Config.MaxResults)
	if err != nil {
		h.Logger.Error("Failed to list events.", "error", err)
		return "Failed to list events: " + err.Error()
	}
	if len(events) == 0 {
		return "No upcoming events."
	}

	var b strings.Builder
	b.WriteString("Upcoming events:\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "• `%s` — %s (id: `%s`)\n", ev.DisplayTitle(), h.formatStart(ev), ev.ID)
	}
	return b.String()
}

func (h *CommandHandler) formatStart(ev models.Event) string {
	if ev.AllDay {
		return ev.Start.Format("2006-01-02") + ", all day"
	}
	return ev.Start.In(h.Location).Format("2006-01-02 15:04")
}

// reply posts text to a channel, logging failures.
func (d *Session) reply(channelID, text string) {
	if _, err := d.s.ChannelMessageSend(channelID, text); err != nil {
		d.logger.Error("Failed to send command reply.", "channelID", channelID, "error", err)
	}
}
