// Package command parses the bot's text commands. Parsing is pure so it can
// be tested without a connected chat session.
package command

import (
	"fmt"
	"strings"
	"time"
)

const Prefix = "!"

// Kind enumerates the supported commands.
type Kind int

const (
	Help Kind = iota
	ListEvents
	AddEvent
	DeleteEvent
	ChannelAdd
	ChannelRemove
	ChannelList
)

// Command is a parsed admin command.
type Command struct {
	Kind      Kind
	Title     string    // AddEvent
	Start     time.Time // AddEvent
	AllDay    bool      // AddEvent: no time-of-day was given
	EventID   string    // DeleteEvent
	ChannelID string    // ChannelAdd / ChannelRemove
}

// Usage is the help text shown for the help command and on parse errors.
const Usage = "Commands:\n" +
	"`!events` — list upcoming events\n" +
	"`!addevent <YYYY-MM-DD> [HH:MM] <title>` — create an event (all-day without a time)\n" +
	"`!delevent <event-id>` — delete an event\n" +
	"`!channels add|remove <channel-id>` — manage notification channels\n" +
	"`!channels list` — show notification channels\n" +
	"`!help` — this message"

// Parse interprets a chat message as a command. The second return value is
// false when the message is not a command at all (no prefix); an error means
// the message looked like a command but was malformed. Event times are
// interpreted in loc.
func Parse(input string, loc *time.Location) (Command, bool, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, Prefix) {
		return Command{}, false, nil
	}

	fields := strings.Fields(strings.TrimPrefix(input, Prefix))
	if len(fields) == 0 {
		return Command{}, false, nil
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "help":
		return Command{Kind: Help}, true, nil

	case "events":
		return Command{Kind: ListEvents}, true, nil

	case "addevent":
		cmd, err := parseAddEvent(args, loc)
		return cmd, true, err

	case "delevent":
		if len(args) != 1 {
			return Command{}, true, fmt.Errorf("usage: %sdelevent <event-id>", Prefix)
		}
		return Command{Kind: DeleteEvent, EventID: args[0]}, true, nil

	case "channels":
		cmd, err := parseChannels(args)
		return cmd, true, err

	default:
		return Command{}, true, fmt.Errorf("unknown command %s%s", Prefix, name)
	}
}

func parseAddEvent(args []string, loc *time.Location) (Command, error) {
	usage := fmt.Errorf("usage: %saddevent <YYYY-MM-DD> [HH:MM] <title>", Prefix)
	if len(args) < 2 {
		return Command{}, usage
	}

	date, err := time.ParseInLocation("2006-01-02", args[0], loc)
	if err != nil {
		return Command{}, usage
	}
	args = args[1:]

	// An optional HH:MM follows the date; everything after is the title.
	if clock, err := time.Parse("15:04", args[0]); err == nil {
		if len(args) < 2 {
			return Command{}, usage
		}
		start := time.Date(date.Year(), date.Month(), date.Day(),
			clock.Hour(), clock.Minute(), 0, 0, loc)
		return Command{
			Kind:  AddEvent,
			Title: strings.Join(args[1:], " "),
			Start: start,
		}, nil
	}

	return Command{
		Kind:   AddEvent,
		Title:  strings.Join(args, " "),
		Start:  date,
		AllDay: true,
	}, nil
}

func parseChannels(args []string) (Command, error) {
	usage := fmt.Errorf("usage: %schannels add|remove <channel-id> | %schannels list", Prefix, Prefix)
	if len(args) == 0 {
		return Command{}, usage
	}

	switch strings.ToLower(args[0]) {
	case "list":
		return Command{Kind: ChannelList}, nil
	case "add":
		if len(args) != 2 {
			return Command{}, usage
		}
		return Command{Kind: ChannelAdd, ChannelID: args[1]}, nil
	case "remove":
		if len(args) != 2 {
			return Command{}, usage
		}
		return Command{Kind: ChannelRemove, ChannelID: args[1]}, nil
	default:
		return Command{}, usage
	}
}
