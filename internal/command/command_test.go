package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bangkok = time.FixedZone("ICT", 7*3600)

func TestParseNonCommands(t *testing.T) {
	for _, input := range []string{"", "hello there", "  just chatting  ", "!"} {
		_, isCommand, err := Parse(input, time.UTC)
		assert.False(t, isCommand, "input %q", input)
		assert.NoError(t, err)
	}
}

func TestParseSimpleCommands(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{"!help", Help},
		{"!events", ListEvents},
		{"!EVENTS", ListEvents},
		{"  !events  ", ListEvents},
		{"!channels list", ChannelList},
	}
	for _, tt := range tests {
		cmd, isCommand, err := Parse(tt.input, time.UTC)
		require.True(t, isCommand, "input %q", tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.kind, cmd.Kind)
	}
}

func TestParseAddEventTimed(t *testing.T) {
	cmd, isCommand, err := Parse("!addevent 2025-06-10 19:30 Band Practice", bangkok)
	require.True(t, isCommand)
	require.NoError(t, err)

	assert.Equal(t, AddEvent, cmd.Kind)
	assert.Equal(t, "Band Practice", cmd.Title)
	assert.False(t, cmd.AllDay)
	assert.Equal(t, time.Date(2025, 6, 10, 19, 30, 0, 0, bangkok), cmd.Start)
}

func TestParseAddEventAllDay(t *testing.T) {
	cmd, isCommand, err := Parse("!addevent 2025-06-10 Team Offsite", bangkok)
	require.True(t, isCommand)
	require.NoError(t, err)

	assert.Equal(t, AddEvent, cmd.Kind)
	assert.Equal(t, "Team Offsite", cmd.Title)
	assert.True(t, cmd.AllDay)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, bangkok), cmd.Start)
}

func TestParseAddEventErrors(t *testing.T) {
	for _, input := range []string{
		"!addevent",
		"!addevent Practice",
		"!addevent 2025-06-10",
		"!addevent 2025-06-10 19:30",
		"!addevent 10/06/2025 Practice",
	} {
		_, isCommand, err := Parse(input, time.UTC)
		assert.True(t, isCommand, "input %q", input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseDeleteEvent(t *testing.T) {
	cmd, isCommand, err := Parse("!delevent abc123", time.UTC)
	require.True(t, isCommand)
	require.NoError(t, err)
	assert.Equal(t, DeleteEvent, cmd.Kind)
	assert.Equal(t, "abc123", cmd.EventID)

	_, isCommand, err = Parse("!delevent", time.UTC)
	assert.True(t, isCommand)
	assert.Error(t, err)
}

func TestParseChannels(t *testing.T) {
	cmd, _, err := Parse("!channels add 123456", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, ChannelAdd, cmd.Kind)
	assert.Equal(t, "123456", cmd.ChannelID)

	cmd, _, err = Parse("!channels remove 123456", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, ChannelRemove, cmd.Kind)

	for _, input := range []string{"!channels", "!channels add", "!channels bogus 1"} {
		_, _, err := Parse(input, time.UTC)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, isCommand, err := Parse("!frobnicate", time.UTC)
	assert.True(t, isCommand)
	assert.Error(t, err)
}
