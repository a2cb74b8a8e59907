package discord

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupcal/internal/command"
	"groupcal/internal/config"
	"groupcal/internal/models"
)

type fakeCalendar struct {
	events  []models.Event
	created []models.Event
	deleted []string
}

func (f *fakeCalendar) ListUpcoming(_ context.Context, _ string, _, _ time.Time, _ int64) ([]models.Event, error) {
	return f.events, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ string, title string, start time.Time, allDay bool) (models.Event, error) {
	ev := models.Event{ID: "new-1", Title: title, Start: start, AllDay: allDay}
	f.created = append(f.created, ev)
	return ev, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _ string, eventID string) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

func newTestHandler(t *testing.T) (*CommandHandler, *fakeCalendar) {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "groupcal.yaml"))
	require.NoError(t, err)

	cal := &fakeCalendar{}
	return &CommandHandler{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:     cfg,
		Calendar:   cal,
		CalendarID: "cal-1",
		Location:   time.UTC,
	}, cal
}

func TestExecuteAddEvent(t *testing.T) {
	h, cal := newTestHandler(t)

	cmd, _, err := command.Parse("!addevent 2025-06-10 19:30 Band Practice", time.UTC)
	require.NoError(t, err)

	reply := h.execute(context.Background(), cmd)
	assert.Contains(t, reply, "Band Practice")
	require.Len(t, cal.created, 1)
	assert.False(t, cal.created[0].AllDay)
}

func TestExecuteDeleteEvent(t *testing.T) {
	h, cal := newTestHandler(t)

	cmd, _, err := command.Parse("!delevent abc123", time.UTC)
	require.NoError(t, err)

	reply := h.execute(context.Background(), cmd)
	assert.Contains(t, reply, "abc123")
	assert.Equal(t, []string{"abc123"}, cal.deleted)
}

func TestExecuteChannelLifecycle(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	reply := h.execute(ctx, command.Command{Kind: command.ChannelList})
	assert.Contains(t, reply, "No notification channels")

	reply = h.execute(ctx, command.Command{Kind: command.ChannelAdd, ChannelID: "111"})
	assert.Contains(t, reply, "Added")
	assert.Equal(t, []string{"111"}, h.Config.Destinations())

	reply = h.execute(ctx, command.Command{Kind: command.ChannelAdd, ChannelID: "111"})
	assert.Contains(t, reply, "already")

	reply = h.execute(ctx, command.Command{Kind: command.ChannelRemove, ChannelID: "111"})
	assert.Contains(t, reply, "Removed")
	assert.Empty(t, h.Config.Destinations())
}

func TestExecuteListEvents(t *testing.T) {
	h, cal := newTestHandler(t)
	cal.events = []models.Event{
		{ID: "e1", Title: "Practice", Start: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)},
		{ID: "e2", Title: "Offsite", Start: time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), AllDay: true},
	}

	reply := h.execute(context.Background(), command.Command{Kind: command.ListEvents})
	assert.Contains(t, reply, "Practice")
	assert.Contains(t, reply, "Offsite")
	assert.Contains(t, reply, "all day")
}
