package models

import "time"

// Event represents a calendar event as seen in one poll cycle.
// This is an internal representation, independent of any specific calendar provider.
// Snapshots are rebuilt from the source on every cycle and never mutated locally.
type Event struct {
	ID     string    // Stable provider-assigned identifier
	Title  string    // Summary of the event; may be empty
	Start  time.Time // Start instant; midnight in the source zone for all-day events
	End    time.Time // End instant; not used by notification logic
	AllDay bool      // True when the event has a date but no time-of-day
	Source string    // The source of the event (e.g., "google")
}

// DisplayTitle returns the event title, or a placeholder for untitled events.
func (e Event) DisplayTitle() string {
	if e.Title == "" {
		return "(untitled event)"
	}
	return e.Title
}

// SentMessage is the handle returned by a send, used only to schedule
// deferred deletion of the message.
type SentMessage struct {
	ChannelID string
	MessageID string
}

// CycleReport summarizes one fetch-classify-dispatch cycle.
type CycleReport struct {
	EventsSeen           int
	NotificationsEmitted int
}
