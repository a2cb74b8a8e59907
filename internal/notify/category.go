package notify

import "time"

// Category names a notification trigger keyed to a relative offset from an
// event's start.
type Category string

const (
	OneDayBefore     Category = "one_day_before"
	SameDay          Category = "same_day"
	OneHourBefore    Category = "one_hour_before"
	TenMinutesBefore Category = "ten_minutes_before"
	AtStart          Category = "at_start"
)

// Window is an inclusive range of signed time-to-start within which a
// category is considered due. Both edges are part of the window.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// Contains reports whether the offset lies inside the window, edges included.
func (w Window) Contains(d time.Duration) bool {
	return d >= w.Min && d <= w.Max
}

// Spec describes one category: when it triggers and how long its emitted
// message is kept before deletion.
type Spec struct {
	Category  Category
	Window    Window        // Ignored for SameDay, which compares civil dates
	Retention time.Duration // How long the sent message lives
}

// DefaultSpecs returns the built-in category set, ordered furthest-out lead
// time first. The windows are deliberately wider than the polling period so
// that every category is observed as due at least once per event.
func DefaultSpecs() []Spec {
	return []Spec{
		{Category: OneDayBefore, Window: Window{Min: 23 * time.Hour, Max: 25 * time.Hour}, Retention: 24 * time.Hour},
		{Category: SameDay, Retention: 24 * time.Hour},
		{Category: OneHourBefore, Window: Window{Min: 59 * time.Minute, Max: 61 * time.Minute}, Retention: time.Hour},
		{Category: TenMinutesBefore, Window: Window{Min: 9*time.Minute + 30*time.Second, Max: 10*time.Minute + 30*time.Second}, Retention: 10 * time.Minute},
		{Category: AtStart, Window: Window{Min: -time.Minute, Max: time.Minute}, Retention: 5 * time.Minute},
	}
}

// dayGranularity reports whether a category is meaningful for events that
// carry only a calendar date. All-day events use this reduced subset.
func (c Category) dayGranularity() bool {
	return c == OneDayBefore || c == SameDay
}
