package notify

import (
	"time"

	"groupcal/internal/models"
)

// Match pairs a category with whether its condition holds right now.
type Match struct {
	Category Category
	Holds    bool
}

// Classifier evaluates which lead-time categories an event falls into at a
// given instant. It is pure: no I/O, no state beyond its configuration.
type Classifier struct {
	specs []Spec
	loc   *time.Location
}

// NewClassifier creates a Classifier using the given category specs and the
// local zone used for civil-date comparisons.
func NewClassifier(specs []Spec, loc *time.Location) *Classifier {
	return &Classifier{specs: specs, loc: loc}
}

// Classify returns, for every category applicable to the event's
// time-granularity, whether now's offset from the event start falls inside
// that category's window. Offsets are start minus now: positive before the
// event, negative after. Categories are evaluated independently and returned
// in furthest-out-first order.
func (c *Classifier) Classify(now time.Time, ev models.Event) []Match {
	offset := ev.Start.Sub(now)
	matches := make([]Match, 0, len(c.specs))
	for _, spec := range c.specs {
		if ev.AllDay && !spec.Category.dayGranularity() {
			continue
		}
		matches = append(matches, Match{
			Category: spec.Category,
			Holds:    c.holds(spec, now, ev, offset),
		})
	}
	return matches
}

func (c *Classifier) holds(spec Spec, now time.Time, ev models.Event, offset time.Duration) bool {
	switch spec.Category {
	case SameDay:
		// "Today" is a calendar-day concept, independent of exact hour.
		return c.eventDate(ev).Equal(c.civilDate(now))
	case OneDayBefore:
		if ev.AllDay {
			return c.eventDate(ev).AddDate(0, 0, -1).Equal(c.civilDate(now))
		}
		return spec.Window.Contains(offset)
	default:
		return spec.Window.Contains(offset)
	}
}

// civilDate truncates an instant to its local calendar date.
func (c *Classifier) civilDate(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// eventDate returns the calendar date an event occurs on. All-day events
// already carry a bare date, so converting their midnight start through the
// display zone would shift them across day boundaries.
func (c *Classifier) eventDate(ev models.Event) time.Time {
	if ev.AllDay {
		y, m, d := ev.Start.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
	}
	return c.civilDate(ev.Start)
}

// Spec returns the spec for a category, if configured.
func (c *Classifier) Spec(cat Category) (Spec, bool) {
	for _, s := range c.specs {
		if s.Category == cat {
			return s, true
		}
	}
	return Spec{}, false
}
