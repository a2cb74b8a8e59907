package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupcal/internal/models"
)

var bangkok = time.FixedZone("ICT", 7*3600)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultSpecs(), bangkok)
}

func holdsFor(t *testing.T, matches []Match, cat Category) bool {
	t.Helper()
	for _, m := range matches {
		if m.Category == cat {
			return m.Holds
		}
	}
	t.Fatalf("category %s not present in classification", cat)
	return false
}

func TestClassifyWindowBoundaries(t *testing.T) {
	c := newTestClassifier()
	start := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	ev := models.Event{ID: "ev1", Title: "Practice", Start: start}

	tests := []struct {
		name   string
		offset time.Duration // start minus now
		cat    Category
		holds  bool
	}{
		{"one day lower edge", 23 * time.Hour, OneDayBefore, true},
		{"one day upper edge", 25 * time.Hour, OneDayBefore, true},
		{"one day just below", 23*time.Hour - time.Second, OneDayBefore, false},
		{"one day just above", 25*time.Hour + time.Second, OneDayBefore, false},
		{"one day exact", 24 * time.Hour, OneDayBefore, true},

		{"one hour lower edge", 59 * time.Minute, OneHourBefore, true},
		{"one hour upper edge", 61 * time.Minute, OneHourBefore, true},
		{"one hour outside", 62 * time.Minute, OneHourBefore, false},

		{"ten minutes lower edge", 9*time.Minute + 30*time.Second, TenMinutesBefore, true},
		{"ten minutes upper edge", 10*time.Minute + 30*time.Second, TenMinutesBefore, true},
		{"ten minutes outside", 11 * time.Minute, TenMinutesBefore, false},

		{"at start lower edge", -time.Minute, AtStart, true},
		{"at start upper edge", time.Minute, AtStart, true},
		{"at start exact", 0, AtStart, true},
		{"at start passed", -2 * time.Minute, AtStart, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := start.Add(-tt.offset)
			matches := c.Classify(now, ev)
			assert.Equal(t, tt.holds, holdsFor(t, matches, tt.cat))
		})
	}
}

func TestClassifySameDayUsesCivilDates(t *testing.T) {
	c := newTestClassifier()
	// 01:00 ICT on June 10 = 18:00 UTC on June 9.
	start := time.Date(2025, 6, 10, 1, 0, 0, 0, bangkok)
	ev := models.Event{ID: "ev1", Start: start}

	// Midnight ICT, same local day, 25 hours apart is irrelevant.
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, bangkok)
	assert.True(t, holdsFor(t, c.Classify(now, ev), SameDay))

	// Still June 9 in ICT.
	now = time.Date(2025, 6, 9, 23, 30, 0, 0, bangkok)
	assert.False(t, holdsFor(t, c.Classify(now, ev), SameDay))
}

func TestClassifyAllDaySubset(t *testing.T) {
	c := newTestClassifier()
	ev := models.Event{
		ID:     "allday1",
		Title:  "Holiday",
		Start:  time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		AllDay: true,
	}

	matches := c.Classify(time.Date(2025, 6, 9, 12, 0, 0, 0, bangkok), ev)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Contains(t, []Category{OneDayBefore, SameDay}, m.Category)
	}
}

func TestClassifyAllDayDayBeforeAndSameDay(t *testing.T) {
	c := newTestClassifier()
	ev := models.Event{
		ID:     "allday1",
		Start:  time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		AllDay: true,
	}

	dayBefore := time.Date(2025, 6, 9, 15, 0, 0, 0, bangkok)
	matches := c.Classify(dayBefore, ev)
	assert.True(t, holdsFor(t, matches, OneDayBefore))
	assert.False(t, holdsFor(t, matches, SameDay))

	sameDay := time.Date(2025, 6, 10, 8, 0, 0, 0, bangkok)
	matches = c.Classify(sameDay, ev)
	assert.False(t, holdsFor(t, matches, OneDayBefore))
	assert.True(t, holdsFor(t, matches, SameDay))

	twoDaysBefore := time.Date(2025, 6, 8, 15, 0, 0, 0, bangkok)
	for _, m := range c.Classify(twoDaysBefore, ev) {
		assert.False(t, m.Holds)
	}
}

func TestClassifyOrderIsFurthestOutFirst(t *testing.T) {
	c := newTestClassifier()
	ev := models.Event{ID: "ev1", Start: time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}

	matches := c.Classify(ev.Start.Add(-time.Hour), ev)
	require.Len(t, matches, 5)
	want := []Category{OneDayBefore, SameDay, OneHourBefore, TenMinutesBefore, AtStart}
	for i, m := range matches {
		assert.Equal(t, want[i], m.Category)
	}
}
