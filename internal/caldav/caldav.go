package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"groupcal/internal/models"
)

const defaultEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "groupcal/1.0")
	return t.Transport.RoundTrip(req)
}

// Client reads events from a CalDAV calendar. It serves as an alternate
// calendar source for groups whose calendar lives on iCloud or another
// CalDAV server instead of Google.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarPath string
}

// NewClient creates a Client and resolves the named calendar's path on the
// server. An empty endpoint selects iCloud.
func NewClient(logger *slog.Logger, endpoint, username, password, calendarName string) (*Client, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// ListUpcoming queries the server for events within [timeMin, timeMax]. The
// calendarID argument is ignored; the calendar was resolved at construction.
func (c *Client) ListUpcoming(ctx context.Context, _ string, timeMin, timeMax time.Time, maxResults int64) ([]models.Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			Comps:    []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: timeMin,
				End:   timeMax,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []models.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		for _, ve := range obj.Data.Events() {
			ev, err := c.toInternalEvent(ve)
			if err != nil {
				c.logger.Warn("Skipping unparseable CalDAV event.", "path", obj.Path, "error", err)
				continue
			}
			events = append(events, ev)
			if maxResults > 0 && int64(len(events)) >= maxResults {
				return events, nil
			}
		}
	}

	c.logger.Debug("Fetched events from CalDAV", "count", len(events))
	return events, nil
}

// CreateEvent writes a new VEVENT to the calendar with a generated UID.
func (c *Client) CreateEvent(ctx context.Context, _ string, title string, start time.Time, allDay bool) (models.Event, error) {
	uid := uuid.New().String()

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	if allDay {
		ve.Props.SetDate(ical.PropDateTimeStart, start)
		ve.Props.SetDate(ical.PropDateTimeEnd, start.AddDate(0, 0, 1))
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, start)
		ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(time.Hour))
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//groupcal//EN")
	cal.Children = append(cal.Children, ve)

	writer, err := c.webdavClient.Create(ctx, c.eventPath(uid))
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return models.Event{}, fmt.Errorf("failed to encode event to iCal format: %w", err)
	}

	c.logger.Info("Created CalDAV event.", "title", title, "uid", uid)
	return models.Event{ID: uid, Title: title, Start: start, AllDay: allDay, Source: "caldav"}, nil
}

// DeleteEvent removes an event by its UID.
func (c *Client) DeleteEvent(ctx context.Context, _ string, eventID string) error {
	if err := c.webdavClient.RemoveAll(ctx, c.eventPath(eventID)); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	c.logger.Info("Deleted CalDAV event.", "uid", eventID)
	return nil
}

// eventPath builds the object path for a UID, relative to the endpoint.
func (c *Client) eventPath(uid string) string {
	return path.Join(strings.TrimPrefix(c.calendarPath, c.endpoint), fmt.Sprintf("%s.ics", uid))
}

// toInternalEvent converts a VEVENT to the internal Event model. A DTSTART
// carrying only a date marks the event all-day.
func (c *Client) toInternalEvent(ve ical.Event) (models.Event, error) {
	uid := ""
	if prop := ve.Props.Get(ical.PropUID); prop != nil {
		uid = prop.Value
	}
	if uid == "" {
		return models.Event{}, fmt.Errorf("event has no UID")
	}

	summary := ""
	if prop := ve.Props.Get(ical.PropSummary); prop != nil {
		summary = prop.Value
	}

	startProp := ve.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return models.Event{}, fmt.Errorf("event %s has no DTSTART", uid)
	}
	start, err := startProp.DateTime(time.UTC)
	if err != nil {
		return models.Event{}, fmt.Errorf("event %s has invalid DTSTART: %w", uid, err)
	}

	ev := models.Event{
		ID:     uid,
		Title:  summary,
		Start:  start,
		AllDay: startProp.ValueType() == ical.ValueDate,
		Source: "caldav",
	}

	if endProp := ve.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		if end, err := endProp.DateTime(time.UTC); err == nil {
			ev.End = end
		}
	}

	return ev, nil
}

// findCalendar discovers the user's calendars and returns the path for the
// one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
