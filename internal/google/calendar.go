package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"groupcal/internal/models"
)

const (
	credentialsFile = "credentials.json"
)

// CalendarClient provides a client for interacting with the Google Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a new Google Calendar client authenticated via the OAuth
// token saved by the auth command. The accountName selects the token file
// (token-<name>.json).
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := fmt.Sprintf("token-%s.json", accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{service: service, logger: logger}, nil
}

// NewServiceAccountClient creates a client from service-account credentials
// JSON, for deployments where the bot acts as its own identity rather than a
// delegated user.
func NewServiceAccountClient(ctx context.Context, logger *slog.Logger, credsJSON []byte) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx,
		option.WithCredentialsJSON(credsJSON),
		option.WithScopes(calendar.CalendarScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &CalendarClient{service: service, logger: logger}, nil
}

// ListUpcoming fetches events from the calendar within [timeMin, timeMax],
// ordered by start time and bounded to maxResults.
func (c *CalendarClient) ListUpcoming(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]models.Event, error) {
	c.logger.Debug("Fetching upcoming events", "calendarID", calendarID, "timeMax", timeMax)

	result, err := c.service.Events.List(calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		TimeMax(timeMax.UTC().Format(time.RFC3339)).
		MaxResults(maxResults).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Debug("Fetched events from Google Calendar", "count", len(result.Items), "calendarID", calendarID)
	return c.toInternalEvents(result.Items), nil
}

// CreateEvent inserts a new event. When allDay is true only the calendar date
// of start is used.
func (c *CalendarClient) CreateEvent(ctx context.Context, calendarID, title string, start time.Time, allDay bool) (models.Event, error) {
	ev := &calendar.Event{Summary: title}
	if allDay {
		ev.Start = &calendar.EventDateTime{Date: start.Format("2006-01-02")}
		ev.End = &calendar.EventDateTime{Date: start.AddDate(0, 0, 1).Format("2006-01-02")}
	} else {
		ev.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
		ev.End = &calendar.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)}
	}

	created, err := c.service.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to create event: %w", err)
	}
	c.logger.Info("Created calendar event.", "title", title, "id", created.Id)

	out := c.toInternalEvents([]*calendar.Event{created})
	if len(out) == 0 {
		return models.Event{ID: created.Id, Title: title, Start: start, AllDay: allDay, Source: "google"}, nil
	}
	return out[0], nil
}

// DeleteEvent removes an event by its identifier.
func (c *CalendarClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	c.logger.Info("Deleted calendar event.", "id", eventID)
	return nil
}

// toInternalEvents converts Google Calendar events to the internal Event
// model. Events carrying only a date become all-day events anchored at
// midnight UTC.
func (c *CalendarClient) toInternalEvents(googleEvents []*calendar.Event) []models.Event {
	var internalEvents []models.Event
	for _, item := range googleEvents {
		if item.Start == nil {
			continue
		}

		ev := models.Event{
			ID:     item.Id,
			Title:  item.Summary,
			Source: "google",
		}

		if item.Start.DateTime != "" {
			start, err := time.Parse(time.RFC3339, item.Start.DateTime)
			if err != nil {
				c.logger.Warn("Skipping event with unparseable start time.", "id", item.Id, "error", err)
				continue
			}
			ev.Start = start
			if item.End != nil && item.End.DateTime != "" {
				ev.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
			}
		} else if item.Start.Date != "" {
			date, err := time.Parse("2006-01-02", item.Start.Date)
			if err != nil {
				c.logger.Warn("Skipping event with unparseable start date.", "id", item.Id, "error", err)
				continue
			}
			ev.Start = date
			ev.AllDay = true
		} else {
			continue
		}

		internalEvents = append(internalEvents, ev)
	}
	return internalEvents
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(context.Background(), authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts returns the account names with saved OAuth tokens.
func GetTokenAccounts() ([]string, error) {
	files, err := os.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
