package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"groupcal/internal/caldav"
	"groupcal/internal/config"
	"groupcal/internal/discord"
	"groupcal/internal/google"
	"groupcal/internal/notify"
	"groupcal/internal/scheduler"
	"groupcal/internal/web"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "groupcal",
		Usage: "Notify a group chat about upcoming calendar events.",
		Commands: []*cli.Command{
			authCommand(),
			runCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthCfg, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(oauthCfg, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the notification bot.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "groupcal.yaml", Usage: "Path to the YAML config file."},
			&cli.BoolFlag{Name: "once", Usage: "Run a single poll cycle and exit."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be sent without sending or recording."},
		},
		Action: func(c *cli.Context) error {
			logLevel := os.Getenv("LOG_LEVEL")
			if logLevel == "" {
				logLevel = "info"
			}
			logger := setupLogger(logLevel)

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			calendarID := os.Getenv("CALENDAR_ID")
			if calendarID == "" {
				return fmt.Errorf("CALENDAR_ID environment variable not set")
			}

			token := os.Getenv("DISCORD_TOKEN")
			if token == "" {
				return fmt.Errorf("DISCORD_TOKEN environment variable not set")
			}

			source, err := buildCalendarSource(c.Context, logger)
			if err != nil {
				return err
			}

			session, err := discord.New(logger, token)
			if err != nil {
				return err
			}
			session.HandleCommands(&discord.CommandHandler{
				Logger:     logger,
				Config:     cfg,
				Calendar:   source,
				CalendarID: calendarID,
				Location:   loc,
			})
			if err := session.Open(); err != nil {
				return err
			}
			defer session.Close()

			ledger, err := notify.LoadLedger(cfg.LedgerPath)
			if err != nil {
				return fmt.Errorf("failed to load notification ledger: %w", err)
			}
			logger.Info("Loaded notification ledger.", "path", cfg.LedgerPath, "entries", ledger.Len())

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			notifier := notify.NewNotifier(notify.Options{
				Logger:       logger,
				Source:       source,
				Sender:       session,
				Ledger:       ledger,
				Janitor:      notify.NewJanitor(ctx, logger, session),
				Specs:        cfg.Specs(),
				Location:     loc,
				CalendarID:   calendarID,
				Horizon:      time.Duration(cfg.HorizonDays) * 24 * time.Hour,
				MaxResults:   cfg.MaxResults,
				RoleID:       cfg.RoleID,
				Destinations: cfg.Destinations,
				DryRun:       c.Bool("dry-run"),
			})

			if c.Bool("once") {
				report, err := notifier.RunOneCycle(ctx, time.Now().UTC())
				if err != nil {
					return fmt.Errorf("single poll cycle failed: %w", err)
				}
				logger.Info("Cycle finished.",
					"eventsSeen", report.EventsSeen, "notificationsEmitted", report.NotificationsEmitted)
				return nil
			}

			web.NewServer(logger).Start(ctx, cfg.Listen)

			return scheduler.New(logger, notifier,
				time.Duration(cfg.PollInterval), time.Duration(cfg.RestartInterval)).Run(ctx)
		},
	}
}

// buildCalendarSource selects the calendar provider from CALENDAR_SOURCE:
// "google" (default) or "caldav".
func buildCalendarSource(ctx context.Context, logger *slog.Logger) (discord.Calendar, error) {
	switch strings.ToLower(os.Getenv("CALENDAR_SOURCE")) {
	case "", "google":
		if credsJSON := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"); credsJSON != "" {
			return google.NewServiceAccountClient(ctx, logger, []byte(credsJSON))
		}

		accounts, err := google.GetTokenAccounts()
		if err != nil || len(accounts) == 0 {
			return nil, fmt.Errorf("no google credentials found: set GOOGLE_SERVICE_ACCOUNT_JSON or run the 'auth' command first")
		}
		return google.NewClient(ctx, logger,
			os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), accounts[0])

	case "caldav":
		return caldav.NewClient(logger,
			os.Getenv("CALDAV_ENDPOINT"),
			os.Getenv("CALDAV_USERNAME"),
			os.Getenv("CALDAV_PASSWORD"),
			os.Getenv("CALDAV_CALENDAR_NAME"))

	default:
		return nil, fmt.Errorf("unknown CALENDAR_SOURCE %q (want google or caldav)", os.Getenv("CALENDAR_SOURCE"))
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
