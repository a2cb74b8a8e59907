// Package discord adapts a Discord gateway session to the narrow send/delete
// interface the notification core depends on, and wires the text command glue.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"groupcal/internal/models"
)

// Session wraps a Discord gateway connection.
type Session struct {
	logger *slog.Logger
	s      *discordgo.Session
}

// New creates a Session for the given bot token. The gateway connection is
// not opened until Open is called.
func New(logger *slog.Logger, token string) (*Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent

	return &Session{logger: logger, s: s}, nil
}

// Open connects to the Discord gateway.
func (d *Session) Open() error {
	if err := d.s.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	d.logger.Info("Connected to Discord.", "user", d.s.State.User.Username)
	return nil
}

// Close shuts down the gateway connection.
func (d *Session) Close() error {
	return d.s.Close()
}

// Send posts text to a channel and returns the handle needed for deferred
// deletion.
func (d *Session) Send(_ context.Context, channelID, text string) (models.SentMessage, error) {
	msg, err := d.s.ChannelMessageSend(channelID, text)
	if err != nil {
		return models.SentMessage{}, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return models.SentMessage{ChannelID: channelID, MessageID: msg.ID}, nil
}

// Delete removes a previously sent message. Callers treat failures as
// best-effort cleanup.
func (d *Session) Delete(_ context.Context, msg models.SentMessage) error {
	return d.s.ChannelMessageDelete(msg.ChannelID, msg.MessageID)
}
