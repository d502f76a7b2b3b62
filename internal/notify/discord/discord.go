// Package discord implements the notify.Notifier over a Discord bot.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/nvlong/workdesk/internal/notify"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Notifier posts notices to a single Discord channel.
type Notifier struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock session instead of a real gateway session.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	sess := opts.Session
	if sess == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("discord: bot token is required")
		}
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		sess = dg
	}
	return &Notifier{sess: sess, channelID: opts.ChannelID}, nil
}

// Post sends the notice as an embed, colored by severity.
func (n *Notifier) Post(_ context.Context, notice notify.Notice) error {
	embed := &discordgo.MessageEmbed{
		Title:       notice.Title,
		Description: notice.Body,
		Color:       severityColor(notice.Severity),
	}
	if _, err := n.sess.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		return fmt.Errorf("discord: post %q: %w", notice.Title, err)
	}
	return nil
}

// Close shuts down the underlying session.
func (n *Notifier) Close() error {
	if err := n.sess.Close(); err != nil {
		return fmt.Errorf("discord: close: %w", err)
	}
	return nil
}

// severityColor maps a notice severity to an embed color.
func severityColor(severity string) int {
	if severity == "WARNING" {
		return 0xe8a317
	}
	return 0x36a64f
}
