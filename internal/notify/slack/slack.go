// Package slack implements the notify.Notifier over the Slack Web API.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
	"github.com/nvlong/workdesk/internal/notify"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts notices to a single Slack channel.
type Notifier struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	BotToken  string // xoxb-... bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}
	client := opts.Client
	if client == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("slack: bot token is required")
		}
		client = slackapi.New(opts.BotToken)
	}
	return &Notifier{client: client, channelID: opts.ChannelID}, nil
}

// Post sends the notice as an attachment, colored by severity.
func (n *Notifier) Post(ctx context.Context, notice notify.Notice) error {
	attachment := slackapi.Attachment{
		Title: notice.Title,
		Text:  notice.Body,
		Color: severityColor(notice.Severity),
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post %q: %w", notice.Title, err)
	}
	return nil
}

// Close is a no-op; the Web API client holds no connection.
func (n *Notifier) Close() error { return nil }

// severityColor maps a notice severity to a Slack sidebar color.
func severityColor(severity string) string {
	if severity == "WARNING" {
		return "#e8a317"
	}
	return "#36a64f"
}
