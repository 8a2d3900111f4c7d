// Package slack implements the Notifier port with a Slack incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
	"github.com/ericfisherdev/mrreminder/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Notifier)(nil)

// DefaultIconURL is the GitLab logo shown next to the bot name.
const DefaultIconURL = "https://about.gitlab.com/images/press/logo/logo.png"

// Options configures the webhook post.
type Options struct {
	WebhookURL string
	Channel    string // Overrides the webhook's default channel when set.
	Username   string // Bot display name.
	IconURL    string
	Timeout    time.Duration
}

// Notifier posts reminder messages to a Slack incoming webhook.
type Notifier struct {
	opts       Options
	httpClient *http.Client
}

// NewNotifier creates a Notifier with a bounded HTTP client.
func NewNotifier(opts Options) *Notifier {
	return NewNotifierWithHTTPClient(&http.Client{Timeout: opts.Timeout}, opts)
}

// NewNotifierWithHTTPClient creates a Notifier with a custom http.Client.
// This constructor is intended for testing.
func NewNotifierWithHTTPClient(httpClient *http.Client, opts Options) *Notifier {
	if opts.IconURL == "" {
		opts.IconURL = DefaultIconURL
	}
	return &Notifier{opts: opts, httpClient: httpClient}
}

// Send posts msg as a single webhook request. It is attempted once.
func (n *Notifier) Send(ctx context.Context, msg model.Message) error {
	if n.opts.WebhookURL == "" {
		return errors.New("slack webhook URL is not configured")
	}

	attachments := make([]slackapi.Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, slackapi.Attachment{
			Title:     a.Title,
			TitleLink: a.TitleLink,
			Text:      a.Text,
			Color:     a.Color,
		})
	}

	payload := &slackapi.WebhookMessage{
		Username:    n.opts.Username,
		IconURL:     n.opts.IconURL,
		Channel:     n.opts.Channel,
		Text:        msg.Text,
		Attachments: attachments,
	}

	if err := slackapi.PostWebhookCustomHTTPContext(ctx, n.opts.WebhookURL, n.httpClient, payload); err != nil {
		return fmt.Errorf("posting slack webhook: %w", err)
	}
	return nil
}
