// Package notify surfaces approval failures that need a human to a
// Slack incoming webhook.
package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/pledgegate/pledgegate/internal/config"
)

// Notifier posts operator alerts. An empty webhook URL disables it.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

func NewNotifier(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		webhookURL: strings.TrimSpace(cfg.SlackWebhookURL),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// PermanentFailure alerts operators that a join approval is stuck and
// will not recover on its own. Delivery is best effort.
func (n *Notifier) PermanentFailure(ctx context.Context, userID, communityID int64, reason string) {
	if n == nil || n.webhookURL == "" {
		return
	}
	msg := &slack.WebhookMessage{
		Text: "Join approval needs operator attention",
		Attachments: []slack.Attachment{{
			Color: "danger",
			Fields: []slack.AttachmentField{
				{Title: "User", Value: strconv.FormatInt(userID, 10), Short: true},
				{Title: "Community", Value: strconv.FormatInt(communityID, 10), Short: true},
				{Title: "Reason", Value: reason},
			},
		}},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.client, msg); err != nil {
		slog.Warn("Operator alert failed", "user_id", userID, "community_id", communityID, "error", err)
	}
}
