package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// --- Slack ---
type Slack struct {
	WebhookURL string
}

func (s *Slack) Name() string { return "Slack" }
func (s *Slack) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{"text": fmt.Sprintf("*%s*\n%s", title, message)}
	return postJSON(ctx, s.WebhookURL, payload)
}

// --- Discord ---
type Discord struct {
	WebhookURL string
}

func (d *Discord) Name() string { return "Discord" }
func (d *Discord) Send(ctx context.Context, title, message string) error {
	payload := map[string]any{
		"username": "dockgen",
		"embeds":   []map[string]any{{"title": title, "description": message, "color": 15158332, "timestamp": time.Now().Format(time.RFC3339)}},
	}
	return postJSON(ctx, d.WebhookURL, payload)
}

// --- Teams ---
type Teams struct{ WebhookURL string }

func (t *Teams) Name() string { return "Teams" }
func (t *Teams) Send(ctx context.Context, title, message string) error {
	payload := map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": "D70000",
		"summary":    title,
		"sections":   []map[string]string{{"activityTitle": title, "activityText": message}},
	}
	return postJSON(ctx, t.WebhookURL, payload)
}

// --- Telegram ---
var telegramAPIBase = "https://api.telegram.org"

type Telegram struct{ BotToken, ChatID string }

func (t *Telegram) Name() string { return "Telegram" }
func (t *Telegram) Send(ctx context.Context, title, message string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, t.BotToken)
	payload := map[string]string{"chat_id": t.ChatID, "text": fmt.Sprintf("<b>%s</b>\n%s", title, message), "parse_mode": "HTML"}
	return postJSON(ctx, apiURL, payload)
}

// --- Mastodon ---
type Mastodon struct{ ServerURL, AccessToken string }

func (m *Mastodon) Name() string { return "Mastodon" }
func (m *Mastodon) Send(ctx context.Context, title, message string) error {
	endpoint := fmt.Sprintf("%s/api/v1/statuses", strings.TrimRight(m.ServerURL, "/"))
	payload := map[string]string{"status": fmt.Sprintf("%s\n\n%s", title, message), "visibility": "private"}
	return postJSONWithHeaders(ctx, endpoint, payload, map[string]string{"Authorization": "Bearer " + m.AccessToken})
}
