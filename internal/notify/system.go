package notify

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// --- Apprise (Gateway) ---
type Apprise struct{ APIURL string }

func (a *Apprise) Name() string { return "Apprise" }
func (a *Apprise) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{"title": title, "body": message, "format": "markdown", "type": "info"}
	return postJSON(ctx, a.APIURL, payload)
}

// --- Gotify (Self-Hosted Push) ---
type Gotify struct{ ServerURL, Token string }

func (g *Gotify) Name() string { return "Gotify" }
func (g *Gotify) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/message", strings.TrimRight(g.ServerURL, "/"))
	payload := map[string]any{
		"title":    title,
		"message":  message,
		"priority": 5,
		"extras":   map[string]any{"client::display": map[string]string{"contentType": "text/markdown"}},
	}
	return postJSONWithHeaders(ctx, url, payload, map[string]string{"X-Gotify-Key": g.Token})
}

// --- Pushover (Mobile Push) ---
var pushoverAPIURL = "https://api.pushover.net/1/messages.json"

type Pushover struct{ UserKey, APIToken string }

func (p *Pushover) Name() string { return "Pushover" }
func (p *Pushover) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{"token": p.APIToken, "user": p.UserKey, "title": title, "message": message, "html": "0"}
	return postJSON(ctx, pushoverAPIURL, payload)
}

// --- Generic Webhook ---
type Generic struct{ WebhookURL string }

func (g *Generic) Name() string { return "GenericWebhook" }
func (g *Generic) Send(ctx context.Context, title, message string) error {
	host, _ := os.Hostname()
	payload := map[string]string{"title": title, "message": message, "agent": "dockgen", "host": host}
	return postJSON(ctx, g.WebhookURL, payload)
}

// Providers lists the configured notification endpoints. A provider is
// enabled when all of its fields are set.
type Providers struct {
	Slack   string
	Discord string
	Teams   string
	Generic string
	Apprise string

	TelegramToken  string
	TelegramChatID string
	MastodonServer string
	MastodonToken  string
	GotifyURL      string
	GotifyToken    string
	PushoverUser   string
	PushoverToken  string

	Email EmailConfig
}

// New builds a MultiNotifier with a service per configured provider.
func New(level Level, p Providers) *MultiNotifier {
	m := NewMultiNotifier(level)
	entries := []struct {
		enabled bool
		svc     func() Service
	}{
		{p.Slack != "", func() Service { return &Slack{WebhookURL: p.Slack} }},
		{p.Discord != "", func() Service { return &Discord{WebhookURL: p.Discord} }},
		{p.Teams != "", func() Service { return &Teams{WebhookURL: p.Teams} }},
		{p.TelegramToken != "" && p.TelegramChatID != "", func() Service {
			return &Telegram{BotToken: p.TelegramToken, ChatID: p.TelegramChatID}
		}},
		{p.MastodonServer != "" && p.MastodonToken != "", func() Service {
			return &Mastodon{ServerURL: p.MastodonServer, AccessToken: p.MastodonToken}
		}},
		{p.Email.Host != "" && len(p.Email.To) > 0, func() Service { return NewEmail(p.Email) }},
		{p.Generic != "", func() Service { return &Generic{WebhookURL: p.Generic} }},
		{p.GotifyURL != "" && p.GotifyToken != "", func() Service { return &Gotify{ServerURL: p.GotifyURL, Token: p.GotifyToken} }},
		{p.PushoverUser != "" && p.PushoverToken != "", func() Service {
			return &Pushover{UserKey: p.PushoverUser, APIToken: p.PushoverToken}
		}},
		{p.Apprise != "", func() Service { return &Apprise{APIURL: p.Apprise} }},
	}
	for _, e := range entries {
		if e.enabled {
			m.Add(e.svc())
		}
	}
	return m
}
