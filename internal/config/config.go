package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for dockgen
type Config struct {
	// Template is a file path, or the template text itself when it starts
	// with '#'.
	Template string `json:"template" yaml:"template"`
	// Target is the generated file; empty prints to stdout.
	Target string `json:"target" yaml:"target"`
	// WatchTemplate re-renders when the template file changes on disk.
	WatchTemplate bool `json:"watch_template" yaml:"watch_template"`

	// Restart lists targets restarted (or force-updated, for services)
	// after the target file changes.
	Restart []string `json:"restart" yaml:"restart"`
	// Signal lists "target:SIGNAL" pairs sent after the target file changes.
	Signal []string `json:"signal" yaml:"signal"`
	// Interval is "min[,max]" in seconds or as durations, e.g. "0.5,2" or
	// "500ms,2s".
	Interval string `json:"interval" yaml:"interval"`
	OneShot  bool   `json:"one_shot" yaml:"one_shot"`

	// PollInterval forces a re-render even without events; 0 disables it.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	// EventActions are the container event actions that trigger a render.
	EventActions []string `json:"event_actions" yaml:"event_actions"`

	DockerHost string `json:"docker_host" yaml:"docker_host"`
	// AllContainers includes stopped containers in the template context.
	AllContainers bool `json:"all_containers" yaml:"all_containers"`
	// UseServices lists swarm services when the engine is a manager.
	UseServices bool          `json:"use_services" yaml:"use_services"`
	StopTimeout time.Duration `json:"stop_timeout" yaml:"stop_timeout"`

	// ActionInterval is the minimum spacing between engine actions; 0 means
	// unlimited. ActionBurst allows short bursts above it.
	ActionInterval time.Duration `json:"action_interval" yaml:"action_interval"`
	ActionBurst    int           `json:"action_burst" yaml:"action_burst"`

	// Notification configuration
	NotificationLevel       string        `json:"notification_level" yaml:"notification_level"` // "all", "failure", "none"
	CircuitBreakerThreshold int           `json:"circuit_breaker_threshold" yaml:"circuit_breaker_threshold"`
	CircuitBreakerCooldown  time.Duration `json:"circuit_breaker_cooldown" yaml:"circuit_breaker_cooldown"`
	DiscordWebhook          string        `json:"discord_webhook" yaml:"discord_webhook"`
	SlackWebhook            string        `json:"slack_webhook" yaml:"slack_webhook"`
	GenericWebhookURL       string        `json:"generic_webhook_url" yaml:"generic_webhook_url"`
	TeamsWebhook            string        `json:"teams_webhook" yaml:"teams_webhook"`
	TelegramToken           string        `json:"telegram_token" yaml:"telegram_token"`
	TelegramChatID          string        `json:"telegram_chat_id" yaml:"telegram_chat_id"`
	MastodonServer          string        `json:"mastodon_server" yaml:"mastodon_server"`
	MastodonToken           string        `json:"mastodon_token" yaml:"mastodon_token"`
	GotifyURL               string        `json:"gotify_url" yaml:"gotify_url"`
	GotifyToken             string        `json:"gotify_token" yaml:"gotify_token"`
	PushoverUser            string        `json:"pushover_user" yaml:"pushover_user"`
	PushoverToken           string        `json:"pushover_token" yaml:"pushover_token"`
	AppriseURL              string        `json:"apprise_url" yaml:"apprise_url"`

	// SMTP
	EmailHost string   `json:"email_host" yaml:"email_host"`
	EmailPort int      `json:"email_port" yaml:"email_port"`
	EmailUser string   `json:"email_user" yaml:"email_user"`
	EmailPass string   `json:"email_pass" yaml:"email_pass"`
	EmailTo   []string `json:"email_to" yaml:"email_to"`

	// Metrics
	MetricsEnabled bool `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPort    int  `json:"metrics_port" yaml:"metrics_port"`

	// InfluxDB (push)
	InfluxURL      string        `json:"influx_url" yaml:"influx_url"`
	InfluxToken    string        `json:"influx_token" yaml:"influx_token"`
	InfluxOrg      string        `json:"influx_org" yaml:"influx_org"`
	InfluxBucket   string        `json:"influx_bucket" yaml:"influx_bucket"`
	InfluxInterval time.Duration `json:"influx_interval" yaml:"influx_interval"`

	LogLevel string `json:"log_level" yaml:"log_level"`
	LogFile  string `json:"log_file" yaml:"log_file"`
}

// ConfigError reports a configuration that dockgen cannot start with.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// SignalTarget is one parsed Signal entry.
type SignalTarget struct {
	Target string
	Signal string
}

// DefaultConfig returns a sane default configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:     "0.5,2",
		EventActions: []string{"start", "stop", "die"},
		UseServices:  true,
		StopTimeout:  10 * time.Second,
		ActionBurst:  1,

		NotificationLevel:       "failure",
		CircuitBreakerThreshold: 3,
		CircuitBreakerCooldown:  10 * time.Minute,

		// Metrics defaults (opt-in)
		MetricsEnabled: false,
		MetricsPort:    9090,

		InfluxInterval: 1 * time.Minute,
		LogLevel:       "info",
	}
}

// Validate returns a *ConfigError for settings dockgen cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Template) == "" {
		return &ConfigError{Field: "template", Msg: "no template given"}
	}
	if _, _, err := c.Intervals(); err != nil {
		return err
	}
	if _, err := c.SignalTargets(); err != nil {
		return err
	}
	if c.PollInterval < 0 {
		return &ConfigError{Field: "poll_interval", Msg: "must not be negative"}
	}
	if c.ActionInterval < 0 {
		return &ConfigError{Field: "action_interval", Msg: "must not be negative"}
	}
	if c.MetricsEnabled && (c.MetricsPort <= 0 || c.MetricsPort > 65535) {
		return &ConfigError{Field: "metrics_port", Msg: fmt.Sprintf("%d is not a port", c.MetricsPort)}
	}
	switch c.NotificationLevel {
	case "", "all", "failure", "none":
	default:
		return &ConfigError{Field: "notification_level", Msg: fmt.Sprintf("unknown level %q", c.NotificationLevel)}
	}
	return nil
}

// Warnings returns non-fatal configuration warnings, such as options that
// have no effect in the current combination.
func (c *Config) Warnings() []string {
	var warnings []string
	checks := []struct {
		cond bool
		msg  string
	}{
		{c.OneShot && c.WatchTemplate, "watch_template has no effect in one-shot mode"},
		{c.OneShot && c.PollInterval > 0, "poll_interval has no effect in one-shot mode"},
		{c.Target == "" && (len(c.Restart) > 0 || len(c.Signal) > 0), "no target file: restart and signal actions run after every render"},
		{c.WatchTemplate && strings.HasPrefix(c.Template, "#"), "watch_template ignored for inline templates"},
		{c.InfluxURL != "" && (c.InfluxOrg == "" || c.InfluxBucket == ""), "influx URL provided but org or bucket is missing"},
		{!c.MetricsEnabled && c.InfluxURL != "", "influx push enabled while metrics endpoint is disabled"},
	}
	for _, ch := range checks {
		if ch.cond {
			warnings = append(warnings, ch.msg)
		}
	}
	return warnings
}

// Intervals parses Interval into the debounce bounds. A single value means
// min == max.
func (c *Config) Intervals() (min, max time.Duration, err error) {
	return ParseIntervals(c.Interval)
}

// ParseIntervals parses "min[,max]". Bare numbers are seconds.
func ParseIntervals(s string) (min, max time.Duration, err error) {
	if strings.TrimSpace(s) == "" {
		return 0, 0, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) == 0 {
		return 0, 0, &ConfigError{Field: "interval", Msg: "no values"}
	}
	if len(parts) > 2 {
		return 0, 0, &ConfigError{Field: "interval", Msg: "expected at most two values"}
	}
	vals := make([]time.Duration, 0, 2)
	for _, p := range parts {
		d, perr := parseSeconds(p)
		if perr != nil {
			return 0, 0, &ConfigError{Field: "interval", Msg: perr.Error()}
		}
		if d < 0 {
			return 0, 0, &ConfigError{Field: "interval", Msg: "values must not be negative"}
		}
		vals = append(vals, d)
	}
	min, max = vals[0], vals[0]
	if len(vals) == 2 {
		max = vals[1]
	}
	if min > max {
		return 0, 0, &ConfigError{Field: "interval", Msg: fmt.Sprintf("minimum %s is above maximum %s", min, max)}
	}
	return min, max, nil
}

func parseSeconds(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither seconds nor a duration", s)
	}
	return d, nil
}

// SignalTargets parses the Signal entries.
func (c *Config) SignalTargets() ([]SignalTarget, error) {
	out := make([]SignalTarget, 0, len(c.Signal))
	for _, s := range c.Signal {
		st, err := ParseSignalTarget(s)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// ParseSignalTarget parses "target:SIGNAL" or "target SIGNAL". The signal is
// upper-cased; both "HUP" and "SIGHUP" are accepted by the engine.
func ParseSignalTarget(s string) (SignalTarget, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ":")
	if i < 0 {
		i = strings.LastIndex(s, " ")
	}
	if i <= 0 || i == len(s)-1 {
		return SignalTarget{}, &ConfigError{Field: "signal", Msg: fmt.Sprintf("%q is not target:SIGNAL", s)}
	}
	return SignalTarget{
		Target: strings.TrimSpace(s[:i]),
		Signal: strings.ToUpper(strings.TrimSpace(s[i+1:])),
	}, nil
}

// LoadConfigFromFile loads config from a YAML/JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
