package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set are left alone, so the real environment
// wins over the file.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides reads configuration values from environment variables and
// overrides fields in the provided Config. Returns an error if parsing fails.
//
// Environment variables supported:
// - DOCKGEN_TEMPLATE, DOCKGEN_TARGET (string)
// - DOCKGEN_RESTART, DOCKGEN_SIGNAL (comma-separated lists)
// - DOCKGEN_INTERVAL (string, e.g. "0.5,2")
// - DOCKGEN_ONE_SHOT, DOCKGEN_WATCH_TEMPLATE (bool)
// - DOCKGEN_POLL_INTERVAL (duration, e.g. "5m")
// - DOCKGEN_EVENT_ACTIONS (comma-separated list)
// - DOCKGEN_DOCKER_HOST (string)
// - DOCKGEN_ALL_CONTAINERS, DOCKGEN_USE_SERVICES (bool)
// - DOCKGEN_METRICS_ENABLED (bool), DOCKGEN_METRICS_PORT (int)
// - DOCKGEN_INFLUX_URL, _TOKEN, _ORG, _BUCKET (string), DOCKGEN_INFLUX_INTERVAL (duration)
// - DOCKGEN_LOG_LEVEL, DOCKGEN_LOG_FILE (string)
func ApplyEnvOverrides(cfg *Config) error {
	if err := applyGeneratorEnv(cfg); err != nil {
		return err
	}
	if err := applyEngineEnv(cfg); err != nil {
		return err
	}
	if err := applyNotificationEnv(cfg); err != nil {
		return err
	}
	if err := applyMetricsEnv(cfg); err != nil {
		return err
	}
	if err := applyInfluxEnv(cfg); err != nil {
		return err
	}
	applyLoggingEnv(cfg)
	return nil
}

func applyGeneratorEnv(cfg *Config) error {
	setStringEnv("DOCKGEN_TEMPLATE", &cfg.Template)
	setStringEnv("DOCKGEN_TARGET", &cfg.Target)
	setStringEnv("DOCKGEN_INTERVAL", &cfg.Interval)
	setListEnv("DOCKGEN_RESTART", &cfg.Restart)
	setListEnv("DOCKGEN_SIGNAL", &cfg.Signal)
	if err := setBoolEnv("DOCKGEN_ONE_SHOT", func(b bool) { cfg.OneShot = b }); err != nil {
		return err
	}
	if err := setBoolEnv("DOCKGEN_WATCH_TEMPLATE", func(b bool) { cfg.WatchTemplate = b }); err != nil {
		return err
	}
	return nil
}

func applyEngineEnv(cfg *Config) error {
	setStringEnv("DOCKGEN_DOCKER_HOST", &cfg.DockerHost)
	setListEnv("DOCKGEN_EVENT_ACTIONS", &cfg.EventActions)
	if err := setDurationEnv("DOCKGEN_POLL_INTERVAL", &cfg.PollInterval); err != nil {
		return err
	}
	if err := setDurationEnv("DOCKGEN_STOP_TIMEOUT", &cfg.StopTimeout); err != nil {
		return err
	}
	if err := setDurationEnv("DOCKGEN_ACTION_INTERVAL", &cfg.ActionInterval); err != nil {
		return err
	}
	if err := setIntEnv("DOCKGEN_ACTION_BURST", &cfg.ActionBurst); err != nil {
		return err
	}
	if err := setBoolEnv("DOCKGEN_ALL_CONTAINERS", func(b bool) { cfg.AllContainers = b }); err != nil {
		return err
	}
	if err := setBoolEnv("DOCKGEN_USE_SERVICES", func(b bool) { cfg.UseServices = b }); err != nil {
		return err
	}
	return nil
}

func applyNotificationEnv(cfg *Config) error {
	setStringEnv("DOCKGEN_DISCORD_WEBHOOK", &cfg.DiscordWebhook)
	setStringEnv("DOCKGEN_SLACK_WEBHOOK", &cfg.SlackWebhook)
	setStringEnv("DOCKGEN_GENERIC_WEBHOOK_URL", &cfg.GenericWebhookURL)
	setStringEnv("DOCKGEN_TEAMS_WEBHOOK", &cfg.TeamsWebhook)
	setStringEnv("DOCKGEN_TELEGRAM_TOKEN", &cfg.TelegramToken)
	setStringEnv("DOCKGEN_TELEGRAM_CHAT_ID", &cfg.TelegramChatID)
	setStringEnv("DOCKGEN_MASTODON_SERVER", &cfg.MastodonServer)
	setStringEnv("DOCKGEN_MASTODON_TOKEN", &cfg.MastodonToken)
	setStringEnv("DOCKGEN_GOTIFY_URL", &cfg.GotifyURL)
	setStringEnv("DOCKGEN_GOTIFY_TOKEN", &cfg.GotifyToken)
	setStringEnv("DOCKGEN_PUSHOVER_USER", &cfg.PushoverUser)
	setStringEnv("DOCKGEN_PUSHOVER_TOKEN", &cfg.PushoverToken)
	setStringEnv("DOCKGEN_APPRISE_URL", &cfg.AppriseURL)
	setStringEnv("DOCKGEN_EMAIL_HOST", &cfg.EmailHost)
	setStringEnv("DOCKGEN_EMAIL_USER", &cfg.EmailUser)
	setStringEnv("DOCKGEN_EMAIL_PASS", &cfg.EmailPass)
	setListEnv("DOCKGEN_EMAIL_TO", &cfg.EmailTo)
	if err := setIntEnv("DOCKGEN_EMAIL_PORT", &cfg.EmailPort); err != nil {
		return err
	}
	setStringEnv("DOCKGEN_NOTIFICATION_LEVEL", &cfg.NotificationLevel)
	if err := setIntEnv("DOCKGEN_CIRCUIT_BREAKER_THRESHOLD", &cfg.CircuitBreakerThreshold); err != nil {
		return err
	}
	return setDurationEnv("DOCKGEN_CIRCUIT_BREAKER_COOLDOWN", &cfg.CircuitBreakerCooldown)
}

// applyMetricsEnv consolidates metrics-related env parsing
func applyMetricsEnv(cfg *Config) error {
	if err := setBoolEnv("DOCKGEN_METRICS_ENABLED", func(b bool) { cfg.MetricsEnabled = b }); err != nil {
		return err
	}
	return setIntEnv("DOCKGEN_METRICS_PORT", &cfg.MetricsPort)
}

// applyInfluxEnv consolidates Influx-related env parsing
func applyInfluxEnv(cfg *Config) error {
	setStringEnv("DOCKGEN_INFLUX_URL", &cfg.InfluxURL)
	setStringEnv("DOCKGEN_INFLUX_TOKEN", &cfg.InfluxToken)
	setStringEnv("DOCKGEN_INFLUX_ORG", &cfg.InfluxOrg)
	setStringEnv("DOCKGEN_INFLUX_BUCKET", &cfg.InfluxBucket)
	return setDurationEnv("DOCKGEN_INFLUX_INTERVAL", &cfg.InfluxInterval)
}

func applyLoggingEnv(cfg *Config) {
	setStringEnv("DOCKGEN_LOG_LEVEL", &cfg.LogLevel)
	setStringEnv("DOCKGEN_LOG_FILE", &cfg.LogFile)
}

func setStringEnv(env string, dst *string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// setListEnv splits a comma-separated value, dropping empty items.
func setListEnv(env string, dst *[]string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

// setBoolEnv is a small helper to parse boolean environment variables
func setBoolEnv(env string, setter func(bool)) error {
	if v := os.Getenv(env); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		setter(b)
	}
	return nil
}

func setIntEnv(env string, dst *int) error {
	if v := os.Getenv(env); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		*dst = n
	}
	return nil
}

func setDurationEnv(env string, dst *time.Duration) error {
	if v := os.Getenv(env); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		*dst = d
	}
	return nil
}
