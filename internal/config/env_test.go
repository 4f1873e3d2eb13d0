package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvOverrides(t *testing.T) {
	applyEnvSetup(t)

	cfg := DefaultConfig()
	if err := ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides failed: %v", err)
	}
	validateAppliedEnvOverrides(t, cfg)
}

func applyEnvSetup(t *testing.T) {
	t.Helper()
	t.Setenv("DOCKGEN_TEMPLATE", "/tmpl/nginx.tmpl")
	t.Setenv("DOCKGEN_TARGET", "/out/nginx.conf")
	t.Setenv("DOCKGEN_RESTART", "nginx, ,proxy")
	t.Setenv("DOCKGEN_SIGNAL", "haproxy:HUP")
	t.Setenv("DOCKGEN_INTERVAL", "1,3")
	t.Setenv("DOCKGEN_ONE_SHOT", "true")
	t.Setenv("DOCKGEN_POLL_INTERVAL", "2m")
	t.Setenv("DOCKGEN_EVENT_ACTIONS", "start,die")
	t.Setenv("DOCKGEN_USE_SERVICES", "false")
	t.Setenv("DOCKGEN_ACTION_INTERVAL", "250ms")
	t.Setenv("DOCKGEN_METRICS_ENABLED", "true")
	t.Setenv("DOCKGEN_METRICS_PORT", "9100")
	t.Setenv("DOCKGEN_INFLUX_URL", "http://influx:8086")
	t.Setenv("DOCKGEN_INFLUX_BUCKET", "b")
	t.Setenv("DOCKGEN_INFLUX_ORG", "o")
	t.Setenv("DOCKGEN_INFLUX_TOKEN", "t")
	t.Setenv("DOCKGEN_INFLUX_INTERVAL", "30s")
	t.Setenv("DOCKGEN_SLACK_WEBHOOK", "https://hooks.slack.example/x")
	t.Setenv("DOCKGEN_LOG_LEVEL", "debug")
}

func validateAppliedEnvOverrides(t *testing.T, cfg *Config) {
	t.Helper()
	if cfg.Template != "/tmpl/nginx.tmpl" || cfg.Target != "/out/nginx.conf" {
		t.Fatalf("unexpected paths: %s %s", cfg.Template, cfg.Target)
	}
	if !reflect.DeepEqual(cfg.Restart, []string{"nginx", "proxy"}) {
		t.Fatalf("unexpected restart: %v", cfg.Restart)
	}
	if !reflect.DeepEqual(cfg.Signal, []string{"haproxy:HUP"}) {
		t.Fatalf("unexpected signal: %v", cfg.Signal)
	}
	if cfg.Interval != "1,3" || !cfg.OneShot {
		t.Fatalf("unexpected generator flags: %q %v", cfg.Interval, cfg.OneShot)
	}
	if cfg.PollInterval != 2*time.Minute {
		t.Fatalf("expected poll 2m, got %v", cfg.PollInterval)
	}
	if !reflect.DeepEqual(cfg.EventActions, []string{"start", "die"}) {
		t.Fatalf("unexpected event actions: %v", cfg.EventActions)
	}
	if cfg.UseServices {
		t.Fatal("expected services disabled")
	}
	if cfg.ActionInterval != 250*time.Millisecond {
		t.Fatalf("unexpected action interval: %v", cfg.ActionInterval)
	}
	if !cfg.MetricsEnabled || cfg.MetricsPort != 9100 {
		t.Fatalf("unexpected metrics: %v %d", cfg.MetricsEnabled, cfg.MetricsPort)
	}
	if cfg.InfluxURL != "http://influx:8086" || cfg.InfluxBucket != "b" || cfg.InfluxOrg != "o" || cfg.InfluxToken != "t" {
		t.Fatalf("unexpected influx config: %+v", cfg)
	}
	if cfg.InfluxInterval != 30*time.Second {
		t.Fatalf("unexpected influx interval: %v", cfg.InfluxInterval)
	}
	if cfg.SlackWebhook != "https://hooks.slack.example/x" {
		t.Fatalf("unexpected slack webhook: %s", cfg.SlackWebhook)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestApplyEnvProviderOverrides(t *testing.T) {
	t.Setenv("DOCKGEN_TELEGRAM_TOKEN", "tok")
	t.Setenv("DOCKGEN_TELEGRAM_CHAT_ID", "42")
	t.Setenv("DOCKGEN_GOTIFY_URL", "http://gotify")
	t.Setenv("DOCKGEN_APPRISE_URL", "http://apprise/notify")
	t.Setenv("DOCKGEN_EMAIL_HOST", "mail.test")
	t.Setenv("DOCKGEN_EMAIL_PORT", "587")
	t.Setenv("DOCKGEN_EMAIL_TO", "ops@example.com, dev@example.com")

	cfg := DefaultConfig()
	if err := ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides failed: %v", err)
	}
	if cfg.TelegramToken != "tok" || cfg.TelegramChatID != "42" {
		t.Fatalf("unexpected telegram config: %q %q", cfg.TelegramToken, cfg.TelegramChatID)
	}
	if cfg.GotifyURL != "http://gotify" || cfg.AppriseURL != "http://apprise/notify" {
		t.Fatalf("unexpected urls: %q %q", cfg.GotifyURL, cfg.AppriseURL)
	}
	if cfg.EmailHost != "mail.test" || cfg.EmailPort != 587 {
		t.Fatalf("unexpected smtp: %s:%d", cfg.EmailHost, cfg.EmailPort)
	}
	if !reflect.DeepEqual(cfg.EmailTo, []string{"ops@example.com", "dev@example.com"}) {
		t.Fatalf("unexpected recipients: %v", cfg.EmailTo)
	}
}

func TestApplyEnvOverridesRejectsBadValues(t *testing.T) {
	for env, val := range map[string]string{
		"DOCKGEN_POLL_INTERVAL": "often",
		"DOCKGEN_METRICS_PORT":  "ninety",
		"DOCKGEN_ONE_SHOT":      "maybe",
		"DOCKGEN_EMAIL_PORT":    "smtp",
	} {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			if err := ApplyEnvOverrides(DefaultConfig()); err == nil {
				t.Fatalf("expected error for %s=%s", env, val)
			}
		})
	}
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "DOCKGEN_TARGET=/from/file\nDOCKGEN_TEST_ONLY_FILE=yes\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCKGEN_TARGET", "/from/env")
	// Registered so t.Setenv restores it after godotenv sets it.
	t.Setenv("DOCKGEN_TEST_ONLY_FILE", "")
	os.Unsetenv("DOCKGEN_TEST_ONLY_FILE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("DOCKGEN_TARGET"); got != "/from/env" {
		t.Fatalf("environment should win, got %s", got)
	}
	if got := os.Getenv("DOCKGEN_TEST_ONLY_FILE"); got != "yes" {
		t.Fatalf("file variable not loaded, got %q", got)
	}

	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
