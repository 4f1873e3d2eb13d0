package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dockgen/dockgen/internal/actions"
	"github.com/dockgen/dockgen/internal/config"
	"github.com/dockgen/dockgen/internal/daemon"
	"github.com/dockgen/dockgen/internal/docker"
	"github.com/dockgen/dockgen/internal/generator"
	"github.com/dockgen/dockgen/internal/images"
	"github.com/dockgen/dockgen/internal/logging"
	"github.com/dockgen/dockgen/internal/metrics"
	"github.com/dockgen/dockgen/internal/notify"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd(run).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds flag values; they only override the configuration when
// set explicitly.
type cliFlags struct {
	configFile     string
	envFile        string
	target         string
	restart        []string
	signal         []string
	interval       string
	oneShot        bool
	watchTemplate  bool
	pollInterval   time.Duration
	dockerHost     string
	all            bool
	noServices     bool
	actionInterval time.Duration
	metrics        bool
	metricsPort    int
	logLevel       string
	logFile        string
}

type runFunc func(ctx context.Context, cfg *config.Config) error

func newRootCmd(runner runFunc) *cobra.Command {
	f := &cliFlags{}
	cmd := &cobra.Command{
		Use:   "dockgen [template]",
		Short: "Generate files from Docker engine state",
		Long: `dockgen renders a template against the containers, services, tasks, nodes and
networks of a Docker engine, rewrites the target file when the output changes,
then restarts or signals the containers that depend on it.

A template starting with '#' is used as inline template text.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(f, cmd.Flags().Changed, args)
			if err != nil {
				return err
			}
			return runner(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configFile, "config", "", "path to a YAML config file")
	fl.StringVar(&f.envFile, "env-file", "", "dotenv file loaded before DOCKGEN_* overrides")
	fl.StringVar(&f.target, "target", "", "file to write; prints to stdout when empty")
	fl.StringArrayVar(&f.restart, "restart", nil, "restart matching containers (or force-update services) after changes; a target with * or ? globs names when nothing else matches; repeatable")
	fl.StringArrayVar(&f.signal, "signal", nil, "send a signal to matching containers after changes, as target:SIGNAL; globbing as for --restart; repeatable")
	fl.StringVar(&f.interval, "interval", "", "min[,max] delay before running actions (seconds or durations, default 0.5,2)")
	fl.BoolVar(&f.oneShot, "one-shot", false, "render once, run actions and exit")
	fl.BoolVar(&f.watchTemplate, "watch-template", false, "re-render when the template file changes")
	fl.DurationVar(&f.pollInterval, "poll-interval", 0, "re-render periodically even without events (0 disables)")
	fl.StringVar(&f.dockerHost, "docker-host", "", "engine endpoint; defaults to DOCKER_HOST")
	fl.BoolVar(&f.all, "all", false, "include stopped containers")
	fl.BoolVar(&f.noServices, "no-services", false, "do not list swarm services")
	fl.DurationVar(&f.actionInterval, "action-interval", 0, "minimum spacing between engine actions")
	fl.BoolVar(&f.metrics, "metrics", false, "serve /metrics and /status")
	fl.IntVar(&f.metricsPort, "metrics-port", 0, "metrics listen port")
	fl.StringVar(&f.logLevel, "log-level", "", "trace, debug, info, warn or error")
	fl.StringVar(&f.logFile, "log-file", "", "also write logs to this file")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dockgen %s\n", Version)
			if GitCommit != "unknown" {
				fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", GitCommit)
			}
		},
	})
	return cmd
}

// resolveConfig layers defaults, the config file, the env file, DOCKGEN_*
// variables and explicitly set flags, in increasing precedence.
func resolveConfig(f *cliFlags, changed func(string) bool, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configFile != "" {
		c, err := config.LoadConfigFromFile(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed loading config: %w", err)
		}
		cfg = c
	}
	if f.envFile != "" {
		if err := config.LoadEnvFile(f.envFile); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	if len(args) == 1 {
		cfg.Template = args[0]
	}
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"target", func() { cfg.Target = f.target }},
		{"restart", func() { cfg.Restart = f.restart }},
		{"signal", func() { cfg.Signal = f.signal }},
		{"interval", func() { cfg.Interval = f.interval }},
		{"one-shot", func() { cfg.OneShot = f.oneShot }},
		{"watch-template", func() { cfg.WatchTemplate = f.watchTemplate }},
		{"poll-interval", func() { cfg.PollInterval = f.pollInterval }},
		{"docker-host", func() { cfg.DockerHost = f.dockerHost }},
		{"all", func() { cfg.AllContainers = f.all }},
		{"no-services", func() { cfg.UseServices = !f.noServices }},
		{"action-interval", func() { cfg.ActionInterval = f.actionInterval }},
		{"metrics", func() { cfg.MetricsEnabled = f.metrics }},
		{"metrics-port", func() { cfg.MetricsPort = f.metricsPort }},
		{"log-level", func() { cfg.LogLevel = f.logLevel }},
		{"log-file", func() { cfg.LogFile = f.logFile }},
	}
	for _, o := range overrides {
		if changed(o.flag) {
			o.apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cleanup, err := logging.Init(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()
	for _, w := range cfg.Warnings() {
		logging.Get().Warn().Str("warning", w).Msg("config validation")
	}

	initMetricsAndInflux(ctx, cfg)
	ensureDockerSocketAccessible(cfg.DockerHost)

	cli, err := docker.NewClientWithOptions(docker.Options{
		Host:         cfg.DockerHost,
		All:          cfg.AllContainers,
		StopTimeout:  cfg.StopTimeout,
		SkipServices: !cfg.UseServices,
	})
	if err != nil {
		return err
	}
	defer cli.Close()

	d, notifier, err := buildDaemon(cfg, cli)
	if err != nil {
		return err
	}

	if cfg.OneShot {
		logging.Get().Info().Msg("one-shot: rendering once")
		err := d.RunOnce(ctx)
		waitNotifier(notifier)
		return err
	}
	return startDaemonAndWait(d)
}

// buildDaemon wires the facade, notifier, dispatcher and generator into a
// daemon.
func buildDaemon(cfg *config.Config, cli docker.Client) (*daemon.Daemon, *notify.MultiNotifier, error) {
	minDelay, maxDelay, err := cfg.Intervals()
	if err != nil {
		return nil, nil, err
	}
	parsed, err := cfg.SignalTargets()
	if err != nil {
		return nil, nil, err
	}
	signals := make([]actions.SignalTarget, 0, len(parsed))
	for _, s := range parsed {
		signals = append(signals, actions.SignalTarget{Target: s.Target, Signal: s.Signal})
	}

	api := docker.NewAPI(cli, nil)
	notifier := notify.New(notify.Level(strings.ToLower(cfg.NotificationLevel)), notify.Providers{
		Slack:          cfg.SlackWebhook,
		Discord:        cfg.DiscordWebhook,
		Teams:          cfg.TeamsWebhook,
		Generic:        cfg.GenericWebhookURL,
		Apprise:        cfg.AppriseURL,
		TelegramToken:  cfg.TelegramToken,
		TelegramChatID: cfg.TelegramChatID,
		MastodonServer: cfg.MastodonServer,
		MastodonToken:  cfg.MastodonToken,
		GotifyURL:      cfg.GotifyURL,
		GotifyToken:    cfg.GotifyToken,
		PushoverUser:   cfg.PushoverUser,
		PushoverToken:  cfg.PushoverToken,
		Email: notify.EmailConfig{
			Host: cfg.EmailHost,
			Port: cfg.EmailPort,
			User: cfg.EmailUser,
			Pass: cfg.EmailPass,
			To:   cfg.EmailTo,
		},
	})
	dispatcher := actions.New(cli, api, actions.Options{
		Interval:         cfg.ActionInterval,
		Burst:            cfg.ActionBurst,
		Notifier:         notifier,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		BreakerCooldown:  cfg.CircuitBreakerCooldown,
	})
	gen, err := generator.New(cfg.Template, api, generator.Options{
		Target:   cfg.Target,
		Resolver: images.NewResolver(),
	})
	if err != nil {
		return nil, nil, err
	}
	d := daemon.New(gen, dispatcher, cli, daemon.Options{
		Restarts:      cfg.Restart,
		Signals:       signals,
		MinInterval:   minDelay,
		MaxInterval:   maxDelay,
		PollInterval:  cfg.PollInterval,
		EventActions:  cfg.EventActions,
		WatchTemplate: cfg.WatchTemplate,
		Notifier:      notifier,
	})
	return d, notifier, nil
}

func waitNotifier(n *notify.MultiNotifier) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := n.Wait(ctx); err != nil {
		logging.Get().Warn().Err(err).Msg("timed out waiting for notifiers to finish")
	}
}

// startDaemonAndWait runs the daemon until SIGINT or SIGTERM.
func startDaemonAndWait(d *daemon.Daemon) error {
	go d.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Get().Info().Msg("shutdown signal received, waiting for active operations to complete")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	d.Stop(shutdownCtx)
	return nil
}

// initMetricsAndInflux starts the optional metrics server and Influx pusher.
func initMetricsAndInflux(ctx context.Context, cfg *config.Config) {
	if cfg.MetricsEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			logging.Get().Info().Str("addr", addr).Msg("starting metrics server")
			srv := &http.Server{Addr: addr, Handler: metrics.NewMux(), ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Get().Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}
	if cfg.InfluxURL != "" {
		go metrics.StartInfluxPusher(ctx, cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, cfg.InfluxInterval)
	}
}

// socketPath returns the unix socket behind host, or "" for other transports.
func socketPath(host string) string {
	if host == "" {
		host = os.Getenv("DOCKER_HOST")
	}
	if host == "" {
		return "/var/run/docker.sock"
	}
	if p, ok := strings.CutPrefix(host, "unix://"); ok {
		return p
	}
	return ""
}

// checkDockerSocketAccess verifies the socket is openable for read/write.
// A missing socket is not an error; the engine may simply be remote.
func checkDockerSocketAccess(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return err
		}
		_ = f.Close()
		return nil
	}
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func ensureDockerSocketAccessible(host string) {
	path := socketPath(host)
	if path == "" {
		return
	}
	if err := checkDockerSocketAccess(path); err != nil {
		if os.IsPermission(err) {
			logging.Get().Warn().Str("socket", path).Msg("permission denied accessing the docker socket: add the docker group (e.g. --group-add docker)")
			return
		}
		logging.Get().Warn().Err(err).Str("socket", path).Msg("problem accessing the docker socket; continuing but operations may fail")
	}
}
