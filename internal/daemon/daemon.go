// Package daemon drives regeneration: it reacts to engine events, polls as
// a fallback, watches the template file and debounces dependent actions.
package daemon

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dockgen/dockgen/internal/actions"
	"github.com/dockgen/dockgen/internal/logging"
	"github.com/dockgen/dockgen/internal/metrics"
	"github.com/dockgen/dockgen/internal/notify"
	"github.com/dockgen/dockgen/internal/timer"
)

const defaultReconnectDelay = 5 * time.Second

// Generator renders the target. *generator.Generator satisfies it.
type Generator interface {
	Update(ctx context.Context) (bool, error)
	Reload() error
	TemplatePath() string
}

// Actions runs the restart and signal targets. *actions.Dispatcher
// satisfies it.
type Actions interface {
	Run(ctx context.Context, restarts []string, signals []actions.SignalTarget) error
}

// EventSource streams engine events. docker.Client satisfies it.
type EventSource interface {
	Events(ctx context.Context, args filters.Args) (<-chan events.Message, <-chan error)
}

type Options struct {
	Restarts []string
	Signals  []actions.SignalTarget

	// MinInterval and MaxInterval bound the delay between a changed target
	// and the actions.
	MinInterval time.Duration
	MaxInterval time.Duration

	// PollInterval re-renders periodically; 0 disables polling.
	PollInterval time.Duration

	// EventActions are the container event actions that trigger a render.
	EventActions   []string
	WatchTemplate  bool
	ReconnectDelay time.Duration

	Notifier *notify.MultiNotifier
	Logger   *zerolog.Logger
}

// Daemon is the watch loop.
type Daemon struct {
	gen    Generator
	acts   Actions
	events EventSource
	opts   Options
	log    *zerolog.Logger
	timer  *timer.Timer
	wanted map[events.Action]bool

	ctx    context.Context
	cancel context.CancelFunc
	quit   chan struct{}
	stop   sync.Once
	wg     sync.WaitGroup // tracks the watcher goroutines
	updMu  sync.Mutex     // serializes renders
	actMu  sync.Mutex     // serializes action runs
}

func New(gen Generator, acts Actions, src EventSource, opts Options) *Daemon {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if len(opts.EventActions) == 0 {
		opts.EventActions = []string{"start", "stop", "die"}
	}
	d := &Daemon{gen: gen, acts: acts, events: src, opts: opts, log: opts.Logger, quit: make(chan struct{})}
	if d.log == nil {
		d.log = logging.Component("daemon")
	}
	d.wanted = make(map[events.Action]bool, len(opts.EventActions))
	for _, a := range opts.EventActions {
		d.wanted[events.Action(a)] = true
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.timer = timer.New(opts.MinInterval, opts.MaxInterval, d.runActions)
	return d
}

// RunOnce renders once and, when the target changed, runs the actions
// right away.
func (d *Daemon) RunOnce(ctx context.Context) error {
	changed, err := d.gen.Update(ctx)
	if err != nil {
		return err
	}
	if !changed {
		d.log.Info().Msg("target unchanged, no actions to run")
		return nil
	}
	return d.acts.Run(ctx, d.opts.Restarts, d.opts.Signals)
}

// Start renders immediately and then blocks, re-rendering on events,
// polls and template edits, until Stop is called.
func (d *Daemon) Start() {
	d.log.Info().Strs("events", d.opts.EventActions).Dur("poll", d.opts.PollInterval).Msg("starting dockgen")
	d.update(d.ctx, "startup")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.watchEvents(d.ctx)
	}()
	if d.opts.PollInterval > 0 {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.poll(d.ctx)
		}()
	}
	if path := d.gen.TemplatePath(); d.opts.WatchTemplate && path != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			d.log.Warn().Err(err).Msg("template watcher unavailable")
		} else {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.watchTemplate(d.ctx, w, path)
			}()
		}
	}

	<-d.quit
	d.log.Info().Msg("stopping daemon")
}

// update renders and schedules the actions when the target changed.
func (d *Daemon) update(ctx context.Context, reason string) {
	d.updMu.Lock()
	defer d.updMu.Unlock()
	changed, err := d.gen.Update(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		d.log.Error().Err(err).Str("reason", reason).Msg("render failed")
		if d.opts.Notifier != nil {
			d.opts.Notifier.Notify(ctx, notify.Event{Title: "dockgen: render failed", Message: err.Error(), Failure: true})
		}
		return
	}
	if changed {
		d.timer.Schedule()
	}
}

func (d *Daemon) runActions() {
	d.actMu.Lock()
	defer d.actMu.Unlock()
	if len(d.opts.Restarts) == 0 && len(d.opts.Signals) == 0 {
		return
	}
	if err := d.acts.Run(d.ctx, d.opts.Restarts, d.opts.Signals); err != nil {
		d.log.Warn().Err(err).Msg("some actions failed")
	}
}

func (d *Daemon) eventFilters() filters.Args {
	args := filters.NewArgs(filters.Arg("type", string(events.ContainerEventType)))
	for a := range d.wanted {
		args.Add("event", string(a))
	}
	return args
}

// watchEvents subscribes to container events, resubscribing after stream
// errors. Each resubscription re-renders, since events may have been missed.
func (d *Daemon) watchEvents(ctx context.Context) {
	for {
		msgs, errs := d.events.Events(ctx, d.eventFilters())
		err := d.consume(ctx, msgs, errs)
		if ctx.Err() != nil {
			return
		}
		d.log.Warn().Err(err).Dur("retry_in", d.opts.ReconnectDelay).Msg("event stream interrupted")
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.opts.ReconnectDelay):
		}
		d.update(ctx, "reconnect")
	}
}

func (d *Daemon) consume(ctx context.Context, msgs <-chan events.Message, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if msg.Type != events.ContainerEventType || !d.wanted[msg.Action] {
				continue
			}
			name := msg.Actor.Attributes["name"]
			if name == "" {
				name = "<?>"
			}
			d.log.Info().Str("event", string(msg.Action)).Str("container", name).Msg("received event")
			metrics.IncEvent(string(msg.Action))
			d.update(ctx, "event")
		}
	}
}

func (d *Daemon) poll(ctx context.Context) {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.update(ctx, "poll")
		case <-ctx.Done():
			return
		}
	}
}

// watchTemplate watches the template's directory, since editors often
// replace files rather than write them in place.
func (d *Daemon) watchTemplate(ctx context.Context, w *fsnotify.Watcher, path string) {
	defer w.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		d.log.Warn().Err(err).Str("template", path).Msg("cannot watch template")
		return
	}
	d.log.Info().Str("template", abs).Msg("watching template for changes")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := d.gen.Reload(); err != nil {
				d.log.Error().Err(err).Msg("template reload failed, keeping previous template")
				continue
			}
			d.log.Info().Msg("template reloaded")
			d.update(ctx, "template")
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.log.Warn().Err(err).Msg("template watcher error")
		}
	}
}

// Stop ends the loop, runs any pending actions and waits for in-flight
// work until ctx expires.
func (d *Daemon) Stop(ctx context.Context) {
	d.stop.Do(func() { close(d.quit) })

	done := make(chan struct{})
	go func() {
		if d.timer.Flush() {
			d.log.Info().Msg("ran pending actions before shutdown")
		}
		// wait for an in-flight run
		d.actMu.Lock()
		d.cancel()
		d.timer.Cancel()
		d.actMu.Unlock()
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("all active operations completed")
	case <-ctx.Done():
		d.cancel()
		d.log.Warn().Msg("shutdown timeout exceeded, some operations may be incomplete")
	}

	if d.opts.Notifier != nil {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.opts.Notifier.Wait(notifyCtx); err != nil {
			d.log.Warn().Err(err).Msg("timed out waiting for notifiers to finish")
		}
	}
}
