// Package actions restarts, signals and force-updates the resources that
// depend on the generated file.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/docker/docker/api/types/swarm"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dockgen/dockgen/internal/logging"
	"github.com/dockgen/dockgen/internal/metrics"
	"github.com/dockgen/dockgen/internal/notify"
	"github.com/dockgen/dockgen/internal/resources"
)

// Engine performs the side effects. docker.Client satisfies it.
type Engine interface {
	Restart(ctx context.Context, id string) error
	Signal(ctx context.Context, id, signal string) error
	ForceUpdateService(ctx context.Context, svc *swarm.Service) error
}

// Source lists the resources targets are resolved against. *docker.API
// satisfies it.
type Source interface {
	Containers(ctx context.Context) (resources.ContainerList, error)
	Services(ctx context.Context) (resources.ServiceList, error)
}

// SignalTarget pairs a target with the signal it receives.
type SignalTarget struct {
	Target string
	Signal string
}

// Options tune a Dispatcher. Zero values mean no rate limit, no
// notifications and the "actions" component logger.
type Options struct {
	// Interval is the minimum spacing between engine calls.
	Interval time.Duration
	Burst    int
	Notifier notify.Notifier
	Logger   *zerolog.Logger

	// After BreakerThreshold consecutive failures of the same action,
	// notifications for it are suppressed for BreakerCooldown. 0 never
	// suppresses.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type failureInfo struct {
	count           int
	lastFailureAt   time.Time
	suppressedUntil time.Time
}

// Dispatcher resolves targets with Matching and applies actions to every
// match. Failures are counted, logged and reported; they never stop the
// remaining actions.
type Dispatcher struct {
	engine   Engine
	source   Source
	limiter  *rate.Limiter
	notifier notify.Notifier
	log      *zerolog.Logger
	opts     Options
	now      func() time.Time

	cbMu     sync.Mutex
	failures map[string]*failureInfo
}

func New(engine Engine, source Source, opts Options) *Dispatcher {
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	log := opts.Logger
	if log == nil {
		log = logging.Component("actions")
	}
	return &Dispatcher{
		engine:   engine,
		source:   source,
		limiter:  rate.NewLimiter(limit, burst),
		notifier: opts.Notifier,
		log:      log,
		opts:     opts,
		now:      time.Now,
		failures: make(map[string]*failureInfo),
	}
}

// Run restarts every restart target, then signals every signal target.
func (d *Dispatcher) Run(ctx context.Context, restarts []string, signals []SignalTarget) error {
	var errs []error
	for _, t := range restarts {
		if err := d.Restart(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range signals {
		if err := d.Signal(ctx, s.Target, s.Signal); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Restart force-updates the swarm services matching target. When no service
// matches it restarts every matching container instead.
func (d *Dispatcher) Restart(ctx context.Context, target string) error {
	services, err := d.source.Services(ctx)
	if err != nil {
		return d.fail(ctx, "restart", target, fmt.Errorf("list services: %w", err))
	}
	if matched := resolve(services, target); len(matched) > 0 {
		var errs []error
		for _, svc := range matched {
			raw, _ := svc.Raw().(*swarm.Service)
			err := d.apply(ctx, "update", svc.Name(), func() error { return d.engine.ForceUpdateService(ctx, raw) })
			if err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	containers, err := d.source.Containers(ctx)
	if err != nil {
		return d.fail(ctx, "restart", target, fmt.Errorf("list containers: %w", err))
	}
	matched := resolve(containers, target)
	if len(matched) == 0 {
		d.log.Warn().Str("target", target).Msg("no container or service matches restart target")
		return nil
	}
	var errs []error
	for _, c := range matched {
		id := c.ID()
		if err := d.apply(ctx, "restart", c.Name(), func() error { return d.engine.Restart(ctx, id) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Signal sends signal to every container matching target.
func (d *Dispatcher) Signal(ctx context.Context, target, signal string) error {
	containers, err := d.source.Containers(ctx)
	if err != nil {
		return d.fail(ctx, "signal", target, fmt.Errorf("list containers: %w", err))
	}
	matched := resolve(containers, target)
	if len(matched) == 0 {
		d.log.Warn().Str("target", target).Str("signal", signal).Msg("no container matches signal target")
		return nil
	}
	var errs []error
	for _, c := range matched {
		id := c.ID()
		if err := d.apply(ctx, "signal", c.Name(), func() error { return d.engine.Signal(ctx, id, signal) }); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// apply waits for the limiter, runs fn and records the outcome.
func (d *Dispatcher) apply(ctx context.Context, kind, name string, fn func() error) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return d.fail(ctx, kind, name, fmt.Errorf("rate limit: %w", err))
	}
	if err := fn(); err != nil {
		return d.fail(ctx, kind, name, err)
	}
	metrics.IncAction(kind)
	d.clearFailure(kind + " " + name)
	d.log.Info().Str("action", kind).Str("name", name).Msg("action applied")
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, kind, name string, err error) error {
	metrics.IncActionFailed(kind)
	d.log.Error().Err(err).Str("action", kind).Str("name", name).Msg("action failed")
	if d.notifier != nil && d.shouldNotify(kind+" "+name) {
		d.notifier.Notify(ctx, notify.Event{
			Title:   fmt.Sprintf("dockgen: %s of %s failed", kind, name),
			Message: err.Error(),
			Failure: true,
		})
	}
	return fmt.Errorf("%s %s: %w", kind, name, err)
}

// resolve uses Matching, falling back to name globbing when nothing matched
// and target contains a wildcard.
func resolve[T resources.Resource](list resources.List[T], target string) resources.List[T] {
	matched := list.Matching(target)
	if len(matched) > 0 || !strings.ContainsAny(target, "*?") {
		return matched
	}
	var out resources.List[T]
	for _, r := range list {
		if wildcard.Match(target, r.Name()) {
			out = append(out, r)
		}
	}
	return out
}

// shouldNotify records a failure of key and reports whether it should be
// reported: up to BreakerThreshold times in a row, then again once
// BreakerCooldown has passed.
func (d *Dispatcher) shouldNotify(key string) bool {
	now := d.now()
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	fi, ok := d.failures[key]
	if !ok {
		d.failures[key] = &failureInfo{count: 1, lastFailureAt: now}
		return true
	}
	if fi.suppressedUntil.After(now) {
		fi.count++
		fi.lastFailureAt = now
		return false
	}
	if now.Sub(fi.lastFailureAt) > d.opts.BreakerCooldown {
		*fi = failureInfo{count: 1, lastFailureAt: now}
		return true
	}
	fi.count++
	fi.lastFailureAt = now
	if d.opts.BreakerThreshold > 0 && fi.count > d.opts.BreakerThreshold {
		fi.suppressedUntil = now.Add(d.opts.BreakerCooldown)
		return false
	}
	return true
}

func (d *Dispatcher) clearFailure(key string) {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	delete(d.failures, key)
}
