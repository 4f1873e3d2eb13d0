// Package notify delivers operator notifications about failed actions to
// chat webhooks.
package notify

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dockgen/dockgen/internal/logging"
)

// DefaultNotifierCooldown is the default cooldown between notifications to
// the same provider.
var DefaultNotifierCooldown = 100 * time.Millisecond

// NotifierRetry settings (can be tuned in tests)
var notifierMaxRetries = 3
var notifierBaseBackoff = 100 * time.Millisecond

// notifierBackoffJitter adds up to this random duration to backoff
var notifierBackoffJitter = 0 * time.Millisecond

// sleepHook is used in tests to avoid sleeping for real
var sleepHook = time.Sleep

// Service is the interface all notifiers must implement
type Service interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Level selects which events are delivered.
type Level string

const (
	LevelAll     Level = "all"
	LevelFailure Level = "failure"
	LevelNone    Level = "none"
)

// Event is one notification.
type Event struct {
	Title   string
	Message string
	Failure bool
}

// Notifier is what the rest of dockgen depends on.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// MultiNotifier bundles all active services
type MultiNotifier struct {
	services []Service
	level    Level
	// lastSent tracks last successful send per service name
	lastSent map[string]time.Time
	cooldown time.Duration
	// per-provider cooldowns
	providerCooldowns map[string]time.Duration
	log               *zerolog.Logger
	mu                sync.Mutex
	wg                sync.WaitGroup
}

// NewMultiNotifier returns a notifier delivering events allowed by level.
// An empty level means failures only.
func NewMultiNotifier(level Level) *MultiNotifier {
	if level == "" {
		level = LevelFailure
	}
	return &MultiNotifier{
		level:    level,
		lastSent: make(map[string]time.Time),
		cooldown: DefaultNotifierCooldown,
		log:      logging.Component("notify"),
	}
}

// SetProviderCooldown sets a cooldown for a named provider (by Service.Name())
func (m *MultiNotifier) SetProviderCooldown(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.providerCooldowns == nil {
		m.providerCooldowns = make(map[string]time.Duration)
	}
	m.providerCooldowns[name] = d
}

// providerCooldown returns the cooldown for a given provider or the global
// default. Callers hold m.mu.
func (m *MultiNotifier) providerCooldown(name string) time.Duration {
	if v, ok := m.providerCooldowns[name]; ok {
		return v
	}
	return m.cooldown
}

// SetCooldown adjusts the global cooldown.
func (m *MultiNotifier) SetCooldown(d time.Duration) {
	m.mu.Lock()
	m.cooldown = d
	m.mu.Unlock()
}

func (m *MultiNotifier) Add(s Service) {
	if s != nil {
		m.services = append(m.services, s)
	}
}

func (m *MultiNotifier) Len() int {
	return len(m.services)
}

// Wait waits for pending notification sends to complete or until the provided
// context is cancelled.
func (m *MultiNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wants reports whether ev passes the level filter.
func (m *MultiNotifier) Wants(ev Event) bool {
	switch m.level {
	case LevelNone:
		return false
	case LevelAll:
		return true
	}
	return ev.Failure
}

// Notify filters ev by level and sends it asynchronously to every service.
func (m *MultiNotifier) Notify(ctx context.Context, ev Event) {
	if !m.Wants(ev) {
		return
	}
	m.Send(ctx, ev.Title, ev.Message)
}

// Send sends notifications to all services with per-service retries and a
// cooldown to avoid spamming.
func (m *MultiNotifier) Send(ctx context.Context, title, message string) {
	now := time.Now()
	for _, s := range m.services {
		m.wg.Add(1)
		go func(svc Service) {
			defer m.wg.Done()
			name := svc.Name()
			if m.inCooldown(name, now) {
				m.log.Warn().Str("service", name).Msg("skipping notification due to cooldown")
				return
			}
			if err := m.sendWithRetries(ctx, svc, title, message); err != nil {
				m.log.Error().Err(err).Str("service", name).Msg("all notification retries failed")
			}
		}(s)
	}
}

func (m *MultiNotifier) inCooldown(name string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastSent[name]
	return ok && now.Sub(last) < m.providerCooldown(name)
}

// sendWithRetries attempts to send a notification with retries and backoff.
// Returns the last error if every attempt fails.
func (m *MultiNotifier) sendWithRetries(ctx context.Context, s Service, title, message string) error {
	name := s.Name()
	var lastErr error
	for attempt := 1; attempt <= notifierMaxRetries; attempt++ {
		err := s.Send(ctx, title, message)
		if err == nil {
			m.mu.Lock()
			m.lastSent[name] = time.Now()
			m.mu.Unlock()
			m.log.Debug().Str("service", name).Msg("notification sent")
			return nil
		}
		lastErr = err
		m.log.Warn().Err(err).Str("service", name).Int("attempt", attempt).Msg("notification attempt failed")
		if attempt == notifierMaxRetries {
			break
		}
		if err := sleepCtx(ctx, backoffDuration(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// sleepCtx sleeps through sleepHook unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	done := make(chan struct{})
	go func() {
		sleepHook(d)
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoffDuration doubles per attempt and adds optional jitter.
func backoffDuration(attempt int) time.Duration {
	d := notifierBaseBackoff * time.Duration(1<<uint(attempt-1))
	if notifierBackoffJitter > 0 {
		max := big.NewInt(int64(notifierBackoffJitter))
		if n, err := crand.Int(crand.Reader, max); err == nil {
			d += time.Duration(n.Int64())
		}
	}
	return d
}

// postJSON is a shared helper used by providers
func postJSON(ctx context.Context, url string, data any) error {
	return postJSONWithHeaders(ctx, url, data, nil)
}

// postJSONWithHeaders posts data as JSON with extra request headers, for
// providers that authenticate by header.
func postJSONWithHeaders(ctx context.Context, url string, data any, headers map[string]string) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}
	return nil
}
