package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// flaky fails until its third attempt.
type flaky struct {
	mu    sync.Mutex
	calls int
}

func (f *flaky) Send(ctx context.Context, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls < 3 {
		return errors.New("temporary")
	}
	return nil
}

func (f *flaky) Name() string { return "flaky" }

func (f *flaky) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRetriesThenCooldown(t *testing.T) {
	noSleep(t)
	m := NewMultiNotifier(LevelFailure)
	m.SetCooldown(0)
	m.SetProviderCooldown("flaky", time.Minute)

	svc := &flaky{}
	m.Add(svc)
	m.Notify(context.Background(), Event{Title: "restart failed", Message: "nginx", Failure: true})
	waitAll(t, m)
	if svc.attempts() != 3 {
		t.Fatalf("expected 3 attempts, got %d", svc.attempts())
	}

	// The provider cooldown now suppresses the next event.
	m.Notify(context.Background(), Event{Title: "restart failed", Message: "proxy", Failure: true})
	waitAll(t, m)
	if svc.attempts() != 3 {
		t.Fatalf("expected cooldown to skip the send, got %d attempts", svc.attempts())
	}
}

func TestBackoffSleepsBetweenAttempts(t *testing.T) {
	var mu sync.Mutex
	var slept []time.Duration
	old := sleepHook
	sleepHook = func(d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	}
	t.Cleanup(func() { sleepHook = old })

	oldBase, oldJitter := notifierBaseBackoff, notifierBackoffJitter
	notifierBaseBackoff = 10 * time.Millisecond
	notifierBackoffJitter = 20 * time.Millisecond
	t.Cleanup(func() { notifierBaseBackoff, notifierBackoffJitter = oldBase, oldJitter })

	m := NewMultiNotifier(LevelAll)
	m.Add(&flaky{})
	m.Send(context.Background(), "T", "M")
	waitAll(t, m)

	mu.Lock()
	defer mu.Unlock()
	if len(slept) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(slept))
	}
	if slept[0] < 10*time.Millisecond || slept[0] >= 30*time.Millisecond {
		t.Fatalf("first backoff out of range: %v", slept[0])
	}
	if slept[1] < 20*time.Millisecond || slept[1] >= 40*time.Millisecond {
		t.Fatalf("second backoff out of range: %v", slept[1])
	}
}

func TestRetriesStopWhenContextEnds(t *testing.T) {
	old := sleepHook
	sleepHook = func(time.Duration) { time.Sleep(50 * time.Millisecond) }
	t.Cleanup(func() { sleepHook = old })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMultiNotifier(LevelAll)
	svc := &fakeService{name: "down", fail: true}
	err := m.sendWithRetries(ctx, svc, "T", "M")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if svc.count() != 1 {
		t.Fatalf("expected a single attempt, got %d", svc.count())
	}
}
