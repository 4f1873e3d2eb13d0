// Package metrics provides counters, Prometheus collectors, and HTTP
// handlers for exporting dockgen runtime metrics.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 1. Internal State (Source of Truth)
var (
	renders          int64
	rendersUnchanged int64
	renderFailures   int64
	targetWrites     int64
	eventsHandled    int64
	actionsExecuted  int64
	actionsFailed    int64
	lastRender       int64
)

const counterInc int64 = 1

// 2. Prometheus Collectors
var (
	promRenders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockgen_renders_total",
			Help: "Total template renders by outcome",
		},
		[]string{"result"},
	)
	promWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dockgen_target_writes_total",
			Help: "Total writes of the generated target file",
		},
	)
	promEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockgen_events_total",
			Help: "Total engine events that triggered a render",
		},
		[]string{"action"},
	)
	promActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockgen_actions_total",
			Help: "Total restart/signal/update actions by status",
		},
		[]string{"action", "status"},
	)
	promRenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "dockgen_render_duration_seconds",
			Help: "Duration of state listing plus template rendering",
			Buckets: []float64{
				0.01,
				0.05,
				0.1,
				0.25,
				0.5,
				1,
				2,
				5,
			},
		},
	)
	promLastRender = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dockgen_last_render_timestamp_seconds",
			Help: "Unix timestamp of last successful render",
		},
	)
)

func init() {
	prometheus.MustRegister(
		promRenders,
		promWrites,
		promEvents,
		promActions,
		promRenderDuration,
		promLastRender,
	)
}

// 3. Public API (Updates both Atomic and Prometheus)

// IncRender counts a render whose output changed the target.
func IncRender() {
	atomic.AddInt64(&renders, counterInc)
	promRenders.WithLabelValues("changed").Inc()
}

// IncRenderUnchanged counts a render identical to the current target.
func IncRenderUnchanged() {
	atomic.AddInt64(&rendersUnchanged, counterInc)
	promRenders.WithLabelValues("unchanged").Inc()
}

// IncRenderFailed counts renders that failed to list state, execute the
// template, or write the target.
func IncRenderFailed() {
	atomic.AddInt64(&renderFailures, counterInc)
	promRenders.WithLabelValues("failed").Inc()
}

func IncTargetWrite() {
	atomic.AddInt64(&targetWrites, counterInc)
	promWrites.Inc()
}

// IncEvent counts an engine event by action (start, stop, die, ...).
func IncEvent(action string) {
	atomic.AddInt64(&eventsHandled, counterInc)
	promEvents.WithLabelValues(action).Inc()
}

// IncAction counts a successful action of the given kind.
func IncAction(kind string) {
	atomic.AddInt64(&actionsExecuted, counterInc)
	promActions.WithLabelValues(kind, "success").Inc()
}

// IncActionFailed counts a failed action of the given kind.
func IncActionFailed(kind string) {
	atomic.AddInt64(&actionsFailed, counterInc)
	promActions.WithLabelValues(kind, "failure").Inc()
}

// ObserveRenderDuration records the duration (in seconds) of a render.
func ObserveRenderDuration(seconds float64) {
	promRenderDuration.Observe(seconds)
}

// SetLastRender stores the provided time as the last render timestamp and
// updates the corresponding Prometheus gauge.
func SetLastRender(t time.Time) {
	atomic.StoreInt64(&lastRender, t.Unix())
	promLastRender.Set(float64(t.Unix()))
}

// 4. JSON Snapshot Struct

// StatsSnapshot is a snapshot of metrics for JSON encoding.
type StatsSnapshot struct {
	Renders          int64  `json:"renders"`
	RendersUnchanged int64  `json:"renders_unchanged"`
	RenderFailures   int64  `json:"render_failures"`
	TargetWrites     int64  `json:"target_writes"`
	EventsHandled    int64  `json:"events_handled"`
	ActionsExecuted  int64  `json:"actions_executed"`
	ActionsFailed    int64  `json:"actions_failed"`
	LastRender       int64  `json:"last_render_timestamp"`
	LastRenderHuman  string `json:"last_render_human"`
}

// GetSnapshot returns a StatsSnapshot with the current values of all
// internal counters and timestamps.
func GetSnapshot() StatsSnapshot {
	ts := atomic.LoadInt64(&lastRender)
	human := ""
	if ts > 0 {
		human = time.Unix(ts, 0).Format(time.RFC3339)
	}
	return StatsSnapshot{
		Renders:          atomic.LoadInt64(&renders),
		RendersUnchanged: atomic.LoadInt64(&rendersUnchanged),
		RenderFailures:   atomic.LoadInt64(&renderFailures),
		TargetWrites:     atomic.LoadInt64(&targetWrites),
		EventsHandled:    atomic.LoadInt64(&eventsHandled),
		ActionsExecuted:  atomic.LoadInt64(&actionsExecuted),
		ActionsFailed:    atomic.LoadInt64(&actionsFailed),
		LastRender:       ts,
		LastRenderHuman:  human,
	}
}

// 5. Handlers

// PromHandler returns an HTTP handler that exposes Prometheus metrics.
func PromHandler() http.Handler { return promhttp.Handler() }

// JSONHandler returns an HTTP handler that serves the current metrics as
// a JSON-encoded StatsSnapshot.
func JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GetSnapshot())
	})
}

// NewMux serves /metrics and /status.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", PromHandler())
	mux.Handle("/status", JSONHandler())
	return mux
}
