// Package metrics exports scheduler runtime statistics as Prometheus
// collectors, following the standalone pkg/monitoring package's
// "GaugeVec/CounterVec struct plus an HTTP server" split this repo was
// adapted from.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khryptorgraphics/actlyrt/pkg/sched"
)

// SchedulerMetrics holds every Prometheus collector the scheduler
// runtime exposes: per-core dispatch counters, steal counters, and
// timer load. The cumulative counters
// (CoreScheduled, CoreYields, ...) are Gauges rather than Counters:
// their values already live as atomic totals inside pkg/sched, and
// Sample just mirrors the current value on every poll rather than
// re-deriving a delta, which would require tracking a second copy of
// state this package has no business owning.
type SchedulerMetrics struct {
	registry *prometheus.Registry

	CoreScheduled   *prometheus.GaugeVec
	CoreYields      *prometheus.GaugeVec
	CoreMigrations  *prometheus.GaugeVec
	CoreIdleTicks   *prometheus.GaugeVec
	CoreQueueDepth  *prometheus.GaugeVec
	ProcessesLive   prometheus.Gauge
	StealsSucceeded prometheus.Gauge
	StealsFailed    prometheus.Gauge
	TimersPending   prometheus.Gauge
}

// NewSchedulerMetrics builds and registers every collector against a
// dedicated registry, so embedding this package never collides with
// default-registry metrics a host application already exports.
func NewSchedulerMetrics() *SchedulerMetrics {
	m := &SchedulerMetrics{
		registry: prometheus.NewRegistry(),

		CoreScheduled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "actlyrt_core_scheduled",
				Help: "Total processes dispatched to RUNNING so far, per core.",
			},
			[]string{"core"},
		),
		CoreYields: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "actlyrt_core_yields",
				Help: "Total voluntary yields handled so far, per core.",
			},
			[]string{"core"},
		),
		CoreMigrations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "actlyrt_core_migrations",
				Help: "Total processes migrated onto a core via work-stealing so far.",
			},
			[]string{"core"},
		),
		CoreIdleTicks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "actlyrt_core_idle_ticks",
				Help: "Total times a core's Dispatcher found nothing to run so far.",
			},
			[]string{"core"},
		),
		CoreQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "actlyrt_core_queue_depth",
				Help: "Current ready-queue depth, per core, summed across priorities.",
			},
			[]string{"core"},
		),
		ProcessesLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "actlyrt_processes_live",
				Help: "Number of live (non-terminated) processes tracked by the Store.",
			},
		),
		StealsSucceeded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "actlyrt_steals_succeeded",
				Help: "Total successful work-stealing operations so far.",
			},
		),
		StealsFailed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "actlyrt_steals_failed",
				Help: "Total work-stealing rounds that found no eligible victim so far.",
			},
		),
		TimersPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "actlyrt_timers_pending",
				Help: "Number of timers currently scheduled in the timer wheel.",
			},
		),
	}

	m.registry.MustRegister(
		m.CoreScheduled,
		m.CoreYields,
		m.CoreMigrations,
		m.CoreIdleTicks,
		m.CoreQueueDepth,
		m.ProcessesLive,
		m.StealsSucceeded,
		m.StealsFailed,
		m.TimersPending,
	)
	return m
}

// Sample reads the current state of rt and updates every collector.
// Intended to be called periodically by Run; polling the atomic
// totals is cheaper than reacting to each individual event.
func (m *SchedulerMetrics) Sample(rt *sched.Runtime) {
	for _, core := range rt.Cores() {
		id := strconv.Itoa(core.ID())
		stats := core.Stats()
		m.CoreScheduled.WithLabelValues(id).Set(float64(stats.TotalScheduled))
		m.CoreYields.WithLabelValues(id).Set(float64(stats.TotalYields))
		m.CoreMigrations.WithLabelValues(id).Set(float64(stats.TotalMigrations))
		m.CoreIdleTicks.WithLabelValues(id).Set(float64(stats.IdleTicks))
		m.CoreQueueDepth.WithLabelValues(id).Set(float64(core.QueueLoad()))
	}
	m.ProcessesLive.Set(float64(rt.Store().Count()))

	succeeded, failed := rt.Balancer().Stats()
	m.StealsSucceeded.Set(float64(succeeded))
	m.StealsFailed.Set(float64(failed))
	m.TimersPending.Set(float64(rt.Timers().Pending()))
}

// Registry exposes the underlying Prometheus registry, e.g. for a
// host that wants to merge it into its own /metrics mux.
func (m *SchedulerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Server serves /metrics and /health on addr using this registry.
type Server struct {
	http *http.Server
}

// NewServer builds a metrics HTTP server bound to addr (e.g. ":9090").
func NewServer(addr string, m *SchedulerMetrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return &Server{http: &http.Server{Addr: addr, Handler: mux}}
}

// Start runs the metrics server until it errors or is shut down.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Run samples rt into m every interval until ctx is cancelled.
func Run(ctx context.Context, rt *sched.Runtime, m *SchedulerMetrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample(rt)
		}
	}
}
