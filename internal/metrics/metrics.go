package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

// Collector owns a private registry so several instances can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	ledgerEventsTotal   *prometheus.CounterVec
	eventsDropped       prometheus.Counter
	bookingConflicts    prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ledgerEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_total",
				Help: "Ledger events delivered by the dispatcher",
			},
			[]string{"type"},
		),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_events_dropped_total",
			Help: "Ledger events discarded because the dispatcher queue was full",
		}),
		bookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_booking_conflicts_total",
			Help: "Booking attempts rejected because the slot was already taken",
		}),
	}

	c.registry.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.ledgerEventsTotal,
		c.eventsDropped,
		c.bookingConflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDroppedEvent is meant for events.WithDropHook.
func (c *Collector) RecordDroppedEvent() {
	c.eventsDropped.Inc()
}

func (c *Collector) RecordBookingConflict() {
	c.bookingConflicts.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Name() string { return "metrics" }

// Handle implements events.Sink.
func (c *Collector) Handle(_ context.Context, ev events.Event) error {
	c.ledgerEventsTotal.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// HTTPMiddleware labels requests with the matched chi route pattern rather than the raw path,
// which keeps label cardinality bounded.
func (c *Collector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		c.RecordHTTPRequest(r.Method, route, wrapped.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
