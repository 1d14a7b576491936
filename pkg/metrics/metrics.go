package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	OrdersCreated           prometheus.Counter
	ReservationRejected     *prometheus.CounterVec
	OrdersCancelled         prometheus.Counter
	CompensationFailures    prometheus.Counter
	ReconciliationsRecorded prometheus.Counter
	ReconciliationsApplied  prometheus.Counter
	OutboxDispatched        *prometheus.CounterVec
	HTTPDuration            *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		reg: reg,
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders created with stock reserved.",
		}),
		ReservationRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_reservations_rejected_total",
			Help: "Order reservations rejected, by error kind.",
		}, []string{"kind"}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_cancelled_total",
			Help: "Orders cancelled with stock restituted.",
		}),
		CompensationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_compensation_failures_total",
			Help: "Stock compensations that exhausted their retries.",
		}),
		ReconciliationsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_reconciliations_recorded_total",
			Help: "Stock reconciliation records written.",
		}),
		ReconciliationsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_reconciliations_applied_total",
			Help: "Stock reconciliation records applied by the reconciler.",
		}),
		OutboxDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_outbox_dispatched_total",
			Help: "Outbox events handed to Kafka, by result.",
		}, []string{"result"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.OrdersCreated,
		m.ReservationRejected,
		m.OrdersCancelled,
		m.CompensationFailures,
		m.ReconciliationsRecorded,
		m.ReconciliationsApplied,
		m.OutboxDispatched,
		m.HTTPDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware observes request latency labelled by the matched chi route
// pattern, so path parameters do not explode the label set.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
