// Package metrics exposes draw and HTTP metrics in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xtding233/giftdraw/internal/gacha"
)

const namespace = "giftdraw"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	draws         *prometheus.CounterVec
	drawErrors    *prometheus.CounterVec
	drawDuration  *prometheus.HistogramVec
	itemsAwarded  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	deliveries    *prometheus.CounterVec
	broadcastSent *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draw",
			Name:      "total",
			Help:      "Completed draws by tier, item and boost.",
		}, []string{"tier", "item", "boost"}),
		drawErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draw",
			Name:      "errors_total",
			Help:      "Failed draws by tier and reason.",
		}, []string{"tier", "reason"}),
		drawDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "draw",
			Name:      "duration_seconds",
			Help:      "Draw latency including the store round trip.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"tier"}),
		itemsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draw",
			Name:      "items_total",
			Help:      "Awarded items by kind.",
		}, []string{"item"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "total",
			Help:      "Gift deliveries by result (delivered, upgraded, fallback).",
		}, []string{"result"}),
		broadcastSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "messages_total",
			Help:      "Broadcast messages by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		m.draws, m.drawErrors, m.drawDuration, m.itemsAwarded,
		m.httpRequests, m.httpDuration, m.deliveries, m.broadcastSent,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// ObserveDraw implements gacha.Observer.
func (m *Metrics) ObserveDraw(tier gacha.Tier, item gacha.Item, boost float64, elapsed time.Duration) {
	m.draws.WithLabelValues(string(tier), string(item), strconv.FormatFloat(boost, 'f', -1, 64)).Inc()
	m.itemsAwarded.WithLabelValues(string(item)).Inc()
	m.drawDuration.WithLabelValues(string(tier)).Observe(elapsed.Seconds())
}

// ObserveDrawError implements gacha.Observer.
func (m *Metrics) ObserveDrawError(tier gacha.Tier, reason string) {
	m.drawErrors.WithLabelValues(string(tier), reason).Inc()
}

func (m *Metrics) ObserveDelivery(result string) {
	m.deliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveBroadcast(sent, failed int) {
	m.broadcastSent.WithLabelValues("sent").Add(float64(sent))
	m.broadcastSent.WithLabelValues("failed").Add(float64(failed))
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by mux route
// template, so path ids do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
