package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alvinkenyagah/hope-connect-server/internal/ws"
)

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

const metricsNamespace = "hope_connect"

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		r.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		r.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"})

		r.requestTotal = registerOrExisting(r.requestTotal)
		r.requestLatency = registerOrExisting(r.requestLatency)
		r.rateLimitHits = registerOrExisting(r.rateLimitHits)

		registerConnectionsGauge()
		trackHub(r.hub)
		r.metricsInitialized = true
	})
}

var (
	hubsMu          sync.Mutex
	hubs            = make(map[*ws.Hub]struct{})
	connectionsOnce sync.Once
)

// registerConnectionsGauge exports one gauge summing joined connections over every live router's hub.
func registerConnectionsGauge() {
	connectionsOnce.Do(func() {
		registerOrExisting(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Joined realtime connections",
		}, trackedConnections))
	})
}

func trackHub(hub *ws.Hub) {
	if hub == nil {
		return
	}
	hubsMu.Lock()
	hubs[hub] = struct{}{}
	hubsMu.Unlock()
}

func untrackHub(hub *ws.Hub) {
	hubsMu.Lock()
	delete(hubs, hub)
	hubsMu.Unlock()
}

func trackedConnections() float64 {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	total := 0
	for hub := range hubs {
		total += hub.Connections()
	}
	return float64(total)
}

// registerOrExisting registers c, returning the already registered collector of the same type
// when another router registered it first.
func registerOrExisting[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
