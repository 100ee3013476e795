package prometheus

import (
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortcut_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortcut_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortcut_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)

	// Links
	LinksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortcut_links_created_total",
			Help: "Link creation attempts by outcome",
		},
		[]string{"outcome"},
	)

	RedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortcut_redirects_total",
			Help: "Redirect attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Billing
	BillingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortcut_billing_events_total",
			Help: "Payment provider webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

// RecordHTTP records one finished request.
func RecordHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RegisterPoolStats exports pgx pool connection gauges for pool.
func RegisterPoolStats(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	gauges := []struct {
		name string
		help string
		fn   func(*pgxpool.Stat) float64
	}{
		{"shortcut_db_connections_acquired", "Connections currently in use", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }},
		{"shortcut_db_connections_idle", "Idle connections", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }},
		{"shortcut_db_connections_total", "Total open connections", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }},
	}
	for _, g := range gauges {
		fn := g.fn
		collector := prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return fn(pool.Stat()) },
		)
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
