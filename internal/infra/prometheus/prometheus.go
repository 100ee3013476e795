package prometheus

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sifan077/ShortcutURL/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	defaultPort       = 9090
	defaultPath       = "/metrics"
)

// NewServer builds the side server that exposes gatherer on cfg.Path for
// Prometheus scraping. A nil gatherer serves the default registry, where the
// request, link, redirect and billing collectors live.
func NewServer(cfg config.PrometheusConfig, gatherer prometheus.Gatherer) *http.Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath(cfg.Path), promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func metricsPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return defaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
