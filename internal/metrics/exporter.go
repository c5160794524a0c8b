// Package metrics serves Prometheus metrics and the live run status over HTTP.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pepperonas/Affentanz/internal/logging"
)

const defaultReadHeaderTimeout = 10 * time.Second

// StatusFunc returns a JSON-encodable snapshot served at /status.
type StatusFunc func() any

// Exporter serves /metrics, /health and optionally /status.
type Exporter struct {
	addr     string
	registry *prometheus.Registry
	status   StatusFunc
	logger   zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewExporter creates an exporter with Go runtime and process collectors
// plus the given collectors.
func NewExporter(addr string, cs ...prometheus.Collector) *Exporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(cs...)
	return NewExporterWithRegistry(addr, reg)
}

// NewExporterWithRegistry creates an exporter serving a custom registry.
func NewExporterWithRegistry(addr string, registry *prometheus.Registry) *Exporter {
	return &Exporter{
		addr:     addr,
		registry: registry,
		logger:   logging.Component("metrics"),
	}
}

// WithStatus serves fn's result as JSON at /status.
func (e *Exporter) WithStatus(fn StatusFunc) *Exporter {
	e.status = fn
	return e
}

// Registry returns the underlying Prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the exporter's HTTP routes.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if e.status != nil {
		mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(e.status()); err != nil {
				e.logger.Warn().Err(err).Msg("failed to encode status")
			}
		})
	}
	return mux
}

// Listen binds the configured address and returns the bound address.
func (e *Exporter) Listen() (net.Addr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listener != nil {
		return e.listener.Addr(), nil
	}
	ln, err := net.Listen("tcp", e.addr)
	if err != nil {
		return nil, err
	}
	e.listener = ln
	e.server = &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	return ln.Addr(), nil
}

// Serve serves until Shutdown. It listens first when Listen was not called.
// A graceful shutdown returns nil.
func (e *Exporter) Serve() error {
	addr, err := e.Listen()
	if err != nil {
		return err
	}

	e.mu.Lock()
	server, ln := e.server, e.listener
	e.mu.Unlock()

	e.logger.Info().Str("addr", addr.String()).Msg("serving metrics")
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the exporter.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.server == nil {
		return nil
	}
	err := e.server.Shutdown(ctx)
	e.server = nil
	e.listener = nil
	return err
}
