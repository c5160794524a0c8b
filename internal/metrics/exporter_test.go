package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "affentanz",
		Name:      "test_total",
		Help:      "Test counter",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	e := NewExporterWithRegistry(":0", reg).WithStatus(func() any {
		return map[string]string{"state": "running"}
	})
	handler := e.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "affentanz_test_total 3")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"state":"running"}`, rec.Body.String())
}

func TestExporterWithoutStatus(t *testing.T) {
	e := NewExporterWithRegistry(":0", prometheus.NewRegistry())
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewExporterRegistersRuntimeCollectors(t *testing.T) {
	e := NewExporter(":0")
	families, err := e.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}

func TestExporterServeShutdown(t *testing.T) {
	e := NewExporterWithRegistry("127.0.0.1:0", prometheus.NewRegistry())
	addr, err := e.Listen()
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Serve() }()

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))
	require.NoError(t, <-errCh)
	require.NoError(t, e.Shutdown(ctx))
}
