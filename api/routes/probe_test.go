package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/harvestlink/harvestlink-backend/api/controllers"
	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

type probePinger func(context.Context) error

func (p probePinger) Ping(ctx context.Context) error { return p(ctx) }

func TestProbeRouterServesHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_test_total", Help: "test"}))
	handler := NewProbeRouter(testConfig(), logger.Nop(), reg, map[string]controllers.Pinger{
		"db": probePinger(func(context.Context) error { return nil }),
	})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "probe router exposes no API routes")
}

func TestProbeRouterReadyFailsOnDependency(t *testing.T) {
	handler := NewProbeRouter(testConfig(), logger.Nop(), nil, map[string]controllers.Pinger{
		"pubsub": probePinger(func(context.Context) error { return errors.New("unreachable") }),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
