package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/webtools-service/internal/adapter/http"
	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/lookup"
	"github.com/couchcryptid/webtools-service/internal/observability"
	"github.com/couchcryptid/webtools-service/internal/store"
)

var testNow = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubDecoder struct {
	calls atomic.Int32
	err   error
}

func (d *stubDecoder) Decode(_ context.Context, vin string) (domain.Vehicle, error) {
	d.calls.Add(1)
	if d.err != nil {
		return domain.Vehicle{}, d.err
	}
	return domain.Vehicle{VIN: vin, Make: "HONDA", Model: "Accord", Year: "2003"}, nil
}

type fixture struct {
	srv     *httpadapter.Server
	decoder *stubDecoder
	metrics *observability.Metrics
}

func newFixture(t *testing.T, checks ...httpadapter.ReadinessChecker) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(testNow)
	metrics := observability.NewMetricsForTesting()
	st := store.NewMemory(0)
	dec := &stubDecoder{}

	cache := lookup.NewCache(context.Background(), st, lookup.DefaultCacheConfig(), clock, logger, metrics)
	history := lookup.NewHistory(st, lookup.DefaultHistorySize, clock, logger, metrics)
	svc := lookup.NewService(dec, cache, history, clock, logger, metrics, lookup.WithStore(st))

	return &fixture{
		srv:     httpadapter.NewServer(":0", svc, clock, logger, metrics, checks...),
		decoder: dec,
		metrics: metrics,
	}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := newFixture(t, &mockReadiness{}).do(http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenAnyCheckFails(t *testing.T) {
	rec := newFixture(t, &mockReadiness{}, &mockReadiness{err: fmt.Errorf("not ready yet")}).do(http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestsCountedByRoutePattern(t *testing.T) {
	f := newFixture(t)

	f.do(http.MethodGet, "/api/v1/vin/1HGCM82633A004352", "")
	f.do(http.MethodGet, "/api/v1/vin/1M8GDM9AXKP042788", "")
	f.do(http.MethodGet, "/api/v1/vin/bad", "")
	f.do(http.MethodGet, "/nope", "")

	assert.InDelta(t, 2, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("/api/v1/vin/{vin}", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("/api/v1/vin/{vin}", "400")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("unmatched", "404")), 0)
}

func TestUnknownRouteIs404(t *testing.T) {
	rec := newFixture(t).do(http.MethodGet, "/api/v1/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	f := newFixture(t)
	f.decoder.err = errors.New("connection reset")

	rec := f.do(http.MethodGet, "/api/v1/vin/1HGCM82633A004352", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody[errorEnvelope](t, rec)
	assert.Equal(t, httpadapter.CodeUpstream, body.Error.Code)
	assert.Contains(t, body.Error.Message, "connection reset")
	assert.NotEmpty(t, body.Error.RequestID)
}
