package nhtsa

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/observability"
)

const (
	testVIN           = "1HGCM82633A004352"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Decode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/DecodeVinValues/"+testVIN, r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		resp := response{
			Count: 1,
			Results: []result{{
				Make:              "HONDA",
				Model:             "Accord",
				ModelYear:         "2003",
				Trim:              "EX-V6",
				Manufacturer:      "AMERICAN HONDA MOTOR CO., INC.",
				BodyClass:         "Coupe",
				FuelTypePrimary:   "Gasoline",
				EngineCylinders:   "6",
				DisplacementL:     "3.0",
				TransmissionStyle: "Automatic",
				Doors:             "2",
				PlantCountry:      "UNITED STATES (USA)",
				ErrorCode:         "0",
			}},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	v, err := c.Decode(context.Background(), testVIN)
	require.NoError(t, err)

	assert.Equal(t, testVIN, v.VIN)
	assert.Equal(t, "HONDA", v.Make)
	assert.Equal(t, "Accord", v.Model)
	assert.Equal(t, "2003", v.Year)
	assert.Equal(t, "Gasoline", v.FuelType)
	assert.Equal(t, "Automatic", v.Transmission)
	assert.Equal(t, "3.0", v.DisplacementL)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.DecodeRequests.WithLabelValues("success")), 0)
}

func TestClient_Decode_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := response{Results: []result{{
			ErrorCode: "11",
			ErrorText: "11 - Incorrect Model Year; 400 - Invalid Characters Present",
		}}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Decode(context.Background(), testVIN)
	require.ErrorIs(t, err, domain.ErrVINNotFound)
	assert.Contains(t, err.Error(), "11 - Incorrect Model Year")
	assert.NotContains(t, err.Error(), "400")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.DecodeRequests.WithLabelValues("not_found")), 0)
}

func TestClient_Decode_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"Count":0,"Results":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Decode(context.Background(), testVIN)
	require.ErrorIs(t, err, domain.ErrVINNotFound)
}

func TestClient_Decode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`maintenance`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Decode(context.Background(), testVIN)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrVINNotFound)
	assert.Contains(t, err.Error(), "status 503")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.DecodeRequests.WithLabelValues("error")), 0)
}

func TestClient_Decode_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Decode(context.Background(), testVIN)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Decode_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).Decode(ctx, testVIN)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)

	c = NewClient("http://localhost:9999/api/", time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, "http://localhost:9999/api", c.baseURL)
}
