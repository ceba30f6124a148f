package http_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/webtools-service/internal/adapter/http"
	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/lookup"
)

const (
	vinA = "1HGCM82633A004352"
	vinB = "1M8GDM9AXKP042788"
)

func TestLookup_MissThenCacheHit(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/vin/1hgcm82633a004352", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[domain.LookupResult](t, rec)
	assert.Equal(t, domain.SourceAPI, res.Source)
	assert.Equal(t, vinA, res.Vehicle.VIN)
	assert.Equal(t, "HONDA", res.Vehicle.Make)
	assert.True(t, res.CheckDigitValid)

	rec = f.do(http.MethodGet, "/api/v1/vin/"+vinA, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SourceCache, decodeBody[domain.LookupResult](t, rec).Source)
	assert.Equal(t, int32(1), f.decoder.calls.Load())
}

func TestLookup_InvalidVIN(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/vin/NOTAVIN", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httpadapter.CodeInvalidVIN, decodeBody[errorEnvelope](t, rec).Error.Code)
	assert.Equal(t, int32(0), f.decoder.calls.Load())
}

func TestLookup_NotFound(t *testing.T) {
	f := newFixture(t)
	f.decoder.err = domain.ErrVINNotFound

	rec := f.do(http.MethodGet, "/api/v1/vin/"+vinA, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, httpadapter.CodeVINNotFound, decodeBody[errorEnvelope](t, rec).Error.Code)
}

func TestHistoryRoutes(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/vin/"+vinA, "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/vin/"+vinB, "").Code)

	rec := f.do(http.MethodGet, "/api/v1/vin/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[struct {
		Items []domain.HistoryItem `json:"items"`
	}](t, rec)
	require.Len(t, body.Items, 2)
	assert.Equal(t, vinB, body.Items[0].VIN)

	rec = f.do(http.MethodDelete, "/api/v1/vin/history/"+body.Items[0].ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	body = decodeBody[struct {
		Items []domain.HistoryItem `json:"items"`
	}](t, f.do(http.MethodGet, "/api/v1/vin/history", ""))
	require.Len(t, body.Items, 1)
	assert.Equal(t, vinA, body.Items[0].VIN)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/vin/history", "").Code)
	body = decodeBody[struct {
		Items []domain.HistoryItem `json:"items"`
	}](t, f.do(http.MethodGet, "/api/v1/vin/history", ""))
	assert.Empty(t, body.Items)
}

func TestCacheRoutes(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/vin/"+vinA, "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/vin/"+vinA, "").Code)

	stats := decodeBody[lookup.CacheStats](t, f.do(http.MethodGet, "/api/v1/vin/cache", ""))
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/vin/cache", "").Code)
	stats = decodeBody[lookup.CacheStats](t, f.do(http.MethodGet, "/api/v1/vin/cache", ""))
	assert.Equal(t, 0, stats.Entries)
}
