package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/webtools-service/internal/store"
	"github.com/couchcryptid/webtools-service/internal/store/storetest"
)

func TestContract_Memory(t *testing.T) {
	storetest.Run(t, func(t *testing.T, quota int) store.Store {
		t.Helper()
		s := store.NewMemory(quota)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestContract_SQLite(t *testing.T) {
	storetest.Run(t, func(t *testing.T, quota int) store.Store {
		t.Helper()
		s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "kv_test.db"), quota)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv_test.db")

	s, err := store.OpenSQLite(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set(t.Context(), "vin_decoder_v2_history", `[{"id":"x"}]`))
	require.NoError(t, s.Close())

	s, err = store.OpenSQLite(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.Get(t.Context(), "vin_decoder_v2_history")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"id":"x"}]`, v)
}

func TestOpen(t *testing.T) {
	mem, err := store.Open(t.Context(), store.Options{Backend: "memory", QuotaBytes: 10})
	require.NoError(t, err)
	require.IsType(t, &store.Memory{}, mem)
	require.ErrorIs(t, mem.Set(t.Context(), "k", "this value is too long"), store.ErrQuotaExceeded)

	lite, err := store.Open(t.Context(), store.Options{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })
	require.NoError(t, lite.Ping(t.Context()))

	_, err = store.Open(t.Context(), store.Options{Backend: "redis"})
	require.Error(t, err)
}
