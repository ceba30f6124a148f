// Package storetest holds the behavioral contract every store.Store backend must satisfy.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/webtools-service/internal/store"
)

// Factory opens a fresh, empty store with the given byte quota.
type Factory func(t *testing.T, quotaBytes int) store.Store

// Run exercises the shared Store contract against a backend.
func Run(t *testing.T, open Factory) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t, 0)
		v, ok, err := s.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("SetGetOverwrite", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, 0)

		require.NoError(t, s.Set(ctx, "vin_decoder_v2_cache", `[["A",{}]]`))
		v, ok, err := s.Get(ctx, "vin_decoder_v2_cache")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `[["A",{}]]`, v)

		require.NoError(t, s.Set(ctx, "vin_decoder_v2_cache", `[]`))
		v, ok, err = s.Get(ctx, "vin_decoder_v2_cache")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `[]`, v)
	})

	t.Run("Remove", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, 0)

		require.NoError(t, s.Set(ctx, "k", "v"))
		require.NoError(t, s.Remove(ctx, "k"))
		_, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Remove(ctx, "never-set"))
	})

	t.Run("QuotaExceeded", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, 32)

		require.NoError(t, s.Set(ctx, "a", strings.Repeat("x", 20)))
		err := s.Set(ctx, "b", strings.Repeat("y", 20))
		require.ErrorIs(t, err, store.ErrQuotaExceeded)

		_, ok, err := s.Get(ctx, "b")
		require.NoError(t, err)
		assert.False(t, ok, "rejected write must not be stored")

		// Replacing a key only counts the new value against the quota.
		require.NoError(t, s.Set(ctx, "a", strings.Repeat("z", 30)))
	})

	t.Run("RemoveFreesQuota", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, 32)

		require.NoError(t, s.Set(ctx, "a", strings.Repeat("x", 20)))
		require.NoError(t, s.Remove(ctx, "a"))
		require.NoError(t, s.Set(ctx, "b", strings.Repeat("y", 20)))
	})

	t.Run("ClosedIsUnavailable", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, 0)

		require.NoError(t, s.Ping(ctx))
		require.NoError(t, s.Close())

		_, _, err := s.Get(ctx, "k")
		require.ErrorIs(t, err, store.ErrUnavailable)
		require.ErrorIs(t, s.Set(ctx, "k", "v"), store.ErrUnavailable)
		require.ErrorIs(t, s.Remove(ctx, "k"), store.ErrUnavailable)
		require.ErrorIs(t, s.Ping(ctx), store.ErrUnavailable)
	})
}
