package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/observability"
	"github.com/couchcryptid/webtools-service/internal/store"
)

// HistoryStorageKey is the store key holding the serialized history list.
const HistoryStorageKey = "vin_decoder_v2_history"

// DefaultHistorySize is the number of recent lookups kept.
const DefaultHistorySize = 10

// History is a most-recent-first list of looked-up vehicles, one entry per
// VIN. It has no in-memory copy; every call reads the store.
type History struct {
	mu       sync.Mutex
	store    store.Store
	maxItems int
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewHistory creates a history bound to st. A nil store keeps no history:
// reads are empty and writes are dropped.
func NewHistory(st store.Store, maxItems int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *History {
	if maxItems <= 0 {
		maxItems = DefaultHistorySize
	}
	return &History{
		store:    st,
		maxItems: maxItems,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Get returns the stored items, newest first. Malformed items are skipped and
// unreadable storage yields an empty list.
func (h *History) Get(ctx context.Context) []domain.HistoryItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.read(ctx)
}

// Add records v at the front, replacing any earlier item for the same VIN.
func (h *History) Add(ctx context.Context, v domain.Vehicle) {
	v.VIN = domain.NormalizeVIN(v.VIN)
	if v.VIN == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	items := h.read(ctx)
	next := make([]domain.HistoryItem, 0, len(items)+1)
	next = append(next, domain.NewHistoryItem(v, h.clock.Now()))
	for _, it := range items {
		if it.VIN != v.VIN {
			next = append(next, it)
		}
	}
	if len(next) > h.maxItems {
		next = next[:h.maxItems]
	}
	h.write(ctx, next)
}

// Remove deletes the item with the given id. Unknown ids are a no-op.
func (h *History) Remove(ctx context.Context, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	items := h.read(ctx)
	kept := make([]domain.HistoryItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	h.write(ctx, kept)
}

// Clear deletes the whole history.
func (h *History) Clear(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store == nil {
		return
	}
	if err := h.store.Remove(context.WithoutCancel(ctx), HistoryStorageKey); err != nil {
		h.recordError("clear", err)
	}
}

func (h *History) read(ctx context.Context) []domain.HistoryItem {
	items := []domain.HistoryItem{}
	if h.store == nil {
		return items
	}

	raw, ok, err := h.store.Get(ctx, HistoryStorageKey)
	if err != nil {
		h.recordError("read", err)
		return items
	}
	if !ok {
		return items
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		h.logger.Warn("vin history data corrupt, ignoring", "error", err)
		return items
	}
	for _, e := range elems {
		var it domain.HistoryItem
		if err := json.Unmarshal(e, &it); err != nil || !it.Valid() {
			continue
		}
		items = append(items, it)
		if len(items) == h.maxItems {
			break
		}
	}
	return items
}

// write persists items, retrying once with the newest half when over quota.
func (h *History) write(ctx context.Context, items []domain.HistoryItem) {
	if h.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	err := h.store.Set(ctx, HistoryStorageKey, encodeHistory(items))
	if err == nil {
		return
	}
	if !errors.Is(err, store.ErrQuotaExceeded) {
		h.recordError("write", err)
		return
	}

	h.metrics.StorageErrors.WithLabelValues("history", "quota").Inc()
	half := max(1, h.maxItems/2)
	if len(items) > half {
		items = items[:half]
	}
	h.logger.Warn("vin history exceeds storage quota, truncating", "keep", len(items))
	if err := h.store.Set(ctx, HistoryStorageKey, encodeHistory(items)); err != nil {
		h.logger.Error("vin history write failed after truncating", "error", err)
	}
}

func (h *History) recordError(op string, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		h.metrics.StorageErrors.WithLabelValues("history", "unavailable").Inc()
		h.logger.Debug("vin history storage unavailable", "op", op)
		return
	}
	h.metrics.StorageErrors.WithLabelValues("history", "other").Inc()
	h.logger.Warn("vin history storage failed", "op", op, "error", err)
}

func encodeHistory(items []domain.HistoryItem) string {
	if len(items) == 0 {
		return "[]"
	}
	// HistoryItem holds only strings and integers; Marshal cannot fail.
	data, _ := json.Marshal(items)
	return string(data)
}
