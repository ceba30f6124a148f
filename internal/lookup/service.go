// Package lookup resolves VINs through a persisted TTL/LRU cache, a recent
// lookups history and a per-VIN request deduplicator in front of a Decoder.
package lookup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/observability"
	"github.com/couchcryptid/webtools-service/internal/store"
)

// Publisher receives an event for every successful lookup.
type Publisher interface {
	Publish(ctx context.Context, event domain.LookupEvent) error
}

// Service is the VIN lookup flow shared by the HTTP API, the CLI and the batch worker.
type Service struct {
	decoder   domain.Decoder
	cache     *Cache
	history   *History
	group     Group[domain.Vehicle]
	store     store.Store
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithPublisher emits a LookupEvent after each successful lookup.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithStore lets CheckReadiness ping the backing store.
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// NewService wires a lookup service.
func NewService(decoder domain.Decoder, cache *Cache, history *History, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		decoder: decoder,
		cache:   cache,
		history: history,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup validates and resolves a VIN. Cache hits are served without calling
// the decoder; concurrent misses for the same VIN share one decode.
func (s *Service) Lookup(ctx context.Context, rawVIN string) (domain.LookupResult, error) {
	vin := domain.NormalizeVIN(rawVIN)
	if err := domain.ValidateVIN(vin); err != nil {
		return domain.LookupResult{}, err
	}

	if v, ok := s.cache.Get(ctx, vin); ok {
		s.history.Add(ctx, v)
		return s.finish(ctx, vin, v, domain.SourceCache), nil
	}

	v, shared, err := s.group.Do(ctx, vin, func(ctx context.Context) (domain.Vehicle, error) {
		v, err := s.decoder.Decode(ctx, vin)
		if err != nil {
			return domain.Vehicle{}, err
		}
		if v.VIN == "" {
			v.VIN = vin
		}
		s.cache.Set(ctx, vin, v)
		s.history.Add(ctx, v)
		return v, nil
	})
	if shared {
		s.metrics.DedupShared.Inc()
	}
	if err != nil {
		return domain.LookupResult{}, fmt.Errorf("decode %s: %w", vin, err)
	}
	return s.finish(ctx, vin, v, domain.SourceAPI), nil
}

func (s *Service) finish(ctx context.Context, vin string, v domain.Vehicle, source string) domain.LookupResult {
	if s.publisher != nil {
		event := domain.LookupEvent{VIN: vin, Vehicle: v, Source: source, LookedUpAt: s.clock.Now().UTC()}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("publish lookup event failed", "vin", vin, "error", err)
		}
	}
	return domain.LookupResult{
		Vehicle:         v,
		Source:          source,
		CheckDigitValid: domain.CheckDigitValid(vin),
	}
}

// History returns recent lookups, newest first.
func (s *Service) History(ctx context.Context) []domain.HistoryItem {
	return s.history.Get(ctx)
}

// RemoveHistory deletes one history item by id.
func (s *Service) RemoveHistory(ctx context.Context, id string) {
	s.history.Remove(ctx, id)
}

// ClearHistory deletes all history.
func (s *Service) ClearHistory(ctx context.Context) {
	s.history.Clear(ctx)
}

// CacheStats reports the cache counters.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// ClearCache drops every cached decode.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
}

// CheckReadiness reports whether the backing store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("storage not ready: %w", err)
	}
	return nil
}
