package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/webtools-service/internal/domain"
)

// Resolver looks up a VIN. lookup.Service satisfies it.
type Resolver interface {
	Lookup(ctx context.Context, vin string) (domain.LookupResult, error)
}

// DecodeTransformer implements Transformer by parsing the request and
// resolving the VIN through the shared cache and deduplicator.
type DecodeTransformer struct {
	resolver Resolver
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewTransformer creates a DecodeTransformer.
func NewTransformer(resolver Resolver, clock clockwork.Clock, logger *slog.Logger) *DecodeTransformer {
	return &DecodeTransformer{
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

func (t *DecodeTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.LookupEvent, error) {
	vin, err := domain.ParseDecodeRequest(raw.Value)
	if err != nil {
		return domain.LookupEvent{}, fmt.Errorf("parse decode request: %w", err)
	}

	res, err := t.resolver.Lookup(ctx, vin)
	if err != nil {
		return domain.LookupEvent{}, err
	}
	if !res.CheckDigitValid {
		t.logger.Debug("vin check digit mismatch", "vin", vin)
	}

	return domain.LookupEvent{
		VIN:        vin,
		Vehicle:    res.Vehicle,
		Source:     res.Source,
		LookedUpAt: t.clock.Now().UTC(),
	}, nil
}
