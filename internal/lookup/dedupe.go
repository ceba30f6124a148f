package lookup

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/webtools-service/internal/domain"
)

// Group collapses concurrent calls for the same VIN into one execution.
// The zero value is ready to use.
//
// The shared call runs under a context detached from every caller, so one
// caller giving up never aborts the work for the others. A caller whose own
// context ends stops waiting and gets ctx.Err().
type Group[V any] struct {
	sf singleflight.Group
}

// Do runs fn once per in-flight key. Keys are normalized like VINs. shared
// reports whether this caller attached to a call started by someone else.
func (g *Group[V]) Do(ctx context.Context, key string, fn func(context.Context) (V, error)) (v V, shared bool, err error) {
	key = domain.NormalizeVIN(key)
	detached := context.WithoutCancel(ctx)

	var led atomic.Bool
	ch := g.sf.DoChan(key, func() (any, error) {
		led.Store(true)
		return fn(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return v, !led.Load(), res.Err
		}
		v, _ = res.Val.(V)
		return v, !led.Load(), nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}
