package reconcile

import (
	"context"
	"time"

	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/metrics"
	"github.com/fortemezzo/cbird/internal/search"
)

// Chain reorders set so that each item sits next to one it resembles. The
// first item seeds the chain; every step searches the unplaced items for a
// match of one of the last ChainLookBehind placed items, newest first, and
// places the match right after that needle.
//
// Items never matched are dropped. The returned count is the number of
// dropped items, so len(out)+missed == len(set).
func Chain(ctx context.Context, s Searcher, params search.Params, set media.Group) (media.Group, int, error) {
	if len(set) == 0 {
		return nil, 0, ErrEmptySet
	}

	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues("chain").Observe(time.Since(start).Seconds())
	}()

	pool := newPool(set[1:])
	pool.remove(set[0].Path)

	sorted := make(media.Group, 1, len(set))
	sorted[0] = set[0]

	for step := 0; step < len(set)-1 && pool.len() > 0; step++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		for j := 0; j < min(ChainLookBehind, len(sorted)); j++ {
			needle := sorted[len(sorted)-1-j]
			candidates := append(pool.items(), needle)

			matches := safeQuery(ctx, s, needle, subsetParams(params, candidates))
			if len(matches) == 0 {
				continue
			}
			match, ok := pool.remove(matches[0].Path)
			if !ok {
				continue
			}
			sorted = sorted.Insert(len(sorted)-j, match)
			break
		}
		logging.Progress("sort-similar: %d/%d placed", len(sorted), len(set))
	}

	missed := len(set) - len(sorted)
	if missed != 0 {
		logging.Warn("sort-similar: %d items were not found and dropped, use a fuzzier search", missed)
		metrics.ReconcileMissesTotal.WithLabelValues("chain").Add(float64(missed))
	}
	return sorted, missed, nil
}

// pool is the set of unplaced items, iterated in input order.
type pool struct {
	order []media.Item
	live  map[string]bool
}

func newPool(items media.Group) *pool {
	p := &pool{live: make(map[string]bool, len(items))}
	for _, it := range items {
		if p.live[it.Path] {
			continue
		}
		p.live[it.Path] = true
		p.order = append(p.order, it)
	}
	return p
}

func (p *pool) len() int { return len(p.live) }

// items returns the unplaced items in a fresh slice.
func (p *pool) items() media.Group {
	out := make(media.Group, 0, len(p.live)+1)
	for _, it := range p.order {
		if p.live[it.Path] {
			out = append(out, it)
		}
	}
	return out
}

func (p *pool) remove(path string) (media.Item, bool) {
	if !p.live[path] {
		return media.Item{}, false
	}
	delete(p.live, path)
	for _, it := range p.order {
		if it.Path == path {
			return it, true
		}
	}
	return media.Item{}, false
}
