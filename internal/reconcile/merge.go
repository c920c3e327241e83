package reconcile

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/metrics"
	"github.com/fortemezzo/cbird/internal/search"
	"github.com/fortemezzo/cbird/internal/workers"
)

// MergeStats reports how a merge went.
type MergeStats struct {
	Inserted int
	// Missed items had no acceptable match in A and were dropped.
	Missed []media.Item
}

// Merge inserts every item of b into a copy of a, next to its closest match
// in a. Matches are searched in parallel against a and the item alone, so
// the result does not depend on scheduling. Insertion happens in b's order.
// Items without an acceptable match are dropped and reported in the stats.
func Merge(ctx context.Context, s Searcher, params search.Params, a, b media.Group) (media.Group, MergeStats) {
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues("merge").Observe(time.Since(start).Seconds())
	}()

	snapshot := a.Clone()
	found := make([]string, len(b))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForCPU(0))
	for i := range b {
		i := i
		g.Go(func() error {
			found[i] = bestMatch(gctx, s, params, snapshot, b[i])
			return nil
		})
	}
	_ = g.Wait()

	out := a.Clone()
	var stats MergeStats
	for i, item := range b {
		pos := out.IndexByPath(found[i])
		if found[i] == "" || pos < 0 {
			logging.Warn("merge: no match for %s, dropped", item.Path)
			metrics.ReconcileMissesTotal.WithLabelValues("merge").Inc()
			stats.Missed = append(stats.Missed, item)
			continue
		}
		out = out.Insert(insertPos(out, pos, item), item)
		stats.Inserted++
	}

	if len(stats.Missed) > 0 {
		logging.Warn("merge: %d of %d items were not found and dropped, use a fuzzier search: %s",
			len(stats.Missed), len(b), describe(stats.Missed, 5))
	}
	return out, stats
}

// bestMatch searches for needle within a, starting at params.Algo and
// escalating while the best score is not below AcceptThresholds. It returns
// the path of the accepted match or "".
func bestMatch(ctx context.Context, s Searcher, params search.Params, a media.Group, needle media.Item) string {
	set := make(media.Group, 0, len(a)+1)
	set = append(set, a...)
	set = append(set, needle)

	p := subsetParams(params, set)
	p.MaxMatches = MergeMaxMatches

	for algo := p.Algo; algo.Valid(); algo++ {
		p.Algo = algo
		matches := safeQuery(ctx, s, needle, p)
		if len(matches) > 0 && matches[0].Score < AcceptThresholds[algo] {
			return matches[0].Path
		}
		if ctx.Err() != nil {
			break
		}
	}
	return ""
}

// insertPos decides which side of g[pos] the item goes: before it when the
// item is strictly closer to the previous neighbour than to the next one,
// otherwise after. A match at either end of g, or a g of one, has no pair of
// neighbours to weigh and the item goes before the match.
func insertPos(g media.Group, pos int, item media.Item) int {
	if pos == 0 || pos == len(g)-1 {
		return pos
	}
	before := media.Hamming(item.Fingerprint.DCT, g[pos-1].Fingerprint.DCT)
	after := media.Hamming(item.Fingerprint.DCT, g[pos+1].Fingerprint.DCT)
	if before < after {
		return pos
	}
	return pos + 1
}
