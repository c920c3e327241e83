package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
	"github.com/fortemezzo/cbird/internal/metrics"
	"github.com/fortemezzo/cbird/internal/workers"
)

// ctxCheckInterval is how many candidates are scored between context checks.
const ctxCheckInterval = 1024

// Engine is an in-memory index of fingerprints.
type Engine struct {
	mu     sync.RWMutex
	items  []media.Item
	byPath map[string]int
}

// NewEngine creates an engine holding items.
func NewEngine(items ...media.Item) *Engine {
	e := &Engine{byPath: make(map[string]int)}
	e.Add(items...)
	return e
}

// Add inserts items, replacing any with the same path.
func (e *Engine) Add(items ...media.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, it := range items {
		if i, ok := e.byPath[it.Path]; ok {
			e.items[i] = it
			continue
		}
		e.byPath[it.Path] = len(e.items)
		e.items = append(e.items, it)
	}
}

// Remove drops the items with the given paths.
func (e *Engine) Remove(paths ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	drop := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, ok := e.byPath[p]; ok {
			drop[p] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return
	}

	kept := e.items[:0]
	for _, it := range e.items {
		if _, gone := drop[it.Path]; !gone {
			kept = append(kept, it)
		}
	}
	clear(e.items[len(kept):])
	e.items = kept

	clear(e.byPath)
	for i, it := range e.items {
		e.byPath[it.Path] = i
	}
}

// Len returns the number of indexed items.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// Items returns a copy of the indexed items sorted by path.
func (e *Engine) Items() media.Group {
	e.mu.RLock()
	out := media.Group(e.items).Clone()
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Query returns the matches for needle, best first. Ties are ordered by
// path. The needle itself is excluded when p.FilterSelf is set.
func (e *Engine) Query(ctx context.Context, needle media.Item, p Params) (media.Group, error) {
	if !p.Algo.Valid() {
		return nil, &ParamError{Key: "alg", Reason: "unknown algorithm " + p.Algo.String()}
	}

	start := time.Now()
	algo := p.Algo.String()
	matches, err := e.query(ctx, &needle, &p)
	metrics.SearchQueryDuration.WithLabelValues(algo).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchQueriesTotal.WithLabelValues(algo, "error").Inc()
		return nil, err
	}
	metrics.SearchQueriesTotal.WithLabelValues(algo, "success").Inc()
	return matches, nil
}

func (e *Engine) query(ctx context.Context, needle *media.Item, p *Params) (media.Group, error) {
	// only images carry fingerprints
	if needle.Type != mediatypes.TypeImage || !p.QueryTypes.Has(needle.Type) {
		return nil, nil
	}

	scan := func(candidates []media.Item) (media.Group, error) {
		var out media.Group
		for i := range candidates {
			if i%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			c := &candidates[i]
			if c.Type != mediatypes.TypeImage || !p.ResultTypes.Has(c.Type) {
				continue
			}
			if p.FilterSelf && c.Path == needle.Path {
				continue
			}
			if p.FilterParent && c.ParentPath() == needle.ParentPath() {
				continue
			}
			if s, ok := score(p, needle, c); ok {
				out = append(out, c.WithScore(s))
			}
		}
		return out, nil
	}

	var (
		out media.Group
		err error
	)
	if p.InSet {
		out, err = scan(p.Subset)
	} else {
		e.mu.RLock()
		out, err = scan(e.items)
		e.mu.RUnlock()
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	if p.MaxMatches > 0 && len(out) > p.MaxMatches {
		out = out[:p.MaxMatches]
	}
	return out, nil
}

// Similar queries every item (or every member of p.Subset when p.InSet) and
// returns one group per needle with enough matches: the needle followed by
// its matches. Groups are then filtered, merged or expanded per p.
func (e *Engine) Similar(ctx context.Context, p Params) (media.GroupList, error) {
	if !p.Algo.Valid() {
		return nil, &ParamError{Key: "alg", Reason: "unknown algorithm " + p.Algo.String()}
	}

	var needles media.Group
	if p.InSet {
		needles = p.Subset
	} else {
		needles = e.Items()
	}

	minMatches := max(p.MinMatches, 1)
	groups := make([]media.Group, len(needles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForCPU(0))
	for i := range needles {
		i := i
		g.Go(func() error {
			matches, err := e.Query(gctx, needles[i], p)
			if err != nil {
				return err
			}
			if len(matches) >= minMatches {
				groups[i] = append(media.Group{needles[i]}, matches...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var list media.GroupList
	for _, grp := range groups {
		if grp != nil {
			list = append(list, grp)
		}
	}
	before := len(list)

	if p.MergeGroups {
		list = mergeGroups(list)
	}
	if p.FilterGroups {
		list = filterGroups(list)
	}
	if p.ExpandGroups {
		list = expandGroups(list)
	}

	logging.Debug("Similar %s: %d needles, %d groups, %d after post-filters",
		p.Algo, len(needles), before, len(list))
	return list, nil
}

func groupKey(g media.Group) string {
	paths := g.Paths()
	sort.Strings(paths)
	return strings.Join(paths, "\x00")
}

// filterGroups drops groups holding the same items as an earlier group, so
// {a,b} and {b,a} are reported once.
func filterGroups(list media.GroupList) media.GroupList {
	seen := make(map[string]struct{}, len(list))
	out := list[:0]
	for _, g := range list {
		k := groupKey(g)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, g)
	}
	return out
}

// expandGroups splits each group into needle/match pairs.
func expandGroups(list media.GroupList) media.GroupList {
	var out media.GroupList
	for _, g := range list {
		if len(g) <= 2 {
			out = append(out, g)
			continue
		}
		for _, m := range g[1:] {
			out = append(out, media.Group{g[0], m})
		}
	}
	return out
}

// mergeGroups joins groups that share an item. Items keep the order in which
// they were first seen.
func mergeGroups(list media.GroupList) media.GroupList {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok || p == x {
			parent[x] = x
			return x
		}
		r := find(p)
		parent[x] = r
		return r
	}

	for _, g := range list {
		root := find(g[0].Path)
		for _, m := range g[1:] {
			if r := find(m.Path); r != root {
				parent[r] = root
			}
		}
	}

	index := make(map[string]int)
	var out media.GroupList
	seen := make(map[string]struct{})
	for _, g := range list {
		for _, m := range g {
			if _, dup := seen[m.Path]; dup {
				continue
			}
			seen[m.Path] = struct{}{}

			root := find(m.Path)
			i, ok := index[root]
			if !ok {
				i = len(out)
				index[root] = i
				out = append(out, nil)
			}
			out[i] = append(out[i], m)
		}
	}
	return out
}
