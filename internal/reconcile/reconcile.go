package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/search"
)

// Searcher finds the matches of a needle. Implementations must be safe for
// concurrent use.
type Searcher interface {
	Query(ctx context.Context, needle media.Item, p search.Params) (media.Group, error)
}

// AcceptThresholds holds, per search.Algo, the score a merge match must stay
// below. A rejected match escalates to the next algorithm; the last one
// accepts anything.
var AcceptThresholds = [...]int{
	search.AlgoDCT:      12,
	search.AlgoFeatures: 1000,
	search.AlgoMirror:   1000,
	search.AlgoColor:    math.MaxInt,
}

const (
	// MergeMaxMatches is the number of matches requested per merge query.
	MergeMaxMatches = 2
	// ChainLookBehind is how many of the most recently placed items Chain
	// tries as needles before giving up on a step.
	ChainLookBehind = 5
)

// ErrEmptySet is returned by Chain for an empty input.
var ErrEmptySet = errors.New("reconcile: empty set")

// safeQuery runs one query, turning errors and panics into "no match".
func safeQuery(ctx context.Context, s Searcher, needle media.Item, p search.Params) (matches media.Group) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Search for %s panicked: %v", needle.Path, r)
			matches = nil
		}
	}()

	matches, err := s.Query(ctx, needle, p)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.Warn("Search for %s failed: %v", needle.Path, err)
		}
		return nil
	}
	return matches
}

// subsetParams returns a copy of p searching only within set.
func subsetParams(p search.Params, set media.Group) search.Params {
	p.InSet = true
	p.Subset = set
	p.FilterSelf = true
	return p
}

func describe(g media.Group, n int) string {
	if len(g) <= n {
		return fmt.Sprint(g.Paths())
	}
	return fmt.Sprintf("%v and %d more", g[:n].Paths(), len(g)-n)
}
