package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
	"github.com/fortemezzo/cbird/internal/search"
)

type call struct {
	needle string
	algo   search.Algo
	set    []string
}

// fakeSearcher scores candidates in p.Subset by DCT Hamming distance.
type fakeSearcher struct {
	// limit is the largest accepted distance.
	limit int
	// scoreFor overrides the distance based scoring when set.
	scoreFor func(algo search.Algo, needle, cand media.Item) (int, bool)
	// panicOn names needles whose query panics.
	panicOn map[string]bool

	mu    sync.Mutex
	calls []call
}

func (f *fakeSearcher) Query(_ context.Context, needle media.Item, p search.Params) (media.Group, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{needle: needle.Path, algo: p.Algo, set: p.Subset.Paths()})
	f.mu.Unlock()

	if f.panicOn[needle.Path] {
		panic("boom")
	}
	if !p.InSet {
		return nil, errors.New("fake only supports subset queries")
	}

	var out media.Group
	for _, c := range p.Subset {
		if p.FilterSelf && c.Path == needle.Path {
			continue
		}
		var (
			s  int
			ok bool
		)
		if f.scoreFor != nil {
			s, ok = f.scoreFor(p.Algo, needle, c)
		} else {
			s = media.Hamming(needle.Fingerprint.DCT, c.Fingerprint.DCT)
			ok = s <= f.limit
		}
		if ok {
			out = append(out, c.WithScore(s))
		}
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

func (f *fakeSearcher) callsFor(needle string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.needle == needle {
			out = append(out, c)
		}
	}
	return out
}

func item(path string, dct uint64) media.Item {
	return media.Item{Path: path, Type: mediatypes.TypeImage, Fingerprint: media.Fingerprint{DCT: dct}}
}

// bits returns a hash with bits [from, to) set.
func bits(from, to int) uint64 {
	var h uint64
	for i := from; i < to; i++ {
		h |= 1 << uint(i)
	}
	return h
}

func paths(g media.Group) string { return fmt.Sprint(g.Paths()) }
