package reconcile

import (
	"context"
	"testing"

	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/search"
)

func TestMergeSideByNeighbourDistance(t *testing.T) {
	t.Parallel()

	// b is one bit from a1, ten bits from the "near" side and twelve
	// from the "far" side.
	near, far := bits(1, 10), bits(20, 32)|1
	b := item("b", 1)

	tests := []struct {
		name   string
		a0, a2 uint64
		want   string
	}{
		{"closer to previous", near, far, "[a0 b a1 a2]"},
		{"closer to next", far, near, "[a0 a1 b a2]"},
		{"tie goes after", near, near, "[a0 a1 b a2]"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := media.Group{item("a0", tt.a0), item("a1", 0), item("a2", tt.a2)}
			s := &fakeSearcher{limit: 64}

			out, stats := Merge(context.Background(), s, search.DefaultParams(), a, media.Group{b})
			if got := paths(out); got != tt.want {
				t.Errorf("merge = %s, want %s", got, tt.want)
			}
			if stats.Inserted != 1 || len(stats.Missed) != 0 {
				t.Errorf("stats = %+v", stats)
			}
			if paths(a) != "[a0 a1 a2]" {
				t.Errorf("input mutated: %s", paths(a))
			}
		})
	}
}

func TestMergeBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    media.Group
		want string
	}{
		{"single", media.Group{item("a0", 0)}, "[b a0]"},
		{"first", media.Group{item("a0", 0), item("a1", bits(0, 30))}, "[b a0 a1]"},
		{"first of three", media.Group{item("a0", 0), item("a1", bits(0, 30)), item("a2", bits(0, 40))}, "[b a0 a1 a2]"},
		{"last", media.Group{item("a0", bits(0, 30)), item("a1", 0)}, "[a0 b a1]"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &fakeSearcher{limit: 64}
			out, _ := Merge(context.Background(), s, search.DefaultParams(), tt.a, media.Group{item("b", 1)})
			if got := paths(out); got != tt.want {
				t.Errorf("merge = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMergeSearchesSnapshotPlusItem(t *testing.T) {
	t.Parallel()

	a := media.Group{item("a0", 0), item("a1", bits(0, 20))}
	bs := media.Group{item("b0", 1), item("b1", bits(0, 19))}
	s := &fakeSearcher{limit: 64}

	out, stats := Merge(context.Background(), s, search.DefaultParams(), a, bs)
	if stats.Inserted != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if got := paths(out); got != "[b0 a0 b1 a1]" {
		t.Errorf("merge = %s", got)
	}

	for _, b := range bs {
		calls := s.callsFor(b.Path)
		if len(calls) != 1 {
			t.Fatalf("%s queried %d times, want 1", b.Path, len(calls))
		}
		want := "[a0 a1 " + b.Path + "]"
		if got := fmtSlice(calls[0].set); got != want {
			t.Errorf("%s searched %s, want %s", b.Path, got, want)
		}
	}
}

func TestMergeInsertsInOrderOfB(t *testing.T) {
	t.Parallel()

	// both match a0 and go before it, the second one between the first
	// and a0.
	a := media.Group{item("a0", 0)}
	bs := media.Group{item("b0", 1), item("b1", 2)}
	s := &fakeSearcher{limit: 64}

	out, _ := Merge(context.Background(), s, search.DefaultParams(), a, bs)
	if got := paths(out); got != "[b0 b1 a0]" {
		t.Errorf("merge = %s, want [b0 b1 a0]", got)
	}
}

func TestMergeEscalatesAlgorithms(t *testing.T) {
	t.Parallel()

	a := media.Group{item("a0", 0)}
	b := item("b", 0)
	s := &fakeSearcher{scoreFor: func(algo search.Algo, _, _ media.Item) (int, bool) {
		switch algo {
		case search.AlgoDCT:
			return AcceptThresholds[search.AlgoDCT], true
		case search.AlgoFeatures:
			return 999, true
		}
		return 0, true
	}}

	out, stats := Merge(context.Background(), s, search.DefaultParams(), a, media.Group{b})
	if stats.Inserted != 1 || paths(out) != "[b a0]" {
		t.Fatalf("merge = %s, stats %+v", paths(out), stats)
	}

	calls := s.callsFor("b")
	if len(calls) != 2 || calls[0].algo != search.AlgoDCT || calls[1].algo != search.AlgoFeatures {
		t.Errorf("calls = %+v, want dct then dct-features", calls)
	}
}

func TestMergeStartsAtRequestedAlgorithm(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{scoreFor: func(search.Algo, media.Item, media.Item) (int, bool) { return 0, false }}
	p := search.DefaultParams()
	p.Algo = search.AlgoMirror

	Merge(context.Background(), s, p, media.Group{item("a0", 0)}, media.Group{item("b", 0)})
	calls := s.callsFor("b")
	if len(calls) != 2 || calls[0].algo != search.AlgoMirror || calls[1].algo != search.AlgoColor {
		t.Errorf("calls = %+v, want mirror then color", calls)
	}
}

func TestMergeDropsUnmatched(t *testing.T) {
	t.Parallel()

	a := media.Group{item("a0", 0), item("a1", bits(0, 8))}
	bs := media.Group{item("lost", bits(32, 64)), item("b", 1), item("crash", 2)}
	s := &fakeSearcher{limit: 10, panicOn: map[string]bool{"crash": true}}

	out, stats := Merge(context.Background(), s, search.DefaultParams(), a, bs)
	if got := paths(out); got != "[b a0 a1]" {
		t.Errorf("merge = %s", got)
	}
	if stats.Inserted != 1 || paths(stats.Missed) != "[lost crash]" {
		t.Errorf("stats = inserted %d, missed %s", stats.Inserted, paths(stats.Missed))
	}
	if len(out)+len(stats.Missed) != len(a)+len(bs) {
		t.Error("items unaccounted for")
	}
}

func TestMergeEmptyB(t *testing.T) {
	t.Parallel()

	a := media.Group{item("a0", 0)}
	out, stats := Merge(context.Background(), &fakeSearcher{}, search.DefaultParams(), a, nil)
	if paths(out) != "[a0]" || stats.Inserted != 0 || len(stats.Missed) != 0 {
		t.Errorf("merge = %s, stats %+v", paths(out), stats)
	}
}

func fmtSlice(s []string) string { return paths(groupOf(s)) }

func groupOf(ps []string) media.Group {
	g := make(media.Group, len(ps))
	for i, p := range ps {
		g[i].Path = p
	}
	return g
}
