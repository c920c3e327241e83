package search

import (
	"errors"
	"testing"

	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
)

func TestParamsSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, val string
		wantErr  bool
		check    func(p Params) bool
	}{
		{"alg", "3", false, func(p Params) bool { return p.Algo == AlgoColor }},
		{"dht", "12", false, func(p Params) bool { return p.DctThresh == 12 }},
		{"cth", "100", false, func(p Params) bool { return p.HistThresh == 100 }},
		{"mm", "0", false, func(p Params) bool { return p.MaxMatches == 0 }},
		{"mn", "3", false, func(p Params) bool { return p.MinMatches == 3 }},
		{"mmask", "2", false, func(p Params) bool { return p.MirrorMask == MirrorVertical }},
		{"fs", "0", false, func(p Params) bool { return !p.FilterSelf }},
		{"fg", "0", false, func(p Params) bool { return !p.FilterGroups }},
		{"fp", "1", false, func(p Params) bool { return p.FilterParent }},
		{"eg", "1", false, func(p Params) bool { return p.ExpandGroups }},
		{"mg", "1", false, func(p Params) bool { return p.MergeGroups }},
		{"qt", "1,2", false, func(p Params) bool { return p.QueryTypes == mediatypes.MaskImage|mediatypes.MaskVideo }},
		{"rt", "3", false, func(p Params) bool { return p.ResultTypes == mediatypes.MaskAudio }},
		{"alg", "4", true, nil},
		{"dht", "-1", true, nil},
		{"dht", "five", true, nil},
		{"qt", "1,x", true, nil},
		{"rt", "0", true, nil},
		{"nope", "1", true, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			t.Parallel()
			p := DefaultParams()
			err := p.Set(tt.key, tt.val)
			if tt.wantErr {
				var perr *ParamError
				if !errors.As(err, &perr) {
					t.Fatalf("Set(%q, %q) = %v, want *ParamError", tt.key, tt.val, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set(%q, %q): %v", tt.key, tt.val, err)
			}
			if !tt.check(p) {
				t.Errorf("Set(%q, %q) did not apply: %+v", tt.key, tt.val, p)
			}
		})
	}
}

func TestParamsAreValues(t *testing.T) {
	t.Parallel()

	a := DefaultParams()
	b := a
	if err := b.Set("dht", "9"); err != nil {
		t.Fatal(err)
	}
	if a.DctThresh != 5 {
		t.Errorf("copy mutated original: %d", a.DctThresh)
	}
}

func TestSetKeepsSubset(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.InSet = true
	p.Subset = media.Group{{Path: "/lib/a.png"}, {Path: "/lib/b.png"}}
	if err := p.Set("alg", "2"); err != nil {
		t.Fatal(err)
	}
	if p.Algo != AlgoMirror || !p.InSet || len(p.Subset) != 2 {
		t.Errorf("Set changed the subset: %+v", p)
	}
}

func TestKeysHaveUsage(t *testing.T) {
	t.Parallel()

	for _, k := range Keys() {
		if Usage(k) == "" {
			t.Errorf("key %q has no usage", k)
		}
	}
	if Usage("bogus") != "" {
		t.Error("usage for unknown key")
	}
}

func TestAlgoString(t *testing.T) {
	t.Parallel()

	if AlgoFeatures.String() != "dct-features" || Algo(7).String() != "algo(7)" {
		t.Errorf("unexpected names %q %q", AlgoFeatures, Algo(7))
	}
}
