package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
)

// Algo selects how candidates are scored against a needle.
type Algo int

const (
	// AlgoDCT compares whole-image DCT hashes. Score is the Hamming distance.
	AlgoDCT Algo = iota
	// AlgoFeatures compares the hashes of image crops, finding cropped and
	// partially covered images. Score is 0..1000, lower is better.
	AlgoFeatures
	// AlgoMirror compares the flipped hashes of the needle. Score is the
	// Hamming distance of the best orientation.
	AlgoMirror
	// AlgoColor compares colour histograms. Score is 0..1000.
	AlgoColor

	algoCount
)

var algoNames = [...]string{"dct", "dct-features", "mirror", "color"}

func (a Algo) String() string {
	if a < 0 || a >= algoCount {
		return fmt.Sprintf("algo(%d)", int(a))
	}
	return algoNames[a]
}

// Valid reports whether a is a known algorithm.
func (a Algo) Valid() bool { return a >= 0 && a < algoCount }

// Mirror mask bits, indexing media.Fingerprint.Mirrors.
const (
	MirrorHorizontal = 1 << 0
	MirrorVertical   = 1 << 1
	MirrorBoth       = 1 << 2
	MirrorAll        = MirrorHorizontal | MirrorVertical | MirrorBoth
)

// Params configures a query. It is a value type; every query works on its
// own copy.
type Params struct {
	Algo Algo
	// DctThresh is the largest Hamming distance accepted by the hash based
	// algorithms.
	DctThresh int
	// HistThresh is the largest histogram distance accepted by AlgoColor.
	HistThresh int
	// MaxMatches caps the matches per needle; 0 is unlimited.
	MaxMatches int
	// MinMatches drops needles with fewer matches from Similar.
	MinMatches int
	MirrorMask int

	QueryTypes  mediatypes.Mask
	ResultTypes mediatypes.Mask

	FilterSelf   bool
	FilterGroups bool
	FilterParent bool
	ExpandGroups bool
	MergeGroups  bool

	// InSet restricts needles and candidates to Subset.
	InSet  bool
	Subset media.Group
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		Algo:         AlgoDCT,
		DctThresh:    5,
		HistThresh:   50,
		MaxMatches:   5,
		MinMatches:   1,
		MirrorMask:   MirrorAll,
		QueryTypes:   mediatypes.MaskImage,
		ResultTypes:  mediatypes.MaskImage,
		FilterSelf:   true,
		FilterGroups: true,
	}
}

// ParamError reports an invalid parameter key or value.
type ParamError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("search parameter %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("search parameter %q = %q: %s", e.Key, e.Value, e.Reason)
}

type param struct {
	min, max int
	set      func(p *Params, n int)
	usage    string
}

func boolean(f func(p *Params) *bool) func(*Params, int) {
	return func(p *Params, n int) { *f(p) = n != 0 }
}

var paramKeys = map[string]param{
	"alg":   {0, int(algoCount) - 1, func(p *Params, n int) { p.Algo = Algo(n) }, "algorithm: 0=dct 1=dct-features 2=mirror 3=color"},
	"dht":   {0, 64, func(p *Params, n int) { p.DctThresh = n }, "dct hash threshold"},
	"cth":   {0, 1000, func(p *Params, n int) { p.HistThresh = n }, "colour histogram threshold"},
	"mm":    {0, 1 << 20, func(p *Params, n int) { p.MaxMatches = n }, "maximum matches per needle, 0=unlimited"},
	"mn":    {0, 1 << 20, func(p *Params, n int) { p.MinMatches = n }, "minimum matches per needle"},
	"mmask": {0, MirrorAll, func(p *Params, n int) { p.MirrorMask = n }, "mirror mask: 1=horizontal 2=vertical 4=both"},
	"fs":    {0, 1, boolean(func(p *Params) *bool { return &p.FilterSelf }), "remove the needle from its matches"},
	"fg":    {0, 1, boolean(func(p *Params) *bool { return &p.FilterGroups }), "remove duplicate groups"},
	"fp":    {0, 1, boolean(func(p *Params) *bool { return &p.FilterParent }), "remove matches in the needle's directory"},
	"eg":    {0, 1, boolean(func(p *Params) *bool { return &p.ExpandGroups }), "split groups into pairs"},
	"mg":    {0, 1, boolean(func(p *Params) *bool { return &p.MergeGroups }), "merge groups sharing an item"},
}

// Keys returns the keys accepted by Set, including the type list keys.
func Keys() []string {
	keys := []string{"qt", "rt"}
	for k := range paramKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Usage describes key, or returns "" for unknown keys.
func Usage(key string) string {
	switch key {
	case "qt":
		return "query types, comma separated: 1=image 2=video 3=audio"
	case "rt":
		return "result types, comma separated: 1=image 2=video 3=audio"
	}
	return paramKeys[key].usage
}

// Set assigns a parameter by its short key. qt and rt take a comma
// separated list of media types; everything else is an integer.
func (p *Params) Set(key, val string) error {
	if key == "qt" || key == "rt" {
		mask, err := parseTypes(key, val)
		if err != nil {
			return err
		}
		if key == "qt" {
			p.QueryTypes = mask
		} else {
			p.ResultTypes = mask
		}
		return nil
	}

	def, ok := paramKeys[key]
	if !ok {
		return &ParamError{Key: key, Reason: "unknown search parameter"}
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return &ParamError{Key: key, Value: val, Reason: "not an integer"}
	}
	if n < def.min || n > def.max {
		return &ParamError{Key: key, Value: val, Reason: fmt.Sprintf("out of range [%d, %d]", def.min, def.max)}
	}
	def.set(p, n)
	return nil
}

func parseTypes(key, val string) (mediatypes.Mask, error) {
	var mask mediatypes.Mask
	for _, tok := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return 0, &ParamError{Key: key, Value: val, Reason: "not a list of integers"}
		}
		bit := mediatypes.Type(n).Bit()
		if bit == 0 {
			return 0, &ParamError{Key: key, Value: val, Reason: fmt.Sprintf("unknown media type %d", n)}
		}
		mask |= bit
	}
	return mask, nil
}
