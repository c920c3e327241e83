package scanner

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
)

// IndexParams controls what a scan picks up and how it is processed.
type IndexParams struct {
	Recursive bool
	// Types selects image, video and audio files.
	Types mediatypes.Mask
	// Algos selects the fingerprints computed (media.Fingerprint* bits).
	Algos int
	// IndexThreads is the worker count; 0 picks one per CPU.
	IndexThreads int
	// MinFileSize skips smaller files. 0 lets empty files through.
	MinFileSize int64
	// WriteBatchSize is the number of items written per transaction.
	WriteBatchSize int
	DryRun         bool
	SkipHidden     bool
}

// DefaultIndexParams returns the defaults used by the CLI.
func DefaultIndexParams() IndexParams {
	return IndexParams{
		Recursive:      true,
		Types:          mediatypes.MaskAll,
		Algos:          media.FingerprintAll,
		IndexThreads:   0,
		MinFileSize:    1,
		WriteBatchSize: 1024,
		SkipHidden:     true,
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
		return fmt.Sprintf("parameter %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("parameter %q = %q: %s", e.Key, e.Value, e.Reason)
}

type intRange struct{ min, max int64 }

var indexKeys = map[string]intRange{
	"rec":     {0, 1},
	"types":   {1, int64(mediatypes.MaskAll)},
	"algos":   {0, media.FingerprintAll},
	"idxthr":  {0, 1024},
	"minsize": {0, 1 << 40},
	"bsize":   {1, 1 << 20},
	"dry":     {0, 1},
	"hidden":  {0, 1},
}

var indexUsage = map[string]string{
	"rec":     "descend into subdirectories",
	"types":   "media types bit mask: 1=image 2=video 4=audio",
	"algos":   "fingerprints bit mask: 1=dct 2=features 4=mirror 8=color",
	"idxthr":  "worker threads, 0=one per CPU",
	"minsize": "smallest file size indexed, in bytes",
	"bsize":   "items written per transaction",
	"dry":     "scan without writing the index",
	"hidden":  "include hidden files and directories",
}

// IndexUsage describes key, or returns "" for unknown keys.
func IndexUsage(key string) string { return indexUsage[key] }

// IndexKeys returns the keys accepted by Set.
func IndexKeys() []string {
	keys := make([]string, 0, len(indexKeys))
	for k := range indexKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns an integer valued parameter by its short key.
func (p *IndexParams) Set(key, val string) error {
	r, ok := indexKeys[key]
	if !ok {
		return &ParamError{Key: key, Reason: "unknown index parameter"}
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return &ParamError{Key: key, Value: val, Reason: "not an integer"}
	}
	if n < r.min || n > r.max {
		return &ParamError{Key: key, Value: val, Reason: fmt.Sprintf("out of range [%d, %d]", r.min, r.max)}
	}

	switch key {
	case "rec":
		p.Recursive = n != 0
	case "types":
		p.Types = mediatypes.Mask(n)
	case "algos":
		p.Algos = int(n)
	case "idxthr":
		p.IndexThreads = int(n)
	case "minsize":
		p.MinFileSize = n
	case "bsize":
		p.WriteBatchSize = int(n)
	case "dry":
		p.DryRun = n != 0
	case "hidden":
		p.SkipHidden = n == 0
	}
	return nil
}
