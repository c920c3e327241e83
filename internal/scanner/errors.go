package scanner

import (
	"sort"
	"sync"

	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/metrics"
)

// ErrorRecord collects ingestion problems by path. It is safe for
// concurrent use.
type ErrorRecord struct {
	mu   sync.Mutex
	tags map[string]map[media.ErrorTag]struct{}
}

// NewErrorRecord returns an empty record.
func NewErrorRecord() *ErrorRecord {
	return &ErrorRecord{tags: make(map[string]map[media.ErrorTag]struct{})}
}

// Add tags path. Adding the same tag twice has no effect.
func (r *ErrorRecord) Add(path string, tag media.ErrorTag) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.tags[path]
	if !ok {
		set = make(map[media.ErrorTag]struct{})
		r.tags[path] = set
	}
	if _, dup := set[tag]; dup {
		return
	}
	set[tag] = struct{}{}
	metrics.ScannerErrorsTotal.WithLabelValues(string(tag)).Inc()
}

// Restore adds previously recorded tags without counting them as new
// errors.
func (r *ErrorRecord) Restore(saved map[string][]media.ErrorTag) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for path, tags := range saved {
		set, ok := r.tags[path]
		if !ok {
			set = make(map[media.ErrorTag]struct{}, len(tags))
			r.tags[path] = set
		}
		for _, t := range tags {
			set[t] = struct{}{}
		}
	}
}

// Remove forgets every tag for path, e.g. after it was repaired.
func (r *ErrorRecord) Remove(path string) {
	r.mu.Lock()
	delete(r.tags, path)
	r.mu.Unlock()
}

// RemoveTag forgets one tag of path, dropping path once it has none left.
func (r *ErrorRecord) RemoveTag(path string, tag media.ErrorTag) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.tags[path]
	if !ok {
		return
	}
	delete(set, tag)
	if len(set) == 0 {
		delete(r.tags, path)
	}
}

// Tags returns the sorted tags for path.
func (r *ErrorRecord) Tags(path string) []media.ErrorTag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedTags(r.tags[path])
}

// Has reports whether path carries tag.
func (r *ErrorRecord) Has(path string, tag media.ErrorTag) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tags[path][tag]
	return ok
}

// Len returns the number of paths with at least one tag.
func (r *ErrorRecord) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tags)
}

// Snapshot returns a consistent copy of the record.
func (r *ErrorRecord) Snapshot() map[string][]media.ErrorTag {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]media.ErrorTag, len(r.tags))
	for path, set := range r.tags {
		out[path] = sortedTags(set)
	}
	return out
}

// Paths returns the sorted paths that carry tag, or every tagged path when
// tag is empty.
func (r *ErrorRecord) Paths(tag media.ErrorTag) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for path, set := range r.tags {
		if _, ok := set[tag]; ok || tag == "" {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func sortedTags(set map[media.ErrorTag]struct{}) []media.ErrorTag {
	if len(set) == 0 {
		return nil
	}
	out := make([]media.ErrorTag, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
