package media

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fortemezzo/cbird/internal/mediatypes"
)

// MatchRange aligns a match with its needle, in frames for video.
type MatchRange struct {
	SrcIn int `json:"srcIn"`
	DstIn int `json:"dstIn"`
	Len   int `json:"len"`
}

// Item is one indexed media file. Path is absolute. Attributes, Score and
// Range are annotations attached by queries and are not persisted.
type Item struct {
	ID          int64           `json:"id"`
	Path        string          `json:"path"`
	Type        mediatypes.Type `json:"type"`
	MD5         string          `json:"md5"`
	Size        int64           `json:"size"`
	ModTime     time.Time       `json:"modTime"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Fingerprint Fingerprint     `json:"-"`
	Attributes  Attributes      `json:"attributes,omitempty"`
	Score       int             `json:"score,omitempty"`
	HasScore    bool            `json:"-"`
	Range       *MatchRange     `json:"range,omitempty"`
}

// IsValid reports whether the item came from the index.
func (m Item) IsValid() bool { return m.ID != 0 }

// Name returns the file name.
func (m Item) Name() string { return filepath.Base(m.Path) }

// ParentPath returns the directory containing the item.
func (m Item) ParentPath() string { return filepath.Dir(m.Path) }

// Suffix returns the lowercase extension without the dot.
func (m Item) Suffix() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(m.Path), "."))
}

// ContentType returns the MIME type derived from the extension.
func (m Item) ContentType() string {
	return mediatypes.GetMimeType(strings.ToLower(filepath.Ext(m.Path)))
}

// Resolution is width*height.
func (m Item) Resolution() int { return m.Width * m.Height }

// Res is the larger of width and height.
func (m Item) Res() int { return max(m.Width, m.Height) }

// CompressionRatio is resolution divided by file size, 0 when unknown.
func (m Item) CompressionRatio() float64 {
	if m.Size <= 0 {
		return 0
	}
	return float64(m.Resolution()) / float64(m.Size)
}

// WithScore returns a copy of m carrying a match score.
func (m Item) WithScore(score int) Item {
	m.Score = score
	m.HasScore = true
	return m
}

// SetAttribute sets key on the item's own copy of its attributes.
func (m *Item) SetAttribute(key, val string) {
	m.Attributes = m.Attributes.With(key, val)
}

// Attribute is one named annotation.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attributes is an insertion ordered string map. Values are never mutated
// in place, so items copied by value do not share updates.
type Attributes []Attribute

// Get returns the value for key.
func (a Attributes) Get(key string) (string, bool) {
	for _, kv := range a {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// With returns a copy of a with key set to val. Existing keys keep their
// position.
func (a Attributes) With(key, val string) Attributes {
	out := make(Attributes, len(a), len(a)+1)
	copy(out, a)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = val
			return out
		}
	}
	return append(out, Attribute{Key: key, Value: val})
}

// Group is an ordered sequence of items.
type Group []Item

// GroupList is an ordered collection of groups.
type GroupList []Group

// IndexByPath returns the position of path in g, or -1.
func (g Group) IndexByPath(path string) int {
	for i := range g {
		if g[i].Path == path {
			return i
		}
	}
	return -1
}

// Paths returns the paths of g in order.
func (g Group) Paths() []string {
	out := make([]string, len(g))
	for i := range g {
		out[i] = g[i].Path
	}
	return out
}

// Clone returns a shallow copy of g.
func (g Group) Clone() Group {
	out := make(Group, len(g))
	copy(out, g)
	return out
}

// Insert returns g with item placed at index i.
func (g Group) Insert(i int, item Item) Group {
	g = append(g, Item{})
	copy(g[i+1:], g[i:])
	g[i] = item
	return g
}

// Difference returns the items of g whose path is not in other, in g's order.
func (g Group) Difference(other Group) Group {
	drop := make(map[string]struct{}, len(other))
	for i := range other {
		drop[other[i].Path] = struct{}{}
	}
	var out Group
	for i := range g {
		if _, ok := drop[g[i].Path]; !ok {
			out = append(out, g[i])
		}
	}
	return out
}

// Flatten concatenates every group in order.
func (l GroupList) Flatten() Group {
	n := 0
	for _, g := range l {
		n += len(g)
	}
	out := make(Group, 0, n)
	for _, g := range l {
		out = append(out, g...)
	}
	return out
}

// ItemCount returns the total number of items in l.
func (l GroupList) ItemCount() int {
	n := 0
	for _, g := range l {
		n += len(g)
	}
	return n
}
