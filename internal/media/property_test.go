package media

import (
	"errors"
	"testing"
	"time"

	"github.com/fortemezzo/cbird/internal/value"
)

func TestParseProperty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr  string
		kind  PropertyKind
		args  []string
		funcs int
	}{
		{"id", PropID, nil, 0},
		{"name:upper", PropName, nil, 1},
		{"name:lower:mid,0,3", PropName, nil, 2},
		{"exif:DateTimeOriginal,DateTime:year", PropExif, []string{"DateTimeOriginal", "DateTime"}, 1},
		{"attr:group", PropAttribute, []string{"group"}, 0},
		{"compressionRatio", PropCompressionRatio, nil, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			p, err := ParseProperty(tt.expr)
			if err != nil {
				t.Fatalf("ParseProperty(%q) error = %v", tt.expr, err)
			}
			if p.Kind != tt.kind || len(p.Funcs) != tt.funcs || len(p.Args) != len(tt.args) {
				t.Errorf("ParseProperty(%q) = %+v", tt.expr, p)
			}
			if p.String() != tt.expr {
				t.Errorf("String() = %q", p.String())
			}
		})
	}
}

func TestParsePropertyErrors(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"bogus", "name:shout", "exif", "exif:", "name:mid", "name:mid,x", "id:add", "id:pad,z", "mtime:date"} {
		_, err := ParseProperty(expr)
		var perr *PropertyError
		if !errors.As(err, &perr) {
			t.Errorf("ParseProperty(%q) error = %v, want *PropertyError", expr, err)
		}
	}
}

func TestPropertyValue(t *testing.T) {
	t.Parallel()

	mtime := time.Date(2019, 7, 14, 10, 0, 0, 0, time.Local)
	m := Item{ID: 42, Path: "/lib/holiday/beach.PNG", MD5: "abc", Type: 1, Width: 640, Height: 480, Size: 1000, ModTime: mtime}
	m.SetAttribute("group", "g1")

	tests := []struct {
		expr string
		want value.Value
	}{
		{"id", value.FromInt(42)},
		{"isValid", value.FromInt(1)},
		{"type", value.FromInt(1)},
		{"name", value.FromString("beach.PNG")},
		{"name:upper", value.FromString("BEACH.PNG")},
		{"name:lower:title", value.FromString("Beach.png")},
		{"name:mid,1,3", value.FromString("eac")},
		{"name:mid,6", value.FromString("PNG")},
		{"name:mid,50", value.FromString("")},
		{"suffix", value.FromString("png")},
		{"parentPath", value.FromString("/lib/holiday")},
		{"contentType", value.FromString("image/png")},
		{"resolution", value.FromInt(307200)},
		{"res", value.FromInt(640)},
		{"compressionRatio", value.FromFloat(307.2)},
		{"score", value.NullValue()},
		{"mtime:year", value.FromString("2019")},
		{"mtime:month", value.FromString("2019-07")},
		{"mtime:day", value.FromString("2019-07-14")},
		{"mtime:date,Jan 2", value.FromString("Jul 14")},
		{"id:add,8", value.FromInt(50)},
		{"id:pad,5", value.FromString("00042")},
		{"attr:group", value.FromString("g1")},
		{"attr:missing", value.NullValue()},
		{"attr:missing:upper", value.NullValue()},
		{"md5:add,1", value.NullValue()},
		{"exif:DateTimeOriginal", value.NullValue()},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			got := MustParseProperty(tt.expr).Value(m)
			if !value.Equal(got, tt.want) || got.Kind() != tt.want.Kind() {
				t.Errorf("Value(%q) = %v (%v), want %v (%v)", tt.expr, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}

	scored := m.WithScore(7)
	if got := MustParseProperty("score").Value(scored); !value.Equal(got, value.FromInt(7)) {
		t.Errorf("score = %v, want 7", got)
	}
}
