package media

import (
	"testing"

	"github.com/fortemezzo/cbird/internal/mediatypes"
)

func TestItemDerivedFields(t *testing.T) {
	t.Parallel()

	m := Item{ID: 3, Path: "/lib/trip/IMG_01.JPG", Width: 400, Height: 300, Size: 60000, Type: mediatypes.TypeImage}

	if m.Name() != "IMG_01.JPG" {
		t.Errorf("Name() = %q", m.Name())
	}
	if m.ParentPath() != "/lib/trip" {
		t.Errorf("ParentPath() = %q", m.ParentPath())
	}
	if m.Suffix() != "jpg" {
		t.Errorf("Suffix() = %q", m.Suffix())
	}
	if m.ContentType() != "image/jpeg" {
		t.Errorf("ContentType() = %q", m.ContentType())
	}
	if m.Resolution() != 120000 || m.Res() != 400 {
		t.Errorf("Resolution() = %d, Res() = %d", m.Resolution(), m.Res())
	}
	if m.CompressionRatio() != 2 {
		t.Errorf("CompressionRatio() = %v, want 2", m.CompressionRatio())
	}
	if !m.IsValid() || (Item{}).IsValid() {
		t.Error("IsValid should follow the id")
	}
	if s := m.WithScore(4); !s.HasScore || s.Score != 4 || m.HasScore {
		t.Error("WithScore should return an annotated copy")
	}
}

func TestAttributesCopyOnWrite(t *testing.T) {
	t.Parallel()

	a := Item{Path: "/a"}
	a.SetAttribute("x", "1")
	a.SetAttribute("y", "2")

	b := a
	b.SetAttribute("x", "changed")
	b.SetAttribute("z", "3")

	if v, _ := a.Attributes.Get("x"); v != "1" {
		t.Errorf("original attribute changed to %q", v)
	}
	if _, ok := a.Attributes.Get("z"); ok {
		t.Error("new attribute leaked into original")
	}
	if b.Attributes[0].Key != "x" || b.Attributes[0].Value != "changed" || len(b.Attributes) != 3 {
		t.Errorf("b.Attributes = %+v", b.Attributes)
	}
}

func TestGroupInsert(t *testing.T) {
	t.Parallel()

	g := Group{{Path: "a"}, {Path: "c"}}
	g = g.Insert(1, Item{Path: "b"})
	g = g.Insert(3, Item{Path: "d"})
	g = g.Insert(0, Item{Path: "_"})

	want := []string{"_", "a", "b", "c", "d"}
	got := g.Paths()
	if len(got) != len(want) {
		t.Fatalf("Paths() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Paths() = %v, want %v", got, want)
		}
	}
	if g.IndexByPath("c") != 3 || g.IndexByPath("zz") != -1 {
		t.Error("IndexByPath mismatch")
	}
}

func TestGroupDifference(t *testing.T) {
	t.Parallel()

	g := Group{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}, {Path: "/d"}}
	got := g.Difference(Group{{Path: "/c"}, {Path: "/a"}, {Path: "/x"}}).Paths()
	if len(got) != 2 || got[0] != "/b" || got[1] != "/d" {
		t.Errorf("Difference = %v, want [/b /d]", got)
	}
	if d := g.Difference(g); len(d) != 0 {
		t.Errorf("Difference with itself = %v", d.Paths())
	}
}

func TestGroupListFlatten(t *testing.T) {
	t.Parallel()

	l := GroupList{{{Path: "a"}, {Path: "b"}}, {}, {{Path: "c"}}}
	if l.ItemCount() != 3 || len(l.Flatten()) != 3 || l.Flatten()[2].Path != "c" {
		t.Errorf("Flatten() = %v", l.Flatten().Paths())
	}
}
