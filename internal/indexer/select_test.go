package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/scanner"
)

func TestSelect(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := setupIndexer(t, scanner.DefaultIndexParams(),
		"cats/tabby.jpg", "cats/siamese.png", "dogs/pug.jpg", "dogs/walk.mp4")
	if _, err := idx.Update(ctx); err != nil {
		t.Fatal(err)
	}
	root := idx.Root()
	current := media.Group{{Path: "/somewhere/picked.jpg"}}
	pug, err := idx.Database().MediaWithPath(ctx, filepath.Join(root, "dogs", "pug.jpg"))
	if err != nil {
		t.Fatal(err)
	}

	names := func(g media.Group) string {
		var out []string
		for _, it := range g {
			r, _ := filepath.Rel(root, it.Path)
			out = append(out, filepath.ToSlash(r))
		}
		return fmt.Sprint(out)
	}

	tests := []struct {
		selector string
		want     string
	}{
		{":\\.png$", "[cats/siamese.png]"},
		{":^dogs/", "[dogs/pug.jpg dogs/walk.mp4]"},
		{filepath.Join(root, "cats"), "[cats/siamese.png cats/tabby.jpg]"},
		{root, "[cats/siamese.png cats/tabby.jpg dogs/pug.jpg dogs/walk.mp4]"},
		{filepath.Join(root, "dogs", "pug.jpg"), "[dogs/pug.jpg]"},
		{"%.jpg", "[cats/tabby.jpg dogs/pug.jpg]"},
		{"dogs/w%", "[dogs/walk.mp4]"},
		{fmt.Sprintf("id:%d", pug.ID), "[dogs/pug.jpg]"},
		{"type:video", "[dogs/walk.mp4]"},
		{"type:1", "[cats/siamese.png cats/tabby.jpg dogs/pug.jpg]"},
		{"sql:path LIKE 'cats/%' ORDER BY path DESC", "[cats/tabby.jpg cats/siamese.png]"},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			g, err := idx.Select(ctx, tt.selector, current)
			if err != nil {
				t.Fatal(err)
			}
			if got := names(g); got != tt.want {
				t.Errorf("Select(%q) = %s, want %s", tt.selector, got, tt.want)
			}
		})
	}

	sel, err := idx.Select(ctx, SelectionMarker, current)
	if err != nil || len(sel) != 1 || sel[0].Path != "/somewhere/picked.jpg" {
		t.Errorf("Select(@) = %v, %v", sel, err)
	}

	writeFiles(t, root, "late.jpg")
	if _, err := idx.Select(ctx, filepath.Join(root, "late.jpg"), nil); err == nil {
		t.Error("expected error for unindexed file")
	}
	if _, err := idx.Select(ctx, "", nil); err == nil {
		t.Error("expected error for empty selector")
	}
	for _, bad := range []string{":(", "id:x", "id:999999", "type:none", "sql:", "sql:no_such_column = 1"} {
		if _, err := idx.Select(ctx, bad, nil); err == nil {
			t.Errorf("Select(%q): expected error", bad)
		}
	}
}
