package indexer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
	"github.com/fortemezzo/cbird/internal/scanner"
)

// stubExtractor fingerprints a file by hashing its path.
type stubExtractor struct {
	// gate, when set, blocks every call until closed.
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (s *stubExtractor) Process(ctx context.Context, path string, info fs.FileInfo) (media.Result, error) {
	if s.gate != nil {
		s.once.Do(func() { close(s.entered) })
		select {
		case <-s.gate:
		case <-ctx.Done():
			return media.Result{}, ctx.Err()
		}
	}
	h := fnv.New64a()
	h.Write([]byte(filepath.Base(path)))
	return media.Result{Item: media.Item{
		Path:        path,
		Type:        mediatypes.TypeForPath(path),
		MD5:         fmt.Sprintf("%x", h.Sum64()),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Fingerprint: media.Fingerprint{DCT: h.Sum64()},
	}}, nil
}

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func setupIndexer(t *testing.T, params scanner.IndexParams, files ...string) *Indexer {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files...)

	db, err := database.Open(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	idx := New(db, params)
	idx.SetExtractor(&stubExtractor{})
	return idx
}

func count(t *testing.T, idx *Indexer) int {
	t.Helper()
	n, err := idx.Database().Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestUpdateIsIncremental(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := setupIndexer(t, scanner.DefaultIndexParams(), "a.jpg", "b.png", "sub/c.jpg", "clip.mp4", "notes.txt")

	res, err := idx.Update(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 4 || res.Removed != 0 || count(t, idx) != 4 {
		t.Fatalf("first update = %+v, count %d", res, count(t, idx))
	}

	res, err = idx.Update(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Removed != 0 || res.Scan.Skipped != 4 {
		t.Errorf("second update = %+v", res)
	}

	if err := os.Remove(filepath.Join(idx.Root(), "b.png")); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, idx.Root(), "sub/d.jpg")

	res, err = idx.Update(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 1 || res.Removed != 1 || count(t, idx) != 4 {
		t.Errorf("third update = %+v, count %d", res, count(t, idx))
	}
	if _, err := idx.Database().MediaWithPath(ctx, filepath.Join(idx.Root(), "b.png")); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("removed file still indexed: %v", err)
	}

	stats := idx.Database().GetStats()
	if stats.TotalImages != 3 || stats.TotalVideos != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if last, _ := idx.Database().LastUpdate(ctx); last.IsZero() {
		t.Error("last update time not recorded")
	}
}

func TestUpdateBatches(t *testing.T) {
	t.Parallel()

	params := scanner.DefaultIndexParams()
	params.WriteBatchSize = 2
	var files []string
	for i := 0; i < 7; i++ {
		files = append(files, fmt.Sprintf("img%d.jpg", i))
	}
	idx := setupIndexer(t, params, files...)

	res, err := idx.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 7 || count(t, idx) != 7 {
		t.Errorf("update = %+v, count %d", res, count(t, idx))
	}
}

func TestUpdateDryRun(t *testing.T) {
	t.Parallel()

	params := scanner.DefaultIndexParams()
	params.DryRun = true
	idx := setupIndexer(t, params, "a.jpg", "b.jpg")

	res, err := idx.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.DryRun || res.Added != 2 {
		t.Errorf("update = %+v", res)
	}
	if count(t, idx) != 0 {
		t.Errorf("dry run wrote %d items", count(t, idx))
	}
}

func TestUpdateRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	idx := setupIndexer(t, scanner.DefaultIndexParams(), "a.jpg")
	ex := &stubExtractor{gate: make(chan struct{}), entered: make(chan struct{})}
	idx.SetExtractor(ex)

	done := make(chan error, 1)
	go func() {
		_, err := idx.Update(context.Background())
		done <- err
	}()

	<-ex.entered
	if !idx.IsIndexing() {
		t.Error("IsIndexing = false during update")
	}
	if _, err := idx.Update(context.Background()); !errors.Is(err, ErrUpdateRunning) {
		t.Errorf("concurrent Update = %v, want ErrUpdateRunning", err)
	}
	close(ex.gate)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if idx.IsIndexing() || idx.LastIndexTime().IsZero() {
		t.Error("indexing state not reset")
	}
}

func TestUpdateCancelledKeepsIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := setupIndexer(t, scanner.DefaultIndexParams(), "a.jpg", "b.jpg")
	if _, err := idx.Update(ctx); err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := idx.Update(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if count(t, idx) != 2 {
		t.Errorf("cancelled update removed items: count %d", count(t, idx))
	}
}

func TestEngineFollowsUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := setupIndexer(t, scanner.DefaultIndexParams(), "a.jpg", "b.jpg")
	if _, err := idx.Update(ctx); err != nil {
		t.Fatal(err)
	}

	engine, err := idx.Engine(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if engine.Len() != 2 {
		t.Fatalf("engine has %d items", engine.Len())
	}
	again, _ := idx.Engine(ctx)
	if again != engine {
		t.Error("engine reloaded")
	}

	if err := os.Remove(filepath.Join(idx.Root(), "a.jpg")); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, idx.Root(), "c.jpg", "d.jpg")
	if _, err := idx.Update(ctx); err != nil {
		t.Fatal(err)
	}
	if engine.Len() != 3 {
		t.Errorf("engine has %d items after update, want 3", engine.Len())
	}
}

func TestUpdateRecordsErrors(t *testing.T) {
	t.Parallel()

	params := scanner.DefaultIndexParams()
	idx := setupIndexer(t, params, "ok.jpg")
	idx.SetExtractor(media.NewFileExtractor(params.Algos))

	res, err := idx.Update(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// "ok.jpg" holds its own name, not an image
	if res.Added != 0 || res.Scan.Dropped != 1 {
		t.Errorf("update = %+v", res)
	}
	if idx.Errors().Len() != 1 {
		t.Errorf("error record = %v", idx.Errors().Snapshot())
	}

	// a fresh indexer sees the saved record
	reopened := New(idx.Database(), params)
	if err := reopened.LoadErrors(context.Background()); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(idx.Root(), "ok.jpg")
	if !reopened.Errors().Has(bad, media.TagUnsupported) {
		t.Errorf("saved record = %v", reopened.Errors().Snapshot())
	}

	if err := os.Remove(bad); err != nil {
		t.Fatal(err)
	}
	if _, err := reopened.Update(context.Background()); err != nil {
		t.Fatal(err)
	}
	if reopened.Errors().Len() != 0 {
		t.Errorf("record kept a deleted file: %v", reopened.Errors().Snapshot())
	}
}

func TestOnIndexComplete(t *testing.T) {
	t.Parallel()

	idx := setupIndexer(t, scanner.DefaultIndexParams(), "a.jpg")
	var got []UpdateResult
	idx.SetOnIndexComplete(func(r UpdateResult) { got = append(got, r) })

	if _, err := idx.Update(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Added != 1 {
		t.Errorf("callback results = %+v", got)
	}
}

func TestWatchTriggersUpdate(t *testing.T) {
	t.Parallel()

	idx := setupIndexer(t, scanner.DefaultIndexParams())
	updates := make(chan UpdateResult, 4)
	idx.SetOnIndexComplete(func(r UpdateResult) { updates <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchErr := make(chan error, 1)
	go func() { watchErr <- idx.Watch(ctx, 50*time.Millisecond) }()

	// give the watcher time to register the root
	time.Sleep(200 * time.Millisecond)
	writeFiles(t, idx.Root(), "new.jpg")

	select {
	case r := <-updates:
		if r.Added != 1 {
			t.Errorf("update = %+v", r)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no update after file creation")
	}

	cancel()
	if err := <-watchErr; err != nil {
		t.Errorf("Watch = %v", err)
	}
}

func TestIgnoreEvent(t *testing.T) {
	t.Parallel()

	idx := setupIndexer(t, scanner.DefaultIndexParams())
	root := idx.Root()

	tests := []struct {
		path   string
		op     fsnotify.Op
		ignore bool
	}{
		{filepath.Join(root, "a.jpg"), fsnotify.Create, false},
		{filepath.Join(root, "sub", "b.jpg"), fsnotify.Remove, false},
		{filepath.Join(root, "a.jpg"), fsnotify.Chmod, true},
		{filepath.Join(root, database.IndexDirName, database.FileName), fsnotify.Write, true},
		{filepath.Join(root, ".hidden", "c.jpg"), fsnotify.Create, true},
	}
	for _, tt := range tests {
		ev := fsnotify.Event{Name: tt.path, Op: tt.op}
		if got := idx.ignoreEvent(ev); got != tt.ignore {
			t.Errorf("ignoreEvent(%s %s) = %v, want %v", tt.op, tt.path, got, tt.ignore)
		}
	}
}

func TestEventType(t *testing.T) {
	t.Parallel()

	tests := map[fsnotify.Op]string{
		fsnotify.Create:                  "create",
		fsnotify.Write:                   "write",
		fsnotify.Remove:                  "remove",
		fsnotify.Rename:                  "rename",
		fsnotify.Chmod:                   "other",
		fsnotify.Create | fsnotify.Write: "create",
	}
	for op, want := range tests {
		if got := eventType(op); got != want {
			t.Errorf("eventType(%v) = %q, want %q", op, got, want)
		}
	}
}
