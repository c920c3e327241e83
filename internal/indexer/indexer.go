package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/filesystem"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/metrics"
	"github.com/fortemezzo/cbird/internal/scanner"
	"github.com/fortemezzo/cbird/internal/search"
)

// ErrUpdateRunning is returned when Update is called during another update.
var ErrUpdateRunning = errors.New("indexer: update already in progress")

// UpdateResult summarizes one Update.
type UpdateResult struct {
	Scan     scanner.Stats
	Added    int
	Removed  int
	Duration time.Duration
	DryRun   bool
}

// Indexer manages the index of one library.
type Indexer struct {
	db        *database.Database
	params    scanner.IndexParams
	extractor media.Extractor
	errs      *scanner.ErrorRecord
	retry     filesystem.RetryConfig

	errsMu     sync.Mutex
	errsLoaded bool

	indexMu       sync.Mutex
	isIndexing    bool
	lastIndexTime time.Time

	engineMu sync.Mutex
	engine   *search.Engine

	onIndexComplete func(UpdateResult)
}

// New creates an indexer for the library held by db.
func New(db *database.Database, params scanner.IndexParams) *Indexer {
	return &Indexer{
		db:        db,
		params:    params,
		extractor: media.NewFileExtractor(params.Algos),
		errs:      scanner.NewErrorRecord(),
		retry:     filesystem.DefaultRetryConfig(),
	}
}

// SetExtractor replaces the file extractor.
func (idx *Indexer) SetExtractor(ex media.Extractor) {
	idx.extractor = ex
}

// SetOnIndexComplete sets a callback invoked after every successful update.
func (idx *Indexer) SetOnIndexComplete(callback func(UpdateResult)) {
	idx.onIndexComplete = callback
}

// Root returns the library root.
func (idx *Indexer) Root() string { return idx.db.Root() }

// Database returns the underlying database.
func (idx *Indexer) Database() *database.Database { return idx.db }

// Errors returns the problems recorded by all updates so far.
func (idx *Indexer) Errors() *scanner.ErrorRecord { return idx.errs }

// Update brings the index up to date with the disk.
func (idx *Indexer) Update(ctx context.Context) (UpdateResult, error) {
	if !idx.tryStartIndexing() {
		return UpdateResult{}, ErrUpdateRunning
	}
	defer idx.finishIndexing()

	metrics.IndexUpdateRunsTotal.Inc()
	start := time.Now()
	root := idx.db.Root()
	logging.Info("Updating index of %s", root)

	if err := idx.LoadErrors(ctx); err != nil {
		logging.Warn("Starting with an empty error record: %v", err)
	}

	known, err := idx.db.AllPaths(ctx)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("load indexed paths: %w", err)
	}
	skip := scanner.NewPathSet(known...)

	w := &batchWriter{db: idx.db, size: max(idx.params.WriteBatchSize, 1), dryRun: idx.params.DryRun}

	sc := scanner.New(idx.params, idx.extractor, idx.errs)
	sc.OnMediaProcessed(func(it media.Item) { w.add(ctx, it) })
	if err := sc.Scan(root, skip); err != nil {
		return UpdateResult{}, err
	}
	sc.Start(ctx)
	stats := sc.Finish()
	w.flush(ctx)

	if err := ctx.Err(); err != nil {
		// the walk was cut short; the skip set does not mean "missing"
		return UpdateResult{}, err
	}
	if w.err != nil {
		return UpdateResult{}, fmt.Errorf("write index: %w", w.err)
	}

	removed := skip.Sorted()
	if len(removed) > 0 && !idx.params.DryRun {
		if _, err := idx.db.Remove(ctx, removed); err != nil {
			return UpdateResult{}, fmt.Errorf("remove missing files: %w", err)
		}
	}
	for _, p := range removed {
		logging.Debug("Removed %s", p)
	}

	result := UpdateResult{
		Scan:     stats,
		Added:    len(w.written),
		Removed:  len(removed),
		Duration: time.Since(start),
		DryRun:   idx.params.DryRun,
	}
	idx.finalizeIndex(ctx, result, w.written, removed)
	return result, nil
}

// batchWriter persists items as they arrive from the scanner, one
// transaction per batch. It is only called from the scanner's collector.
type batchWriter struct {
	db      *database.Database
	size    int
	dryRun  bool
	pending []media.Item
	written []media.Item
	err     error
}

func (w *batchWriter) add(ctx context.Context, it media.Item) {
	w.pending = append(w.pending, it)
	if len(w.pending) >= w.size {
		w.flush(ctx)
	}
}

func (w *batchWriter) flush(ctx context.Context) {
	if len(w.pending) == 0 || w.err != nil {
		return
	}
	if !w.dryRun {
		if err := w.db.Add(ctx, w.pending); err != nil {
			logging.Error("Error writing batch of %d items: %v", len(w.pending), err)
			w.err = err
			return
		}
	}
	w.written = append(w.written, w.pending...)
	w.pending = w.pending[:0]
}

func (idx *Indexer) finalizeIndex(ctx context.Context, result UpdateResult, added []media.Item, removed []string) {
	idx.indexMu.Lock()
	idx.lastIndexTime = time.Now()
	idx.indexMu.Unlock()

	if !result.DryRun {
		if err := idx.db.RefreshStats(ctx); err != nil {
			logging.Warn("Failed to refresh index statistics: %v", err)
		}
		if err := idx.db.SetLastUpdate(ctx, idx.lastIndexTime); err != nil {
			logging.Warn("Failed to record update time: %v", err)
		}
		if err := idx.saveErrors(ctx); err != nil {
			logging.Warn("Failed to save error record: %v", err)
		}

		idx.engineMu.Lock()
		if idx.engine != nil {
			idx.engine.Remove(removed...)
			idx.engine.Add(added...)
		}
		idx.engineMu.Unlock()
	}

	metrics.IndexUpdateLastTimestamp.Set(float64(idx.lastIndexTime.Unix()))
	metrics.IndexUpdateLastDuration.Set(result.Duration.Seconds())
	metrics.IndexItemsAdded.Add(float64(result.Added))
	metrics.IndexItemsRemoved.Add(float64(result.Removed))

	verb := "Index updated"
	if result.DryRun {
		verb = "Dry run"
	}
	logging.Info("%s: %d added, %d removed, %d unchanged, %d errors in %v",
		verb, result.Added, result.Removed, result.Scan.Skipped, result.Scan.Dropped, result.Duration)

	if idx.onIndexComplete != nil {
		idx.onIndexComplete(result)
	}
}

// tryStartIndexing attempts to start indexing, returns false if already in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	idx.isIndexing = false
	idx.indexMu.Unlock()
}

// IsIndexing returns whether an update is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the time of the last completed update in this process.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// Engine returns the search engine, loading it from the database on first use.
func (idx *Indexer) Engine(ctx context.Context) (*search.Engine, error) {
	idx.engineMu.Lock()
	defer idx.engineMu.Unlock()

	if idx.engine != nil {
		return idx.engine, nil
	}

	start := time.Now()
	all, err := idx.db.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load search engine: %w", err)
	}
	idx.engine = search.NewEngine(all...)
	logging.Debug("Loaded %d items into the search engine in %v", len(all), time.Since(start))
	return idx.engine, nil
}
