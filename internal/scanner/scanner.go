package scanner

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fortemezzo/cbird/internal/filesystem"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
	"github.com/fortemezzo/cbird/internal/metrics"
	"github.com/fortemezzo/cbird/internal/workers"
)

// IndexDirName is the directory holding the index inside a library. It is
// never scanned.
const IndexDirName = "_index"

// ErrStarted is returned when work is staged on a scanner that already started.
var ErrStarted = errors.New("scanner: already started")

// Stats summarizes a finished scan.
type Stats struct {
	// Queued files were sent to the extractor.
	Queued int64
	// Skipped files were already known and drained from the skip set.
	Skipped int64
	// Ingested files produced an item.
	Ingested int64
	// Dropped files failed extraction.
	Dropped  int64
	Duration time.Duration
}

type scanRequest struct {
	root string
	skip PathSet
}

type fileJob struct {
	path string
	info fs.FileInfo
	typ  mediatypes.Type
}

type fileResult struct {
	job fileJob
	res media.Result
	err error
}

// Scanner runs one or more staged directory scans. Callbacks must be
// registered before Start and are invoked from a single goroutine.
type Scanner struct {
	params    IndexParams
	extractor media.Extractor
	errs      *ErrorRecord
	retry     filesystem.RetryConfig

	onMedia    func(media.Item)
	onFinished func(Stats)

	mu      sync.Mutex
	staged  []scanRequest
	started bool
	done    chan struct{}
	stats   Stats

	queued   atomic.Int64
	skipped  atomic.Int64
	ingested atomic.Int64
	dropped  atomic.Int64
}

// New creates a scanner. errs receives per-file problems and may be shared
// between scanners.
func New(params IndexParams, ex media.Extractor, errs *ErrorRecord) *Scanner {
	if errs == nil {
		errs = NewErrorRecord()
	}
	return &Scanner{
		params:    params,
		extractor: ex,
		errs:      errs,
		retry:     filesystem.DefaultRetryConfig(),
		done:      make(chan struct{}),
	}
}

// OnMediaProcessed registers fn to receive every newly ingested item.
func (s *Scanner) OnMediaProcessed(fn func(media.Item)) { s.onMedia = fn }

// OnFinished registers fn to run once after all work is done.
func (s *Scanner) OnFinished(fn func(Stats)) { s.onFinished = fn }

// Errors returns the error record.
func (s *Scanner) Errors() *ErrorRecord { return s.errs }

// Scan stages a scan of root. Paths found in skip are removed from it and
// not processed. The scanner owns skip until Finish returns.
func (s *Scanner) Scan(root string, skip PathSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrStarted
	}
	if skip == nil {
		skip = PathSet{}
	}
	s.staged = append(s.staged, scanRequest{root: root, skip: skip})
	return nil
}

// Start launches the staged scans. Calling it again has no effect.
func (s *Scanner) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	go s.run(ctx, s.staged)
}

// Finish starts the scanner if needed, waits for every file to be processed
// and the finished callback to return, then returns the totals.
func (s *Scanner) Finish() Stats {
	s.Start(context.Background())
	<-s.done
	return s.stats
}

func (s *Scanner) run(ctx context.Context, requests []scanRequest) {
	defer close(s.done)

	start := time.Now()
	numWorkers := workers.Resolve(s.params.IndexThreads)
	logging.Debug("Scanner starting %d roots with %d workers", len(requests), numWorkers)

	metrics.ScannerIsRunning.Set(1)
	defer metrics.ScannerIsRunning.Set(0)

	jobs := make(chan fileJob, numWorkers*4)
	results := make(chan fileResult, numWorkers*4)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go s.worker(ctx, jobs, results, &wg)
	}

	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		s.collect(results)
	}()

	visited := make(map[string]struct{})
	for _, req := range requests {
		s.walk(ctx, req, visited, jobs)
	}

	close(jobs)
	wg.Wait()
	close(results)
	collectorWg.Wait()

	s.stats = Stats{
		Queued:   s.queued.Load(),
		Skipped:  s.skipped.Load(),
		Ingested: s.ingested.Load(),
		Dropped:  s.dropped.Load(),
		Duration: time.Since(start),
	}
	metrics.ScannerDuration.Observe(s.stats.Duration.Seconds())

	logging.Info("Scan complete: %d ingested, %d dropped, %d already indexed in %v",
		s.stats.Ingested, s.stats.Dropped, s.stats.Skipped, s.stats.Duration)

	if s.onFinished != nil {
		s.onFinished(s.stats)
	}
}

// walk enumerates one root. It is the only goroutine touching req.skip.
func (s *Scanner) walk(ctx context.Context, req scanRequest, visited map[string]struct{}, jobs chan<- fileJob) {
	info, err := filesystem.StatWithRetry(req.root, s.retry)
	if err != nil || !info.IsDir() {
		logging.Debug("Scan root %s is not a directory, nothing to do", req.root)
		return
	}

	_ = filepath.WalkDir(req.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			if d != nil && d.IsDir() && path != req.root {
				return filepath.SkipDir
			}
			return nil
		}

		if path == req.root {
			return nil
		}

		name := d.Name()
		hidden := s.params.SkipHidden && strings.HasPrefix(name, ".")

		if d.IsDir() {
			if name == IndexDirName || hidden || !s.params.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if hidden || !d.Type().IsRegular() {
			return nil
		}

		if _, dup := visited[path]; dup {
			return nil
		}
		visited[path] = struct{}{}

		if _, known := req.skip[path]; known {
			delete(req.skip, path)
			s.skipped.Add(1)
			metrics.ScannerFilesTotal.WithLabelValues(mediatypes.TypeForPath(path).String(), "skipped").Inc()
			return nil
		}

		typ := mediatypes.TypeForPath(path)
		if typ == mediatypes.TypeNone || !s.params.Types.Has(typ) {
			return nil
		}

		// d.Info would not retry a stale handle
		fi, err := filesystem.StatWithRetry(path, s.retry)
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			return nil
		}
		if fi.Size() < s.params.MinFileSize {
			logging.Debug("Skipping %s: %d bytes is below the minimum size", path, fi.Size())
			return nil
		}

		s.queued.Add(1)
		select {
		case jobs <- fileJob{path: path, info: fi, typ: typ}:
		case <-ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
}

func (s *Scanner) worker(ctx context.Context, jobs <-chan fileJob, results chan<- fileResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		start := time.Now()
		res, err := s.extractor.Process(ctx, job.path, job.info)
		metrics.ScannerExtractDuration.WithLabelValues(job.typ.String()).Observe(time.Since(start).Seconds())
		results <- fileResult{job: job, res: res, err: err}
	}
}

// collect consumes results on a single goroutine, so callbacks never run
// concurrently.
func (s *Scanner) collect(results <-chan fileResult) {
	var n int64
	for r := range results {
		n++
		logging.Progress("scanning: %d files processed", n)

		typ := r.job.typ.String()
		if r.err != nil {
			s.dropped.Add(1)
			metrics.ScannerFilesTotal.WithLabelValues(typ, "dropped").Inc()

			var xerr *media.ExtractError
			if errors.As(r.err, &xerr) {
				s.errs.Add(r.job.path, xerr.Tag)
				logging.Debug("Dropped %s: %v", r.job.path, r.err)
			} else {
				logging.Warn("Extraction of %s aborted: %v", r.job.path, r.err)
			}
			continue
		}

		// a file that ingests again sheds the tags of earlier attempts
		s.errs.Remove(r.job.path)
		for _, tag := range r.res.Warnings {
			s.errs.Add(r.job.path, tag)
		}

		s.ingested.Add(1)
		metrics.ScannerFilesTotal.WithLabelValues(typ, "ingested").Inc()
		if s.onMedia != nil {
			s.onMedia(r.res.Item)
		}
	}
}
