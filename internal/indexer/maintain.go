package indexer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/filesystem"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
	"github.com/fortemezzo/cbird/internal/metrics"
	"github.com/fortemezzo/cbird/internal/search"
	"github.com/fortemezzo/cbird/internal/workers"
)

// LargeFileSize is the size from which Verify hashes files one at a time,
// so that big files do not compete for the disk.
const LargeFileSize = 16 << 20

// Remove deletes the items from the index and the loaded search engine. The
// files themselves are left alone, so the next update adds them back unless
// they were moved away. A dry run only counts.
func (idx *Indexer) Remove(ctx context.Context, g media.Group) (int64, error) {
	if idx.params.DryRun {
		return int64(len(g)), nil
	}

	paths := g.Paths()
	n, err := idx.db.Remove(ctx, paths)
	if err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}
	metrics.IndexItemsRemoved.Add(float64(n))

	idx.engineMu.Lock()
	if idx.engine != nil {
		idx.engine.Remove(paths...)
	}
	idx.engineMu.Unlock()

	if err := idx.db.RefreshStats(ctx); err != nil {
		logging.Warn("Failed to refresh index statistics: %v", err)
	}
	logging.Info("Removed %d of %d items from the index", n, len(g))
	return n, nil
}

// HashMismatch is an indexed file whose contents changed since indexing.
type HashMismatch struct {
	Path    string `json:"path"`
	Stored  string `json:"stored"`
	Current string `json:"current"`
}

// VerifyResult summarizes Verify.
type VerifyResult struct {
	OK         int            `json:"ok"`
	Changed    []HashMismatch `json:"changed"`
	Unreadable []string       `json:"unreadable"`
	BytesRead  int64          `json:"bytesRead"`
	Duration   time.Duration  `json:"duration"`
}

type verifyOutcome struct {
	sum string
	n   int64
	err error
}

// Verify re-checksums the files of g against the stored MD5. Changed files
// are tagged media.TagHashChanged and unreadable ones media.TagIOError in
// the error record; files that match again lose the hash-changed tag. The
// record is saved unless this is a dry run.
func (idx *Indexer) Verify(ctx context.Context, g media.Group) (VerifyResult, error) {
	start := time.Now()
	if err := idx.LoadErrors(ctx); err != nil {
		logging.Warn("Starting with an empty error record: %v", err)
	}

	outcomes := make([]verifyOutcome, len(g))
	hash := func(i int) {
		sum, n, err := idx.fileMD5(g[i].Path)
		outcomes[i] = verifyOutcome{sum: sum, n: n, err: err}
	}

	for i := range g {
		if g[i].Size >= LargeFileSize {
			if err := ctx.Err(); err != nil {
				return VerifyResult{}, err
			}
			hash(i)
		}
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(workers.ForMixed(idx.params.IndexThreads))
	for i := range g {
		i := i
		if g[i].Size >= LargeFileSize {
			continue
		}
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			hash(i)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return VerifyResult{}, err
	}

	var res VerifyResult
	for i, o := range outcomes {
		path := g[i].Path
		res.BytesRead += o.n
		switch {
		case o.err != nil:
			logging.Warn("verify: %v", o.err)
			res.Unreadable = append(res.Unreadable, path)
			idx.errs.Add(path, media.TagIOError)
		case o.sum != g[i].MD5:
			logging.Error("file hash changed: %s current: %s stored: %s", path, o.sum, g[i].MD5)
			res.Changed = append(res.Changed, HashMismatch{Path: path, Stored: g[i].MD5, Current: o.sum})
			idx.errs.Add(path, media.TagHashChanged)
		default:
			res.OK++
			idx.errs.RemoveTag(path, media.TagHashChanged)
		}
	}
	res.Duration = time.Since(start)

	if !idx.params.DryRun {
		if err := idx.saveErrors(ctx); err != nil {
			logging.Warn("Failed to save error record: %v", err)
		}
	}
	logging.Info("Verified %d files: %d ok, %d changed, %d unreadable in %v",
		len(g), res.OK, len(res.Changed), len(res.Unreadable), res.Duration)
	return res, nil
}

func (idx *Indexer) fileMD5(path string) (string, int64, error) {
	f, err := filesystem.OpenWithRetry(path, idx.retry)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := md5.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", n, fmt.Errorf("read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// SimilarTo searches the whole index for images like the file at path. An
// indexed file is looked up; anything else goes through the extractor
// first. The returned group starts with the needle, followed by the
// matches best first.
func (idx *Indexer) SimilarTo(ctx context.Context, path string, p search.Params) (media.Group, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := filesystem.StatWithRetry(abs, idx.retry)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	needle, err := idx.db.MediaWithPath(ctx, abs)
	if errors.Is(err, database.ErrNotFound) {
		res, perr := idx.extractor.Process(ctx, abs, info)
		if perr != nil {
			return nil, perr
		}
		needle, err = res.Item, nil
	}
	if err != nil {
		return nil, err
	}
	if needle.Type != mediatypes.TypeImage {
		return nil, fmt.Errorf("%s: only images can be searched", path)
	}

	engine, err := idx.Engine(ctx)
	if err != nil {
		return nil, err
	}
	p.InSet, p.Subset, p.FilterSelf = false, nil, true
	p.QueryTypes |= mediatypes.MaskImage
	matches, err := engine.Query(ctx, needle, p)
	if err != nil {
		return nil, err
	}
	return append(media.Group{needle}, matches...), nil
}
