package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/media"
)

// metaScanErrors holds the error record between runs.
const metaScanErrors = "scan_errors"

// LoadErrors merges the error record saved by earlier updates into
// Errors. It is called by Update; commands that only report errors call it
// directly.
func (idx *Indexer) LoadErrors(ctx context.Context) error {
	idx.errsMu.Lock()
	defer idx.errsMu.Unlock()

	if idx.errsLoaded {
		return nil
	}
	value, err := idx.db.GetMetadata(ctx, metaScanErrors)
	if errors.Is(err, database.ErrNotFound) || (err == nil && value == "") {
		idx.errsLoaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("load error record: %w", err)
	}

	var saved map[string][]media.ErrorTag
	if err := json.Unmarshal([]byte(value), &saved); err != nil {
		return fmt.Errorf("decode error record: %w", err)
	}
	idx.errs.Restore(saved)
	idx.errsLoaded = true
	return nil
}

// saveErrors drops entries for files that are gone and stores the rest.
func (idx *Indexer) saveErrors(ctx context.Context) error {
	for path := range idx.errs.Snapshot() {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			idx.errs.Remove(path)
		}
	}
	data, err := json.Marshal(idx.errs.Snapshot())
	if err != nil {
		return err
	}
	return idx.db.SetMetadata(ctx, metaScanErrors, string(data))
}
