package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
)

// SelectionMarker selects the current selection.
const SelectionMarker = "@"

// Select resolves a selector into items:
//
//	@          the current selection
//	:regexp    items whose path relative to the root matches
//	id:N       the item with database id N
//	type:T     every item of a media type (image, video, audio or 1-3)
//	sql:WHERE  items matching a WHERE clause over the media table
//	dir        every item under a directory
//	file       that single item
//	pattern    an SQL LIKE pattern over relative paths
//
// Directory and file selectors are resolved against the working directory.
func (idx *Indexer) Select(ctx context.Context, selector string, current media.Group) (media.Group, error) {
	switch {
	case selector == "":
		return nil, errors.New("empty selector")
	case selector == SelectionMarker:
		return current.Clone(), nil
	case strings.HasPrefix(selector, ":"):
		return idx.db.MediaWithPathRegexp(ctx, selector[1:])
	case strings.HasPrefix(selector, "id:"):
		return idx.selectID(ctx, strings.TrimPrefix(selector, "id:"))
	case strings.HasPrefix(selector, "type:"):
		t, err := mediatypes.ParseType(strings.TrimPrefix(selector, "type:"))
		if err != nil {
			return nil, err
		}
		return idx.db.MediaWithType(ctx, t)
	case strings.HasPrefix(selector, "sql:"):
		return idx.db.MediaWithSQL(ctx, strings.TrimPrefix(selector, "sql:"))
	}

	abs, err := filepath.Abs(selector)
	if err == nil {
		if info, statErr := os.Stat(abs); statErr == nil {
			if info.IsDir() {
				return idx.db.MediaInDir(ctx, abs)
			}
			it, err := idx.db.MediaWithPath(ctx, abs)
			if errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("%s is not indexed", selector)
			}
			if err != nil {
				return nil, err
			}
			return media.Group{it}, nil
		}
	}

	return idx.db.MediaWithPathLike(ctx, filepath.ToSlash(selector))
}

func (idx *Indexer) selectID(ctx context.Context, arg string) (media.Group, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("id %q is not an integer", arg)
	}
	it, err := idx.db.MediaWithID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("no item with id %d", id)
	}
	if err != nil {
		return nil, err
	}
	return media.Group{it}, nil
}
