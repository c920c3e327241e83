package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/media"
	"github.com/fortemezzo/cbird/internal/mediatypes"
	"github.com/fortemezzo/cbird/internal/metrics"
)

const mediaColumns = "id, type, path, md5, size, mod_time, width, height, fingerprint"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (d *Database) scanItem(row scanner) (media.Item, error) {
	var (
		it      media.Item
		rel     string
		modTime int64
		fp      sql.NullString
	)
	if err := row.Scan(&it.ID, &it.Type, &rel, &it.MD5, &it.Size, &modTime, &it.Width, &it.Height, &fp); err != nil {
		return media.Item{}, err
	}
	it.Path = d.absPath(rel)
	it.ModTime = time.Unix(modTime, 0)
	if fp.Valid && fp.String != "" {
		if err := json.Unmarshal([]byte(fp.String), &it.Fingerprint); err != nil {
			return media.Item{}, fmt.Errorf("corrupt fingerprint for %s: %w", rel, err)
		}
	}
	return it, nil
}

// query runs a SELECT of media rows and collects them.
func (d *Database) query(ctx context.Context, op, where string, args ...any) (g media.Group, err error) {
	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	q := "SELECT " + mediaColumns + " FROM media"
	if where != "" {
		q += " WHERE " + where
	}
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		it, err := d.scanItem(rows)
		if err != nil {
			return nil, err
		}
		g = append(g, it)
	}
	return g, rows.Err()
}

func (d *Database) queryOne(ctx context.Context, op, where string, args ...any) (it media.Item, err error) {
	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT "+mediaColumns+" FROM media WHERE "+where, args...)
	it, err = d.scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return media.Item{}, ErrNotFound
	}
	return it, err
}

// Add inserts or replaces items by path. IDs are written back into items.
// The whole batch is one transaction.
func (d *Database) Add(ctx context.Context, items []media.Item) (err error) {
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { recordQuery("add", start, err) }()

	tx, end, err := d.beginBatch(ctx)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO media (type, path, md5, size, mod_time, width, height, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			type = excluded.type,
			md5 = excluded.md5,
			size = excluded.size,
			mod_time = excluded.mod_time,
			width = excluded.width,
			height = excluded.height,
			fingerprint = excluded.fingerprint
		RETURNING id
	`)
	if err != nil {
		return end(err)
	}
	defer stmt.Close()

	for i := range items {
		it := &items[i]
		rel, err := d.relPath(it.Path)
		if err != nil {
			return end(err)
		}
		fp, err := json.Marshal(it.Fingerprint)
		if err != nil {
			return end(fmt.Errorf("encode fingerprint for %s: %w", rel, err))
		}
		if err := stmt.QueryRowContext(ctx, int(it.Type), rel, it.MD5, it.Size, it.ModTime.Unix(),
			it.Width, it.Height, string(fp)).Scan(&it.ID); err != nil {
			return end(fmt.Errorf("add %s: %w", rel, err))
		}
	}

	if err := end(nil); err != nil {
		return err
	}
	metrics.DBRowsAffected.WithLabelValues("add").Observe(float64(len(items)))
	logging.Debug("Added %d items to the index", len(items))
	return nil
}

// Remove deletes the items at the given absolute paths and returns how many
// rows went away.
func (d *Database) Remove(ctx context.Context, paths []string) (n int64, err error) {
	if len(paths) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() { recordQuery("remove", start, err) }()

	tx, end, err := d.beginBatch(ctx)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM media WHERE path = ?")
	if err != nil {
		return 0, end(err)
	}
	defer stmt.Close()

	for _, p := range paths {
		rel, err := d.relPath(p)
		if err != nil {
			return 0, end(err)
		}
		res, err := stmt.ExecContext(ctx, rel)
		if err != nil {
			return 0, end(fmt.Errorf("remove %s: %w", rel, err))
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return 0, end(fmt.Errorf("remove %s: %w", rel, err))
		}
		n += rows
	}
	if err := end(nil); err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.DBRowsAffected.WithLabelValues("remove").Observe(float64(n))
	}
	return n, nil
}

// AllPaths returns the absolute path of every indexed item.
func (d *Database) AllPaths(ctx context.Context) (paths []string, err error) {
	start := time.Now()
	defer func() { recordQuery("all_paths", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, "SELECT path FROM media")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rel string
		if err := rows.Scan(&rel); err != nil {
			return nil, err
		}
		paths = append(paths, d.absPath(rel))
	}
	return paths, rows.Err()
}

// All returns every item ordered by path.
func (d *Database) All(ctx context.Context) (media.Group, error) {
	return d.query(ctx, "all", "1 ORDER BY path")
}

// MediaWithID returns the item with id, or ErrNotFound.
func (d *Database) MediaWithID(ctx context.Context, id int64) (media.Item, error) {
	return d.queryOne(ctx, "media_with_id", "id = ?", id)
}

// MediaWithPath returns the item at an absolute path, or ErrNotFound.
func (d *Database) MediaWithPath(ctx context.Context, path string) (media.Item, error) {
	rel, err := d.relPath(path)
	if err != nil {
		return media.Item{}, ErrNotFound
	}
	return d.queryOne(ctx, "media_with_path", "path = ?", rel)
}

// MediaInDir returns every item under the absolute directory dir, ordered
// by path.
func (d *Database) MediaInDir(ctx context.Context, dir string) (media.Group, error) {
	if filepath.Clean(dir) == d.root {
		return d.All(ctx)
	}
	rel, err := d.relPath(dir)
	if err != nil {
		return nil, err
	}
	// '0' sorts right after '/', bounding every path below rel/
	return d.query(ctx, "in_dir", "path >= ? AND path < ? ORDER BY path", rel+"/", rel+"0")
}

// MediaWithType returns every item of type t, ordered by path.
func (d *Database) MediaWithType(ctx context.Context, t mediatypes.Type) (media.Group, error) {
	return d.query(ctx, "with_type", "type = ? ORDER BY path", int(t))
}

// MediaWithPathLike returns items whose relative path matches an SQL LIKE
// pattern, ordered by path.
func (d *Database) MediaWithPathLike(ctx context.Context, pattern string) (media.Group, error) {
	return d.query(ctx, "path_like", "path LIKE ? ORDER BY path", pattern)
}

// MediaWithPathRegexp returns items whose relative path matches expr,
// ordered by path.
func (d *Database) MediaWithPathRegexp(ctx context.Context, expr string) (media.Group, error) {
	if _, err := regexp.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid path expression: %w", err)
	}
	return d.query(ctx, "path_regexp", "path REGEXP ? ORDER BY path", expr)
}

// MediaWithSQL returns items matching a WHERE clause over the media table.
func (d *Database) MediaWithSQL(ctx context.Context, where string, args ...any) (media.Group, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return nil, errors.New("empty where clause")
	}
	return d.query(ctx, "sql", where, args...)
}

// Count returns the number of indexed items.
func (d *Database) Count(ctx context.Context) (int, error) {
	return d.count(ctx, "count", "SELECT COUNT(*) FROM media")
}

// CountType returns the number of indexed items of type t.
func (d *Database) CountType(ctx context.Context, t mediatypes.Type) (int, error) {
	return d.count(ctx, "count_type", "SELECT COUNT(*) FROM media WHERE type = ?", int(t))
}

func (d *Database) count(ctx context.Context, op, q string, args ...any) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery(op, start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// DupsByMD5 groups items of the given types sharing a checksum. Groups are
// ordered by checksum, items within a group by path.
func (d *Database) DupsByMD5(ctx context.Context, types mediatypes.Mask) (media.GroupList, error) {
	var typeList []string
	for _, t := range []mediatypes.Type{mediatypes.TypeImage, mediatypes.TypeVideo, mediatypes.TypeAudio} {
		if types.Has(t) {
			typeList = append(typeList, fmt.Sprint(int(t)))
		}
	}
	if len(typeList) == 0 {
		return nil, nil
	}
	in := strings.Join(typeList, ",")

	g, err := d.query(ctx, "dups_md5", fmt.Sprintf(`type IN (%s) AND md5 != '' AND md5 IN (
		SELECT md5 FROM media WHERE type IN (%s) AND md5 != '' GROUP BY md5 HAVING COUNT(*) > 1
	) ORDER BY md5, path`, in, in))
	if err != nil {
		return nil, err
	}

	var list media.GroupList
	for i, it := range g {
		if i == 0 || g[i-1].MD5 != it.MD5 {
			list = append(list, nil)
		}
		list[len(list)-1] = append(list[len(list)-1], it)
	}
	return list, nil
}

// RefreshStats recounts the items per type for GetStats.
func (d *Database) RefreshStats(ctx context.Context) error {
	var s metrics.Stats
	var err error
	if s.TotalImages, err = d.CountType(ctx, mediatypes.TypeImage); err != nil {
		return err
	}
	if s.TotalVideos, err = d.CountType(ctx, mediatypes.TypeVideo); err != nil {
		return err
	}
	if s.TotalAudio, err = d.CountType(ctx, mediatypes.TypeAudio); err != nil {
		return err
	}
	if s.TotalItems, err = d.Count(ctx); err != nil {
		return err
	}

	d.statsMu.Lock()
	d.stats = s
	d.statsMu.Unlock()
	return nil
}

// GetStats returns the statistics of the last RefreshStats. It implements
// metrics.StatsProvider.
func (d *Database) GetStats() metrics.Stats {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()
	return d.stats
}
