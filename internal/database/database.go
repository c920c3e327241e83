package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/metrics"
)

const (
	// IndexDirName is the index directory inside a library.
	IndexDirName = "_index"
	// FileName is the database file inside IndexDirName.
	FileName = "media.db"

	driverName     = "sqlite3_cbird"
	defaultTimeout = 5 * time.Second
)

// ErrNotFound is returned when a lookup matches no item.
var ErrNotFound = errors.New("database: not found")

// ErrOutsideRoot is returned for paths that are not inside the library.
var ErrOutsideRoot = errors.New("database: path outside library")

var regexpCache sync.Map // pattern -> *regexp.Regexp

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", sqlRegexp, true)
		},
	})
}

// sqlRegexp implements "x REGEXP pattern", which sqlite calls as
// regexp(pattern, x).
func sqlRegexp(pattern, s string) (bool, error) {
	if cached, ok := regexpCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(s), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	regexpCache.Store(pattern, re)
	return re.MatchString(s), nil
}

// Database is the index of one library.
type Database struct {
	db     *sql.DB
	root   string
	dbPath string

	mu      sync.RWMutex
	stats   metrics.Stats
	statsMu sync.RWMutex
}

// PathFor returns the database file of the library at root.
func PathFor(root string) string {
	return filepath.Join(root, IndexDirName, FileName)
}

// Open opens or creates the index of the library at root.
func Open(ctx context.Context, root string) (*Database, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", abs)
	}

	dbPath := PathFor(abs)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	logging.Debug("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", dbPath)
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{db: db, root: abs, dbPath: dbPath}
	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	if err := d.RefreshStats(ctx); err != nil {
		logging.Warn("Failed to load index statistics: %v", err)
	}
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type INTEGER NOT NULL,
		path TEXT NOT NULL UNIQUE,
		md5 TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		mod_time INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		fingerprint TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_media_type ON media(type);
	CREATE INDEX IF NOT EXISTS idx_media_md5 ON media(md5);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return d.SetMetadata(ctx, keySchemaVersion, schemaVersion)
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Root returns the absolute library root.
func (d *Database) Root() string { return d.root }

// Path returns the database file.
func (d *Database) Path() string { return d.dbPath }

// relPath converts an absolute path into the stored form. Paths outside the
// library are rejected.
func (d *Database) relPath(abs string) (string, error) {
	rel, err := filepath.Rel(d.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("%s is not in %s: %w", abs, d.root, ErrOutsideRoot)
	}
	return filepath.ToSlash(rel), nil
}

func (d *Database) absPath(rel string) string {
	return filepath.Join(d.root, filepath.FromSlash(rel))
}

// beginBatch starts a write transaction. The returned function ends it,
// committing on a nil error.
func (d *Database) beginBatch(ctx context.Context) (*sql.Tx, func(error) error, error) {
	d.mu.Lock()
	tx, err := d.db.BeginTx(ctx, nil)
	d.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	end := func(err error) error {
		duration := time.Since(start).Seconds()
		if err != nil {
			metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
			}
			return err
		}
		metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
		return tx.Commit()
	}
	return tx, end, nil
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection metrics
func (d *Database) UpdateDBMetrics() {
	metrics.DBConnectionsOpen.Set(float64(d.db.Stats().OpenConnections))
}

// diagnoseDatabasePermissions checks that the index directory and files are
// writable, fixing read-only WAL and SHM files left behind by another user.
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("index directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	if info, err := os.Stat(dbPath); err == nil && info.Mode().Perm()&0o200 == 0 {
		logging.Warn("Database file is read-only! Mode: %v", info.Mode())
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		path := dbPath + suffix
		info, err := os.Stat(path)
		if err != nil || info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			logging.Error("Failed to fix %s permissions: %v", path, chmodErr)
		} else {
			logging.Info("Fixed %s permissions", path)
		}
	}
	return nil
}
