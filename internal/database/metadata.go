package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	keySchemaVersion = "schema_version"
	keyLastUpdate    = "last_update"

	schemaVersion = "1"
)

// GetMetadata retrieves a metadata value by key, or ErrNotFound.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// LastUpdate returns when the index was last updated, or the zero time.
func (d *Database) LastUpdate(ctx context.Context) (time.Time, error) {
	value, err := d.GetMetadata(ctx, keyLastUpdate)
	if errors.Is(err, ErrNotFound) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastUpdate records the time of an index update.
func (d *Database) SetLastUpdate(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		return d.SetMetadata(ctx, keyLastUpdate, "")
	}
	return d.SetMetadata(ctx, keyLastUpdate, t.UTC().Format(time.RFC3339))
}
