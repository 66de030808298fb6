package local

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// SQLiteBackend stores the collections as rows of a single kv table.
type SQLiteBackend struct {
	db    *sql.DB
	quota int64
}

func NewSQLiteBackend(path string, quota int64) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}

	b := &SQLiteBackend{db: db, quota: quota}
	if err := b.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init local database: %w", err)
	}

	return b, nil
}

func (b *SQLiteBackend) initTables() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		);
	`)
	return err
}

func (b *SQLiteBackend) Get(key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, mapSQLiteErr(err))
	}
	return value, nil
}

func (b *SQLiteBackend) Set(key string, value []byte) error {
	return b.SetMany(map[string][]byte{key: value})
}

func (b *SQLiteBackend) SetMany(values map[string][]byte) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", mapSQLiteErr(err))
	}
	defer tx.Rollback()

	if b.quota > 0 {
		sizes, err := currentSizes(tx)
		if err != nil {
			return err
		}
		if projectedSize(sizes, values) > b.quota {
			return ErrQuotaExceeded
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("prepare write: %w", mapSQLiteErr(err))
	}
	defer stmt.Close()

	for k, v := range values {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("write %s: %w", k, mapSQLiteErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapSQLiteErr(err))
	}
	return nil
}

func (b *SQLiteBackend) Delete(keys ...string) error {
	for _, k := range keys {
		if _, err := b.db.Exec(`DELETE FROM kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, mapSQLiteErr(err))
		}
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func currentSizes(tx *sql.Tx) (map[string]int, error) {
	rows, err := tx.Query(`SELECT key, length(value) FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("measure usage: %w", mapSQLiteErr(err))
	}
	defer rows.Close()

	sizes := make(map[string]int)
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("measure usage: %w", err)
		}
		sizes[k] = n
	}
	return sizes, rows.Err()
}

// mapSQLiteErr turns a full disk or database into ErrQuotaExceeded.
func mapSQLiteErr(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrFull {
		return ErrQuotaExceeded
	}
	return err
}
