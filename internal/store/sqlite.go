package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/quotesync/internal/model"
)

// SQLitePersister implements Persister using SQLite.
type SQLitePersister struct {
	db   *sql.DB
	path string
}

// NewSQLitePersister opens or creates a SQLite database at the given path.
func NewSQLitePersister(dbPath string) (*SQLitePersister, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	p := &SQLitePersister{db: db, path: dbPath}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *SQLitePersister) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quotes (
		local_id       TEXT PRIMARY KEY,
		remote_id      TEXT UNIQUE,
		text           TEXT NOT NULL,
		category       TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		origin         TEXT NOT NULL DEFAULT 'local',
		last_synced_at TEXT,
		position       INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_quotes_position ON quotes(position);
	CREATE INDEX IF NOT EXISTS idx_quotes_category ON quotes(category);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := p.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (p *SQLitePersister) Path() string {
	return p.path
}

// LoadAll returns the saved quotes ordered by position. Rows whose
// timestamps cannot be parsed come back with zero times for Normalize to
// repair.
func (p *SQLitePersister) LoadAll(ctx context.Context) ([]model.Quote, error) {
	var savedAt string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'saved_at'`).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT local_id, remote_id, text, category, updated_at, origin, last_synced_at
		 FROM quotes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	var quotes []model.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// SaveAll replaces the table contents in one transaction.
func (p *SQLitePersister) SaveAll(ctx context.Context, quotes []model.Quote) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM quotes`); err != nil {
		return fmt.Errorf("clear quotes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO quotes (local_id, remote_id, text, category, updated_at, origin, last_synced_at, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, q := range quotes {
		var remoteID, lastSynced *string
		if q.RemoteID != "" {
			remoteID = &q.RemoteID
		}
		if q.LastSyncedAt != nil {
			ts := q.LastSyncedAt.UTC().Format(time.RFC3339Nano)
			lastSynced = &ts
		}
		_, err := stmt.ExecContext(ctx,
			q.LocalID, remoteID, q.Text, q.Category,
			q.UpdatedAt.UTC().Format(time.RFC3339Nano), string(q.Origin), lastSynced, i)
		if err != nil {
			return fmt.Errorf("insert quote %s: %w", q.LocalID, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('saved_at', ?)`, now); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	return tx.Commit()
}

// GetSetting reads key from the meta table.
func (p *SQLitePersister) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, "setting:"+key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return v, nil
}

// SetSetting writes key to the meta table.
func (p *SQLitePersister) SetSetting(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, "setting:"+key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanQuote(row scanner) (model.Quote, error) {
	var q model.Quote
	var remoteID, lastSynced sql.NullString
	var updatedAt, origin string

	err := row.Scan(&q.LocalID, &remoteID, &q.Text, &q.Category, &updatedAt, &origin, &lastSynced)
	if err != nil {
		return q, err
	}

	q.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	q.Origin = model.Origin(origin)
	if remoteID.Valid {
		q.RemoteID = remoteID.String
	}
	if lastSynced.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastSynced.String); err == nil {
			q.LastSyncedAt = &t
		}
	}
	return q, nil
}
