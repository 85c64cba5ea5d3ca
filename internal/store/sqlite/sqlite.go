// Package sqlite is the local target store: CRUD for targets plus a commit
// log and key/value cursors, on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"targetscope/internal/model"
)

var ErrNotFound = errors.New("target not found")

// DB wraps a SQLite database holding targets and commit history.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: an in-memory database is private to its connection.
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d, now: func() time.Time { return time.Now().UTC() }}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS targets (
	  seq INTEGER PRIMARY KEY AUTOINCREMENT,
	  id TEXT NOT NULL UNIQUE,
	  type TEXT NOT NULL,
	  query TEXT NOT NULL,
	  priority TEXT NOT NULL,
	  enabled INTEGER NOT NULL,
	  min_likes INTEGER,
	  min_reposts INTEGER,
	  time_range TEXT,
	  mode TEXT,
	  created_at INTEGER NOT NULL,
	  updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS commits (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  committed INTEGER NOT NULL,
	  total_posts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_commits_ts ON commits(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

const targetColumns = `id, type, query, priority, enabled, min_likes, min_reposts, time_range, mode, created_at, updated_at`

type scanner interface{ Scan(dest ...any) error }

func scanTarget(s scanner) (model.Target, error) {
	var (
		id, typ, query, prio string
		enabled              bool
		minLikes, minReposts sql.NullInt64
		timeRange, mode      sql.NullString
		created, updated     int64
	)
	if err := s.Scan(&id, &typ, &query, &prio, &enabled, &minLikes, &minReposts, &timeRange, &mode, &created, &updated); err != nil {
		return model.Target{}, err
	}
	var filters *model.KeywordFilters
	if timeRange.Valid {
		filters = &model.KeywordFilters{
			MinLikes:   int(minLikes.Int64),
			MinReposts: int(minReposts.Int64),
			TimeRange:  model.TimeRange(timeRange.String),
		}
	}
	t, err := model.Assemble(id, model.TargetType(typ), query, model.Priority(prio), enabled, filters, model.Mode(mode.String))
	if err != nil {
		return model.Target{}, fmt.Errorf("stored target %s: %w", id, err)
	}
	t.CreatedAt = time.Unix(created, 0).UTC()
	t.UpdatedAt = time.Unix(updated, 0).UTC()
	return t, nil
}

// specColumns flattens the spec; the unused side is NULL.
func specColumns(t model.Target) (minLikes, minReposts, timeRange, mode any) {
	switch s := t.Spec.(type) {
	case model.KeywordSpec:
		return s.Filters.MinLikes, s.Filters.MinReposts, string(s.Filters.TimeRange), nil
	case model.AccountSpec:
		return nil, nil, nil, string(s.Mode)
	}
	return nil, nil, nil, nil
}

// CreateTarget validates and stores t, assigning an id when empty.
func (d *DB) CreateTarget(ctx context.Context, t model.Target) (model.Target, error) {
	if err := model.Validate(t); err != nil {
		return t, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := d.now().Truncate(time.Second)
	t.CreatedAt, t.UpdatedAt = now, now
	ml, mr, tr, mode := specColumns(t)
	_, err := d.sql.ExecContext(ctx, `INSERT INTO targets(`+targetColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, string(t.Type()), t.Query, string(t.Priority), t.Enabled, ml, mr, tr, mode, now.Unix(), now.Unix())
	if err != nil {
		return t, err
	}
	return t, nil
}

func (d *DB) GetTarget(ctx context.Context, id string) (model.Target, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id=?`, id)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

// ListTargets returns all targets, enabled and disabled, in creation order.
func (d *DB) ListTargets(ctx context.Context) ([]model.Target, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTarget applies e to the stored target. ID, type and query are kept.
func (d *DB) UpdateTarget(ctx context.Context, id string, e model.Edit) (model.Target, error) {
	cur, err := d.GetTarget(ctx, id)
	if err != nil {
		return cur, err
	}
	next, err := model.ApplyEdit(cur, e)
	if err != nil {
		return cur, err
	}
	return next, d.save(ctx, next)
}

// ToggleTarget flips the enabled flag.
func (d *DB) ToggleTarget(ctx context.Context, id string) (model.Target, error) {
	cur, err := d.GetTarget(ctx, id)
	if err != nil {
		return cur, err
	}
	cur.Enabled = !cur.Enabled
	return cur, d.save(ctx, cur)
}

func (d *DB) save(ctx context.Context, t model.Target) error {
	t.UpdatedAt = d.now().Truncate(time.Second)
	ml, mr, tr, mode := specColumns(t)
	res, err := d.sql.ExecContext(ctx, `UPDATE targets SET priority=?, enabled=?, min_likes=?, min_reposts=?, time_range=?, mode=?, updated_at=? WHERE id=?`,
		string(t.Priority), t.Enabled, ml, mr, tr, mode, t.UpdatedAt.Unix(), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	return nil
}

// DeleteTarget removes a target. Deleting a missing id is not an error, so
// retries are safe.
func (d *DB) DeleteTarget(ctx context.Context, id string) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM targets WHERE id=?`, id)
	return err
}

// PutCommit records a materialized scheduling cycle.
func (d *DB) PutCommit(ctx context.Context, ts time.Time, r model.CommitResult) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO commits(ts, committed, total_posts) VALUES(?,?,?)`, ts.Unix(), r.Committed, r.TotalPosts)
	return err
}

// SumCommittedWithin returns committed posts in [start, end).
func (d *DB) SumCommittedWithin(ctx context.Context, start, end time.Time) (int, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_posts), 0) FROM commits WHERE ts>=? AND ts<?`, start.Unix(), end.Unix())
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SaveCursor stores a string value under key.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns the value under key, or "" if unset.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}
