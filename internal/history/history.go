// Package history persists which wallpaper items were applied and when, so
// rotation, retention and duplicate avoidance survive daemon restarts.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wallpick/wallpick/pkg/logger"
)

// Entry records one applied item.
type Entry struct {
	ItemID    uint64
	AppliedAt time.Time
	Dirs      []string // every mirror dir the item was materialized into
}

// Event is one row of the audit trail (fetched, applied, removed, error).
type Event struct {
	Kind   string
	ItemID uint64
	Detail string
	At     time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS applied (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id    INTEGER NOT NULL,
	applied_at INTEGER NOT NULL,
	dirs       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	kind    TEXT NOT NULL,
	item_id INTEGER NOT NULL,
	detail  TEXT NOT NULL,
	at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applied_item ON applied(item_id);
`

// Store wraps the sqlite file holding applied history and the event trail.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open opens or creates the history database. A file sqlite refuses to
// open is moved aside and a fresh database takes its place, so a corrupt
// history never blocks the daemon.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	db, err := open(path)
	if err != nil {
		backup := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		log.Warning("history: %s unreadable (%s), moving aside to %s", path, err, backup)
		if renameErr := os.Rename(path, backup); renameErr != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		db, err = open(path)
		if err != nil {
			return nil, fmt.Errorf("open history after recovery: %w", err)
		}
	}
	return &Store{db: db, log: log}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// A single writer keeps sqlite happy without busy-loop churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (s *Store) Close() error { return s.db.Close() }

// List returns every applied entry, oldest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT item_id, applied_at, dirs FROM applied ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at int64
		var dirs string
		if err := rows.Scan(&e.ItemID, &at, &dirs); err != nil {
			return nil, err
		}
		e.AppliedAt = time.Unix(at, 0).UTC()
		if err := json.Unmarshal([]byte(dirs), &e.Dirs); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Last returns the most recently applied entry.
func (s *Store) Last() (Entry, bool, error) {
	var e Entry
	var at int64
	var dirs string
	err := s.db.QueryRow(
		"SELECT item_id, applied_at, dirs FROM applied ORDER BY id DESC LIMIT 1",
	).Scan(&e.ItemID, &at, &dirs)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.AppliedAt = time.Unix(at, 0).UTC()
	if err := json.Unmarshal([]byte(dirs), &e.Dirs); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// AppliedIDs returns the distinct item ids ever applied, oldest first.
func (s *Store) AppliedIDs() ([]uint64, error) {
	rows, err := s.db.Query("SELECT item_id FROM applied GROUP BY item_id ORDER BY MIN(id) ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Commit appends the freshly applied entry and drops the retention
// victims in one transaction, so a crash can't record the apply while
// keeping deleted items in history (or vice versa).
func (s *Store) Commit(e Entry, removeIDs []uint64) error {
	dirs, err := json.Marshal(e.Dirs)
	if err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO applied (item_id, applied_at, dirs) VALUES (?, ?, ?)",
		e.ItemID, e.AppliedAt.Unix(), string(dirs)); err != nil {
		tx.Rollback()
		return err
	}
	if err := removeIn(tx, removeIDs); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func removeIn(tx *sql.Tx, ids []uint64) error {
	for _, id := range ids {
		if _, err := tx.Exec("DELETE FROM applied WHERE item_id = ?", id); err != nil {
			return err
		}
	}
	return nil
}

// LogEvent appends one audit event.
func (s *Store) LogEvent(kind string, itemID uint64, detail string) error {
	_, err := s.db.Exec("INSERT INTO events (kind, item_id, detail, at) VALUES (?, ?, ?, ?)",
		kind, itemID, detail, time.Now().Unix())
	return err
}

// Events returns the most recent events, newest first.
func (s *Store) Events(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT kind, item_id, detail, at FROM events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var at int64
		if err := rows.Scan(&ev.Kind, &ev.ItemID, &ev.Detail, &at); err != nil {
			return nil, err
		}
		ev.At = time.Unix(at, 0).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}
