package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
	"github.com/rjwilson47/AutostopAlarms/internal/paths"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using a SQLite database. The seq column
// records insertion order; Upsert keeps the original seq so edits don't
// reshuffle the engine's tie-break ordering.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) a SQLite database at path and creates
// the schema if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DirPerm); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Set PRAGMAs before any DDL.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	ddl := `
CREATE TABLE IF NOT EXISTS alarms (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT    NOT NULL UNIQUE,
    hour         INTEGER NOT NULL,
    minute       INTEGER NOT NULL,
    enabled      INTEGER NOT NULL DEFAULT 1,
    label        TEXT    NOT NULL DEFAULT '',
    repeat_csv   TEXT    NOT NULL DEFAULT '',
    stop_mode    TEXT    NOT NULL DEFAULT 'manual',
    stop_seconds INTEGER NOT NULL DEFAULT 0,
    snooze       INTEGER NOT NULL DEFAULT 0,
    sound        TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_alarms_enabled ON alarms(enabled);
`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) List() ([]alarm.Record, error) {
	rows, err := s.db.Query(
		`SELECT id, hour, minute, enabled, label, repeat_csv, stop_mode, stop_seconds, snooze, sound
		 FROM alarms ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alarm.Record
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(id string) (alarm.Record, error) {
	row := s.db.QueryRow(
		`SELECT id, hour, minute, enabled, label, repeat_csv, stop_mode, stop_seconds, snooze, sound
		 FROM alarms WHERE id = ?`, id)
	r, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return alarm.Record{}, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) Upsert(r alarm.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	mode := "manual"
	seconds := 0
	if after, auto := r.Stop.Automatic(); auto {
		mode = "auto"
		seconds = int(after / time.Second)
	}
	enabled := 0
	if r.Enabled {
		enabled = 1
	}
	snooze := 0
	if r.SnoozeEnabled {
		snooze = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO alarms (id, hour, minute, enabled, label, repeat_csv, stop_mode, stop_seconds, snooze, sound)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     hour=excluded.hour, minute=excluded.minute, enabled=excluded.enabled,
		     label=excluded.label, repeat_csv=excluded.repeat_csv,
		     stop_mode=excluded.stop_mode, stop_seconds=excluded.stop_seconds,
		     snooze=excluded.snooze, sound=excluded.sound`,
		r.ID, r.Hour, r.Minute, enabled, r.Label, encodeRepeat(r.Repeat),
		mode, seconds, snooze, r.Sound,
	)
	return err
}

func (s *SQLiteStore) Remove(id string) error {
	res, err := s.db.Exec(`DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetEnabled(id string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	res, err := s.db.Exec(`UPDATE alarms SET enabled = ? WHERE id = ?`, v, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanRecord reads one alarms row through the given scan function.
func scanRecord(scan func(...any) error) (alarm.Record, error) {
	var (
		r       alarm.Record
		enabled int
		repeat  string
		mode    string
		seconds int
		snooze  int
	)
	if err := scan(&r.ID, &r.Hour, &r.Minute, &enabled, &r.Label, &repeat,
		&mode, &seconds, &snooze, &r.Sound); err != nil {
		return alarm.Record{}, err
	}
	r.Enabled = enabled != 0
	r.SnoozeEnabled = snooze != 0
	var err error
	r.Repeat, err = decodeRepeat(repeat)
	if err != nil {
		return alarm.Record{}, err
	}
	if mode == "auto" {
		r.Stop = alarm.StopAfter(time.Duration(seconds) * time.Second)
	} else {
		r.Stop = alarm.StopManual()
	}
	return r, nil
}

// encodeRepeat serializes weekday codes as CSV ("2,4,6"); empty for one-shot.
func encodeRepeat(days []alarm.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func decodeRepeat(csv string) ([]alarm.Weekday, error) {
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	out := make([]alarm.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("store: bad repeat day %q: %w", p, err)
		}
		out = append(out, alarm.Weekday(n))
	}
	return out, nil
}
