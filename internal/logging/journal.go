package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS degradation_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source        TEXT NOT NULL,
	step          INTEGER NOT NULL,
	scene_ts      REAL NOT NULL,
	sections_json TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
`
// #endregion schema

// #region journal
// Journal persists degradation entries to SQLite.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens or creates a journal database at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
// #endregion journal

// #region log-degradation
// LogDegradation writes one entry.
func (j *Journal) LogDegradation(entry DegradationEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	sections, err := json.Marshal(entry.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	_, err = j.db.Exec(
		`INSERT INTO degradation_log (source, step, scene_ts, sections_json, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Source,
		entry.Step,
		entry.Timestamp,
		string(sections),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log degradation: %w", err)
	}
	return nil
}
// #endregion log-degradation

// #region list
// List returns entries for source in insertion order; an empty source
// returns every entry.
func (j *Journal) List(source string) ([]DegradationEntry, error) {
	rows, err := j.db.Query(
		`SELECT source, step, scene_ts, sections_json, COALESCE(reason, ''), created_at
		 FROM degradation_log WHERE ? = '' OR source = ? ORDER BY id`,
		source, source,
	)
	if err != nil {
		return nil, fmt.Errorf("query degradations: %w", err)
	}
	defer rows.Close()

	var out []DegradationEntry
	for rows.Next() {
		var e DegradationEntry
		var sections, created string
		if err := rows.Scan(&e.Source, &e.Step, &e.Timestamp, &sections, &e.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan degradation: %w", err)
		}
		if err := json.Unmarshal([]byte(sections), &e.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
