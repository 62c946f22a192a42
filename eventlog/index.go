package eventlog

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Index is a queryable sqlite-backed replay index over the flat log:
// "replay from tick N" without re-scanning the whole file. The flat log
// stays authoritative (P2); Index is rebuildable from it at any time via
// Rebuild, so losing or corrupting the index file is never a
// determinism problem, only a performance one.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if needed) the sqlite index at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open index %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	tick    INTEGER NOT NULL,
	seq     INTEGER NOT NULL,
	kind    INTEGER NOT NULL,
	payload BLOB,
	PRIMARY KEY (tick, seq)
);
CREATE INDEX IF NOT EXISTS entries_by_tick ON entries(tick);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventlog: create schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying sqlite connection.
func (x *Index) Close() error { return x.db.Close() }

// Insert indexes one entry already appended to the flat log.
func (x *Index) Insert(e Entry) error {
	_, err := x.db.Exec(
		`INSERT OR REPLACE INTO entries (tick, seq, kind, payload) VALUES (?, ?, ?, ?)`,
		e.Tick, e.Seq, uint16(e.Kind), e.Payload,
	)
	if err != nil {
		return fmt.Errorf("eventlog: index insert tick=%d seq=%d: %w", e.Tick, e.Seq, err)
	}
	return nil
}

// FromTick returns every indexed entry at or after fromTick, ordered by
// (tick, seq).
func (x *Index) FromTick(fromTick uint64) ([]Entry, error) {
	rows, err := x.db.Query(
		`SELECT tick, seq, kind, payload FROM entries WHERE tick >= ? ORDER BY tick, seq`,
		fromTick,
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: index query from tick %d: %w", fromTick, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind uint16
		if err := rows.Scan(&e.Tick, &e.Seq, &kind, &e.Payload); err != nil {
			return nil, fmt.Errorf("eventlog: index scan: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Rebuild truncates the index and repopulates it from entries, the flat
// log's authoritative decode.
func (x *Index) Rebuild(entries []Entry) error {
	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("eventlog: rebuild begin: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		tx.Rollback()
		return fmt.Errorf("eventlog: rebuild clear: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO entries (tick, seq, kind, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("eventlog: rebuild prepare: %w", err)
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.Exec(e.Tick, e.Seq, uint16(e.Kind), e.Payload); err != nil {
			tx.Rollback()
			return fmt.Errorf("eventlog: rebuild insert tick=%d seq=%d: %w", e.Tick, e.Seq, err)
		}
	}
	return tx.Commit()
}
