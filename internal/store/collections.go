package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Stamp records the result of a collection write.
type Stamp struct {
	Collection string `json:"collection"`
	Version    int64  `json:"version"`
	Writer     string `json:"writer"`
}

// ReadRaw returns the JSON array stored for a collection.
// Returns (nil, nil) if the collection has never been written.
func (s *Store) ReadRaw(ctx context.Context, name string) ([]byte, error) {
	query, args, err := sq.Select("records").
		From("collections").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("read %s: build query: %w", name, err)
	}

	var records string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&records)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return []byte(records), nil
}

// WriteRaw replaces a collection with the given JSON array and increments
// its version. A nil data slice stores an empty array.
//
// The version read and the replacement happen in one transaction, so two
// writers in different processes never produce the same version. The
// earlier write's records are still lost: the replacement is whole.
func (s *Store) WriteRaw(ctx context.Context, name string, data []byte) (Stamp, error) {
	if data == nil {
		data = []byte("[]")
	}
	if !json.Valid(data) {
		return Stamp{}, fmt.Errorf("write %s: records are not valid JSON", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Stamp{}, fmt.Errorf("write %s: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	query, args, err := sq.Select("version").
		From("collections").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return Stamp{}, fmt.Errorf("write %s: build query: %w", name, err)
	}

	var version int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stamp{}, fmt.Errorf("write %s: read version: %w", name, err)
	}
	version++

	upsert, args, err := sq.Insert("collections").
		Columns("name", "records", "version", "writer").
		Values(name, string(data), version, s.contextID).
		Suffix("ON CONFLICT(name) DO UPDATE SET records = excluded.records, version = excluded.version, writer = excluded.writer").
		ToSql()
	if err != nil {
		return Stamp{}, fmt.Errorf("write %s: build upsert: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, upsert, args...); err != nil {
		return Stamp{}, fmt.Errorf("write %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return Stamp{}, fmt.Errorf("write %s: commit: %w", name, err)
	}

	return Stamp{Collection: name, Version: version, Writer: s.contextID}, nil
}

// Versions returns the current stamp of each named collection, or of every
// written collection when no names are given. Collections never written are
// absent from the result.
func (s *Store) Versions(ctx context.Context, names ...string) (map[string]Stamp, error) {
	q := sq.Select("name", "version", "writer").
		From("collections").
		OrderBy("name ASC")
	if len(names) > 0 {
		q = q.Where(sq.Eq{"name": names})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("versions: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}
	defer rows.Close()

	stamps := make(map[string]Stamp)
	for rows.Next() {
		var st Stamp
		if err := rows.Scan(&st.Collection, &st.Version, &st.Writer); err != nil {
			return nil, fmt.Errorf("versions: scan: %w", err)
		}
		stamps[st.Collection] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}
	return stamps, nil
}
