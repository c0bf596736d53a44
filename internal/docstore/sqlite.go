package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLite stores documents as JSON rows in the documents table created by
// the database migrations. Timestamps are stored as Unix milliseconds so
// range filters compare numerically.
type SQLite struct {
	db *sql.DB
}

// NewSQLite returns a Store over an open, migrated database.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	args := []any{collection}
	for _, f := range filters {
		fmt.Fprintf(&sb, ` AND json_extract(data, '$.%s') %s ?`, f.Field, sqlOp(f.Op))
		args = append(args, sqlValue(f.Value))
	}
	sb.WriteString(` ORDER BY seq`)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", collection, err)
		}
		fields, err := decodeFields(data)
		if err != nil {
			return nil, fmt.Errorf("docstore: decode %s/%s: %w", collection, id, err)
		}
		out = append(out, Document{Ref: Ref{Collection: collection, ID: id}, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	return out, nil
}

func (s *SQLite) Get(ctx context.Context, ref Ref) (*Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, ref.Collection, ref.ID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s: %w", ref, err)
	}
	fields, err := decodeFields(data)
	if err != nil {
		return nil, fmt.Errorf("docstore: decode %s: %w", ref, err)
	}
	return &Document{Ref: ref, Fields: fields}, nil
}

func (s *SQLite) BatchUpdate(ctx context.Context, updates []Update) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		var data string
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM documents WHERE collection = ? AND id = ?`, u.Ref.Collection, u.Ref.ID).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, u.Ref)
		}
		if err != nil {
			return fmt.Errorf("docstore: read %s: %w", u.Ref, err)
		}

		fields, err := decodeFields(data)
		if err != nil {
			return fmt.Errorf("docstore: decode %s: %w", u.Ref, err)
		}
		for k, v := range u.Fields {
			fields[k] = v
		}
		encoded, err := encodeFields(fields)
		if err != nil {
			return fmt.Errorf("docstore: encode %s: %w", u.Ref, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET data = ? WHERE collection = ? AND id = ?`, encoded, u.Ref.Collection, u.Ref.ID); err != nil {
			return fmt.Errorf("docstore: update %s: %w", u.Ref, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit batch: %w", err)
	}
	return nil
}

func (s *SQLite) Create(ctx context.Context, collection string, fields Fields) (Ref, error) {
	encoded, err := encodeFields(fields)
	if err != nil {
		return Ref{}, fmt.Errorf("docstore: encode %s document: %w", collection, err)
	}

	ref := Ref{Collection: collection, ID: uuid.NewString()}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, seq)
		VALUES (?, ?, ?, COALESCE((SELECT MAX(seq) FROM documents WHERE collection = ?), 0) + 1)`,
		ref.Collection, ref.ID, encoded, ref.Collection)
	if err != nil {
		return Ref{}, fmt.Errorf("docstore: create %s: %w", ref, err)
	}
	return ref, nil
}

func sqlOp(op Op) string {
	if op == Equal {
		return "="
	}
	return string(op)
}

// sqlValue converts a filter operand to the representation json_extract
// yields for the stored field.
func sqlValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli()
	case bool:
		if t {
			return 1
		}
		return 0
	}
	return v
}

func encodeFields(f Fields) (string, error) {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if t, ok := v.(time.Time); ok {
			v = t.UnixMilli()
		}
		out[k] = v
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeFields(data string) (Fields, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	fields := Fields{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
