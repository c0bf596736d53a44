// Package docstore defines the schemaless document store the household,
// meal, dish and box packages persist through, with in-memory, SQLite and
// Firestore backends.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Collection names.
const (
	Users    = "users"
	Meals    = "meals"
	Dishes   = "dishes"
	Cookings = "cookings"
)

var (
	// ErrNotFound is returned by Get and BatchUpdate when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrInvalidFilter is returned for unsupported operators or field paths.
	ErrInvalidFilter = errors.New("docstore: invalid filter")
)

// Fields is the content of a document keyed by camelCase field name.
type Fields map[string]any

// Ref addresses a single document.
type Ref struct {
	Collection string
	ID         string
}

func (r Ref) String() string { return r.Collection + "/" + r.ID }

// Document is a stored document together with its address.
type Document struct {
	Ref    Ref
	Fields Fields
}

// Op is a filter comparison operator.
type Op string

const (
	Equal        Op = "=="
	GreaterEqual Op = ">="
	LessEqual    Op = "<="
)

// Filter restricts a query to documents whose field compares to Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Update sets Fields on the referenced document, leaving other fields intact.
type Update struct {
	Ref    Ref
	Fields Fields
}

// Store is the document store contract.
type Store interface {
	// Query returns every document of collection matching all filters.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Get returns the referenced document or ErrNotFound.
	Get(ctx context.Context, ref Ref) (*Document, error)
	// BatchUpdate applies all updates atomically: either every update is
	// applied or none is.
	BatchUpdate(ctx context.Context, updates []Update) error
	// Create stores a new document under a generated ID.
	Create(ctx context.Context, collection string, fields Fields) (Ref, error)
}

var fieldPath = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func validateFilters(filters []Filter) error {
	for _, f := range filters {
		if !fieldPath.MatchString(f.Field) {
			return fmt.Errorf("%w: field %q", ErrInvalidFilter, f.Field)
		}
		switch f.Op {
		case Equal, GreaterEqual, LessEqual:
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidFilter, f.Op)
		}
	}
	return nil
}

// String reads a string field, returning "" when absent or of another type.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int reads a numeric field regardless of how the backend decoded it.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	}
	return 0
}

// Bool reads a boolean field. SQLite documents may carry 0/1.
func Bool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case json.Number:
		return b.String() == "1"
	}
	return Int(v) != 0
}

// Time reads a timestamp field. Timestamps are native in memory and Firestore
// and stored as Unix milliseconds in SQLite.
func Time(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case int64:
		return time.UnixMilli(t)
	case float64:
		return time.UnixMilli(int64(t))
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms)
		}
	}
	return time.Time{}
}

// Strings reads an array-of-strings field.
func Strings(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
