package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and the "memory" backend.
// Documents are returned in insertion order.
type Memory struct {
	mu    sync.Mutex
	docs  map[string]map[string]Fields
	order map[string][]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]map[string]Fields),
		order: make(map[string][]string),
	}
}

// Put stores a document under a caller-chosen ID, replacing any existing
// one. Profiles are keyed by their auth user ID, so they are seeded this way.
func (m *Memory) Put(collection, id string, fields Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, fields)
}

func (m *Memory) put(collection, id string, fields Fields) {
	coll, ok := m.docs[collection]
	if !ok {
		coll = make(map[string]Fields)
		m.docs[collection] = coll
	}
	if _, exists := coll[id]; !exists {
		m.order[collection] = append(m.order[collection], id)
	}
	coll[id] = copyFields(fields)
}

func (m *Memory) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Document
	for _, id := range m.order[collection] {
		fields := m.docs[collection][id]
		if matchesAll(fields, filters) {
			out = append(out, Document{Ref: Ref{Collection: collection, ID: id}, Fields: copyFields(fields)})
		}
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, ref Ref) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fields, ok := m.docs[ref.Collection][ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return &Document{Ref: ref, Fields: copyFields(fields)}, nil
}

func (m *Memory) BatchUpdate(ctx context.Context, updates []Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range updates {
		if _, ok := m.docs[u.Ref.Collection][u.Ref.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, u.Ref)
		}
	}
	for _, u := range updates {
		doc := m.docs[u.Ref.Collection][u.Ref.ID]
		for k, v := range u.Fields {
			doc[k] = v
		}
	}
	return nil
}

func (m *Memory) Create(ctx context.Context, collection string, fields Fields) (Ref, error) {
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.put(collection, id, fields)
	return Ref{Collection: collection, ID: id}, nil
}

func copyFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func matchesAll(fields Fields, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		c, comparable := compare(v, f.Value)
		if !comparable {
			return false
		}
		switch f.Op {
		case Equal:
			if c != 0 {
				return false
			}
		case GreaterEqual:
			if c < 0 {
				return false
			}
		case LessEqual:
			if c > 0 {
				return false
			}
		}
	}
	return true
}

// compare orders a against b when both are of the same kind.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok || av != bv {
			return 1, ok
		}
		return 0, true
	}

	af, aok := number(a)
	bf, bok := number(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
