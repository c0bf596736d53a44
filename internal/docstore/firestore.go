package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is a Store backed by Cloud Firestore. Batches run in a
// transaction.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore wraps an existing Firestore client.
func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (s *Firestore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, string(f.Op), f.Value)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
		}
		out = append(out, Document{
			Ref:    Ref{Collection: collection, ID: snap.Ref.ID},
			Fields: Fields(snap.Data()),
		})
	}
	return out, nil
}

func (s *Firestore) Get(ctx context.Context, ref Ref) (*Document, error) {
	snap, err := s.client.Collection(ref.Collection).Doc(ref.ID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s: %w", ref, err)
	}
	return &Document{Ref: ref, Fields: Fields(snap.Data())}, nil
}

func (s *Firestore) BatchUpdate(ctx context.Context, updates []Update) error {
	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		for _, u := range updates {
			fsUpdates := make([]firestore.Update, 0, len(u.Fields))
			for k, v := range u.Fields {
				fsUpdates = append(fsUpdates, firestore.Update{Path: k, Value: v})
			}
			doc := s.client.Collection(u.Ref.Collection).Doc(u.Ref.ID)
			if err := tx.Update(doc, fsUpdates); err != nil {
				return fmt.Errorf("docstore: update %s: %w", u.Ref, err)
			}
		}
		return nil
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err != nil {
		return fmt.Errorf("docstore: batch update: %w", err)
	}
	return nil
}

func (s *Firestore) Create(ctx context.Context, collection string, fields Fields) (Ref, error) {
	doc := s.client.Collection(collection).NewDoc()
	if _, err := doc.Create(ctx, map[string]any(fields)); err != nil {
		return Ref{}, fmt.Errorf("docstore: create %s document: %w", collection, err)
	}
	return Ref{Collection: collection, ID: doc.ID}, nil
}
