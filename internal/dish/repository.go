package dish

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"myflex/internal/docstore"
)

// ErrInvalidDish is returned when a dish lacks a name.
var ErrInvalidDish = errors.New("dish: invalid dish")

// Repository handles persistence of catalog dishes.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a new Repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Verified returns the dishes eligible for box generation, ordered by name
// then ID so generated boxes are reproducible.
func (r *Repository) Verified(ctx context.Context) ([]Dish, error) {
	return r.list(ctx, true)
}

// Pending returns dishes awaiting moderation.
func (r *Repository) Pending(ctx context.Context) ([]Dish, error) {
	return r.list(ctx, false)
}

func (r *Repository) list(ctx context.Context, verified bool) ([]Dish, error) {
	docs, err := r.store.Query(ctx, docstore.Dishes, docstore.Where("isVerified", docstore.Equal, verified))
	if err != nil {
		return nil, fmt.Errorf("dish: list dishes: %w", err)
	}

	dishes := make([]Dish, 0, len(docs))
	for _, doc := range docs {
		dishes = append(dishes, FromDocument(doc))
	}
	sort.Slice(dishes, func(i, j int) bool {
		if dishes[i].Name != dishes[j].Name {
			return dishes[i].Name < dishes[j].Name
		}
		return dishes[i].ID < dishes[j].ID
	})
	return dishes, nil
}

// Get retrieves a dish by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Dish, error) {
	doc, err := r.store.Get(ctx, docstore.Ref{Collection: docstore.Dishes, ID: id})
	if err != nil {
		return nil, fmt.Errorf("dish: get %s: %w", id, err)
	}
	d := FromDocument(*doc)
	return &d, nil
}

// Create stores a new dish and returns it with its ID.
func (r *Repository) Create(ctx context.Context, d Dish) (Dish, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return Dish{}, fmt.Errorf("%w: name is required", ErrInvalidDish)
	}
	ref, err := r.store.Create(ctx, docstore.Dishes, d.Fields())
	if err != nil {
		return Dish{}, fmt.Errorf("dish: create %q: %w", d.Name, err)
	}
	d.ID = ref.ID
	return d, nil
}

// Verify marks a dish as approved for box generation.
func (r *Repository) Verify(ctx context.Context, id string) error {
	err := r.store.BatchUpdate(ctx, []docstore.Update{{
		Ref:    docstore.Ref{Collection: docstore.Dishes, ID: id},
		Fields: docstore.Fields{"isVerified": true},
	}})
	if err != nil {
		return fmt.Errorf("dish: verify %s: %w", id, err)
	}
	return nil
}
