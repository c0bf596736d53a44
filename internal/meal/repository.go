package meal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"myflex/internal/docstore"
)

// Repository reads household meals from the document store. Calendar days
// are computed in loc.
type Repository struct {
	store docstore.Store
	loc   *time.Location
}

func NewRepository(store docstore.Store, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.Local
	}
	return &Repository{store: store, loc: loc}
}

// Location returns the time zone calendar days are computed in.
func (r *Repository) Location() *time.Location {
	return r.loc
}

// OnDate returns the household's meals on date's calendar day.
func (r *Repository) OnDate(ctx context.Context, householdID string, date time.Time) ([]Meal, error) {
	start, end := DayBounds(date, r.loc)
	return r.between(ctx, householdID, start, end)
}

// Since returns the household's meals from the start of from's day until
// the end of today, oldest first.
func (r *Repository) Since(ctx context.Context, householdID string, from, now time.Time) ([]Meal, error) {
	start := StartOfDay(from, r.loc)
	_, end := DayBounds(now, r.loc)
	return r.between(ctx, householdID, start, end)
}

func (r *Repository) between(ctx context.Context, householdID string, start, end time.Time) ([]Meal, error) {
	docs, err := r.store.Query(ctx, docstore.Meals,
		docstore.Where("householdId", docstore.Equal, householdID),
		docstore.Where("date", docstore.GreaterEqual, start),
		docstore.Where("date", docstore.LessEqual, end),
	)
	if err != nil {
		return nil, fmt.Errorf("meal: query %s meals: %w", householdID, err)
	}

	meals := make([]Meal, 0, len(docs))
	for _, doc := range docs {
		meals = append(meals, FromDocument(doc, r.loc))
	}
	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].Date.Before(meals[j].Date)
	})
	return meals, nil
}
