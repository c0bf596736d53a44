package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	"myflex/internal/docstore"
	"myflex/internal/household"
	"myflex/internal/meal"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

// failingBatchStore rejects every batch update.
type failingBatchStore struct {
	*docstore.Memory
}

func (f failingBatchStore) BatchUpdate(context.Context, []docstore.Update) error {
	return errors.New("store unavailable")
}

// countingStore counts batch updates reaching the store.
type countingStore struct {
	*docstore.Memory
	batches int
}

func (c *countingStore) BatchUpdate(ctx context.Context, updates []docstore.Update) error {
	c.batches++
	return c.Memory.BatchUpdate(ctx, updates)
}

func newFixture(t *testing.T) *docstore.Memory {
	t.Helper()
	store := docstore.NewMemory()
	store.Put(docstore.Users, "chef-1", household.UserProfile{Name: "Alice", Household: []string{"Grandma Rose"}}.Fields())
	store.Put(docstore.Users, "m-1", household.UserProfile{Name: "Bob", ChefID: "chef-1"}.Fields())

	put := func(id string, typ meal.Type, date time.Time) {
		store.Put(docstore.Meals, id, meal.Meal{HouseholdID: "chef-1", Name: id, Type: typ, Date: date}.Fields())
	}
	put("lunch-d", meal.Lunch, day.Add(12*time.Hour))
	put("dinner-d", meal.Dinner, day.Add(19*time.Hour))
	put("breakfast-d", meal.Breakfast, day.Add(8*time.Hour))
	put("lunch-next", meal.Lunch, day.AddDate(0, 0, 1).Add(12*time.Hour))
	return store
}

func newResolver(store docstore.Store, opts Options) *Resolver {
	return NewResolver(meal.NewRepository(store, time.UTC), store, household.NewDirectory(store), opts)
}

func cookOf(t *testing.T, store docstore.Store, id string) string {
	t.Helper()
	doc, err := store.Get(context.Background(), docstore.Ref{Collection: docstore.Meals, ID: id})
	if err != nil {
		t.Fatalf("Get %s failed: %v", id, err)
	}
	return docstore.String(doc.Fields["cookedBy"])
}

func TestAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("LunchDinner", func(t *testing.T) {
		store := newFixture(t)
		r := newResolver(store, Options{})

		res, err := r.Assign(ctx, Request{HouseholdID: "chef-1", Date: day.Add(15 * time.Hour), Slot: meal.SlotLunchDinner, CookName: " alice "})
		if err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		if res.Outcome != OutcomeAssigned || len(res.Updated) != 2 {
			t.Fatalf("Expected 2 assigned meals, got %+v", res)
		}
		for _, id := range []string{"lunch-d", "dinner-d"} {
			if got := cookOf(t, store, id); got != "alice" {
				t.Errorf("Expected %s cookedBy alice, got %q", id, got)
			}
		}
		for _, id := range []string{"breakfast-d", "lunch-next"} {
			if got := cookOf(t, store, id); got != "" {
				t.Errorf("Expected %s untouched, got cookedBy %q", id, got)
			}
		}
	})

	t.Run("NoMealsPlanned", func(t *testing.T) {
		store := &countingStore{Memory: newFixture(t)}
		r := newResolver(store, Options{})

		res, err := r.Assign(ctx, Request{HouseholdID: "chef-1", Date: day.AddDate(0, 0, 5), Slot: meal.SlotAllDay, CookName: "Bob"})
		if err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		if res.Outcome != OutcomeNoMealsPlanned {
			t.Errorf("Expected OutcomeNoMealsPlanned, got %s", res.Outcome)
		}
		if store.batches != 0 {
			t.Errorf("Expected no writes, got %d batches", store.batches)
		}
	})

	t.Run("SlotWithoutMatchingType", func(t *testing.T) {
		store := newFixture(t)
		r := newResolver(store, Options{})

		res, err := r.Assign(ctx, Request{HouseholdID: "chef-1", Date: day, Slot: meal.SlotDinner, CookName: "Bob"})
		if err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		if res.Outcome != OutcomeAssigned || len(res.Updated) != 1 || res.Updated[0].ID != "dinner-d" {
			t.Errorf("Expected only dinner-d, got %+v", res.Updated)
		}
	})

	t.Run("AdvisoryMember", func(t *testing.T) {
		store := newFixture(t)
		r := newResolver(store, Options{})

		if _, err := r.Assign(ctx, Request{HouseholdID: "chef-1", Date: day, Slot: meal.SlotBreakfast, CookName: "grandma rose"}); err != nil {
			t.Fatalf("Expected advisory member to be accepted, got %v", err)
		}
	})

	t.Run("CookNotInHousehold", func(t *testing.T) {
		store := &countingStore{Memory: newFixture(t)}
		r := newResolver(store, Options{})

		_, err := r.Assign(ctx, Request{HouseholdID: "chef-1", Date: day, Slot: meal.SlotLunch, CookName: "Mallory"})
		if !errors.Is(err, ErrCookNotInHousehold) {
			t.Fatalf("Expected ErrCookNotInHousehold, got %v", err)
		}
		if store.batches != 0 {
			t.Errorf("Expected no writes, got %d batches", store.batches)
		}
	})

	t.Run("PermissiveAcceptsAnyCook", func(t *testing.T) {
		store := newFixture(t)
		r := newResolver(store, Options{Permissive: true})

		if _, err := r.Assign(ctx, Request{HouseholdID: "chef-1", Date: day, Slot: meal.SlotLunch, CookName: "Mallory"}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		if got := cookOf(t, store, "lunch-d"); got != "Mallory" {
			t.Errorf("Expected Mallory, got %q", got)
		}
	})

	t.Run("InvalidRequests", func(t *testing.T) {
		r := newResolver(newFixture(t), Options{})
		tests := []struct {
			name    string
			req     Request
			wantErr error
		}{
			{"MissingHousehold", Request{Date: day, Slot: meal.SlotLunch, CookName: "Bob"}, ErrInvalidRequest},
			{"BlankCook", Request{HouseholdID: "chef-1", Date: day, Slot: meal.SlotLunch, CookName: "  "}, ErrInvalidRequest},
			{"UnknownSlot", Request{HouseholdID: "chef-1", Date: day, Slot: "brunch", CookName: "Bob"}, meal.ErrUnknownTimeSlot},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := r.Assign(ctx, tt.req); !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})

	t.Run("BatchFailureIsReturned", func(t *testing.T) {
		mem := newFixture(t)
		store := failingBatchStore{mem}
		r := newResolver(store, Options{})

		_, err := r.Assign(ctx, Request{HouseholdID: "chef-1", Date: day, Slot: meal.SlotLunchDinner, CookName: "Bob"})
		if err == nil {
			t.Fatal("Expected batch failure to be returned")
		}
		if got := cookOf(t, mem, "lunch-d"); got != "" {
			t.Errorf("Expected no mutation, got cookedBy %q", got)
		}
	})
}
