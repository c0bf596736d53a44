package box

import (
	"context"
	"errors"
	"testing"
	"time"

	"myflex/internal/docstore"
)

// failingCreateStore rejects creates for which fail returns an error.
type failingCreateStore struct {
	*docstore.Memory
	fail func(fields docstore.Fields) error
}

func (f failingCreateStore) Create(ctx context.Context, collection string, fields docstore.Fields) (docstore.Ref, error) {
	if err := f.fail(fields); err != nil {
		return docstore.Ref{}, err
	}
	return f.Memory.Create(ctx, collection, fields)
}

func storedCookings(t *testing.T, store docstore.Store) int {
	t.Helper()
	docs, err := store.Query(context.Background(), docstore.Cookings)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	return len(docs)
}

func TestMaterializerPlan(t *testing.T) {
	ctx := context.Background()
	loc := time.UTC
	start := time.Date(2025, 3, 10, 15, 45, 0, 0, loc)

	catalog := catalogOf(10)
	catalog[0].Recipe = "Boil water."
	wb, err := Select(catalog, 1)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	t.Run("CreatesTwentyEightDatedRecords", func(t *testing.T) {
		store := docstore.NewMemory()
		m := NewMaterializer(store, loc)

		report, err := m.Plan(ctx, Request{HouseholdID: "chef-1", StartDate: start, Box: wb, Catalog: catalog})
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		if report.Created != 28 || report.Failed != 0 {
			t.Fatalf("Unexpected report %+v", report)
		}

		docs, err := store.Query(ctx, docstore.Cookings, docstore.Where("householdId", docstore.Equal, "chef-1"))
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(docs) != 28 {
			t.Fatalf("Expected 28 stored cookings, got %d", len(docs))
		}

		perDay := map[string]int{}
		first := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
		for _, doc := range docs {
			date := docstore.Time(doc.Fields["date"]).In(loc)
			if date.Before(first) || !date.Before(first.AddDate(0, 0, 7)) {
				t.Errorf("Cooking dated %v outside the planned week", date)
			}
			if date.Hour() != 0 || date.Minute() != 0 {
				t.Errorf("Expected midnight dates, got %v", date)
			}
			perDay[date.Format(time.DateOnly)]++
		}
		if len(perDay) != 7 {
			t.Errorf("Expected 7 distinct days, got %d", len(perDay))
		}
		for day, n := range perDay {
			if n != 4 {
				t.Errorf("Expected 4 cookings on %s, got %d", day, n)
			}
		}

		if report.Cookings[0].Recipe != "Boil water." {
			t.Errorf("Expected recipe joined by name, got %q", report.Cookings[0].Recipe)
		}
		if report.Cookings[1].Recipe != "" {
			t.Errorf("Expected empty recipe for dish without one, got %q", report.Cookings[1].Recipe)
		}
		if report.Cookings[0].ID == "" {
			t.Error("Expected created cooking to carry its ID")
		}
	})

	t.Run("NoIdentityWritesNothing", func(t *testing.T) {
		store := docstore.NewMemory()
		m := NewMaterializer(store, loc)

		_, err := m.Plan(ctx, Request{HouseholdID: " ", StartDate: start, Box: wb, Catalog: catalog})
		if !errors.Is(err, ErrNoIdentity) {
			t.Fatalf("Expected ErrNoIdentity, got %v", err)
		}
		if n := storedCookings(t, store); n != 0 {
			t.Errorf("Expected no cookings, got %d", n)
		}
	})

	t.Run("PartialFailureKeepsCreatedRecords", func(t *testing.T) {
		mem := docstore.NewMemory()
		boom := errors.New("quota exceeded")
		store := failingCreateStore{Memory: mem, fail: func(f docstore.Fields) error {
			if f["type"] == string(SlotSnack) {
				return boom
			}
			return nil
		}}
		m := NewMaterializer(store, loc)

		report, err := m.Plan(ctx, Request{HouseholdID: "chef-1", StartDate: start, Box: wb, Catalog: catalog})
		if !errors.Is(err, ErrPartialPlan) {
			t.Fatalf("Expected ErrPartialPlan, got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("Expected underlying error to be wrapped, got %v", err)
		}
		if report.Created != 21 || report.Failed != 7 || len(report.Errors) != 7 {
			t.Errorf("Unexpected report created=%d failed=%d errors=%d", report.Created, report.Failed, len(report.Errors))
		}
		if n := storedCookings(t, mem); n != 21 {
			t.Errorf("Expected 21 stored cookings, got %d", n)
		}
	})

	t.Run("DatesCrossMonthBoundary", func(t *testing.T) {
		m := NewMaterializer(docstore.NewMemory(), loc)
		cookings := m.Cookings(Request{HouseholdID: "chef-1", StartDate: time.Date(2025, 2, 26, 9, 0, 0, 0, loc), Box: wb})
		last := cookings[len(cookings)-1].Date
		if want := time.Date(2025, 3, 4, 0, 0, 0, 0, loc); !last.Equal(want) {
			t.Errorf("Expected last day %v, got %v", want, last)
		}
	})
}
