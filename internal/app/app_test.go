package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"myflex/internal/assignment"
	"myflex/internal/auth"
	"myflex/internal/box"
	"myflex/internal/coach"
	"myflex/internal/config"
	"myflex/internal/database"
	"myflex/internal/dish"
	"myflex/internal/docstore"
	"myflex/internal/household"
	"myflex/internal/llm"
	"myflex/internal/meal"
	"myflex/internal/metrics"
	"myflex/internal/shared"
)

type MockTextGenerator struct {
	Response string
}

func (m *MockTextGenerator) GenerateContent(context.Context, string) (llm.ContentResponse, error) {
	return llm.ContentResponse{
		Content: m.Response,
		Usage:   shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5, Model: "mock"},
	}, nil
}

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, store *docstore.Memory, gen llm.TextGenerator) (*App, *metrics.Store) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	ms := metrics.NewStore(db.SQL)
	a := NewApp(&config.Config{}, Deps{
		Store:    store,
		TextGen:  gen,
		Metrics:  ms,
		Verifier: tokens,
		Tokens:   tokens,
		Location: time.UTC,
	})
	return a, ms
}

func seedHousehold(store *docstore.Memory) {
	store.Put(docstore.Users, "chef-1", household.UserProfile{Name: "Alice"}.Fields())
	store.Put(docstore.Users, "m-1", household.UserProfile{Name: "Bob", ChefID: "chef-1"}.Fields())
	store.Put(docstore.Meals, "lunch", meal.Meal{HouseholdID: "chef-1", Name: "Soup", Type: meal.Lunch, Date: day.Add(12 * time.Hour)}.Fields())
	store.Put(docstore.Meals, "dinner", meal.Meal{HouseholdID: "chef-1", Name: "Stew", Type: meal.Dinner, Date: day.Add(19 * time.Hour)}.Fields())
}

func seedCatalog(store *docstore.Memory, n int) {
	for i := 0; i < n; i++ {
		store.Put(docstore.Dishes, fmt.Sprintf("dish-%02d", i), dish.Dish{
			Name:       fmt.Sprintf("Dish %02d", i),
			Recipe:     fmt.Sprintf("Recipe %02d", i),
			IsVerified: true,
		}.Fields())
	}
}

func TestAssignCook(t *testing.T) {
	store := docstore.NewMemory()
	seedHousehold(store)
	a, _ := newTestApp(t, store, &MockTextGenerator{})

	res, err := a.AssignCook(context.Background(), assignment.Request{
		HouseholdID: "chef-1", Date: day, Slot: meal.SlotLunchDinner, CookName: "Bob",
	})
	if err != nil {
		t.Fatalf("AssignCook failed: %v", err)
	}
	if res.Outcome != assignment.OutcomeAssigned || len(res.Updated) != 2 {
		t.Errorf("Unexpected result %+v", res)
	}

	meals, err := a.MealsOn(context.Background(), "chef-1", day)
	if err != nil {
		t.Fatalf("MealsOn failed: %v", err)
	}
	for _, m := range meals {
		if m.CookedBy != "Bob" {
			t.Errorf("Expected %s cooked by Bob, got %q", m.Name, m.CookedBy)
		}
	}
}

func TestBoxes(t *testing.T) {
	ctx := context.Background()

	t.Run("NoPlanAvailable", func(t *testing.T) {
		a, _ := newTestApp(t, docstore.NewMemory(), &MockTextGenerator{})
		if _, err := a.Boxes(ctx); !errors.Is(err, box.ErrNoPlanAvailable) {
			t.Errorf("Expected ErrNoPlanAvailable, got %v", err)
		}
	})

	t.Run("PlanBox", func(t *testing.T) {
		store := docstore.NewMemory()
		seedCatalog(store, 30)
		a, _ := newTestApp(t, store, &MockTextGenerator{})

		boxes, err := a.Boxes(ctx)
		if err != nil || len(boxes) != 4 {
			t.Fatalf("Expected 4 boxes, got %d (%v)", len(boxes), err)
		}

		report, err := a.PlanBox(ctx, "chef-1", 2, day)
		if err != nil {
			t.Fatalf("PlanBox failed: %v", err)
		}
		if report.Created != 28 {
			t.Errorf("Expected 28 cookings, got %d", report.Created)
		}
		// Week 2 day 1 breakfast is catalog index 28.
		if got := report.Cookings[0]; got.Name != "Dish 28" || got.Recipe != "Recipe 28" {
			t.Errorf("Unexpected first cooking %+v", got)
		}
	})

	t.Run("PlanBoxWithoutHousehold", func(t *testing.T) {
		store := docstore.NewMemory()
		seedCatalog(store, 3)
		a, _ := newTestApp(t, store, &MockTextGenerator{})
		if _, err := a.PlanBox(ctx, "", 1, day); !errors.Is(err, box.ErrNoIdentity) {
			t.Errorf("Expected ErrNoIdentity, got %v", err)
		}
		docs, err := store.Query(ctx, docstore.Cookings)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("Expected no cookings, got %d", len(docs))
		}
	})
}

func TestAskRecordsUsage(t *testing.T) {
	store := docstore.NewMemory()
	seedHousehold(store)
	a, ms := newTestApp(t, store, &MockTextGenerator{Response: "Eat a rainbow."})

	reply, err := a.Ask(context.Background(), coach.Question{
		Profile: household.UserProfile{ID: "m-1", Name: "Bob", ChefID: "chef-1"},
		Message: "Any tips?",
	})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if reply.Text != "Eat a rainbow." {
		t.Errorf("Unexpected reply %+v", reply)
	}

	usage, err := ms.GetDailyUsage(1)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalExecution != 1 {
		t.Errorf("Expected one recorded execution, got %+v", usage)
	}
}

func TestIssueToken(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	seedHousehold(store)
	a, _ := newTestApp(t, store, &MockTextGenerator{})

	tok, err := a.IssueToken(ctx, "m-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	p, err := a.Gate().Authorize(ctx, tok, "chef-1")
	if err != nil {
		t.Fatalf("Expected member token to be authorized for chef, got %v", err)
	}
	if p.Name != "Bob" {
		t.Errorf("Expected requester Bob, got %s", p.Name)
	}

	if _, err := a.IssueToken(ctx, "nobody"); err == nil {
		t.Error("Expected error issuing a token for an unknown user")
	}
}

func TestDishModeration(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	store.Put(docstore.Dishes, "d-1", dish.Dish{Name: "New dish"}.Fields())
	a, _ := newTestApp(t, store, &MockTextGenerator{})

	pending, err := a.PendingDishes(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("Expected 1 pending dish, got %d (%v)", len(pending), err)
	}
	if err := a.VerifyDish(ctx, "d-1"); err != nil {
		t.Fatalf("VerifyDish failed: %v", err)
	}
	boxes, err := a.Boxes(ctx)
	if err != nil {
		t.Fatalf("Boxes failed: %v", err)
	}
	if boxes[3].Days[6].Meals[3].DishID != "d-1" {
		t.Error("Expected the verified dish to fill every box slot")
	}
}
