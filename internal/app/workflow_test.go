package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"myflex/internal/assignment"
	"myflex/internal/auth"
	"myflex/internal/coach"
	"myflex/internal/config"
	"myflex/internal/database"
	"myflex/internal/docstore"
	"myflex/internal/household"
	"myflex/internal/llm"
	"myflex/internal/meal"
	"myflex/internal/metrics"
	"myflex/internal/shared"
)

// routingTextGenerator answers coach prompts with a plan and everything else
// with an extracted dish.
type routingTextGenerator struct {
	calls int
}

func (m *routingTextGenerator) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	m.calls++
	usage := shared.TokenUsage{PromptTokens: 50, CompletionTokens: 10, Model: "mock"}
	if strings.Contains(prompt, "json-meal-plan") {
		return llm.ContentResponse{Usage: usage, Content: "Balanced!\n```json-meal-plan\n" +
			`{"title":"Next week","meals":[{"day":"Monday","type":"lunch","name":"Shakshuka"}]}` + "\n```"}, nil
	}
	return llm.ContentResponse{Usage: usage, Content: `{"name":"Shakshuka","category":"breakfast","cookingTime":25,"calories":380,"recipe":"Simmer tomatoes, crack eggs."}`}, nil
}

func mustJSON(t *testing.T, f docstore.Fields) string {
	t.Helper()
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// TestFullWorkflow runs import, moderation, box planning, cook assignment and
// coaching against a SQLite-backed store.
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "myflex.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := docstore.NewSQLite(db.SQL)

	for _, u := range []household.UserProfile{
		{ID: "chef-1", Name: "Alice", Household: []string{"Grandma Rose"}},
		{ID: "m-1", Name: "Bob", ChefID: "chef-1"},
	} {
		if _, err := db.SQL.ExecContext(ctx, `INSERT INTO documents (collection, id, data, seq) VALUES (?, ?, ?, 0)`,
			docstore.Users, u.ID, mustJSON(t, u.Fields())); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Shakshuka</title></head><body><p>Simmer tomatoes.</p></body></html>`))
	}))
	t.Cleanup(page.Close)

	gen := &routingTextGenerator{}
	tokens, err := auth.NewTokenIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	ms := metrics.NewStore(db.SQL)
	a := NewApp(&config.Config{}, Deps{
		Store: store, TextGen: gen, Metrics: ms, Verifier: tokens, Tokens: tokens,
		Location: time.UTC,
	})

	// 1. Import and verify a dish
	d, err := a.ImportDish(ctx, page.URL)
	if err != nil {
		t.Fatalf("ImportDish failed: %v", err)
	}
	if err := a.VerifyDish(ctx, d.ID); err != nil {
		t.Fatalf("VerifyDish failed: %v", err)
	}

	// 2. Plan week 1 onto the calendar
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	report, err := a.PlanBox(ctx, "chef-1", 1, start)
	if err != nil {
		t.Fatalf("PlanBox failed: %v", err)
	}
	if report.Created != 28 || report.Cookings[27].Recipe != "Simmer tomatoes, crack eggs." {
		t.Errorf("Unexpected report: created %d", report.Created)
	}
	cookings, err := store.Query(ctx, docstore.Cookings, docstore.Where("householdId", docstore.Equal, "chef-1"))
	if err != nil {
		t.Fatalf("Query cookings failed: %v", err)
	}
	if len(cookings) != 28 {
		t.Errorf("Expected 28 stored cookings, got %d", len(cookings))
	}

	// 3. Assign an advisory household member to a calendar meal
	if _, err := store.Create(ctx, docstore.Meals, meal.Meal{
		HouseholdID: "chef-1", Name: "Shakshuka", Type: meal.Breakfast, Date: start.Add(8 * time.Hour),
	}.Fields()); err != nil {
		t.Fatalf("Create meal failed: %v", err)
	}
	res, err := a.AssignCook(ctx, assignment.Request{HouseholdID: "chef-1", Date: start, Slot: meal.SlotMorningLunch, CookName: "Grandma Rose"})
	if err != nil {
		t.Fatalf("AssignCook failed: %v", err)
	}
	if res.Outcome != assignment.OutcomeAssigned || res.Updated[0].CookedBy != "Grandma Rose" {
		t.Errorf("Unexpected assignment %+v", res)
	}

	// 4. Ask the coach as a member
	tok, err := a.IssueToken(ctx, "m-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	requester, err := a.Gate().Authorize(ctx, tok, "chef-1")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	reply, err := a.Ask(ctx, coach.Question{Profile: *requester, Message: "Plan my lunches"})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if reply.Kind != coach.KindStructuredPlan || reply.Text != "Balanced!" {
		t.Errorf("Unexpected reply %+v", reply)
	}

	// 5. Both AI calls were recorded
	if gen.calls != 2 {
		t.Errorf("Expected 2 model calls, got %d", gen.calls)
	}
	usage, err := a.DailyUsage(1)
	if err != nil {
		t.Fatalf("DailyUsage failed: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalExecution != 2 {
		t.Errorf("Expected 2 recorded executions, got %+v", usage)
	}
}
