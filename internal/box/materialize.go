package box

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"myflex/internal/dish"
	"myflex/internal/docstore"
	"myflex/internal/logging"
	"myflex/internal/meal"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoIdentity is returned when no household is resolved; nothing is written.
	ErrNoIdentity = errors.New("box: no household identity")
	// ErrPartialPlan is returned when some cooking records could not be created.
	// Records that were created are kept.
	ErrPartialPlan = errors.New("box: plan partially materialized")
)

// maxConcurrentCreates bounds the parallel store writes of one plan.
const maxConcurrentCreates = 8

// Cooking is a dated meal materialized from a box.
type Cooking struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"householdId"`
	Name        string    `json:"name"`
	Calories    int       `json:"calories"`
	CookingTime int       `json:"cookingTime"`
	Type        Slot      `json:"type"`
	ImageURL    string    `json:"imageUrl"`
	Recipe      string    `json:"recipe"`
	Date        time.Time `json:"date"`
	Week        int       `json:"week"`
}

// Fields encodes c for the cookings collection.
func (c Cooking) Fields() docstore.Fields {
	return docstore.Fields{
		"householdId": c.HouseholdID,
		"name":        c.Name,
		"calories":    c.Calories,
		"cookingTime": c.CookingTime,
		"type":        string(c.Type),
		"imageUrl":    c.ImageURL,
		"recipe":      c.Recipe,
		"date":        c.Date,
		"week":        c.Week,
	}
}

// Request asks to lay Box out on the household calendar from StartDate.
// Catalog supplies recipe text by dish name.
type Request struct {
	HouseholdID string
	StartDate   time.Time
	Box         WeeklyBox
	Catalog     []dish.Dish
}

// Report summarizes a materialization. Cookings holds the created records in
// day then slot order.
type Report struct {
	Created  int
	Failed   int
	Errors   []error
	Cookings []Cooking
}

// Materializer writes box plans into the cookings collection.
type Materializer struct {
	store docstore.Store
	loc   *time.Location
}

func NewMaterializer(store docstore.Store, loc *time.Location) *Materializer {
	if loc == nil {
		loc = time.Local
	}
	return &Materializer{store: store, loc: loc}
}

// Cookings expands req into the 28 records a plan creates, without writing.
// Day d is dated StartDate + (d-1) calendar days at midnight.
func (m *Materializer) Cookings(req Request) []Cooking {
	start := meal.StartOfDay(req.StartDate, m.loc)
	out := make([]Cooking, 0, DaysPerWeek*MealsPerDay)
	for i, day := range req.Box.Days {
		date := start.AddDate(0, 0, i)
		for _, bm := range day.Meals {
			out = append(out, Cooking{
				HouseholdID: req.HouseholdID,
				Name:        bm.Name,
				Calories:    bm.Calories,
				CookingTime: bm.CookingTime,
				Type:        bm.Slot,
				ImageURL:    bm.ImageURL,
				Recipe:      dish.LookupRecipe(req.Catalog, bm.Name),
				Date:        date,
				Week:        req.Box.Week,
			})
		}
	}
	return out
}

// Plan creates one cooking record per box meal. Creates run in parallel and
// are not rolled back: on partial failure the report lists what was created
// and the error wraps ErrPartialPlan.
func (m *Materializer) Plan(ctx context.Context, req Request) (Report, error) {
	req.HouseholdID = strings.TrimSpace(req.HouseholdID)
	if req.HouseholdID == "" {
		return Report{}, ErrNoIdentity
	}

	cookings := m.Cookings(req)
	errs := make([]error, len(cookings))

	var g errgroup.Group
	g.SetLimit(maxConcurrentCreates)
	for i := range cookings {
		g.Go(func() error {
			ref, err := m.store.Create(ctx, docstore.Cookings, cookings[i].Fields())
			if err != nil {
				errs[i] = fmt.Errorf("day %s %s: %w", cookings[i].Date.Format(time.DateOnly), cookings[i].Type, err)
				return nil
			}
			cookings[i].ID = ref.ID
			return nil
		})
	}
	g.Wait()

	var report Report
	for i, c := range cookings {
		if errs[i] != nil {
			report.Failed++
			report.Errors = append(report.Errors, errs[i])
			continue
		}
		report.Created++
		report.Cookings = append(report.Cookings, c)
	}

	if report.Failed > 0 {
		logging.Warn("box partially planned", "household", req.HouseholdID, "week", req.Box.Week, "created", report.Created, "failed", report.Failed)
		return report, fmt.Errorf("%w: %d of %d records failed: %w", ErrPartialPlan, report.Failed, len(cookings), errors.Join(report.Errors...))
	}

	logging.Info("box planned", "household", req.HouseholdID, "week", req.Box.Week, "start", req.StartDate.Format(time.DateOnly), "created", report.Created)
	return report, nil
}
