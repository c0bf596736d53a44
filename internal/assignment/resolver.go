// Package assignment assigns a household cook to the meals of a day.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"myflex/internal/docstore"
	"myflex/internal/household"
	"myflex/internal/logging"
	"myflex/internal/meal"
)

var (
	// ErrInvalidRequest is returned when the household or cook is missing.
	ErrInvalidRequest = errors.New("assignment: invalid request")
	// ErrCookNotInHousehold is returned when the cook is neither a member
	// profile nor on the chef's household list.
	ErrCookNotInHousehold = errors.New("assignment: cook is not a household member")
)

// Outcome describes what an assignment did.
type Outcome string

const (
	OutcomeAssigned       Outcome = "assigned"
	OutcomeNoMealsPlanned Outcome = "no_meals_planned"
)

// Request asks for CookName to cook the Slot meals of the Date's calendar day.
type Request struct {
	HouseholdID string
	Date        time.Time
	Slot        meal.TimeSlot
	CookName    string
}

// Result reports the meals that now carry the cook.
type Result struct {
	Outcome Outcome
	Types   []meal.Type
	Updated []meal.Meal
}

// Meals lists a household's meals on a calendar day.
type Meals interface {
	OnDate(ctx context.Context, householdID string, date time.Time) ([]meal.Meal, error)
}

// Households resolves the household owned by a chef.
type Households interface {
	ByChef(ctx context.Context, chefID string) (household.Household, error)
}

// Options tunes the resolver.
type Options struct {
	// Permissive accepts any cook name without a membership check.
	Permissive bool
}

// Resolver assigns cooks to meal records.
type Resolver struct {
	meals      Meals
	store      docstore.Store
	households Households
	opts       Options
}

func NewResolver(meals Meals, store docstore.Store, households Households, opts Options) *Resolver {
	return &Resolver{meals: meals, store: store, households: households, opts: opts}
}

// Assign sets cookedBy on every meal of the request's day whose type the slot
// covers. When no such meal exists it returns OutcomeNoMealsPlanned and writes
// nothing. The update is a single atomic batch.
func (r *Resolver) Assign(ctx context.Context, req Request) (Result, error) {
	householdID := strings.TrimSpace(req.HouseholdID)
	cook := strings.TrimSpace(req.CookName)
	if householdID == "" {
		return Result{}, fmt.Errorf("%w: household is required", ErrInvalidRequest)
	}
	if cook == "" {
		return Result{}, fmt.Errorf("%w: cook name is required", ErrInvalidRequest)
	}

	types, err := meal.TypesFor(req.Slot)
	if err != nil {
		return Result{}, err
	}

	if !r.opts.Permissive {
		h, err := r.households.ByChef(ctx, householdID)
		if err != nil {
			return Result{}, fmt.Errorf("assignment: resolve household %s: %w", householdID, err)
		}
		if !h.HasMember(cook) {
			return Result{}, fmt.Errorf("%w: %q in %s", ErrCookNotInHousehold, cook, householdID)
		}
	}

	meals, err := r.meals.OnDate(ctx, householdID, req.Date)
	if err != nil {
		return Result{}, fmt.Errorf("assignment: load meals: %w", err)
	}

	wanted := make(map[meal.Type]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	var matched []meal.Meal
	var updates []docstore.Update
	for _, m := range meals {
		if !wanted[m.Type] {
			continue
		}
		updates = append(updates, docstore.Update{
			Ref:    docstore.Ref{Collection: docstore.Meals, ID: m.ID},
			Fields: docstore.Fields{"cookedBy": cook},
		})
		m.CookedBy = cook
		matched = append(matched, m)
	}

	if len(matched) == 0 {
		logging.Info("no meals planned for assignment", "household", householdID, "date", req.Date.Format(time.DateOnly), "slot", req.Slot)
		return Result{Outcome: OutcomeNoMealsPlanned, Types: types}, nil
	}

	if err := r.store.BatchUpdate(ctx, updates); err != nil {
		return Result{}, fmt.Errorf("assignment: update meals: %w", err)
	}

	logging.Info("cook assigned", "household", householdID, "cook", cook, "slot", req.Slot, "meals", len(matched))
	return Result{Outcome: OutcomeAssigned, Types: types, Updated: matched}, nil
}
