package meal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"myflex/internal/docstore"
)

// Type is the meal-type slot of a calendar meal record.
type Type string

const (
	Breakfast Type = "breakfast"
	Lunch     Type = "lunch"
	Dinner    Type = "dinner"
	Dessert   Type = "dessert"
)

// TimeSlot is the part of a day a cook is assigned to.
type TimeSlot string

const (
	SlotBreakfast     TimeSlot = "breakfast"
	SlotLunch         TimeSlot = "lunch"
	SlotDinner        TimeSlot = "dinner"
	SlotMorningLunch  TimeSlot = "morning-lunch"
	SlotMorningDinner TimeSlot = "morning-dinner"
	SlotLunchDinner   TimeSlot = "lunch-dinner"
	SlotAllDay        TimeSlot = "all-day"
)

// ErrUnknownTimeSlot is returned for a slot outside the derivation table.
var ErrUnknownTimeSlot = errors.New("meal: unknown time slot")

var slotTypes = map[TimeSlot][]Type{
	SlotBreakfast:     {Breakfast},
	SlotLunch:         {Lunch},
	SlotDinner:        {Dinner},
	SlotMorningLunch:  {Breakfast, Lunch},
	SlotMorningDinner: {Breakfast, Dinner},
	SlotLunchDinner:   {Lunch, Dinner},
	SlotAllDay:        {Breakfast, Lunch, Dinner, Dessert},
}

// Slots lists every time slot in display order.
var Slots = []TimeSlot{
	SlotBreakfast, SlotLunch, SlotDinner,
	SlotMorningLunch, SlotMorningDinner, SlotLunchDinner, SlotAllDay,
}

// TypesFor returns the meal types a time slot covers.
func TypesFor(slot TimeSlot) ([]Type, error) {
	types, ok := slotTypes[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimeSlot, slot)
	}
	return append([]Type(nil), types...), nil
}

// ParseTimeSlot accepts a slot name case-insensitively.
func ParseTimeSlot(s string) (TimeSlot, error) {
	slot := TimeSlot(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := slotTypes[slot]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeSlot, s)
	}
	return slot, nil
}

// Meal is a dated meal record of a household calendar.
type Meal struct {
	ID          string
	HouseholdID string
	Name        string
	Type        Type
	Calories    int
	Date        time.Time
	CookedBy    string
	ImageURL    string
}

// FromDocument decodes a meals document; the date is expressed in loc.
func FromDocument(doc docstore.Document, loc *time.Location) Meal {
	f := doc.Fields
	return Meal{
		ID:          doc.Ref.ID,
		HouseholdID: docstore.String(f["householdId"]),
		Name:        docstore.String(f["name"]),
		Type:        Type(docstore.String(f["type"])),
		Calories:    docstore.Int(f["calories"]),
		Date:        docstore.Time(f["date"]).In(loc),
		CookedBy:    docstore.String(f["cookedBy"]),
		ImageURL:    docstore.String(f["imageUrl"]),
	}
}

// Fields encodes m for the meals collection.
func (m Meal) Fields() docstore.Fields {
	return docstore.Fields{
		"householdId": m.HouseholdID,
		"name":        m.Name,
		"type":        string(m.Type),
		"calories":    m.Calories,
		"date":        m.Date,
		"cookedBy":    m.CookedBy,
		"imageUrl":    m.ImageURL,
	}
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns the first and last millisecond of t's calendar day in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// ParseDate parses a YYYY-MM-DD calendar date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("meal: invalid date %q: %w", s, err)
	}
	return d, nil
}
