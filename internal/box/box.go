// Package box expands the verified dish catalog into four themed weekly
// boxes and materializes a chosen box into dated cooking records.
package box

import (
	"errors"
	"fmt"

	"myflex/internal/dish"
)

const (
	Weeks       = 4
	DaysPerWeek = 7
	MealsPerDay = 4
)

// ErrNoPlanAvailable is returned when the catalog holds no verified dish.
var ErrNoPlanAvailable = errors.New("box: no plan available")

// ErrUnknownWeek is returned for a week outside 1..4.
var ErrUnknownWeek = errors.New("box: unknown week")

// Slot is a meal position within a box day.
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotLunch     Slot = "lunch"
	SlotSnack     Slot = "snack"
	SlotDinner    Slot = "dinner"
)

// Slots is the order meals appear in a day.
var Slots = [MealsPerDay]Slot{SlotBreakfast, SlotLunch, SlotSnack, SlotDinner}

// Meal is one planned meal of a box day.
type Meal struct {
	Slot        Slot   `json:"slot"`
	DishID      string `json:"dishId"`
	Name        string `json:"name"`
	Calories    int    `json:"calories"`
	CookingTime int    `json:"cookingTime"`
	ImageURL    string `json:"imageUrl"`
}

// Day holds the four meals of one box day. Day is 1-indexed.
type Day struct {
	Day   int               `json:"day"`
	Meals [MealsPerDay]Meal `json:"meals"`
}

// WeeklyBox is a themed seven-day plan. Week is 1-indexed.
type WeeklyBox struct {
	Week  int              `json:"week"`
	Title string           `json:"title"`
	Theme string           `json:"theme"`
	Color string           `json:"color"`
	Days  [DaysPerWeek]Day `json:"days"`
}

type theme struct {
	title, theme, color string
}

var themes = [Weeks]theme{
	{"Fresh Start", "Light and seasonal", "#4CAF50"},
	{"Comfort Classics", "Family favourites", "#FF9800"},
	{"World Tour", "Flavours from abroad", "#2196F3"},
	{"Chef's Choice", "A little more ambitious", "#9C27B0"},
}

// Generate builds the four weekly boxes from the verified dishes of catalog,
// in catalog order. Week w, day d and slot t use the dish at
// ((w-1)*28 + (d-1)*4 + t) mod N, so small catalogs wrap around.
func Generate(catalog []dish.Dish) ([]WeeklyBox, error) {
	var verified []dish.Dish
	for _, d := range catalog {
		if d.IsVerified {
			verified = append(verified, d)
		}
	}
	n := len(verified)
	if n == 0 {
		return nil, ErrNoPlanAvailable
	}

	boxes := make([]WeeklyBox, Weeks)
	for w := 1; w <= Weeks; w++ {
		th := themes[w-1]
		b := WeeklyBox{Week: w, Title: th.title, Theme: th.theme, Color: th.color}
		for d := 1; d <= DaysPerWeek; d++ {
			day := Day{Day: d}
			for t, slot := range Slots {
				src := verified[((w-1)*DaysPerWeek*MealsPerDay+(d-1)*MealsPerDay+t)%n]
				day.Meals[t] = Meal{
					Slot:        slot,
					DishID:      src.ID,
					Name:        src.Name,
					Calories:    src.Calories,
					CookingTime: src.CookingTime,
					ImageURL:    src.ImageURL,
				}
			}
			b.Days[d-1] = day
		}
		boxes[w-1] = b
	}
	return boxes, nil
}

// Select returns week w of the boxes generated from catalog.
func Select(catalog []dish.Dish, w int) (WeeklyBox, error) {
	if w < 1 || w > Weeks {
		return WeeklyBox{}, fmt.Errorf("%w: %d", ErrUnknownWeek, w)
	}
	boxes, err := Generate(catalog)
	if err != nil {
		return WeeklyBox{}, err
	}
	return boxes[w-1], nil
}

// TotalCalories sums the calories of every meal of a day.
func (d Day) TotalCalories() int {
	total := 0
	for _, m := range d.Meals {
		total += m.Calories
	}
	return total
}
