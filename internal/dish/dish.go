// Package dish manages the catalog of dishes the box planner draws from.
// Dishes enter the catalog unverified and become eligible for weekly boxes
// once an administrator verifies them.
package dish

import (
	"strings"

	"myflex/internal/docstore"
)

// Dish is a catalog entry.
type Dish struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Origin   string `json:"origin"`
	// CookingTime is in minutes.
	CookingTime int    `json:"cookingTime"`
	Calories    int    `json:"calories"`
	ImageURL    string `json:"imageUrl"`
	Recipe      string `json:"recipe"`
	IsVerified  bool   `json:"isVerified"`
	SourceURL   string `json:"sourceUrl,omitempty"`
}

// FromDocument decodes a dishes document.
func FromDocument(doc docstore.Document) Dish {
	f := doc.Fields
	return Dish{
		ID:          doc.Ref.ID,
		Name:        docstore.String(f["name"]),
		Category:    docstore.String(f["category"]),
		Origin:      docstore.String(f["origin"]),
		CookingTime: docstore.Int(f["cookingTime"]),
		Calories:    docstore.Int(f["calories"]),
		ImageURL:    docstore.String(f["imageUrl"]),
		Recipe:      docstore.String(f["recipe"]),
		IsVerified:  docstore.Bool(f["isVerified"]),
		SourceURL:   docstore.String(f["sourceUrl"]),
	}
}

// Fields encodes d for the dishes collection.
func (d Dish) Fields() docstore.Fields {
	return docstore.Fields{
		"name":        d.Name,
		"category":    d.Category,
		"origin":      d.Origin,
		"cookingTime": d.CookingTime,
		"calories":    d.Calories,
		"imageUrl":    d.ImageURL,
		"recipe":      d.Recipe,
		"isVerified":  d.IsVerified,
		"sourceUrl":   d.SourceURL,
	}
}

// LookupRecipe returns the recipe of the first catalog dish named name,
// preferring an exact match over a case-insensitive one. It returns "" when
// nothing matches.
func LookupRecipe(catalog []Dish, name string) string {
	for _, d := range catalog {
		if d.Name == name {
			return d.Recipe
		}
	}
	for _, d := range catalog {
		if strings.EqualFold(strings.TrimSpace(d.Name), strings.TrimSpace(name)) {
			return d.Recipe
		}
	}
	return ""
}
