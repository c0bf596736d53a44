package household

import (
	"errors"
	"fmt"
	"strings"

	"myflex/internal/docstore"
)

var (
	// ErrSelfReference means a profile names itself as its chef.
	ErrSelfReference = errors.New("household: profile references itself as chef")
	// ErrNestedHousehold means a profile's chef is itself a member of another household.
	ErrNestedHousehold = errors.New("household: chef belongs to another household")
)

// UserProfile is a person in the directory. An empty ChefID means the user
// is their own chef (household owner).
type UserProfile struct {
	ID    string
	Name  string
	Email string
	// ChefID points at the household owner this user belongs to.
	ChefID string
	// Household is the chef's advisory list of member names. It is not
	// authoritative; the ChefID back-references are.
	Household    []string
	DietaryGoals []string
	Allergies    []string
}

// IsChef reports whether p owns its household.
func (p UserProfile) IsChef() bool {
	return p.ChefID == ""
}

// EffectiveChefID returns the household owner for p: its ChefID when set,
// otherwise its own ID.
func EffectiveChefID(p UserProfile) string {
	if p.ChefID != "" {
		return p.ChefID
	}
	return p.ID
}

// Validate checks the single-level household invariant. chef is the profile
// p.ChefID points to, or nil when unknown.
func Validate(p UserProfile, chef *UserProfile) error {
	if p.ChefID != "" && p.ChefID == p.ID {
		return fmt.Errorf("%w: %s", ErrSelfReference, p.ID)
	}
	if chef != nil && chef.ChefID != "" {
		return fmt.Errorf("%w: %s -> %s -> %s", ErrNestedHousehold, p.ID, chef.ID, chef.ChefID)
	}
	return nil
}

// FromDocument decodes a users document.
func FromDocument(doc docstore.Document) UserProfile {
	f := doc.Fields
	return UserProfile{
		ID:           doc.Ref.ID,
		Name:         docstore.String(f["name"]),
		Email:        docstore.String(f["email"]),
		ChefID:       docstore.String(f["chefId"]),
		Household:    docstore.Strings(f["household"]),
		DietaryGoals: docstore.Strings(f["dietaryGoals"]),
		Allergies:    docstore.Strings(f["allergies"]),
	}
}

// Fields encodes p for the users collection.
func (p UserProfile) Fields() docstore.Fields {
	return docstore.Fields{
		"name":         p.Name,
		"email":        p.Email,
		"chefId":       p.ChefID,
		"household":    nonNil(p.Household),
		"dietaryGoals": nonNil(p.DietaryGoals),
		"allergies":    nonNil(p.Allergies),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Household is the resolved group around one chef. A zero Household (Loaded
// false) means the requesting profile is not available yet and must not be
// treated as an empty household.
type Household struct {
	ChefID  string
	Members []UserProfile
	// Advisory holds the chef's free-form member list.
	Advisory []string
	Loaded   bool
}

// HasMember reports whether name matches a member profile or an entry of
// the chef's advisory list, ignoring case and surrounding space.
func (h Household) HasMember(name string) bool {
	want := normalize(name)
	if want == "" {
		return false
	}
	for _, m := range h.Members {
		if normalize(m.Name) == want {
			return true
		}
	}
	for _, n := range h.Advisory {
		if normalize(n) == want {
			return true
		}
	}
	return false
}

// Names lists member profile names followed by advisory names not already
// covered, in order.
func (h Household) Names() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		key := normalize(n)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(n))
	}
	for _, m := range h.Members {
		add(m.Name)
	}
	for _, n := range h.Advisory {
		add(n)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
