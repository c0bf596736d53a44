package household

import (
	"context"
	"errors"
	"fmt"

	"myflex/internal/docstore"
	"myflex/internal/logging"
)

// Directory resolves profiles and households from the users collection.
type Directory struct {
	store docstore.Store
}

func NewDirectory(store docstore.Store) *Directory {
	return &Directory{store: store}
}

// Profile loads a user profile. It returns nil and no error when the user
// does not exist.
func (d *Directory) Profile(ctx context.Context, id string) (*UserProfile, error) {
	if id == "" {
		return nil, nil
	}
	doc, err := d.store.Get(ctx, docstore.Ref{Collection: docstore.Users, ID: id})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("household: load profile %s: %w", id, err)
	}
	p := FromDocument(*doc)
	return &p, nil
}

// Members returns the chef's profile followed by every user whose chefId
// points at chefID. A missing chef profile is skipped.
func (d *Directory) Members(ctx context.Context, chefID string) ([]UserProfile, error) {
	chef, err := d.Profile(ctx, chefID)
	if err != nil {
		return nil, err
	}
	if chef != nil && !chef.IsChef() {
		return nil, fmt.Errorf("%w: %s has chef %s", ErrNestedHousehold, chef.ID, chef.ChefID)
	}

	docs, err := d.store.Query(ctx, docstore.Users, docstore.Where("chefId", docstore.Equal, chefID))
	if err != nil {
		return nil, fmt.Errorf("household: list members of %s: %w", chefID, err)
	}

	members := make([]UserProfile, 0, len(docs)+1)
	if chef != nil {
		members = append(members, *chef)
	}
	for _, doc := range docs {
		p := FromDocument(doc)
		if err := Validate(p, chef); err != nil {
			logging.Warn("skipping invalid household member", "member", p.ID, "err", err)
			continue
		}
		members = append(members, p)
	}
	return members, nil
}

// HouseholdOf resolves the household of p. A nil profile yields a Household
// with Loaded false.
func (d *Directory) HouseholdOf(ctx context.Context, p *UserProfile) (Household, error) {
	if p == nil {
		return Household{}, nil
	}
	return d.ByChef(ctx, EffectiveChefID(*p))
}

// ByChef resolves the household owned by chefID.
func (d *Directory) ByChef(ctx context.Context, chefID string) (Household, error) {
	members, err := d.Members(ctx, chefID)
	if err != nil {
		return Household{}, err
	}

	h := Household{ChefID: chefID, Members: members, Loaded: true}
	for _, m := range members {
		if m.ID == chefID {
			h.Advisory = m.Household
			break
		}
	}
	return h, nil
}
