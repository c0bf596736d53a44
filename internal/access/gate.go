// Package access decides whether a requester may see or act on a user's
// household data.
package access

import (
	"context"
	"errors"
	"fmt"

	"myflex/internal/household"
)

var (
	// ErrUnauthenticated means the request carried no usable identity.
	ErrUnauthenticated = errors.New("access: unauthenticated")
	// ErrForbidden means the requester may not access the target.
	ErrForbidden = errors.New("access: forbidden")
)

// IsAuthorized reports whether requester may access targetUserID's data:
// either it is their own data or the target is their chef. A nil requester
// (not yet loaded or unauthenticated) is never authorized.
func IsAuthorized(requester *household.UserProfile, targetUserID string) bool {
	if requester == nil || targetUserID == "" {
		return false
	}
	return requester.ID == targetUserID || requester.ChefID == targetUserID
}

// Verifier turns a bearer credential into a user ID.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Profiles loads the requester's profile; nil means unknown user.
type Profiles interface {
	Profile(ctx context.Context, id string) (*household.UserProfile, error)
}

// Gate combines identity verification, profile loading and IsAuthorized.
// It is evaluated on every call; nothing is cached.
type Gate struct {
	verifier Verifier
	profiles Profiles
}

func NewGate(verifier Verifier, profiles Profiles) *Gate {
	return &Gate{verifier: verifier, profiles: profiles}
}

// Requester resolves the profile behind token.
func (g *Gate) Requester(ctx context.Context, token string) (*household.UserProfile, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	uid, err := g.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	p, err := g.profiles.Profile(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("access: load requester: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: unknown user %s", ErrUnauthenticated, uid)
	}
	return p, nil
}

// Authorize resolves the requester and checks access to targetUserID.
func (g *Gate) Authorize(ctx context.Context, token, targetUserID string) (*household.UserProfile, error) {
	p, err := g.Requester(ctx, token)
	if err != nil {
		return nil, err
	}
	if !IsAuthorized(p, targetUserID) {
		return p, fmt.Errorf("%w: %s may not access %s", ErrForbidden, p.ID, targetUserID)
	}
	return p, nil
}
