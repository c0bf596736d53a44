package httpapi

import (
	"context"
	"net/http"
	"strings"

	"myflex/internal/household"
	"myflex/internal/logging"

	"github.com/go-chi/chi/v5"
)

type householdKey struct{}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// authorizeHousehold lets the request through only when the bearer may
// access {chefID}. A member may address the household by their own ID, so
// the household handlers act on is the requester's effective chef, never
// the raw path value.
func (s *Server) authorizeHousehold(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "chefID")
		p, err := s.svc.Gate().Authorize(r.Context(), bearerToken(r), target)
		if err != nil {
			writeError(w, r, err)
			return
		}
		householdID := household.EffectiveChefID(*p)
		logging.Debug("household access granted", "requester", p.ID, "target", target, "household", householdID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), householdKey{}, householdID)))
	})
}

// householdFrom returns the household resolved by authorizeHousehold.
func householdFrom(ctx context.Context) string {
	id, _ := ctx.Value(householdKey{}).(string)
	return id
}
