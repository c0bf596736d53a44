package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"myflex/internal/access"
	"myflex/internal/assignment"
	"myflex/internal/box"
	"myflex/internal/coach"
	"myflex/internal/household"
	"myflex/internal/logging"
	"myflex/internal/meal"

	"github.com/go-chi/chi/v5/middleware"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "err", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, assignment.ErrCookNotInHousehold):
		return http.StatusUnprocessableEntity
	case errors.Is(err, household.ErrNestedHousehold),
		errors.Is(err, household.ErrSelfReference):
		return http.StatusConflict
	case errors.Is(err, assignment.ErrInvalidRequest),
		errors.Is(err, meal.ErrUnknownTimeSlot),
		errors.Is(err, box.ErrUnknownWeek),
		errors.Is(err, box.ErrNoIdentity),
		errors.Is(err, coach.ErrEmptyMessage),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status. Internal failures are logged and reported
// without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
