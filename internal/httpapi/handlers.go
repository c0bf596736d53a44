package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"myflex/internal/assignment"
	"myflex/internal/box"
	"myflex/internal/coach"
	"myflex/internal/meal"
	"myflex/internal/metrics"

	"github.com/go-chi/chi/v5"
)

var errBadRequest = errors.New("bad request")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Now().In(s.svc.Location()), nil
	}
	d, err := meal.ParseDate(v, s.svc.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return d, nil
}

type healthResponse struct {
	Status string `json:"status"`
	metrics.SysHealth
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", SysHealth: s.svc.Health()})
}

type mealResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     meal.Type `json:"type"`
	Calories int       `json:"calories"`
	Date     time.Time `json:"date"`
	CookedBy string    `json:"cookedBy,omitempty"`
	ImageURL string    `json:"imageUrl,omitempty"`
}

func toMealResponses(meals []meal.Meal) []mealResponse {
	out := make([]mealResponse, 0, len(meals))
	for _, m := range meals {
		out = append(out, mealResponse{
			ID:       m.ID,
			Name:     m.Name,
			Type:     m.Type,
			Calories: m.Calories,
			Date:     m.Date,
			CookedBy: m.CookedBy,
			ImageURL: m.ImageURL,
		})
	}
	return out
}

func (s *Server) handleMeals(w http.ResponseWriter, r *http.Request) {
	date, err := s.parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	meals, err := s.svc.MealsOn(r.Context(), householdFrom(r.Context()), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealResponses(meals))
}

type assignRequest struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
	CookName string `json:"cookName"`
}

type assignResponse struct {
	Outcome assignment.Outcome `json:"outcome"`
	Types   []meal.Type        `json:"types"`
	Meals   []mealResponse     `json:"meals"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slot, err := meal.ParseTimeSlot(req.TimeSlot)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.AssignCook(r.Context(), assignment.Request{
		HouseholdID: householdFrom(r.Context()),
		Date:        date,
		Slot:        slot,
		CookName:    req.CookName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assignResponse{
		Outcome: res.Outcome,
		Types:   res.Types,
		Meals:   toMealResponses(res.Updated),
	})
}

type boxesResponse struct {
	Status string          `json:"status"`
	Boxes  []box.WeeklyBox `json:"boxes,omitempty"`
}

func (s *Server) handleBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.svc.Boxes(r.Context())
	if errors.Is(err, box.ErrNoPlanAvailable) {
		writeJSON(w, http.StatusNotFound, boxesResponse{Status: "no_plan"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boxesResponse{Status: "ok", Boxes: boxes})
}

type planBoxRequest struct {
	StartDate string `json:"startDate"`
}

type planBoxResponse struct {
	Status   string        `json:"status"`
	Created  int           `json:"created"`
	Failed   int           `json:"failed"`
	Cookings []box.Cooking `json:"cookings"`
}

func (s *Server) handlePlanBox(w http.ResponseWriter, r *http.Request) {
	week, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: week must be a number", errBadRequest))
		return
	}
	var req planBoxRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := s.parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.svc.PlanBox(r.Context(), householdFrom(r.Context()), week, start)
	switch {
	case errors.Is(err, box.ErrNoPlanAvailable):
		writeJSON(w, http.StatusNotFound, boxesResponse{Status: "no_plan"})
	case errors.Is(err, box.ErrPartialPlan):
		writeJSON(w, http.StatusMultiStatus, planBoxResponse{
			Status: "partial", Created: report.Created, Failed: report.Failed, Cookings: report.Cookings,
		})
	case err != nil:
		writeError(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, planBoxResponse{
			Status: "planned", Created: report.Created, Cookings: report.Cookings,
		})
	}
}

type coachRequest struct {
	Message string          `json:"message"`
	History []coach.Message `json:"history"`
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Gate().Requester(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req coachRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	reply, err := s.svc.Ask(r.Context(), coach.Question{
		Profile: *p,
		Message: req.Message,
		History: req.History,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
