// Package httpapi serves the household planning use cases as a JSON API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"myflex/internal/access"
	"myflex/internal/assignment"
	"myflex/internal/box"
	"myflex/internal/coach"
	"myflex/internal/logging"
	"myflex/internal/meal"
	"myflex/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the application surface the API exposes.
type Service interface {
	Gate() *access.Gate
	Location() *time.Location
	MealsOn(ctx context.Context, householdID string, date time.Time) ([]meal.Meal, error)
	AssignCook(ctx context.Context, req assignment.Request) (assignment.Result, error)
	Boxes(ctx context.Context) ([]box.WeeklyBox, error)
	PlanBox(ctx context.Context, householdID string, week int, start time.Time) (box.Report, error)
	Ask(ctx context.Context, q coach.Question) (coach.Reply, error)
	Health() metrics.SysHealth
}

// Server routes API requests to a Service.
type Server struct {
	svc    Service
	router chi.Router
}

// NewServer builds the router. Extra mounts, such as the Telegram webhook,
// are added with Mount.
func NewServer(svc Service) *Server {
	s := &Server{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(90 * time.Second))
		r.Get("/boxes", s.handleBoxes)
		r.Post("/coach", s.handleCoach)
		r.Route("/households/{chefID}", func(r chi.Router) {
			r.Use(s.authorizeHousehold)
			r.Get("/meals", s.handleMeals)
			r.Post("/assignments", s.handleAssign)
			r.Post("/boxes/{week}/plan", s.handlePlanBox)
		})
	})

	s.router = r
	return s
}

// Mount attaches an additional handler under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Handle(pattern, h)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logging.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
