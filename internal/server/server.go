package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ukydev/carmemo/internal/handlers"
	"github.com/ukydev/carmemo/internal/middleware"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

// Deps carries the handlers and HTTP settings the router is built from.
// Nil handlers leave their routes unmounted.
type Deps struct {
	Vehicles      *handlers.VehicleHandler
	Lookup        *handlers.LookupHandler
	Receipts      *handlers.ReceiptHandler
	Categories    *handlers.CategoryHandler
	Notifications *handlers.NotificationHandler

	// Metrics is served read-only at /api/metrics when set.
	Metrics *metricz.Registry

	CORSOrigins     []string
	RateLimit       int
	RateLimitWindow time.Duration
	Clock           clockz.Clock
}

// Server is the CarMemo HTTP API.
type Server struct {
	router  chi.Router
	limiter *middleware.RateLimitMiddleware
	deps    Deps
}

func New(deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = clockz.RealClock
	}
	if deps.RateLimitWindow <= 0 {
		deps.RateLimitWindow = time.Minute
	}
	s := &Server{
		router:  chi.NewRouter(),
		limiter: middleware.NewRateLimitMiddleware(deps.Clock),
		deps:    deps,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// PruneRateLimits drops expired rate limit buckets.
func (s *Server) PruneRateLimits() int {
	return s.limiter.Prune(s.deps.RateLimitWindow)
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(s.deps.CORSOrigins))

	r.Get("/health", health)

	r.Route("/api", func(r chi.Router) {
		if s.deps.RateLimit > 0 {
			r.Use(s.limiter.RateLimit(s.deps.RateLimit, s.deps.RateLimitWindow))
		}

		if h := s.deps.Vehicles; h != nil {
			r.Route("/vehicles", func(r chi.Router) {
				r.Get("/", h.ListVehicles)
				r.Post("/", h.CreateVehicle)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetVehicle)
					r.Put("/", h.UpdateVehicle)
					r.Delete("/", h.DeleteVehicle)
					r.Put("/distance", h.UpdateDistance)
					r.Get("/schedule", h.Schedule)
					r.Post("/tasks", h.AddTask)
					r.Put("/tasks/{taskId}", h.UpdateTask)
					r.Delete("/tasks/{taskId}", h.DeleteTask)
					r.Post("/tasks/{taskId}/complete", h.CompleteTask)
				})
			})
		}
		if h := s.deps.Lookup; h != nil {
			r.Get("/vin/{vin}", h.DecodeVIN)
			r.Get("/recalls", h.SearchRecalls)
		}
		if h := s.deps.Receipts; h != nil {
			r.Post("/receipts/scan", h.Scan)
		}
		if h := s.deps.Categories; h != nil {
			r.Get("/categories", h.List)
			r.Post("/categories/map", h.Map)
		}
		if h := s.deps.Notifications; h != nil {
			r.Get("/notifications/public-key", h.PublicKey)
			r.Post("/notifications/subscribe", h.Subscribe)
			r.Post("/notifications/unsubscribe", h.Unsubscribe)
		}
		if s.deps.Metrics != nil {
			r.Get("/metrics", s.metrics)
		}
	})
}
