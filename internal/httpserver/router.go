package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"spendwise/internal/api"
	"spendwise/internal/apperr"
	"spendwise/internal/auth"
	"spendwise/internal/events"
	"spendwise/internal/expenses"
	"spendwise/internal/users"
)

type Deps struct {
	Logger      *slog.Logger
	Auth        *auth.Service
	Expenses    *expenses.Store
	Events      events.Publisher
	CORSOrigins []string
	// Debug exposes internal error detail in responses.
	Debug bool
	Now   func() time.Time
}

func NewRouter(d Deps) http.Handler {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	errs := api.Errors{Logger: d.Logger, Debug: d.Debug}

	r := chi.NewRouter()
	r.Use(trace(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errs.Write(w, req, apperr.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		api.JSON(w, http.StatusMethodNotAllowed, api.Body{Success: false, Message: "Method not allowed"})
	})

	health := func(w http.ResponseWriter, _ *http.Request) {
		api.JSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	}
	r.Get("/healthz", health)

	ah := &authHandler{svc: d.Auth, events: d.Events, logger: d.Logger, errs: errs}
	eh := &expenses.Handler{Store: d.Expenses, Events: d.Events, Logger: d.Logger, Errors: errs, Now: d.Now}
	uh := &users.Handler{Store: d.Auth.Store(), Events: d.Events, Logger: d.Logger, Errors: errs}

	secured := auth.JWTMiddleware(d.Auth, errs)
	write := auth.RequireWrite(errs)
	admin := auth.RequireAdmin(errs)
	owner := auth.RequireOwnershipOrAdmin(errs, "id")

	r.Route("/api", func(ar chi.Router) {
		ar.Get("/health", health)

		ar.Route("/auth", func(a chi.Router) {
			a.Post("/register", ah.register)
			a.Post("/login", ah.login)
			a.With(secured).Get("/me", ah.me)
		})

		ar.Route("/expenses", func(e chi.Router) {
			e.Use(secured)
			e.Get("/", eh.List)
			e.Get("/stats", eh.Stats)
			e.Get("/{id}", eh.Get)
			e.With(write).Post("/", eh.Create)
			e.With(write).Put("/{id}", eh.Update)
			e.With(write).Delete("/{id}", eh.Delete)
		})

		ar.Route("/users", func(u chi.Router) {
			u.Use(secured)
			u.With(write).Put("/profile", uh.UpdateProfile)
			u.With(auth.RequireRole(errs, auth.RoleAdmin)).Get("/", uh.List)
			u.With(admin).Get("/stats/overview", uh.Overview)
			u.With(owner).Get("/{id}", uh.Get)
			u.With(owner).Get("/{id}/expenses", eh.ListForUser)
			u.With(owner).Get("/{id}/expenses/stats", eh.StatsForUser)
			u.With(admin).Put("/{id}/role", uh.UpdateRole)
			u.With(admin).Delete("/{id}", uh.Delete)
		})
	})

	return r
}
