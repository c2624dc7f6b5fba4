package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/handlers"
	"github.com/campmanager/backend/internal/middleware"
	"github.com/campmanager/backend/internal/services"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Profiles services.ProfileService
	Verifier *middleware.TokenVerifier
	Logger   *zap.Logger

	CORSOrigin     string
	RequestTimeout time.Duration
	Production     bool
}

// NewRouter builds the HTTP handler for the API. Everything except the
// health check and the root banner needs a Firebase ID token.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Outermost first.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log, d.Production))
	r.Use(cors.Handler(corsOptions(d.CORSOrigin)))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)

	profileHandler := handlers.NewProfileHandler(d.Profiles, handlers.Options{
		Timeout:    d.RequestTimeout,
		Production: d.Production,
		Logger:     log,
	})
	auth := middleware.FirebaseAuth(d.Verifier, log)

	r.Get("/", handlers.Root)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(handlers.NotFound)
		r.MethodNotAllowed(handlers.NotFound)

		r.Get("/health", handlers.Health)

		r.With(auth).Post("/users/sync", profileHandler.SyncProfile)
		r.With(auth).Get("/users/profile/me", profileHandler.GetMyProfile)
	})

	return r
}

func corsOptions(origin string) cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: origin != "*",
		MaxAge:           300,
	}
}
