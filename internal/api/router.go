package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lunajoy/matchengine/internal/api/handlers"
	mw "github.com/lunajoy/matchengine/internal/api/middleware"
	"github.com/lunajoy/matchengine/internal/buildconfig"
	"github.com/lunajoy/matchengine/internal/config"
	"github.com/lunajoy/matchengine/internal/domain"
	"github.com/lunajoy/matchengine/internal/metrics"
	"github.com/lunajoy/matchengine/internal/service"
	"github.com/lunajoy/matchengine/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency the health endpoint checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the storage backends and tunables the App is built from.
// Favorites and Checks are optional.
type Deps struct {
	Clinicians   domain.ClinicianRepository
	Users        domain.UserRepository
	Interactions domain.InteractionStore
	Favorites    *store.RedisFavorites
	Checks       map[string]Pinger

	Match               service.MatchConfig
	FavoritesPerCluster int
	RefreshInterval     time.Duration
	Registry            *prometheus.Registry
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Refresher *service.RefresherService
	Reference *service.ReferenceData
	Matching  *service.MatchingService
	Metrics   *metrics.Metrics

	done      chan struct{}
	startTime time.Time
}

func NewApp(deps Deps, logger *zap.Logger) *App {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := metrics.New(reg)

	// Services
	reference := service.NewReferenceData(deps.Users, deps.Interactions, deps.FavoritesPerCluster, logger)
	reference.SetMetrics(m)

	matchingSvc := service.NewMatchingService(deps.Clinicians, deps.Users, reference, deps.Match, logger)
	matchingSvc.SetMetrics(m)
	interactionSvc := service.NewInteractionService(deps.Interactions, deps.Clinicians, logger)

	// Shared favourites: refreshes publish to Redis and matching reads from
	// it, so every instance boosts the same clinicians.
	if deps.Favorites != nil {
		reference.SetPublisher(deps.Favorites)
		matchingSvc.SetFavorites(deps.Favorites)
	}

	refresher := service.NewRefresherService(reference, logger)
	refresher.SetInterval(deps.RefreshInterval)

	// Handlers
	matchHandler := handlers.NewMatchHandler(matchingSvc, logger)
	userHandler := handlers.NewUserHandler(matchingSvc, logger)
	clinicianHandler := handlers.NewClinicianHandler(matchingSvc, logger)
	interactionHandler := handlers.NewInteractionHandler(interactionSvc, logger)
	referenceHandler := handlers.NewReferenceHandler(reference, logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Refresher: refresher,
		Reference: reference,
		Matching:  matchingSvc,
		Metrics:   m,
		done:      make(chan struct{}),
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics(m))
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst(), app.done))

	r.Get("/health", app.healthHandler(deps.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/match", matchHandler.Match)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", userHandler.Get)
			r.Post("/match", matchHandler.MatchUser)
		})

		r.Route("/clinicians", func(r chi.Router) {
			r.Get("/", clinicianHandler.List)
			r.Get("/{id}", clinicianHandler.Get)
		})

		r.Post("/interactions", interactionHandler.Record)

		r.Route("/admin/reference", func(r chi.Router) {
			r.Get("/", referenceHandler.Get)
			r.Post("/refresh", referenceHandler.Refresh)
		})
	})

	return app
}

// Close stops background work started by NewApp and Start.
func (app *App) Close() {
	close(app.done)
}

type healthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Commit        string            `json:"commit"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks,omitempty"`
	Reference     *time.Time        `json:"reference_built_at,omitempty"`
}

func (app *App) healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{
			Status:        "ok",
			Version:       buildconfig.Version(),
			Commit:        buildconfig.Commit(),
			UptimeSeconds: time.Since(app.startTime).Seconds(),
		}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "error"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		if snap := app.Reference.Snapshot(); snap != nil {
			builtAt := snap.BuiltAt
			resp.Reference = &builtAt
		}
		writeJSON(w, status, resp)
	}
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.ClinicianRepository = (*store.ClinicianStore)(nil)
	_ domain.UserRepository      = (*store.UserStore)(nil)
	_ domain.InteractionStore    = (*store.InteractionStore)(nil)
	_ domain.ClinicianRepository = (*store.InMemoryClinicians)(nil)
	_ domain.UserRepository      = (*store.InMemoryUsers)(nil)
	_ domain.InteractionStore    = (*store.InMemoryInteractions)(nil)
	_ domain.ClusterFavorites    = (*store.RedisFavorites)(nil)
	_ domain.FavoritesPublisher  = (*store.RedisFavorites)(nil)
	_ Pinger                     = (*store.RedisFavorites)(nil)
)
