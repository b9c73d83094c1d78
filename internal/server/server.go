package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/claude/fitlog/internal/backend"
	"github.com/claude/fitlog/internal/ingest"
	"github.com/claude/fitlog/internal/measurement"
	"github.com/claude/fitlog/internal/metrics"
	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
	"github.com/claude/fitlog/internal/template"
	"github.com/claude/fitlog/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is the part of *storage.DB the handlers call directly.
type Store interface {
	Ping(ctx context.Context) error

	QuerySessions(ctx context.Context, userID uuid.UUID, q storage.SessionQuery) ([]models.WorkoutSessionRecord, error)
	GetSession(ctx context.Context, userID, id uuid.UUID) (*models.WorkoutSessionRecord, error)
	DeleteSession(ctx context.Context, userID, id uuid.UUID) error

	GetTrainingSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string) ([]storage.TrainingSummaryPeriod, error)
	GetTrainingIntensity(ctx context.Context, userID uuid.UUID, start, end time.Time) (*storage.TrainingIntensityResult, error)
	GetMeasurementSummary(ctx context.Context, userID uuid.UUID, start, end time.Time, bucket string) ([]storage.MeasurementSummaryPeriod, error)
	GetDataStats(ctx context.Context, userID uuid.UUID) (*storage.DataStats, error)
	QueryImportLogs(ctx context.Context, userID uuid.UUID, limit int) ([]storage.ImportLog, error)

	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
	DeleteUserData(ctx context.Context, userID uuid.UUID, opts storage.DeleteOptions) error
}

// Importer stores an uploaded history export.
type Importer interface {
	Ingest(ctx context.Context, r io.Reader, userID uuid.UUID) (*ingest.Result, error)
}

// AuthBackend is the hosted auth service. *backend.Client satisfies it.
type AuthBackend interface {
	SignIn(email, password string) (*backend.Session, error)
	DeleteAccount(ctx context.Context, accessToken string) error
}

// Options holds the dependencies of a Server. Backend and RateLimiter are optional.
type Options struct {
	Store        Store
	Templates    *template.Service
	Measurements *measurement.Service
	Workspaces   *workspace.Registry
	Importer     Importer
	Backend      AuthBackend

	RateLimiter    RequestRateLimiter
	LoginPerMinute int

	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer

	JWTSecret   string
	CORSOrigins []string
	Log         *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db           Store
	templates    *template.Service
	measurements *measurement.Service
	workspaces   *workspace.Registry
	importer     Importer
	backend      AuthBackend
	limiter      RequestRateLimiter
	loginPerMin  int
	metrics      *metrics.Manager
	gatherer     prometheus.Gatherer
	jwtSecret    []byte
	corsOrigins  []string
	log          *slog.Logger
	now          func() time.Time
	router       chi.Router
}

// New creates a new Server with all routes configured.
func New(opts Options) *Server {
	s := &Server{
		db:           opts.Store,
		templates:    opts.Templates,
		measurements: opts.Measurements,
		workspaces:   opts.Workspaces,
		importer:     opts.Importer,
		backend:      opts.Backend,
		limiter:      opts.RateLimiter,
		loginPerMin:  opts.LoginPerMinute,
		metrics:      opts.Metrics,
		gatherer:     opts.Gatherer,
		jwtSecret:    []byte(opts.JWTSecret),
		corsOrigins:  opts.CORSOrigins,
		log:          opts.Log,
		now:          time.Now,
		router:       chi.NewRouter(),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewTestManager()
	}
	if s.loginPerMin <= 0 {
		s.loginPerMin = 10
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS(s.corsOrigins))

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.With(RateLimit(s.limiter, "login", s.loginPerMin, s.metrics)).Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.jwtSecret))

			r.Get("/today", s.handleToday)

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", s.handleListTemplates)
				r.Post("/", s.handleCreateTemplate)
				r.Get("/{id}", s.handleGetTemplate)
				r.Put("/{id}", s.handleReplaceTemplate)
				r.Delete("/{id}", s.handleDeleteTemplate)
				r.Post("/{id}/exercises", s.handleAddExercise)
				r.Delete("/{id}/exercises/{ex}", s.handleRemoveExercise)
				r.Post("/{id}/exercises/{ex}/sets", s.handleAddSet)
				r.Post("/{id}/exercises/{ex}/quick-sets", s.handleQuickSets)
				r.Delete("/{id}/exercises/{ex}/sets/{set}", s.handleRemoveSet)
			})

			r.Route("/schedule", func(r chi.Router) {
				r.Get("/", s.handleGetSchedule)
				r.Put("/", s.handleReplaceSchedule)
				r.Post("/edit", s.handleBeginScheduleEdit)
				r.Delete("/edit", s.handleCancelScheduleEdit)
				r.Patch("/edit/days/{day}", s.handleEditScheduleDay)
				r.Post("/edit/save", s.handleSaveSchedule)
			})

			r.Route("/session", func(r chi.Router) {
				r.Get("/", s.handleSessionSnapshot)
				r.Delete("/", s.handleCancelSession)
				r.Post("/start", s.handleStartSession)
				r.Post("/exercises/{ex}/sets/{set}/toggle", s.handleToggleSet)
				r.Put("/exercises/{ex}/sets/{set}", s.handleUpdateSet)
				r.Post("/rest/stop", s.handleStopRest)
				r.Post("/save", s.handleRequestSave)
				r.Delete("/save", s.handleCancelSave)
				r.Post("/confirm", s.handleConfirmSave)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", s.handleQuerySessions)
				r.Post("/cardio", s.handleSaveCardio)
				r.Post("/import/alpha", s.handleAlphaImport)
				r.Get("/import/logs", s.handleImportLogs)
				r.Get("/{id}", s.handleGetSession)
				r.Delete("/{id}", s.handleDeleteSession)
			})

			r.Route("/measurements", func(r chi.Router) {
				r.Get("/", s.handleListMeasurements)
				r.Post("/", s.handleCreateMeasurement)
				r.Put("/{id}", s.handleUpdateMeasurement)
				r.Delete("/{id}", s.handleDeleteMeasurement)
				r.Get("/sources", s.handleListSources)
				r.Post("/sources", s.handleCreateSource)
				r.Delete("/sources/{id}", s.handleDeleteSource)
				r.Get("/fields", s.handleListFields)
				r.Post("/fields", s.handleCreateField)
				r.Delete("/fields/{id}", s.handleDeleteField)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/training", s.handleTrainingReport)
				r.Get("/intensity", s.handleIntensityReport)
				r.Get("/measurements", s.handleMeasurementReport)
				r.Get("/stats", s.handleStats)
			})

			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handlePutProfile)
			r.Delete("/account/data", s.handleDeleteUserData)
			r.Delete("/account", s.handleDeleteAccount)
		})
	})
}

// SetStatic serves the web client from dir.
// Unmatched routes serve index.html for client-side routing.
func (s *Server) SetStatic(dir string) {
	root := os.DirFS(dir)
	fileServer := http.FileServerFS(root)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean(r.URL.Path)[1:]
		if f, err := root.Open(name); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
