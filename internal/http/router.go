// Package httpapi wires the HTTP transport (Gin) to the view-state holders,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/elderly-care-backend/docs"
	"github.com/tbourn/elderly-care-backend/internal/config"
	"github.com/tbourn/elderly-care-backend/internal/domain"
	"github.com/tbourn/elderly-care-backend/internal/http/handlers"
	"github.com/tbourn/elderly-care-backend/internal/http/middleware"
	"github.com/tbourn/elderly-care-backend/internal/live"
	"github.com/tbourn/elderly-care-backend/internal/repo"
	"github.com/tbourn/elderly-care-backend/internal/services"
)

// noteRepoShim adapts the repo free functions to services.NoteRepo.
type noteRepoShim struct{}

func (noteRepoShim) CreateNote(ctx context.Context, db *gorm.DB, text, date, tod string) (*domain.Note, error) {
	return repo.CreateNote(ctx, db, text, date, tod)
}

func (noteRepoShim) ListNotes(ctx context.Context, db *gorm.DB) ([]domain.Note, error) {
	return repo.ListNotes(ctx, db)
}

func (noteRepoShim) GetNote(ctx context.Context, db *gorm.DB, id int64) (*domain.Note, error) {
	return repo.GetNote(ctx, db, id)
}

func (noteRepoShim) DeleteNote(ctx context.Context, db *gorm.DB, n domain.Note) error {
	return repo.DeleteNote(ctx, db, n)
}

func (noteRepoShim) CountNotes(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountNotes(ctx, db)
}

func (noteRepoShim) ListNotesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Note, error) {
	return repo.ListNotesPage(ctx, db, offset, limit)
}

// patientInfoRepoShim adapts the repo free functions to services.PatientInfoRepo.
type patientInfoRepoShim struct{}

func (patientInfoRepoShim) CreatePatientInfo(ctx context.Context, db *gorm.DB, weight, height string) (*domain.PatientInfo, error) {
	return repo.CreatePatientInfo(ctx, db, weight, height)
}

func (patientInfoRepoShim) ListPatientInfo(ctx context.Context, db *gorm.DB) ([]domain.PatientInfo, error) {
	return repo.ListPatientInfo(ctx, db)
}

func (patientInfoRepoShim) GetPatientInfo(ctx context.Context, db *gorm.DB, id int64) (*domain.PatientInfo, error) {
	return repo.GetPatientInfo(ctx, db, id)
}

func (patientInfoRepoShim) DeletePatientInfo(ctx context.Context, db *gorm.DB, p domain.PatientInfo) error {
	return repo.DeletePatientInfo(ctx, db, p)
}

func (patientInfoRepoShim) CountPatientInfo(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountPatientInfo(ctx, db)
}

func (patientInfoRepoShim) ListPatientInfoPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.PatientInfo, error) {
	return repo.ListPatientInfoPage(ctx, db, offset, limit)
}

// idempotencyStore binds the idempotency repo functions to one store.
type idempotencyStore struct{ db *gorm.DB }

func (s idempotencyStore) Get(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, s.db, userID, scope, key, now)
}

func (s idempotencyStore) Create(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, s.db, userID, scope, key, resourceID, status, ttl)
}

// App bundles the view-state holders served over HTTP.
type App struct {
	Notes       *services.NotesService
	PatientInfo *services.PatientInfoService
	Medications *services.MedicationService
}

// NewApp builds the view-state holders over the application store db. The
// tracker must already be installed on db so the live lists follow writes.
func NewApp(db *gorm.DB, tracker *live.Tracker, sched services.ReminderScheduler, log zerolog.Logger) *App {
	deps := services.Deps{
		DB:              db,
		Tracker:         tracker,
		NoteRepo:        noteRepoShim{},
		PatientInfoRepo: patientInfoRepoShim{},
		Scheduler:       sched,
		Log:             log,
	}
	return &App{
		Notes:       services.MustNew[*services.NotesService](deps),
		PatientInfo: services.MustNew[*services.PatientInfoService](deps),
		Medications: services.MustNew[*services.MedicationService](deps),
	}
}

// Close stops the live projections; open streams end.
func (a *App) Close() {
	a.Notes.Close()
	a.PatientInfo.Close()
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger (also attaches the request-scoped logger)
//  4. Recovery
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator, before the limiter so replays bypass it
//  8. Rate limiter (event streams exempt)
//  9. Compression (event streams exempt)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, app *App, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiBase := cfg.APIBasePath
	idem := idempotencyStore{db: db}
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  func(c *gin.Context) string { return routeScope(apiBase, c.FullPath()) },
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := idem.Get(ctx, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	rl.Skip = middleware.SkipEventStreams
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/stream$`})))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      cfg.Security.NoStore,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(app.Notes, app.PatientInfo, app.Medications, idem)
	h.IdempotencyTTL = cfg.IdempotencyTTL

	api := groupWithPrefix(r, apiBase)
	{
		api.GET("/notes", h.ListNotes)
		api.POST("/notes", h.CreateNote)
		api.DELETE("/notes/:id", h.DeleteNote)
		api.GET("/notes/stream", h.StreamNotes)

		api.GET("/patient-info", h.ListPatientInfo)
		api.POST("/patient-info", h.CreatePatientInfo)
		api.DELETE("/patient-info/:id", h.DeletePatientInfo)
		api.GET("/patient-info/stream", h.StreamPatientInfo)

		api.GET("/medications", h.ListMedications)
		api.POST("/medications", h.ScheduleMedication)
		api.DELETE("/medications/:job_id", h.DeleteMedication)
	}
}

func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// Set ACAO even without an Origin header so plain health checks see it.
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// routeScope turns a matched route into an idempotency scope relative to the
// API base: "/api/v1/medications" becomes "medications".
func routeScope(base, route string) string {
	if base != "/" {
		route = strings.TrimPrefix(route, base)
	}
	return strings.TrimPrefix(route, "/")
}

// limitBody caps the request body at maxBytes; larger bodies fail to read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
