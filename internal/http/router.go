// Package httpapi wires the HTTP transport (Gin) to the entity store, the
// application services, middleware and route handlers. It centralizes
// cross-cutting concerns such as tracing, correlation IDs, redacted access
// logs, panic recovery, metrics, CORS, security headers, idempotent replays
// and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic router setup; all dependencies injected
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
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/character-hub/internal/config"
	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/http/handlers"
	"github.com/tbourn/character-hub/internal/http/middleware"
	"github.com/tbourn/character-hub/internal/provider"
	"github.com/tbourn/character-hub/internal/repo"
	"github.com/tbourn/character-hub/internal/services"
	"github.com/tbourn/character-hub/internal/store"
)

// blobRepoShim adapts the repository free functions to services.BlobRepo.
type blobRepoShim struct{}

// PutBlob proxies repo.PutBlob.
func (blobRepoShim) PutBlob(ctx context.Context, db *gorm.DB, key string, payload []byte) error {
	return repo.PutBlob(ctx, db, key, payload)
}

// GetBlob proxies repo.GetBlob.
func (blobRepoShim) GetBlob(ctx context.Context, db *gorm.DB, key string) (*domain.Blob, error) {
	return repo.GetBlob(ctx, db, key)
}

// DeleteBlob proxies repo.DeleteBlob.
func (blobRepoShim) DeleteBlob(ctx context.Context, db *gorm.DB, key string) error {
	return repo.DeleteBlob(ctx, db, key)
}

// ListBlobKeys proxies repo.ListBlobKeys.
func (blobRepoShim) ListBlobKeys(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.ListBlobKeys(ctx, db)
}

// Services bundles the application services behind the HTTP API.
type Services struct {
	Chats       *services.ChatService
	Data        *services.DataService
	Providers   *services.ProviderService
	Transcripts *services.TranscriptService
}

// NewServices builds the services over a shared store, database and provider
// gateway.
func NewServices(db *gorm.DB, st *store.Store, gw *provider.Gateway, cfg config.Config, log zerolog.Logger) *Services {
	shim := blobRepoShim{}
	return &Services{
		Chats:       services.NewChatService(st, gw, cfg.Chat, log.With().Str("component", "chat").Logger()),
		Data:        services.NewDataService(db, shim, st, cfg.Storage, log.With().Str("component", "data").Logger()),
		Providers:   services.NewProviderService(db, shim, gw, cfg.Storage.APIKeysKey, log.With().Str("component", "providers").Logger()),
		Transcripts: services.NewTranscriptService(st),
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: structured logs with redaction
//  4. Recovery: capture panics after logger
//  5. Body size limiter (larger for snapshot imports)
//  6. Metrics
//  7. Idempotent replays (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, st *store.Store, svcs *Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.AccessLog(middleware.LogOptions{
		MaskHeaders: []string{"Anthropic-Version"},
		QuietPaths:  []string{"/health", "/metrics"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limits
	importPath := joinPath(cfg.APIBasePath, "/data/import")
	r.Use(limitBodyExcept(cfg.MaxBodyBytes, map[string]int64{importPath: cfg.Storage.MaxImportBytes}))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotent replays of unsafe requests
	idem := middleware.NewIdempotencyCache(middleware.IdempotencyOptions{MaxLen: 200})
	r.Use(idem.Handler())

	// 8) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP(), "/health", "/metrics")
	r.Use(rl.Handler())

	// 9) CORS posture (allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "Content-Disposition", middleware.HeaderIdempotentReplay}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS).
	// HTML transcripts are served, so a strict CSP applies everywhere.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:            cfg.Security.EnableHSTS,
		HSTSMaxAge:            cfg.Security.HSTSMaxAge,
		EnablePolicy:          true,
		ContentSecurityPolicy: middleware.DefaultCSP,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": svcs.Providers.Current()})
	})

	h := handlers.New(st, svcs.Chats, svcs.Data, svcs.Providers, svcs.Transcripts)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Characters
		api.GET("/characters", h.ListCharacters)
		api.POST("/characters", h.CreateCharacter)
		api.GET("/characters/:id", h.GetCharacter)
		api.PATCH("/characters/:id", h.UpdateCharacter)
		api.DELETE("/characters/:id", h.DeleteCharacter)
		api.POST("/characters/:id/like", h.LikeCharacter)
		api.POST("/characters/:id/chats", h.StartChat)

		// Chats
		api.GET("/chats", h.ListChats)
		api.POST("/chats", h.CreateChat)
		api.GET("/chats/:id", h.GetChat)
		api.PATCH("/chats/:id", h.UpdateChat)
		api.DELETE("/chats/:id", h.DeleteChat)
		api.GET("/chats/:id/messages", h.ListMessages)
		api.POST("/chats/:id/messages", h.PostMessage)
		api.POST("/chats/:id/stream", h.StreamMessage)
		api.GET("/chats/:id/export", h.ExportChat)

		// Messages
		api.PATCH("/messages/:id", h.UpdateMessage)
		api.DELETE("/messages/:id", h.DeleteMessage)
		api.POST("/messages/:id/regenerate", h.RegenerateMessage)

		// Scenarios
		api.GET("/scenarios", h.ListScenarios)
		api.POST("/scenarios", h.CreateScenario)
		api.GET("/scenarios/:id", h.GetScenario)
		api.PATCH("/scenarios/:id", h.UpdateScenario)
		api.DELETE("/scenarios/:id", h.DeleteScenario)
		api.POST("/scenarios/:id/play", h.PlayScenario)

		// User, tags and search
		api.GET("/tags", h.ListTags)
		api.GET("/search", h.Search)
		api.GET("/user", h.GetUser)
		api.GET("/user/stats", h.GetUserStats)
		api.PATCH("/user/preferences", h.UpdatePreferences)

		// Data
		api.GET("/data/export", gzip.Gzip(gzip.DefaultCompression), h.ExportData)
		api.POST("/data/import", h.ImportData)
		api.POST("/data/save", h.SaveData)
		api.GET("/data/status", h.DataStatus)
		api.DELETE("/data", h.ClearData)

		// Providers
		api.GET("/providers", h.ListProviders)
		api.PUT("/providers/current", h.SetCurrentProvider)
		api.PUT("/providers/:name/key", h.SetProviderKey)
		api.POST("/providers/:name/test", h.TestProvider)
		api.GET("/providers/:name/models", h.ListProviderModels)
	}
}

// limitBodyExcept returns a Gin middleware that caps the request body size to
// maxBytes using http.MaxBytesReader, with per-path caps in perPath taking
// precedence. Requests exceeding the cap cause downstream body reads to
// error. A limit <= 0 disables the cap.
func limitBodyExcept(maxBytes int64, perPath map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if n, ok := perPath[c.Request.URL.Path]; ok {
			limit = n
		}
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
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

// joinPath appends p to the API prefix.
func joinPath(prefix, p string) string {
	return strings.TrimSuffix(prefix, "/") + p
}
