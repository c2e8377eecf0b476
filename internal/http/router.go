// Package httpapi wires the HTTP transport (Gin) to the catalog service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, error responses, panic recovery,
// metrics, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Every failure leaves through the central ErrorResponder
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/tbourn/go-catalog-api/docs"
	"github.com/tbourn/go-catalog-api/internal/apperr"
	"github.com/tbourn/go-catalog-api/internal/config"
	"github.com/tbourn/go-catalog-api/internal/domain"
	"github.com/tbourn/go-catalog-api/internal/events"
	"github.com/tbourn/go-catalog-api/internal/http/handlers"
	"github.com/tbourn/go-catalog-api/internal/http/middleware"
	"github.com/tbourn/go-catalog-api/internal/services"
)

// UserStore resolves users for the admin check.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// IdempotencyStore persists and replays create outcomes.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, userID, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, userID, key, productID, productName string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// Deps are the stores and sinks the routes run against. Events may be nil.
type Deps struct {
	Products    services.ProductStore
	Users       UserStore
	Idempotency IdempotencyStore
	Events      events.Publisher
}

var corsAllowHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	middleware.UserIDHeader, middleware.APIKeyHeader, middleware.HeaderIdempotencyKey,
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine, then mounts the product API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: request-scoped structured logs
//  4. Metrics (outside the responder so error statuses are counted)
//  5. Gzip (outside the responder so error bodies are compressed too)
//  6. ErrorResponder: answers forwarded errors
//  7. Recovery: panics become generic 500s
//  8. Body size limiter
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per client IP, bypass on replay)
//  11. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.ErrorResponder())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		deps.Idempotency.GetIdempotency,
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Location", "Content-Length"},
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
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     corsAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Location", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		middleware.Forward(c, apperr.NotFound("Route"))
	})
	r.NoMethod(func(c *gin.Context) {
		middleware.Forward(c, apperr.New("Method not allowed", http.StatusMethodNotAllowed))
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	svc := services.NewProductService(deps.Products, deps.Events)
	if cfg.DefaultPageSize > 0 {
		svc.DefaultLimit = cfg.DefaultPageSize
	}
	if cfg.MaxPageSize > 0 {
		svc.MaxLimit = cfg.MaxPageSize
	}

	h := handlers.New(svc, deps.Idempotency, handlers.Options{
		BasePath:       cfg.APIBasePath,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	r.GET("/", h.Root)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/stats", h.ProductStats)
		api.GET("/products/:id", h.GetProduct)
		api.POST("/products", middleware.RequireAdmin(deps.Users.GetUser), h.CreateProduct)
		api.PUT("/products/:id", middleware.RequireAPIKey(cfg.APIKey), h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)
	}
}

// limitBody caps the request body size for all endpoints to maxBytes using
// http.MaxBytesReader. Requests exceeding the cap cause downstream body reads
// to error.
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
