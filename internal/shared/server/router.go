package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/analyses"
	"coverletter-backend/internal/coverletters"
	"coverletter-backend/internal/documents"
	"coverletter-backend/internal/services/health"
	"coverletter-backend/internal/shared/config"
	"coverletter-backend/internal/shared/metrics"
	"coverletter-backend/internal/shared/server/middleware"
	"coverletter-backend/internal/shared/server/respond"
)

const modelRateLimitGroup = "MODEL"

// RouterDeps contains handlers and configuration for routing.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	AnalysisHandler *analyses.Handler
	LetterHandler   *coverletters.Handler
	Health          *health.Service
	// Limiter overrides the rate limiter clock in tests.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Identity(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", healthHandler(deps.Health))

	// Routes that reach the model share one token bucket per caller.
	model := api.Group("")
	model.Use(middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: modelRateLimitGroup,
		Limiter:      deps.Limiter,
		Rules: map[string]middleware.RateLimitRule{
			modelRateLimitGroup: {Rate: deps.Config.RateLimitPerSecond, Burst: deps.Config.RateLimitBurst},
		},
	}))

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(model)
	}
	if deps.LetterHandler != nil {
		deps.LetterHandler.RegisterRoutes(api)
		deps.LetterHandler.RegisterModelRoutes(model)
	}

	return r
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		ok, checks := svc.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "checks": checks})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
