package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"video-dashboard/internal/dashboard"
	"video-dashboard/internal/shared/config"
	"video-dashboard/internal/shared/metrics"
	"video-dashboard/internal/shared/server/middleware"
	"video-dashboard/internal/shared/server/respond"
)

// Rate limit groups.
const (
	rateGroupRead   = "READ"
	rateGroupSubmit = "SUBMIT"
)

// RouterDeps are the handlers mounted by NewRouter.
type RouterDeps struct {
	Config    config.Config
	Dashboard *dashboard.Handler
	// Now overrides the rate limiter clock in tests.
	Now func() time.Time
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	api := r.Group("/api")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			rateGroupRead:   {Rate: 20, Burst: 60},
			rateGroupSubmit: {Rate: 0.5, Burst: 5},
		},
		DefaultGroup: rateGroupRead,
		GroupFor:     rateGroupFor,
		Limiter:      middleware.NewRateLimiter(deps.Now),
	}))
	if deps.Dashboard != nil {
		deps.Dashboard.RegisterRoutes(api)
		deps.Dashboard.RegisterLive(r)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/analyses" {
		return rateGroupSubmit
	}
	return rateGroupRead
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
