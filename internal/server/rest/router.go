package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/weatherdash/internal/logging"
	"github.com/dmitrijs2005/weatherdash/internal/server/auth"
	"github.com/dmitrijs2005/weatherdash/internal/server/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps are the collaborators of the HTTP API.
type RouterDeps struct {
	Accounts    Accounts
	Gate        *auth.Gate
	Logger      logging.Logger
	Metrics     *observability.Metrics
	Registry    *prometheus.Registry
	Ready       observability.ReadinessChecker
	CORSOrigins []string
}

// NewRouter builds the gin engine serving the account API, the health
// probes and /metrics.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Logger))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	h := NewAccountHandler(d.Accounts, d.Logger)

	api := r.Group("/api", LimitBody(MaxBodyBytes))
	api.POST("/users", h.Register)
	api.POST("/auth", h.Authenticate)

	protected := api.Group("", RequireAuth(d.Gate, d.Logger, d.Metrics))
	protected.GET("/users/me", h.Me)

	r.GET("/healthz/liveness", func(c *gin.Context) {
		c.String(http.StatusOK, "ok\n")
	})
	r.GET("/healthz/readiness", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c.Request.Context()); err != nil {
				d.Logger.Warn(c.Request.Context(), "readiness check failed", "error", err.Error())
				c.String(http.StatusServiceUnavailable, "not ready\n")
				return
			}
		}
		c.String(http.StatusOK, "ok\n")
	})
	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(observability.MetricsHandler(d.Registry)))
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
