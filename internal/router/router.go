package router

import (
	"net/http"
	"strings"

	"airdrop-backend/internal/config"
	"airdrop-backend/internal/handlers"
	"airdrop-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SetupRouter wires middleware and every route of the service
func SetupRouter(cfg *config.Config, airdrop *handlers.AirdropHandler, ws *handlers.WebSocketHandler) *gin.Engine {
	r := gin.New()
	// gin trusts every proxy by default, which lets clients spoof X-Forwarded-For
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logrus.WithError(err).Warn("⚠️ Invalid server.trustedProxies, trusting no proxy")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), requestLogger())
	r.Use(middleware.CORS(cfg.CORS))

	metricsGuard := middleware.NewLocalhostOnly(logrus.StandardLogger(), cfg.Metrics.AllowedIPs)

	// ============ Check ============
	r.GET("/ping", handlers.PingHandler)
	r.GET("/health", handlers.HealthCheckHandler)

	// ============ Prometheus Metrics ============
	r.GET("/metrics", metricsGuard.Restrict(), gin.WrapH(promhttp.Handler()))

	// ============ API Routes ============
	SetupAirdropRoutes(r, airdrop, ws)

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{
				"message":    "Endpoint not found",
				"path":       path,
				"suggestion": "Check /api/airdrop endpoints for available APIs",
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"message": "API endpoint not found",
			"path":    path,
		})
	})

	return r
}

// SetupAirdropRoutes registers /api/airdrop
func SetupAirdropRoutes(r *gin.Engine, airdrop *handlers.AirdropHandler, ws *handlers.WebSocketHandler) {
	api := r.Group("/api/airdrop")
	{
		steps := api.Group("/steps")
		steps.POST("", airdrop.CreateStepHandler)
		steps.GET("/:id", airdrop.GetStepHandler)
		steps.POST("/:id/recipients", airdrop.AddRecipientHandler)
		steps.DELETE("/:id/recipients/:address", airdrop.RemoveRecipientHandler)
		steps.POST("/:id/submit", airdrop.SubmitStepHandler)
		steps.POST("/:id/back", airdrop.BackHandler)
		steps.GET("/:id/export", airdrop.ExportHandler)
		steps.GET("/:id/ws", ws.HandleStepWebSocket)

		api.POST("/merkle", airdrop.BuildMerkleHandler)
		api.POST("/merkle/proof", airdrop.MerkleProofHandler)
		api.POST("/amount", airdrop.AmountHandler)
		api.GET("/window", airdrop.WindowHandler)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logrus.WithFields(logrus.Fields{
			"path":        c.Request.URL.Path,
			"method":      c.Request.Method,
			"status":      c.Writer.Status(),
			"remote_addr": c.ClientIP(),
		}).Debug("🌐 Request handled")
	}
}
