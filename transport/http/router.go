package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/faucet/service"
	"go.uber.org/zap"
)

// RouterConfig holds the HTTP policy knobs
type RouterConfig struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies are the proxy IPs or CIDRs allowed to set the client IP
	// through forwarding headers. Empty trusts none.
	TrustedProxies []string
}

// DefaultRouterConfig matches the development frontend
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSOrigins:    []string{"http://localhost:5173"},
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, faucetService *service.FaucetService, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = DefaultRouterConfig().CORSOrigins
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(PrometheusMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
	})
	router.GET("/metrics", MetricsHandler())

	authHandlers := NewAuthHandlers(authService, logger)
	auth := router.Group("/auth")
	auth.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	{
		auth.POST("/message", authHandlers.Message)
		auth.POST("/signin", authHandlers.SignIn)
	}

	faucetHandlers := NewFaucetHandlers(faucetService)
	faucet := router.Group("/faucet")
	faucet.Use(AuthMiddleware(authService, logger))
	{
		faucet.POST("/claim", faucetHandlers.Claim)
		faucet.GET("/status", faucetHandlers.Status)
	}

	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, msgRouteNotFound)
	})

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
