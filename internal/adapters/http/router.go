package http

import (
	"net/http"

	"github.com/dkeye/srsrtc/internal/adapters/signal"
	"github.com/dkeye/srsrtc/internal/app/orch"
	"github.com/dkeye/srsrtc/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CORSMiddleware lets browser SDKs on other origins reach the API, as SRS does.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SetupRouter serves the SRS-compatible rtc/v1 signaling API backed by o.
func SetupRouter(cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())

	limiter := NewClientRateLimiter(cfg.RateLimit, cfg.RateInterval)
	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Int("rate_limit", cfg.RateLimit).Msg("router setup")

	r.POST(signal.PathPublish, limiter.Middleware(), func(c *gin.Context) {
		var req signal.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("bad publish payload")
			c.JSON(http.StatusOK, signal.Response{Code: orch.CodeBadRequest, Server: o.ServerID})
			return
		}
		c.JSON(http.StatusOK, o.Publish(c.Request.Context(), req))
	})

	r.POST(signal.PathPlay, limiter.Middleware(), func(c *gin.Context) {
		var req signal.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("bad play payload")
			c.JSON(http.StatusOK, signal.Response{Code: orch.CodeBadRequest, Server: o.ServerID})
			return
		}
		c.JSON(http.StatusOK, o.Play(c.Request.Context(), req))
	})

	api := r.Group("/api/v1")

	// GET /api/v1/streams/: published streams and their player counts
	api.GET("/streams/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"code":    orch.CodeOK,
			"server":  o.ServerID,
			"streams": o.Streams(),
		})
	})

	return r
}
