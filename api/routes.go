package api

import (
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/stream-recorder/api/health"
	"github.com/killallgit/stream-recorder/api/objects"
	"github.com/killallgit/stream-recorder/api/runs"
	"github.com/killallgit/stream-recorder/api/types"
	"github.com/killallgit/stream-recorder/api/version"
)

// RegisterRoutes registers all API routes. Run routes need the ledger and
// object routes need the store; each group is skipped when its dependency
// is missing.
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	if deps == nil {
		deps = &types.Dependencies{}
	}

	// Public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	engine.NoRoute(NotFoundHandler())

	v1 := engine.Group("/api/v1")

	if deps.Runs != nil {
		runsGroup := v1.Group("/runs")
		runsGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 10, 20))
		runs.RegisterRoutes(runsGroup, deps)
	}

	if deps.Store != nil {
		// Listing walks the store, so it gets a tighter limit
		containersGroup := v1.Group("/containers")
		containersGroup.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, 5, 10))
		objects.RegisterRoutes(containersGroup, deps)
	}

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
