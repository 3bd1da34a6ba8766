package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api/types"
)

// Get handles version requests
func Get(deps *types.Dependencies) gin.HandlerFunc {
	build := types.BuildInfo{Version: "dev"}
	if deps != nil && deps.Build.Version != "" {
		build = deps.Build
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Stream Recorder",
			"version":     build.Version,
			"commit":      build.GitCommit,
			"build_date":  build.BuildDate,
			"description": "Records live audio streams into stored episodes",
			"status":      "running",
		})
	}
}
