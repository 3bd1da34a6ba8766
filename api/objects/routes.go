package objects

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api/types"
)

// RegisterRoutes registers object store routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:container/objects", List(deps))
}
