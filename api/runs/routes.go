package runs

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api/types"
)

// RegisterRoutes registers run ledger routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.GET("/:id", Get(deps))
}
