package runs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api/types"
)

// Get returns one run by its run id
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := deps.Runs.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(types.NewErrorResponse(err))
			return
		}

		c.JSON(http.StatusOK, types.RunResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Run:          run,
		})
	}
}
