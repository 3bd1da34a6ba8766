package objects

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api/types"
	"github.com/killallgit/stream-recorder/internal/storage"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
)

// List returns the objects stored in a container, newest first
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		container := c.Param("container")
		if err := storage.ValidateName("container", container); err != nil {
			c.JSON(types.NewErrorResponse(apperrors.ValidationError("container", err.Error())))
			return
		}

		objects, err := deps.Store.List(c.Request.Context(), container)
		if err != nil {
			c.JSON(types.NewErrorResponse(apperrors.ExternalServiceError("storage", err)))
			return
		}

		sort.SliceStable(objects, func(i, j int) bool {
			return objects[i].LastModified.After(objects[j].LastModified)
		})

		c.JSON(http.StatusOK, types.ObjectsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Container:    container,
			Objects:      objects,
			Count:        len(objects),
		})
	}
}
