package runs

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/stream-recorder/api/types"
	"github.com/killallgit/stream-recorder/internal/models"
	runsvc "github.com/killallgit/stream-recorder/internal/services/runs"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// List returns ledger rows newest first, optionally filtered by series and status
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > maxLimit {
				c.JSON(types.NewErrorResponse(apperrors.ValidationError("limit", "must be between 1 and 500")))
				return
			}
			limit = n
		}

		status := models.RunStatus(c.Query("status"))
		switch status {
		case "", models.RunStatusRunning, models.RunStatusCompleted, models.RunStatusFailed:
		default:
			c.JSON(types.NewErrorResponse(apperrors.ValidationError("status", "unknown run status")))
			return
		}

		runs, err := deps.Runs.List(c.Request.Context(), runsvc.Filter{
			SeriesName: c.Query("series"),
			Status:     status,
			Limit:      limit,
		})
		if err != nil {
			c.JSON(types.NewErrorResponse(err))
			return
		}

		c.JSON(http.StatusOK, types.RunsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Runs:         runs,
			Count:        len(runs),
		})
	}
}
