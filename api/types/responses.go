package types

import (
	"net/http"

	"github.com/killallgit/stream-recorder/internal/models"
	"github.com/killallgit/stream-recorder/internal/storage"
	apperrors "github.com/killallgit/stream-recorder/pkg/errors"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RunsResponse lists ledger rows, newest first
type RunsResponse struct {
	BaseResponse
	Runs  []*models.Run `json:"runs"`
	Count int           `json:"count"`
}

// RunResponse wraps a single ledger row
type RunResponse struct {
	BaseResponse
	Run *models.Run `json:"run"`
}

// ObjectsResponse lists the stored episodes of a container
type ObjectsResponse struct {
	BaseResponse
	Container string           `json:"container"`
	Objects   []storage.Object `json:"objects"`
	Count     int              `json:"count"`
}

// ErrorResponse carries an AppError's code and details
type ErrorResponse struct {
	BaseResponse
	Code    apperrors.ErrorCode    `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse converts err to a response and its HTTP status
func NewErrorResponse(err error) (int, ErrorResponse) {
	appErr, ok := apperrors.As(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{
			BaseResponse: BaseResponse{Status: StatusError, Message: "internal error"},
			Code:         apperrors.ErrCodeInternal,
		}
	}
	return appErr.GetHTTPCode(), ErrorResponse{
		BaseResponse: BaseResponse{Status: StatusError, Message: appErr.Message},
		Code:         appErr.Code,
		Details:      appErr.Details,
	}
}
