package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/shared"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// Envelope is the uniform API response shape
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError carries a stable machine code and an operator-facing message
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK writes a 200 response with data
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Accepted writes a 202 response for asynchronously executing work
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 response with the given message
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Error:   &APIError{Code: "INVALID_INPUT", Message: message},
	})
}

// Error maps a service error onto an HTTP status and the envelope.
// Raw causes never reach the client; only stable codes and messages do.
func Error(c *gin.Context, err error) {
	status, apiErr := classify(err)
	c.JSON(status, Envelope{Success: false, Error: apiErr})
}

func classify(err error) (int, *APIError) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return statusOfCode(domainErr.Code), &APIError{Code: domainErr.Code, Message: domainErr.Message}
	}

	switch {
	case errors.Is(err, vendor.ErrNotConfigured):
		return http.StatusNotFound, &APIError{Code: "NOT_CONFIGURED", Message: "no credentials configured for this vendor and scope"}
	case errors.Is(err, vendor.ErrSchemaNotFound):
		return http.StatusNotFound, &APIError{Code: "UNKNOWN_VENDOR", Message: "no schema declared for this vendor"}
	case errors.Is(err, feedsync.ErrNoActiveRun):
		return http.StatusNotFound, &APIError{Code: "NO_ACTIVE_RUN", Message: "no sync run in progress for this vendor and scope"}
	case errors.Is(err, feedsync.ErrAlreadyRunning):
		return http.StatusConflict, &APIError{Code: "ALREADY_RUNNING", Message: "a sync run is already in progress for this vendor and scope"}
	case errors.Is(err, feedsync.ErrStuckRun):
		return http.StatusConflict, &APIError{Code: "STUCK_RUN", Message: "the active run exceeded its maximum duration and requires a reset"}
	case errors.Is(err, feedsync.ErrRunNotResetable):
		return http.StatusConflict, &APIError{Code: "RUN_NOT_RESETABLE", Message: "only a run that exceeded its maximum duration can be reset"}
	case errors.Is(err, vendor.ErrInvalidVendorCode):
		return http.StatusBadRequest, &APIError{Code: "INVALID_VENDOR_CODE", Message: "vendor code has an invalid shape"}
	case errors.Is(err, vendor.ErrNoFields):
		return http.StatusBadRequest, &APIError{Code: "NO_FIELDS", Message: "credential update carries no fields"}
	default:
		return http.StatusInternalServerError, &APIError{Code: "INTERNAL", Message: "internal server error"}
	}
}

func statusOfCode(code string) int {
	switch code {
	case "NOT_FOUND", "NOT_CONFIGURED", "FEED_NOT_FOUND":
		return http.StatusNotFound
	case "ALREADY_EXISTS", "ALREADY_RUNNING", "STUCK_RUN", "RUN_NOT_RESETABLE", "INVALID_STATE":
		return http.StatusConflict
	case "INVALID_INPUT", "EMPTY_FEED", "MALFORMED_FEED":
		return http.StatusBadRequest
	case "FEED_AUTH_FAILED":
		return http.StatusBadGateway
	case "FEED_CONNECTION_FAILED":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
