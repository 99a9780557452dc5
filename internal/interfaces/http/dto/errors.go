package dto

import (
	"net/http"

	"github.com/printbridge/companion/internal/domain/printing"
)

// Transport-level error codes. Pipeline failures reuse the domain codes.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeSurfaceUnavailable is used when no working surface could be produced
	ErrCodeSurfaceUnavailable = "SURFACE_UNAVAILABLE"
)

// MsgInternalError is the only detail a client sees for unexpected failures
const MsgInternalError = "internal error"

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeSurfaceUnavailable: http.StatusServiceUnavailable,

	printing.CodeInvalidJob:        http.StatusBadRequest,
	printing.CodeLoadTimeout:       http.StatusGatewayTimeout,
	printing.CodeReadyTimeout:      http.StatusGatewayTimeout,
	printing.CodeTargetNotFound:    http.StatusUnprocessableEntity,
	printing.CodeTransformFailed:   http.StatusUnprocessableEntity,
	printing.CodeRenderFailed:      http.StatusBadGateway,
	printing.CodeDispatchFailed:    http.StatusBadGateway,
	printing.CodePersistenceFailed: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
