package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appsurface "github.com/printbridge/companion/internal/application/surface"
	"github.com/printbridge/companion/internal/domain/shared"
	"github.com/printbridge/companion/internal/infrastructure/logger"
	"github.com/printbridge/companion/internal/interfaces/http/dto"
	"github.com/printbridge/companion/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response with body as is
func (h *BaseHandler) Success(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// Error sends a flat error response
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithCode(code, message))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError logs err and sends a 500 without any detail
func (h *BaseHandler) InternalError(c *gin.Context, err error) {
	logger.GetGinLogger(c).Error("Request failed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.MsgInternalError))
}

// HandleError converts an error into the matching response. Domain errors
// keep their message; anything unrecognised becomes an opaque 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}
	if errors.Is(err, appsurface.ErrSurfaceUnavailable) {
		logger.GetGinLogger(c).Warn("Surface unavailable", zap.Error(err))
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeSurfaceUnavailable, appsurface.ErrSurfaceUnavailable.Error())
		return
	}

	h.InternalError(c, err)
}

// BindJSON binds the request body into obj and answers 400 on failure.
// It returns false when the handler should stop.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.HandleError(c, err)
		return false
	}
	if msg, ok := middleware.FormatValidationError(err); ok {
		h.BadRequest(c, msg)
		return false
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "request body exceeds maximum allowed size")
		return false
	}
	h.BadRequest(c, "request body is not valid JSON")
	return false
}
