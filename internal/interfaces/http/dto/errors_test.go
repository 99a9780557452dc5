package dto

import (
	"net/http"
	"testing"

	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeSurfaceUnavailable, http.StatusServiceUnavailable},
		{printing.CodeInvalidJob, http.StatusBadRequest},
		{printing.CodeLoadTimeout, http.StatusGatewayTimeout},
		{printing.CodeReadyTimeout, http.StatusGatewayTimeout},
		{printing.CodeTargetNotFound, http.StatusUnprocessableEntity},
		{printing.CodeTransformFailed, http.StatusUnprocessableEntity},
		{printing.CodeRenderFailed, http.StatusBadGateway},
		{printing.CodeDispatchFailed, http.StatusBadGateway},
		{printing.CodePersistenceFailed, http.StatusInternalServerError},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("boom")
	assert.False(t, resp.Success)
	assert.Equal(t, "boom", resp.Error)
	assert.Empty(t, resp.Code)

	resp = NewErrorResponseWithCode(printing.CodeRenderFailed, "no pdf")
	assert.False(t, resp.Success)
	assert.Equal(t, printing.CodeRenderFailed, resp.Code)
}
