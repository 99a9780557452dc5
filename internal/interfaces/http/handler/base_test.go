package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	appsurface "github.com/printbridge/companion/internal/application/surface"
	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "domain error keeps its message",
			err:        printing.ErrMissingURL,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"preview_url or print_url is required","code":"INVALID_JOB"}`,
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("submit: %w", printing.ErrInvalidPaperSize),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"paper width and height must be finite positive numbers","code":"INVALID_JOB"}`,
		},
		{
			name:       "surface unavailable",
			err:        appsurface.ErrSurfaceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unknown error is opaque",
			err:        errors.New("open /var/lib/secret: permission denied"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			var h BaseHandler
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			resp := decode[dto.ErrorResponse](t, w)
			assert.False(t, resp.Success)
		})
	}

	t.Run("nil writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		var h BaseHandler
		h.HandleError(c, nil)

		assert.False(t, c.Writer.Written())
	})
}
