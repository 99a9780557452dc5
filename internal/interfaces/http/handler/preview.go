package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/companion/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// PreviewOpener opens stored preview PDFs by base name
type PreviewOpener interface {
	OpenPreview(ctx context.Context, name string) (io.ReadCloser, error)
}

// PreviewHandler serves preview PDFs to the shell page
type PreviewHandler struct {
	BaseHandler
	previews PreviewOpener
}

// NewPreviewHandler creates a new PreviewHandler
func NewPreviewHandler(previews PreviewOpener) *PreviewHandler {
	return &PreviewHandler{previews: previews}
}

// Get streams one preview PDF. Unknown or unsafe names answer 404.
func (h *PreviewHandler) Get(c *gin.Context) {
	name := c.Param("name")
	file, err := h.previews.OpenPreview(c.Request.Context(), name)
	if err != nil {
		logger.GetGinLogger(c).Debug("Preview not served", zap.String("name", name), zap.Error(err))
		h.NotFound(c, "preview not found")
		return
	}
	defer file.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", file, map[string]string{
		"Content-Disposition": `inline; filename="` + name + `"`,
		"Cache-Control":       "no-store",
	})
}
