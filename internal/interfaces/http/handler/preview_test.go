package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/companion/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
)

func newUIEngine(previews *stubPreviews) *gin.Engine {
	engine := gin.New()
	router.NewRouter(engine).Register(UIRoutes(NewShellHandler(), NewPreviewHandler(previews))).Setup()
	return engine
}

func TestPreviewHandler_Get(t *testing.T) {
	engine := newUIEngine(&stubPreviews{files: map[string]string{"preview-1.pdf": "%PDF-1.7 body"}})

	t.Run("streams the pdf inline", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/previews/preview-1.pdf", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `inline; filename="preview-1.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		assert.Equal(t, "%PDF-1.7 body", w.Body.String())
	})

	t.Run("unknown file is 404", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/previews/other.pdf", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"preview not found","code":"NOT_FOUND"}`, w.Body.String())
	})
}

func TestShellHandler_Page(t *testing.T) {
	engine := newUIEngine(&stubPreviews{})

	w := doJSON(t, engine, http.MethodGet, "/shell", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "printbridgeEmit")
	assert.Contains(t, w.Body.String(), `on("urls-received"`)
}
