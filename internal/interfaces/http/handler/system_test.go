package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/companion/internal/interfaces/http/dto"
	"github.com/printbridge/companion/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
)

func TestSystemHandler(t *testing.T) {
	engine := gin.New()
	router.NewRouter(engine).Register(SystemRoutes(NewSystemHandler("printbridge-companion", "v1.4.0"))).Setup()

	t.Run("status", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/status", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"running","version":"v1.4.0"}`, w.Body.String())
	})

	t.Run("version", func(t *testing.T) {
		w := doJSON(t, engine, http.MethodGet, "/version", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.VersionResponse](t, w)
		assert.Equal(t, "v1.4.0", resp.Version)
		assert.Equal(t, "printbridge-companion", resp.Name)
	})
}
