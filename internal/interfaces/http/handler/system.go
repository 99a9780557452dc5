package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/printbridge/companion/internal/interfaces/http/dto"
)

// StatusRunning is what GET /status reports while the listener is up
const StatusRunning = "running"

// SystemHandler answers liveness and version probes
type SystemHandler struct {
	BaseHandler
	name    string
	version string
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string) *SystemHandler {
	return &SystemHandler{
		name:    name,
		version: version,
	}
}

// Status godoc
// @Summary      Liveness probe
// @Description  Used by pages and second instances to find a running companion
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.StatusResponse
// @Router       /status [get]
func (h *SystemHandler) Status(c *gin.Context) {
	h.Success(c, dto.StatusResponse{
		Status:  StatusRunning,
		Version: h.version,
	})
}

// Version godoc
// @Summary      Build version
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.VersionResponse
// @Router       /version [get]
func (h *SystemHandler) Version(c *gin.Context) {
	h.Success(c, dto.VersionResponse{
		Version: h.version,
		Name:    h.name,
	})
}
