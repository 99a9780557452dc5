package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	appsurface "github.com/printbridge/companion/internal/application/surface"
	"github.com/printbridge/companion/internal/interfaces/http/dto"
	"github.com/printbridge/companion/internal/interfaces/protocol"
)

// SurfaceController is the part of the orchestrator the HTTP layer drives
type SurfaceController interface {
	RequestSurface(ctx context.Context, session string) (string, error)
	CloseActive(ctx context.Context)
	Snapshot() appsurface.Snapshot
}

// SurfaceHandler lets second instances and the shell page drive the
// working surface
type SurfaceHandler struct {
	BaseHandler
	surfaces SurfaceController
}

// NewSurfaceHandler creates a new SurfaceHandler
func NewSurfaceHandler(surfaces SurfaceController) *SurfaceHandler {
	return &SurfaceHandler{surfaces: surfaces}
}

// Request godoc
// @Summary      Show the working surface
// @Description  Blocks until the request is serviced. Without a session the current one is kept.
// @Tags         surface
// @Produce      json
// @Param        session query string false "Session to show"
// @Success      200 {object} dto.SurfaceResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      503 {object} dto.ErrorResponse
// @Router       /surface [post]
func (h *SurfaceHandler) Request(c *gin.Context) {
	session := c.Query("session")
	if session != "" && !protocol.ValidSession(session) {
		h.BadRequest(c, "invalid session id")
		return
	}

	shown, err := h.surfaces.RequestSurface(c.Request.Context(), session)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.SurfaceResponse{Success: true, Session: shown})
}

// Close godoc
// @Summary      Close the working surface
// @Description  Hides the surface unless the companion is quitting
// @Tags         surface
// @Produce      json
// @Success      200 {object} dto.SurfaceResponse
// @Router       /surface/close [post]
func (h *SurfaceHandler) Close(c *gin.Context) {
	h.surfaces.CloseActive(c.Request.Context())
	h.Success(c, dto.SurfaceResponse{Success: true})
}

// State returns the orchestrator slot state
func (h *SurfaceHandler) State(c *gin.Context) {
	h.Success(c, h.surfaces.Snapshot())
}
