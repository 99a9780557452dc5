package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/printbridge/companion/internal/application/session"
	"github.com/printbridge/companion/internal/interfaces/http/dto"
)

// IngestHandler accepts job descriptions from web pages
type IngestHandler struct {
	BaseHandler
	ingest *session.IngestService
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(ingest *session.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// SendURLs godoc
// @Summary      Submit a print job
// @Description  Stores the job under its session and wakes the working surface.
// @Description  A missing session id is generated.
// @Tags         ingest
// @Accept       json
// @Produce      json
// @Param        request body dto.SendURLsRequest true "Job description"
// @Success      200 {object} session.SubmitResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      500 {object} dto.ErrorResponse
// @Router       /send-urls [post]
func (h *IngestHandler) SendURLs(c *gin.Context) {
	var req dto.SendURLsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sub, err := req.ToSubmitRequest()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.ingest.Submit(c.Request.Context(), sub)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
