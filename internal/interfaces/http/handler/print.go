package handler

import (
	"github.com/gin-gonic/gin"
	printingapp "github.com/printbridge/companion/internal/application/printing"
	"github.com/printbridge/companion/internal/interfaces/http/dto"
)

// PrintHandler serves print submissions from the working surface
type PrintHandler struct {
	BaseHandler
	printService *printingapp.PrintService
}

// NewPrintHandler creates a new PrintHandler
func NewPrintHandler(printService *printingapp.PrintService) *PrintHandler {
	return &PrintHandler{printService: printService}
}

// Print godoc
// @Summary      Render and dispatch a page
// @Description  Renders the page to PDF and opens it in the viewer or sends it to a printer.
// @Description  Pipeline failures answer with success false and a readable error.
// @Tags         print
// @Accept       json
// @Produce      json
// @Param        request body dto.PrintRequest true "Print submission"
// @Success      200 {object} printingapp.PrintResponse
// @Failure      400 {object} dto.ErrorResponse
// @Failure      502 {object} printingapp.PrintResponse
// @Failure      504 {object} printingapp.PrintResponse
// @Router       /print [post]
func (h *PrintHandler) Print(c *gin.Context) {
	var req dto.PrintRequest
	if !h.BindJSON(c, &req) {
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.printService.Print(c.Request.Context(), domainReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !resp.Success {
		c.JSON(dto.GetHTTPStatus(resp.Code), resp)
		return
	}

	h.Success(c, resp)
}

// ListPrinters godoc
// @Summary      List local printers
// @Description  Best effort; an empty list when the OS cannot be queried
// @Tags         print
// @Produce      json
// @Success      200 {object} printingapp.ListPrintersResponse
// @Router       /printers [get]
func (h *PrintHandler) ListPrinters(c *gin.Context) {
	h.Success(c, h.printService.ListPrinters(c.Request.Context()))
}
