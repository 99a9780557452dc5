package handler

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/shell.html
var shellPage []byte

// ShellHandler serves the built-in UI loaded into surface windows when no
// external UI is configured
type ShellHandler struct{}

// NewShellHandler creates a new ShellHandler
func NewShellHandler() *ShellHandler {
	return &ShellHandler{}
}

// Page serves the shell document
func (h *ShellHandler) Page(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", shellPage)
}
