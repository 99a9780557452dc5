package handler

import (
	"github.com/printbridge/companion/internal/interfaces/http/router"
)

// SystemRoutes creates the liveness and version routes
func SystemRoutes(h *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "")
	group.GET("/status", h.Status)
	group.GET("/version", h.Version)
	return group
}

// IngestRoutes creates the route pages post jobs to
func IngestRoutes(h *IngestHandler) *router.DomainGroup {
	return router.NewDomainGroup("ingest", "").
		POST("/send-urls", h.SendURLs)
}

// PrintRoutes creates the print submission routes used by the shell
func PrintRoutes(h *PrintHandler) *router.DomainGroup {
	group := router.NewDomainGroup("print", "")
	group.POST("/print", h.Print)
	group.GET("/printers", h.ListPrinters)
	return group
}

// SurfaceRoutes creates the working surface control routes
func SurfaceRoutes(h *SurfaceHandler) *router.DomainGroup {
	group := router.NewDomainGroup("surface", "/surface")
	group.GET("", h.State)
	group.POST("", h.Request)
	group.POST("/close", h.Close)
	return group
}

// UIRoutes creates the routes serving the embedded shell and its previews
func UIRoutes(shell *ShellHandler, previews *PreviewHandler) *router.DomainGroup {
	group := router.NewDomainGroup("ui", "")
	group.GET("/shell", shell.Page)
	group.Group("previews", "/previews").GET("/:name", previews.Get)
	return group
}
