package printing

// PrintResponse is returned to the surface after a print submission
type PrintResponse struct {
	Success     bool   `json:"success"`
	PDFPath     string `json:"pdfPath,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
	ShouldClose bool   `json:"shouldClose"`
}

// PrinterResponse is one entry of the printer picker
type PrinterResponse struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// ListPrintersResponse wraps the printer list
type ListPrintersResponse struct {
	Printers []PrinterResponse `json:"printers"`
}
