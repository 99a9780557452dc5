package printing

import "strings"

const maxCopies = 99

// PrintRequest is what the preview surface submits when the user prints
type PrintRequest struct {
	URL           string
	PaperSize     PaperSize
	PrintSelector string
	Copies        int
	PrinterName   string
	OutputType    OutputType
	Rotate180     bool
	Side          Side
}

// Normalize fills defaults for optional fields
func (r *PrintRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.PrinterName = strings.TrimSpace(r.PrinterName)
	r.PrintSelector = strings.TrimSpace(r.PrintSelector)
	if r.PrintSelector == "" {
		r.PrintSelector = DefaultPrintSelector
	}
	if r.Copies == 0 {
		r.Copies = 1
	}
	if r.OutputType == "" {
		r.OutputType = OutputTypePDF
	}
	if r.PaperSize.Name == "" {
		r.PaperSize.Name = DefaultPaperSizeName
	}
}

// Validate checks the request after Normalize has run
func (r *PrintRequest) Validate() error {
	if r.URL == "" {
		return ErrMissingURL
	}
	if !isAbsoluteURL(r.URL) {
		return ErrInvalidURL
	}
	if !r.PaperSize.IsValid() {
		return ErrInvalidPaperSize
	}
	if !r.OutputType.IsValid() {
		return ErrInvalidOutputType
	}
	if r.OutputType == OutputTypePrinter && r.PrinterName == "" {
		return ErrMissingPrinterName
	}
	if r.Copies < 1 || r.Copies > maxCopies {
		return ErrInvalidCopies
	}
	if !r.Side.IsValid() {
		return ErrInvalidSide
	}
	return nil
}

// ShouldClose reports whether the surface can be dismissed once this
// request completes. The front of a two-sided job keeps it open so the
// user can flip the paper and print the back.
func (r *PrintRequest) ShouldClose() bool {
	return r.Side != SideFront
}
