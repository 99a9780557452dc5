package printing

import (
	"context"
	"errors"
	"time"

	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/domain/shared"
)

// RenderRequest describes one page to convert into a fixed-size PDF
type RenderRequest struct {
	// URL of the page to load
	URL string
	// Selector of the element to isolate; fallbacks are tried when it does not match
	Selector string
	// PaperSize is the exact output page size in millimeters
	PaperSize printing.PaperSize
	// Rotate180 turns the isolated element upside down
	Rotate180 bool
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	// PDFData is the raw PDF file content
	PDFData []byte
	// MatchedSelector is the selector that located the print target
	MatchedSelector string
	// ReadySignal names the event that ended the readiness race
	ReadySignal string
	// RenderDuration is how long the rendering took
	RenderDuration time.Duration
}

// PDFRenderer renders a live page to PDF
type PDFRenderer interface {
	// Render loads the page, isolates the print target and prints it
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	// Close releases any resources held by the renderer
	Close() error
}

// RenderError represents a failure in the render or dispatch pipeline.
// Code is one of the printing.Code* values.
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode extracts the pipeline code from err, looking at RenderError first
// and then at domain errors. It returns "" for unclassified errors.
func ErrorCode(err error) string {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code
	}
	return shared.CodeOf(err)
}

// IsRenderError reports whether err carries the given pipeline code
func IsRenderError(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
