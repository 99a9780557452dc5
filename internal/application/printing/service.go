package printing

import (
	"context"
	"fmt"
	"sort"

	"github.com/printbridge/companion/internal/domain/printing"
	infra "github.com/printbridge/companion/internal/infrastructure/printing"
	"github.com/printbridge/companion/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Renderer converts a page into a PDF
type Renderer interface {
	Render(ctx context.Context, req *infra.RenderRequest) (*infra.RenderResult, error)
}

// Dispatcher hands a PDF to the viewer or a printer
type Dispatcher interface {
	Preview(ctx context.Context, pdf []byte) (*infra.DispatchResult, error)
	Print(ctx context.Context, pdf []byte, opts infra.PrintOptions) (*infra.DispatchResult, error)
}

// SurfaceHider hides the working surface once a job is done with it
type SurfaceHider interface {
	HideActive(ctx context.Context) error
}

// PrinterLister lists local print queues
type PrinterLister interface {
	ListPrinters(ctx context.Context) ([]infra.Printer, error)
}

// PrintService renders what the surface submits and dispatches the result
type PrintService struct {
	renderer   Renderer
	dispatcher Dispatcher
	surfaces   SurfaceHider
	printers   PrinterLister
	logger     *zap.Logger
}

// NewPrintService creates a new PrintService. surfaces and printers may be nil.
func NewPrintService(
	renderer Renderer,
	dispatcher Dispatcher,
	surfaces SurfaceHider,
	printers PrinterLister,
	logger *zap.Logger,
) *PrintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrintService{
		renderer:   renderer,
		dispatcher: dispatcher,
		surfaces:   surfaces,
		printers:   printers,
		logger:     logger,
	}
}

// Print renders req and sends it to the viewer or the named printer.
// Invalid requests return an error; every pipeline failure is reported in
// the response instead so the surface can show it.
func (s *PrintService) Print(ctx context.Context, req *printing.PrintRequest) (*PrintResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "PrintService", "Print",
		telemetry.WithAttribute(telemetry.SpanAttrURL, req.URL),
		telemetry.WithAttribute(telemetry.SpanAttrSelector, req.PrintSelector),
		telemetry.WithAttribute(telemetry.SpanAttrOutputType, req.OutputType.String()),
	)
	defer span.End()

	if req.OutputType == printing.OutputTypePrinter {
		telemetry.SetAttributes(span, telemetry.SpanAttrPrinter, req.PrinterName)
		if resp := s.checkPrinter(ctx, req.PrinterName); resp != nil {
			return resp, nil
		}
	}

	result, err := s.renderer.Render(ctx, &infra.RenderRequest{
		URL:       req.URL,
		Selector:  req.PrintSelector,
		PaperSize: req.PaperSize,
		Rotate180: req.Rotate180,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("render failed",
			zap.String("url", req.URL),
			zap.String("code", infra.ErrorCode(err)),
			zap.Error(err))
		return failure(err), nil
	}
	telemetry.AddEvent(span, "rendered", "bytes", len(result.PDFData), "selector", result.MatchedSelector)

	var resp *PrintResponse
	switch req.OutputType {
	case printing.OutputTypePrinter:
		resp, err = s.dispatchPrinter(ctx, req, result.PDFData)
	default:
		resp, err = s.dispatchPreview(ctx, result.PDFData)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("dispatch failed",
			zap.String("output_type", req.OutputType.String()),
			zap.String("printer", req.PrinterName),
			zap.Error(err))
		return failure(err), nil
	}

	resp.ShouldClose = req.ShouldClose()
	if resp.ShouldClose && s.surfaces != nil {
		if err := s.surfaces.HideActive(ctx); err != nil {
			s.logger.Warn("failed to hide surface after printing", zap.Error(err))
		}
	}

	telemetry.SetOK(span)
	return resp, nil
}

func (s *PrintService) dispatchPreview(ctx context.Context, pdf []byte) (*PrintResponse, error) {
	result, err := s.dispatcher.Preview(ctx, pdf)
	if err != nil {
		return nil, err
	}
	resp := &PrintResponse{Success: true, PDFPath: result.Path}
	if result.Warning != nil {
		resp.Message = userMessage(result.Warning)
		resp.Code = printing.CodeDispatchFailed
	}
	s.logger.Info("preview opened", zap.String("path", result.Path), zap.String("strategy", result.Strategy))
	return resp, nil
}

func (s *PrintService) dispatchPrinter(ctx context.Context, req *printing.PrintRequest, pdf []byte) (*PrintResponse, error) {
	result, err := s.dispatcher.Print(ctx, pdf, infra.PrintOptions{
		PrinterName: req.PrinterName,
		Copies:      req.Copies,
	})
	if err != nil {
		return nil, err
	}
	copies := "1 copy"
	if req.Copies > 1 {
		copies = fmt.Sprintf("%d copies", req.Copies)
	}
	if result.Strategy == infra.StrategyViewer {
		s.logger.Warn("no print tool took the job; opened it in the viewer",
			zap.String("printer", req.PrinterName))
		return &PrintResponse{
			Success: true,
			Message: fmt.Sprintf("The document was opened in the PDF viewer. Print %s to %s from there.", copies, req.PrinterName),
			Code:    printing.CodeDispatchFailed,
		}, nil
	}
	s.logger.Info("sent to printer",
		zap.String("printer", req.PrinterName),
		zap.Int("copies", req.Copies),
		zap.String("strategy", result.Strategy))
	return &PrintResponse{
		Success: true,
		Message: fmt.Sprintf("Sent %s to %s.", copies, req.PrinterName),
	}, nil
}

// checkPrinter rejects a printer name the OS does not know. An unavailable
// listing lets the request through; the strategy chain reports the outcome.
func (s *PrintService) checkPrinter(ctx context.Context, name string) *PrintResponse {
	if s.printers == nil {
		return nil
	}
	printers, err := s.printers.ListPrinters(ctx)
	if err != nil || len(printers) == 0 {
		return nil
	}
	for _, p := range printers {
		if p.Name == name {
			return nil
		}
	}
	s.logger.Warn("printer not found", zap.String("printer", name))
	return &PrintResponse{
		Error: fmt.Sprintf("Printer %q was not found.", name),
		Code:  printing.CodeDispatchFailed,
	}
}

// ListPrinters returns the local printers, default first. Failures yield an
// empty list.
func (s *PrintService) ListPrinters(ctx context.Context) *ListPrintersResponse {
	resp := &ListPrintersResponse{Printers: make([]PrinterResponse, 0)}
	if s.printers == nil {
		return resp
	}
	printers, err := s.printers.ListPrinters(ctx)
	if err != nil {
		s.logger.Warn("failed to list printers", zap.Error(err))
		return resp
	}
	for _, p := range printers {
		resp.Printers = append(resp.Printers, PrinterResponse{Name: p.Name, IsDefault: p.IsDefault})
	}
	sort.SliceStable(resp.Printers, func(i, j int) bool {
		return resp.Printers[i].IsDefault && !resp.Printers[j].IsDefault
	})
	return resp
}

func failure(err error) *PrintResponse {
	return &PrintResponse{
		Error: userMessage(err),
		Code:  infra.ErrorCode(err),
	}
}
