package printing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const defaultTransientGrace = 10 * time.Second

// Strategy names reported when no print tool handled the document
const (
	StrategyViewer  = "viewer"
	StrategyFolder  = "folder"
	StrategyDesktop = "desktop"
)

// DispatchResult describes where a rendered document ended up
type DispatchResult struct {
	// Path is the preview file; empty for documents sent to a printer
	Path string
	// Strategy names the tier that handled the document
	Strategy string
	// Warning is set when the document was saved but could not be shown
	Warning error
}

// DispatcherConfig configures a Dispatcher
type DispatcherConfig struct {
	// TransientGrace is how long a printed file is kept for a spooler still reading it (default 10s)
	TransientGrace time.Duration
	Logger         *zap.Logger
	Metrics        *telemetry.PrintMetrics
}

// Dispatcher hands rendered PDFs to a viewer or a printer
type Dispatcher struct {
	storage    *FileStorage
	opener     FileOpener
	strategies []PrintStrategy
	config     DispatcherConfig
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewDispatcher creates a dispatcher that tries strategies in order
func NewDispatcher(storage *FileStorage, opener FileOpener, strategies []PrintStrategy, cfg DispatcherConfig) *Dispatcher {
	if cfg.TransientGrace <= 0 {
		cfg.TransientGrace = defaultTransientGrace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		storage:    storage,
		opener:     opener,
		strategies: strategies,
		config:     cfg,
		logger:     logger,
		pending:    make(map[string]*time.Timer),
	}
}

// Preview saves pdf into the preview directory and opens it in the viewer.
// When the viewer fails the folder is revealed instead and the result carries
// a DISPATCH_FAILED warning naming it; the file itself is still saved.
func (d *Dispatcher) Preview(ctx context.Context, pdf []byte) (*DispatchResult, error) {
	path, err := d.storage.SavePreview(ctx, pdf)
	if err != nil {
		d.config.Metrics.RecordDispatch(ctx, string(printing.OutputTypePDF), StrategyViewer, telemetry.OutcomeFailure)
		return nil, err
	}

	if err := d.opener.Open(ctx, path); err != nil {
		dir := d.storage.PreviewDir()
		d.logger.Warn("viewer failed, revealing preview folder",
			zap.String("path", path),
			zap.Error(err))
		if revealErr := d.opener.Reveal(ctx, dir); revealErr != nil {
			d.logger.Warn("could not reveal preview folder", zap.String("dir", dir), zap.Error(revealErr))
		}

		d.config.Metrics.RecordDispatch(ctx, string(printing.OutputTypePDF), StrategyFolder, telemetry.OutcomeDegraded)
		return &DispatchResult{
			Path:     path,
			Strategy: StrategyFolder,
			Warning: NewRenderError(printing.CodeDispatchFailed,
				fmt.Sprintf("the PDF viewer could not be opened; the file was saved in %s", dir), err),
		}, nil
	}

	d.config.Metrics.RecordDispatch(ctx, string(printing.OutputTypePDF), StrategyViewer, telemetry.OutcomeSuccess)
	return &DispatchResult{Path: path, Strategy: StrategyViewer}, nil
}

// Print writes pdf to a transient file and walks the strategy chain. Each
// tier is tried only when the previous one is unavailable or failed. If every
// tier fails, the document is copied to the desktop and the returned
// DISPATCH_FAILED error names the copy.
func (d *Dispatcher) Print(ctx context.Context, pdf []byte, opts PrintOptions) (*DispatchResult, error) {
	path, err := d.storage.SaveTransient(ctx, pdf)
	if err != nil {
		return nil, err
	}

	var failures []error
	for _, strategy := range d.strategies {
		if !strategy.Available() {
			d.logger.Debug("print strategy unavailable", zap.String("strategy", strategy.Name()))
			continue
		}

		if err := strategy.Print(ctx, path, opts); err != nil {
			d.logger.Warn("print strategy failed",
				zap.String("strategy", strategy.Name()),
				zap.String("printer", opts.PrinterName),
				zap.Error(err))
			d.config.Metrics.RecordDispatch(ctx, string(printing.OutputTypePrinter), strategy.Name(), telemetry.OutcomeFailure)
			failures = append(failures, err)
			continue
		}

		d.logger.Info("document sent to printer",
			zap.String("strategy", strategy.Name()),
			zap.String("printer", opts.PrinterName),
			zap.Int("copies", opts.Copies))
		d.config.Metrics.RecordDispatch(ctx, string(printing.OutputTypePrinter), strategy.Name(), telemetry.OutcomeSuccess)
		d.scheduleRemoval(path)
		return &DispatchResult{Strategy: strategy.Name()}, nil
	}

	cause := errors.Join(failures...)
	if cause == nil {
		cause = ErrStrategyUnavailable
	}

	desktop, copyErr := d.storage.CopyToDesktop(path)
	if err := d.storage.Remove(path); err != nil {
		d.logger.Warn("failed to delete transient PDF", zap.String("path", path), zap.Error(err))
	}
	d.config.Metrics.RecordDispatch(ctx, string(printing.OutputTypePrinter), StrategyDesktop, telemetry.OutcomeFailure)

	if copyErr != nil {
		return nil, NewRenderError(printing.CodeDispatchFailed,
			"printing failed and the PDF could not be saved to the desktop", errors.Join(cause, copyErr))
	}
	return nil, NewRenderError(printing.CodeDispatchFailed,
		fmt.Sprintf("printing failed; the PDF was saved to %s", desktop), cause)
}

// scheduleRemoval deletes a printed transient file once the spooler had time to read it
func (d *Dispatcher) scheduleRemoval(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = time.AfterFunc(d.config.TransientGrace, func() {
		d.mu.Lock()
		delete(d.pending, path)
		d.mu.Unlock()

		if err := d.storage.Remove(path); err != nil {
			d.logger.Warn("failed to delete transient PDF", zap.String("path", path), zap.Error(err))
		}
	})
}

// Close removes transient files still waiting for their grace period
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for path, timer := range d.pending {
		if timer.Stop() {
			if err := d.storage.Remove(path); err != nil {
				errs = append(errs, err)
			}
		}
		delete(d.pending, path)
	}
	return errors.Join(errs...)
}

// PendingRemovals returns how many transient files are still scheduled for deletion
func (d *Dispatcher) PendingRemovals() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
