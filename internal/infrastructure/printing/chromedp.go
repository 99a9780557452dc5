package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	defaultNavigationTimeout = 30 * time.Second
	defaultReadyTimeout      = 15 * time.Second
	defaultDOMReadyGrace     = time.Second
	defaultReleaseDelay      = 500 * time.Millisecond
)

// Readiness signals reported in RenderResult.ReadySignal
const (
	ReadyLoadEvent          = "load"
	ReadyFrameStopped       = "frame-stopped-loading"
	ReadyDOMContentAndGrace = "dom-content-loaded"
)

// ChromedpConfig contains configuration for the chromedp renderer
type ChromedpConfig struct {
	// NavigationTimeout bounds navigation plus readiness (default 30s)
	NavigationTimeout time.Duration
	// ReadyTimeout bounds the readiness race once navigation committed (default 15s)
	ReadyTimeout time.Duration
	// DOMReadyGrace is added after DOMContentLoaded before it counts as ready (default 1s)
	DOMReadyGrace time.Duration
	// SettleDelay lets fonts and late layout finish after readiness
	SettleDelay time.Duration
	// ReleaseDelay is how long a finished tab lingers before it is closed (default 500ms)
	ReleaseDelay time.Duration
	// ExecPath overrides the Chrome binary chromedp would discover
	ExecPath string
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for containers/root)
	NoSandbox bool
	// HideFormControls hides inputs and buttons in the output; Windows
	// print drivers rasterize native controls into the page otherwise
	HideFormControls bool
	Logger           *zap.Logger
	Metrics          *telemetry.PrintMetrics
}

// ChromedpRenderer renders pages to PDF in offscreen tabs of one shared
// headless Chrome. Each Render gets its own tab, which is always closed
// afterwards whatever the outcome.
type ChromedpRenderer struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedpRenderer creates a new chromedp-based PDF renderer.
// Chrome is started lazily on the first Render.
func NewChromedpRenderer(config *ChromedpConfig) (*ChromedpRenderer, error) {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.NavigationTimeout == 0 {
		config.NavigationTimeout = defaultNavigationTimeout
	}
	if config.ReadyTimeout == 0 {
		config.ReadyTimeout = defaultReadyTimeout
	}
	if config.DOMReadyGrace == 0 {
		config.DOMReadyGrace = defaultDOMReadyGrace
	}
	if config.ReleaseDelay == 0 {
		config.ReleaseDelay = defaultReleaseDelay
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromedpRenderer{
		config: config,
		logger: logger,
	}
	r.initAllocator()
	return r, nil
}

func (r *ChromedpRenderer) initAllocator() {
	if r.config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.config.RemoteURL)
		return
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if r.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.config.ExecPath))
	}

	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// browser returns the shared browser context, starting Chrome if it is not
// running or has exited since the last render.
func (r *ChromedpRenderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.allocCtx.Err() != nil {
		return nil, NewRenderError(printing.CodeRenderFailed, "renderer is closed", r.allocCtx.Err())
	}
	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return r.browserCtx, nil
	}

	ctx, cancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, NewRenderError(printing.CodeRenderFailed, "failed to start Chrome", err)
	}

	r.browserCtx, r.browserCancel = ctx, cancel
	r.logger.Info("headless Chrome started for rendering")
	return ctx, nil
}

// Render loads req.URL in a fresh tab and prints the isolated target to PDF
func (r *ChromedpRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if req == nil {
		return nil, NewRenderError(printing.CodeRenderFailed, "render request is nil", nil)
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, NewRenderError(printing.CodeRenderFailed, "render url is empty", nil)
	}
	if !req.PaperSize.IsValid() {
		return nil, NewRenderError(printing.CodeRenderFailed, "invalid paper size", printing.ErrInvalidPaperSize)
	}

	start := time.Now()
	result, err := r.render(req)
	duration := time.Since(start)
	r.config.Metrics.RecordRender(ctx, duration, ErrorCode(err))

	if err != nil {
		r.logger.Warn("render failed",
			zap.String("url", req.URL),
			zap.String("code", ErrorCode(err)),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}

	result.RenderDuration = duration
	r.logger.Info("PDF rendered successfully",
		zap.String("url", req.URL),
		zap.String("selector", result.MatchedSelector),
		zap.String("ready", result.ReadySignal),
		zap.Int("bytes", len(result.PDFData)),
		zap.Duration("duration", duration))
	return result, nil
}

// render runs the pipeline. The caller's context is deliberately not linked:
// a render that started always runs to completion or to its own timeouts.
func (r *ChromedpRenderer) render(req *RenderRequest) (*RenderResult, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer r.release(tabCancel)

	if err := chromedp.Run(tabCtx); err != nil {
		return nil, NewRenderError(printing.CodeRenderFailed, "failed to open render tab", err)
	}

	ready := r.listenReadiness(tabCtx)

	navCtx, navCancel := context.WithTimeout(tabCtx, r.config.NavigationTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, navigate(req.URL)); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(printing.CodeLoadTimeout,
				fmt.Sprintf("page did not load within %v", r.config.NavigationTimeout), err)
		}
		return nil, NewRenderError(printing.CodeRenderFailed, "page failed to load", err)
	}

	signal, err := r.waitReady(navCtx, ready)
	if err != nil {
		return nil, err
	}

	if err := sleepCtx(navCtx, r.config.SettleDelay); err != nil {
		return nil, NewRenderError(printing.CodeLoadTimeout, "page did not settle in time", err)
	}

	opCtx, opCancel := context.WithTimeout(tabCtx, r.config.NavigationTimeout)
	defer opCancel()

	matched, err := r.transform(opCtx, req)
	if err != nil {
		return nil, err
	}

	pdf, err := r.printToPDF(opCtx, req.PaperSize)
	if err != nil {
		return nil, err
	}

	return &RenderResult{
		PDFData:         pdf,
		MatchedSelector: matched,
		ReadySignal:     signal,
	}, nil
}

// navigate issues Page.navigate without waiting for the load event; readiness
// is decided by listenReadiness instead.
func navigate(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var res page.NavigateReturns
		if err := cdp.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res); err != nil {
			return err
		}
		if res.ErrorText != "" {
			return fmt.Errorf("navigation to %s failed: %s", url, res.ErrorText)
		}
		return nil
	})
}

// listenReadiness subscribes to the tab's page lifecycle events. The first
// signal to arrive wins the readiness race.
func (r *ChromedpRenderer) listenReadiness(tabCtx context.Context) <-chan string {
	ready := make(chan string, 3)
	emit := func(name string) {
		select {
		case ready <- name:
		default:
		}
	}

	mainFrame := ""
	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		mainFrame = string(c.Target.TargetID)
	}

	grace := r.config.DOMReadyGrace
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventLoadEventFired:
			emit(ReadyLoadEvent)
		case *page.EventFrameStoppedLoading:
			if mainFrame == "" || string(e.FrameID) == mainFrame {
				emit(ReadyFrameStopped)
			}
		case *page.EventDomContentEventFired:
			time.AfterFunc(grace, func() { emit(ReadyDOMContentAndGrace) })
		}
	})
	return ready
}

func (r *ChromedpRenderer) waitReady(navCtx context.Context, ready <-chan string) (string, error) {
	timer := time.NewTimer(r.config.ReadyTimeout)
	defer timer.Stop()

	select {
	case signal := <-ready:
		return signal, nil
	case <-timer.C:
		return "", NewRenderError(printing.CodeReadyTimeout,
			fmt.Sprintf("page was not ready within %v", r.config.ReadyTimeout), nil)
	case <-navCtx.Done():
		return "", NewRenderError(printing.CodeLoadTimeout,
			fmt.Sprintf("page did not load within %v", r.config.NavigationTimeout), navCtx.Err())
	}
}

func (r *ChromedpRenderer) transform(ctx context.Context, req *RenderRequest) (string, error) {
	script, err := buildTransformScript(req, r.config.HideFormControls)
	if err != nil {
		return "", NewRenderError(printing.CodeTransformFailed, "failed to build transform", err)
	}

	var res transformResult
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return "", NewRenderError(printing.CodeTransformFailed, "page transform raised an error", err)
	}
	if !res.OK {
		return "", NewRenderError(printing.CodeTargetNotFound,
			fmt.Sprintf("no element matched %s", strings.Join(res.Tried, ", ")), nil)
	}
	return res.Matched, nil
}

func (r *ChromedpRenderer) printToPDF(ctx context.Context, paper printing.PaperSize) ([]byte, error) {
	params := buildPrintParams(paper)

	var pdfData []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(params.printBackground).
			WithPaperWidth(params.paperWidth).
			WithPaperHeight(params.paperHeight).
			WithMarginTop(params.marginTop).
			WithMarginRight(params.marginRight).
			WithMarginBottom(params.marginBottom).
			WithMarginLeft(params.marginLeft).
			WithScale(params.scale).
			WithPreferCSSPageSize(false).
			Do(ctx)
		if err != nil {
			return err
		}
		pdfData = data
		return nil
	}))
	if err != nil {
		return nil, NewRenderError(printing.CodeRenderFailed, "printToPDF failed", err)
	}
	if len(pdfData) == 0 {
		return nil, NewRenderError(printing.CodeRenderFailed, "generated PDF is empty", nil)
	}
	return pdfData, nil
}

// release closes the tab after the grace delay without blocking the caller
func (r *ChromedpRenderer) release(cancel context.CancelFunc) {
	time.AfterFunc(r.config.ReleaseDelay, cancel)
}

// Close releases resources held by the renderer
func (r *ChromedpRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browserCancel != nil {
		r.browserCancel()
		r.browserCancel = nil
		r.browserCtx = nil
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// printParams holds the parameters for PDF printing
type printParams struct {
	paperWidth      float64
	paperHeight     float64
	marginTop       float64
	marginRight     float64
	marginBottom    float64
	marginLeft      float64
	scale           float64
	printBackground bool
}

// buildPrintParams prints at exactly the paper size with no margins
func buildPrintParams(paper printing.PaperSize) *printParams {
	return &printParams{
		paperWidth:      mmToInches(paper.Width),
		paperHeight:     mmToInches(paper.Height),
		scale:           1.0,
		printBackground: true,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}

// Ensure ChromedpRenderer implements PDFRenderer
var _ PDFRenderer = (*ChromedpRenderer)(nil)
