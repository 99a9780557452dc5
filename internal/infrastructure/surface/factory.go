package surface

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	appsurface "github.com/printbridge/companion/internal/application/surface"
	"go.uber.org/zap"
)

// offscreenPosition keeps freshly launched windows out of sight until shown
const offscreenPosition = "-32000,-32000"

// ErrNoUIURL is returned when a window is requested before the shell URL is known
var ErrNoUIURL = errors.New("surface UI url is not set")

// WindowConfig configures the UI windows
type WindowConfig struct {
	// UIURL is the page loaded into every window. It is usually only known
	// once the HTTP listener has bound, see ChromeFactory.SetUIURL.
	UIURL        string
	ExecPath     string
	Width        int
	Height       int
	Left         int
	Top          int
	NoSandbox    bool
	StartTimeout time.Duration
	Logger       *zap.Logger
}

// ChromeFactory launches ChromeWindow surfaces
type ChromeFactory struct {
	config *WindowConfig
	logger *zap.Logger

	mu    sync.RWMutex
	uiURL string
}

var _ appsurface.Factory = (*ChromeFactory)(nil)

// NewChromeFactory creates a factory for app-mode Chrome windows
func NewChromeFactory(config *WindowConfig) *ChromeFactory {
	if config == nil {
		config = &WindowConfig{}
	}
	if config.Width <= 0 {
		config.Width = 1100
	}
	if config.Height <= 0 {
		config.Height = 800
	}
	if config.Left == 0 && config.Top == 0 {
		config.Left, config.Top = 120, 80
	}
	if config.StartTimeout <= 0 {
		config.StartTimeout = 20 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeFactory{
		config: config,
		logger: logger,
		uiURL:  config.UIURL,
	}
}

// SetUIURL sets the page new windows load
func (f *ChromeFactory) SetUIURL(u string) {
	f.mu.Lock()
	f.uiURL = u
	f.mu.Unlock()
}

// UIURL returns the page new windows load
func (f *ChromeFactory) UIURL() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.uiURL
}

// allocatorOptions returns the flags for one window's browser process
func (f *ChromeFactory) allocatorOptions(uiURL, userDataDir string) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(userDataDir),
		chromedp.WindowSize(f.config.Width, f.config.Height),
		chromedp.Flag("app", uiURL),
		chromedp.Flag("window-position", offscreenPosition),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-translate", true),
	}
	if f.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if f.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.config.ExecPath))
	}
	return opts
}

// Build launches a hidden window and installs the binding the shell uses to
// report readiness and close requests
func (f *ChromeFactory) Build(ctx context.Context) (appsurface.Surface, error) {
	uiURL := f.UIURL()
	if uiURL == "" {
		return nil, ErrNoUIURL
	}

	dir, err := os.MkdirTemp("", "printbridge-surface-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create window profile: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), f.allocatorOptions(uiURL, dir)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			f.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	w := &ChromeWindow{
		id:          uuid.New().String(),
		config:      f.config,
		logger:      f.logger,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		userDataDir: dir,
		ready:       make(chan struct{}),
		closeCh:     make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	chromedp.ListenTarget(tabCtx, w.onEvent)

	// The first Run starts the browser and must use the tab context itself;
	// a derived timeout context would tear the browser down when it ends.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx, runtime.AddBinding(BindingName))
	}()

	timer := time.NewTimer(f.config.StartTimeout)
	defer timer.Stop()

	select {
	case err = <-started:
	case <-timer.C:
		err = fmt.Errorf("window did not start within %s", f.config.StartTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		_ = w.Destroy()
		return nil, fmt.Errorf("failed to launch surface window: %w", err)
	}

	go w.watch()

	f.logger.Info("Surface window launched",
		zap.String("surface_id", w.id),
		zap.String("url", uiURL),
	)
	return w, nil
}
