package surface

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeWindow is a Chrome app-mode window hosting the UI shell.
// Each window runs in its own browser process with a throwaway profile.
type ChromeWindow struct {
	id     string
	config *WindowConfig
	logger *zap.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	userDataDir string

	ready     chan struct{}
	readyOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}
	doneOnce  sync.Once

	mu      sync.Mutex
	visible bool
}

func (w *ChromeWindow) ID() string                     { return w.id }
func (w *ChromeWindow) Ready() <-chan struct{}         { return w.ready }
func (w *ChromeWindow) CloseRequests() <-chan struct{} { return w.closeCh }
func (w *ChromeWindow) Done() <-chan struct{}          { return w.done }

// Visible reports whether the window was last shown rather than hidden
func (w *ChromeWindow) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Show restores the window and moves it on screen
func (w *ChromeWindow) Show(ctx context.Context) error {
	err := w.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := browser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		if err := browser.SetWindowBounds(windowID, &browser.Bounds{
			WindowState: browser.WindowStateNormal,
		}).Do(ctx); err != nil {
			return err
		}
		return browser.SetWindowBounds(windowID, &browser.Bounds{
			Left:   int64(w.config.Left),
			Top:    int64(w.config.Top),
			Width:  int64(w.config.Width),
			Height: int64(w.config.Height),
		}).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to show window: %w", err)
	}
	w.setVisible(true)
	return nil
}

// Hide minimizes the window
func (w *ChromeWindow) Hide(ctx context.Context) error {
	err := w.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := browser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		return browser.SetWindowBounds(windowID, &browser.Bounds{
			WindowState: browser.WindowStateMinimized,
		}).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to hide window: %w", err)
	}
	w.setVisible(false)
	return nil
}

// Focus brings the window's page to the front
func (w *ChromeWindow) Focus(ctx context.Context) error {
	return w.run(ctx, page.BringToFront())
}

// Send raises a printbridge:<channel> CustomEvent in the shell page
func (w *ChromeWindow) Send(ctx context.Context, channel string, payload any) error {
	script, err := dispatchScript(channel, payload)
	if err != nil {
		return err
	}
	var dispatched bool
	if err := w.run(ctx, chromedp.Evaluate(script, &dispatched)); err != nil {
		return fmt.Errorf("failed to send %s: %w", channel, err)
	}
	return nil
}

// Destroy closes the window and its browser process
func (w *ChromeWindow) Destroy() error {
	w.tabCancel()
	w.allocCancel()
	w.markDone()
	if w.userDataDir != "" {
		if err := os.RemoveAll(w.userDataDir); err != nil {
			return fmt.Errorf("failed to remove window profile: %w", err)
		}
	}
	return nil
}

// run executes actions on the window's tab, bounded by the caller's context
func (w *ChromeWindow) run(ctx context.Context, actions ...chromedp.Action) error {
	select {
	case <-w.done:
		return fmt.Errorf("window %s is closed", w.id)
	default:
	}

	runCtx, cancel := context.WithCancel(w.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (w *ChromeWindow) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		if ev.Name != BindingName {
			return
		}
		msg, err := parseInbound(ev.Payload)
		if err != nil {
			w.logger.Debug("Ignoring binding call", zap.String("surface_id", w.id), zap.Error(err))
			return
		}
		switch msg {
		case MessageReady:
			w.readyOnce.Do(func() { close(w.ready) })
		case MessageClose:
			select {
			case w.closeCh <- struct{}{}:
			default:
			}
		default:
			w.logger.Debug("Unknown binding message", zap.String("surface_id", w.id), zap.String("type", msg))
		}
	case *inspector.EventDetached:
		w.logger.Debug("Window detached", zap.String("surface_id", w.id), zap.String("reason", string(ev.Reason)))
		go func() { _ = w.Destroy() }()
	}
}

// watch marks the window done when its browser goes away underneath us
func (w *ChromeWindow) watch() {
	select {
	case <-w.tabCtx.Done():
		w.markDone()
		if w.userDataDir != "" {
			_ = os.RemoveAll(w.userDataDir)
		}
	case <-w.done:
	}
}

func (w *ChromeWindow) markDone() {
	w.doneOnce.Do(func() {
		w.setVisible(false)
		close(w.done)
	})
}

func (w *ChromeWindow) setVisible(v bool) {
	w.mu.Lock()
	w.visible = v
	w.mu.Unlock()
}
