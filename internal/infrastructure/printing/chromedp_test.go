package printing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrintParams(t *testing.T) {
	params := buildPrintParams(printing.PaperSize{Name: "Custom", Width: 100, Height: 150})

	assert.InDelta(t, 3.937, params.paperWidth, 0.001)
	assert.InDelta(t, 5.906, params.paperHeight, 0.001)
	assert.Zero(t, params.marginTop)
	assert.Zero(t, params.marginRight)
	assert.Zero(t, params.marginBottom)
	assert.Zero(t, params.marginLeft)
	assert.Equal(t, 1.0, params.scale)
	assert.True(t, params.printBackground)
}

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r, err := NewChromedpRenderer(nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 30*time.Second, r.config.NavigationTimeout)
	assert.Equal(t, 15*time.Second, r.config.ReadyTimeout)
	assert.Equal(t, time.Second, r.config.DOMReadyGrace)
	assert.Equal(t, 500*time.Millisecond, r.config.ReleaseDelay)
}

func TestChromedpRenderer_RejectsInvalidRequests(t *testing.T) {
	r, err := NewChromedpRenderer(&ChromedpConfig{})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()

	_, err = r.Render(ctx, nil)
	assert.True(t, IsRenderError(err, printing.CodeRenderFailed))

	_, err = r.Render(ctx, &RenderRequest{PaperSize: printing.PaperSize{Width: 1, Height: 1}})
	assert.True(t, IsRenderError(err, printing.CodeRenderFailed))

	_, err = r.Render(ctx, &RenderRequest{URL: "http://localhost", PaperSize: printing.PaperSize{Width: 0, Height: 1}})
	assert.True(t, IsRenderError(err, printing.CodeRenderFailed))
}

func TestChromedpRenderer_ClosedRendererFails(t *testing.T) {
	r, err := NewChromedpRenderer(&ChromedpConfig{})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Render(context.Background(), &RenderRequest{
		URL:       "http://localhost",
		PaperSize: printing.PaperSize{Width: 100, Height: 150},
	})
	assert.True(t, IsRenderError(err, printing.CodeRenderFailed))
}

func TestRenderError(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewRenderError(printing.CodeLoadTimeout, "page did not load", cause)

	assert.Equal(t, "page did not load: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, printing.CodeLoadTimeout, ErrorCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, printing.CodeInvalidJob, ErrorCode(printing.ErrMissingURL))
	assert.Empty(t, ErrorCode(cause))
}

// findChrome returns a local Chrome binary or skips the test
func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("Chrome not installed")
	return ""
}

func TestChromedpRenderer_Render(t *testing.T) {
	chrome := findChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/fallback":
			fmt.Fprint(w, `<html><body><nav>menu</nav><main><h1>Fallback</h1></main></body></html>`)
		case "/missing":
			fmt.Fprint(w, `<html><body></body></html>`)
		default:
			fmt.Fprint(w, `<html><body><header>Site</header><div id="wrap"><div id="print-area">Label</div><p>other</p></div></body></html>`)
		}
	}))
	defer srv.Close()

	r, err := NewChromedpRenderer(&ChromedpConfig{
		ExecPath:     chrome,
		NoSandbox:    true,
		ReleaseDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer r.Close()

	paper := printing.PaperSize{Name: "Custom", Width: 100, Height: 150}
	ctx := context.Background()

	t.Run("renders the requested selector", func(t *testing.T) {
		res, err := r.Render(ctx, &RenderRequest{URL: srv.URL + "/", Selector: "#print-area", PaperSize: paper})
		require.NoError(t, err)
		assert.Equal(t, "#print-area", res.MatchedSelector)
		assert.NotEmpty(t, res.ReadySignal)
		assert.True(t, len(res.PDFData) > 4)
		assert.Equal(t, "%PDF", string(res.PDFData[:4]))
	})

	t.Run("falls back to main", func(t *testing.T) {
		res, err := r.Render(ctx, &RenderRequest{URL: srv.URL + "/fallback", Selector: ".nope", PaperSize: paper, Rotate180: true})
		require.NoError(t, err)
		assert.Equal(t, "main", res.MatchedSelector)
	})

	t.Run("reports missing target", func(t *testing.T) {
		_, err := r.Render(ctx, &RenderRequest{URL: srv.URL + "/missing", Selector: ".nope", PaperSize: paper})
		require.Error(t, err)
		assert.True(t, IsRenderError(err, printing.CodeTargetNotFound))
	})
}
