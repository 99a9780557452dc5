package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	appsurface "github.com/printbridge/companion/internal/application/surface"
	"github.com/printbridge/companion/internal/domain/printing"
	infra "github.com/printbridge/companion/internal/infrastructure/printing"
	"github.com/printbridge/companion/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// =============================================================================
// Stubs
// =============================================================================

type stubRenderer struct {
	result *infra.RenderResult
	err    error
	got    *infra.RenderRequest
}

func (r *stubRenderer) Render(ctx context.Context, req *infra.RenderRequest) (*infra.RenderResult, error) {
	r.got = req
	return r.result, r.err
}

type stubDispatcher struct {
	preview *infra.DispatchResult
	print   *infra.DispatchResult
	err     error
}

func (d *stubDispatcher) Preview(ctx context.Context, pdf []byte) (*infra.DispatchResult, error) {
	return d.preview, d.err
}

func (d *stubDispatcher) Print(ctx context.Context, pdf []byte, opts infra.PrintOptions) (*infra.DispatchResult, error) {
	return d.print, d.err
}

type stubPrinters struct {
	printers []infra.Printer
	err      error
}

func (p *stubPrinters) ListPrinters(ctx context.Context) ([]infra.Printer, error) {
	return p.printers, p.err
}

type stubSurfaces struct {
	mu       sync.Mutex
	sessions []string
	closed   int
	hidden   int
	err      error
	snapshot appsurface.Snapshot
}

func (s *stubSurfaces) RequestSurface(ctx context.Context, session string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sessions = append(s.sessions, session)
	if session == "" {
		session = "current"
	}
	return session, nil
}

func (s *stubSurfaces) CloseActive(ctx context.Context) {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
}

func (s *stubSurfaces) HideActive(ctx context.Context) error {
	s.mu.Lock()
	s.hidden++
	s.mu.Unlock()
	return nil
}

func (s *stubSurfaces) Snapshot() appsurface.Snapshot {
	return s.snapshot
}

type stubPreviews struct {
	files map[string]string
}

func (p *stubPreviews) OpenPreview(ctx context.Context, name string) (io.ReadCloser, error) {
	content, ok := p.files[name]
	if !ok {
		return nil, infra.NewRenderError(printing.CodeDispatchFailed, "PDF not found", errors.New("missing"))
	}
	return io.NopCloser(strings.NewReader(content)), nil
}
