// Package server assembles the gin engine and runs it on the first free
// loopback port of the configured range.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	printingapp "github.com/printbridge/companion/internal/application/printing"
	"github.com/printbridge/companion/internal/application/session"
	"github.com/printbridge/companion/internal/infrastructure/config"
	"github.com/printbridge/companion/internal/infrastructure/logger"
	"github.com/printbridge/companion/internal/interfaces/http/handler"
	"github.com/printbridge/companion/internal/interfaces/http/middleware"
	"github.com/printbridge/companion/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrNoFreePort is returned when every port of the range is taken
var ErrNoFreePort = errors.New("no free port in the configured range")

// Deps are the services the routes call into. Print, Surfaces and Previews
// may be nil, which leaves their routes unregistered.
type Deps struct {
	Name     string
	Version  string
	Ingest   *session.IngestService
	Print    *printingapp.PrintService
	Surfaces handler.SurfaceController
	Previews handler.PreviewOpener
}

// EngineConfig configures the middleware stack
type EngineConfig struct {
	HTTP    config.HTTPConfig
	Tracing middleware.TracingConfig
	Meter   metric.Meter
	Logger  *zap.Logger
}

// NewEngine builds the gin engine with the middleware stack and all routes
func NewEngine(cfg EngineConfig, deps Deps) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()

	// Tracing runs before logging so request logs carry the trace id
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(cfg.Tracing), middleware.SpanEnricher())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(cfg.Meter, log))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	r := router.NewRouter(engine)
	r.Register(handler.SystemRoutes(handler.NewSystemHandler(deps.Name, deps.Version)))
	if deps.Ingest != nil {
		r.Register(handler.IngestRoutes(handler.NewIngestHandler(deps.Ingest)))
	}
	if deps.Print != nil {
		r.Register(handler.PrintRoutes(handler.NewPrintHandler(deps.Print)))
	}
	if deps.Surfaces != nil {
		r.Register(handler.SurfaceRoutes(handler.NewSurfaceHandler(deps.Surfaces)))
	}
	if deps.Previews != nil {
		r.Register(handler.UIRoutes(handler.NewShellHandler(), handler.NewPreviewHandler(deps.Previews)))
	}
	r.Setup()

	return engine
}

// Listen binds the first free port of the range
func Listen(ctx context.Context, cfg config.HTTPConfig) (net.Listener, int, error) {
	var lc net.ListenConfig
	var lastErr error
	for _, port := range cfg.Ports() {
		ln, err := lc.Listen(ctx, "tcp", cfg.Addr(port))
		if err == nil {
			return ln, port, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("%w %d-%d: %v", ErrNoFreePort,
		cfg.PortStart, cfg.PortStart+cfg.PortSpan-1, lastErr)
}

// Server is the loopback HTTP listener
type Server struct {
	srv      *http.Server
	listener net.Listener
	port     int
	host     string
	logger   *zap.Logger
	done     chan struct{}
}

// New binds a port for handler. Serve must be called to start answering.
func New(ctx context.Context, cfg config.HTTPConfig, h http.Handler, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ln, port, err := Listen(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv: &http.Server{
			Handler:        h,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    cfg.IdleTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		listener: ln,
		port:     port,
		host:     cfg.Host,
		logger:   log,
		done:     make(chan struct{}),
	}, nil
}

// Port returns the bound port
func (s *Server) Port() int {
	return s.port
}

// BaseURL returns the http URL pages use to reach the server
func (s *Server) BaseURL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(s.host, fmt.Sprint(s.port)))
}

// Serve answers requests in the background until Shutdown
func (s *Server) Serve() {
	go func() {
		defer close(s.done)
		s.logger.Info("Server starting", zap.String("addr", s.listener.Addr().String()))
		if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}()
}

// Done is closed once the serve loop has returned
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// FindRunning probes the port range for a companion answering GET /status
// and returns its base URL
func FindRunning(ctx context.Context, cfg config.HTTPConfig, client *http.Client) (string, bool) {
	if client == nil {
		client = &http.Client{Timeout: 500 * time.Millisecond}
	}
	for _, port := range cfg.Ports() {
		base := "http://" + cfg.Addr(port)
		if probe(ctx, client, base) {
			return base, true
		}
	}
	return "", false
}

func probe(ctx context.Context, client *http.Client, base string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/status", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.Status == handler.StatusRunning
}
