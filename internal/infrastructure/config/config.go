package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppDirName is the directory name used under the user's config and document folders
const AppDirName = "printbridge"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Session   SessionConfig
	Surface   SurfaceConfig
	Render    RenderConfig
	Dispatch  DispatchConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name   string
	Env    string
	Scheme string // custom protocol scheme pages use to launch the companion
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds the loopback listener configuration
type HTTPConfig struct {
	Host             string
	PortStart        int // first port tried
	PortSpan         int // number of consecutive ports tried
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
}

// SessionConfig holds session store settings
type SessionConfig struct {
	TTL           time.Duration
	SnapshotPath  string
	SweepInterval time.Duration
}

// SurfaceConfig holds working-surface orchestration settings
type SurfaceConfig struct {
	Cooldown          time.Duration // minimum gap between two surface activations
	InterRequestDelay time.Duration // pause between queued creation requests
	RevealTimeout     time.Duration // how long to wait for the UI to report ready
	DataSettleDelay   time.Duration // pause before pushing data into a reused surface
	Preload           bool          // keep a hidden spare surface warm
	UIURL             string        // external UI; empty serves the embedded shell
	ChromePath        string
	Width             int
	Height            int
}

// RenderConfig holds offscreen render pipeline settings
type RenderConfig struct {
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	DOMReadyGrace     time.Duration // extra wait after DOMContentLoaded
	SettleDelay       time.Duration // platform-tuned pause before the DOM transform
	ReleaseDelay      time.Duration // grace before the render tab is closed
	ChromePath        string
	RemoteURL         string
	NoSandbox         bool
}

// DispatchConfig holds dispatch sink settings
type DispatchConfig struct {
	PreviewDir      string
	PreviewMaxAge   time.Duration
	CleanupInterval time.Duration
	TransientDir    string
	TransientGrace  time.Duration
	DesktopDir      string
	AcrobatPath     string
	SumatraPath     string
	CommandTimeout  time.Duration
	// SpoolWindow is how long a desktop PDF client may keep running after it
	// was handed a job before the job counts as spooled
	SpoolWindow time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry tracing
	MetricsEnabled    bool    // Whether to export metrics
	LogsEnabled       bool    // Whether to bridge zap logs to OTEL
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection
	ExportInterval    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PRINTBRIDGE_ prefix (e.g., PRINTBRIDGE_HTTP_PORT_START)
// 2. config.toml in ., the user config dir, or /etc/printbridge
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, AppDirName))
	}
	v.AddConfigPath("/etc/" + AppDirName)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("PRINTBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:   v.GetString("app.name"),
			Env:    v.GetString("app.env"),
			Scheme: v.GetString("app.scheme"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			Host:             v.GetString("http.host"),
			PortStart:        v.GetInt("http.port_start"),
			PortSpan:         v.GetInt("http.port_span"),
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
		},
		Session: SessionConfig{
			TTL:           v.GetDuration("session.ttl"),
			SnapshotPath:  v.GetString("session.snapshot_path"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		Surface: SurfaceConfig{
			Cooldown:          v.GetDuration("surface.cooldown"),
			InterRequestDelay: v.GetDuration("surface.inter_request_delay"),
			RevealTimeout:     v.GetDuration("surface.reveal_timeout"),
			DataSettleDelay:   v.GetDuration("surface.data_settle_delay"),
			Preload:           !v.IsSet("surface.preload") || v.GetBool("surface.preload"),
			UIURL:             v.GetString("surface.ui_url"),
			ChromePath:        v.GetString("surface.chrome_path"),
			Width:             v.GetInt("surface.width"),
			Height:            v.GetInt("surface.height"),
		},
		Render: RenderConfig{
			NavigationTimeout: v.GetDuration("render.navigation_timeout"),
			ReadyTimeout:      v.GetDuration("render.ready_timeout"),
			DOMReadyGrace:     v.GetDuration("render.dom_ready_grace"),
			SettleDelay:       v.GetDuration("render.settle_delay"),
			ReleaseDelay:      v.GetDuration("render.release_delay"),
			ChromePath:        v.GetString("render.chrome_path"),
			RemoteURL:         v.GetString("render.remote_url"),
			NoSandbox:         v.GetBool("render.no_sandbox"),
		},
		Dispatch: DispatchConfig{
			PreviewDir:      v.GetString("dispatch.preview_dir"),
			PreviewMaxAge:   v.GetDuration("dispatch.preview_max_age"),
			CleanupInterval: v.GetDuration("dispatch.cleanup_interval"),
			TransientDir:    v.GetString("dispatch.transient_dir"),
			TransientGrace:  v.GetDuration("dispatch.transient_grace"),
			DesktopDir:      v.GetString("dispatch.desktop_dir"),
			AcrobatPath:     v.GetString("dispatch.acrobat_path"),
			SumatraPath:     v.GetString("dispatch.sumatra_path"),
			CommandTimeout:  v.GetDuration("dispatch.command_timeout"),
			SpoolWindow:     v.GetDuration("dispatch.spool_window"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "printbridge"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Scheme == "" {
		cfg.App.Scheme = "printbridge"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "127.0.0.1"
	}
	if cfg.HTTP.PortStart == 0 {
		cfg.HTTP.PortStart = 38200
	}
	if cfg.HTTP.PortSpan == 0 {
		cfg.HTTP.PortSpan = 10
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// A print request holds the connection for the whole render and dispatch
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 2 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// The listener is bound to loopback and the pages calling it live on
	// arbitrary origins, so every origin is accepted unless narrowed.
	if len(cfg.HTTP.CORSAllowOrigins) == 0 {
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.SnapshotPath == "" {
		cfg.Session.SnapshotPath = filepath.Join(userConfigDir(), AppDirName, "sessions.json")
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = time.Hour
	}

	if cfg.Surface.Cooldown == 0 {
		cfg.Surface.Cooldown = 2 * time.Second
	}
	if cfg.Surface.InterRequestDelay == 0 {
		cfg.Surface.InterRequestDelay = 500 * time.Millisecond
	}
	if cfg.Surface.RevealTimeout == 0 {
		cfg.Surface.RevealTimeout = 5 * time.Second
	}
	if cfg.Surface.DataSettleDelay == 0 {
		cfg.Surface.DataSettleDelay = 300 * time.Millisecond
	}
	if cfg.Surface.Width == 0 {
		cfg.Surface.Width = 1100
	}
	if cfg.Surface.Height == 0 {
		cfg.Surface.Height = 800
	}

	if cfg.Render.NavigationTimeout == 0 {
		cfg.Render.NavigationTimeout = 30 * time.Second
	}
	if cfg.Render.ReadyTimeout == 0 {
		cfg.Render.ReadyTimeout = 15 * time.Second
	}
	if cfg.Render.DOMReadyGrace == 0 {
		cfg.Render.DOMReadyGrace = time.Second
	}
	if cfg.Render.SettleDelay == 0 {
		cfg.Render.SettleDelay = DefaultSettleDelay(runtime.GOOS)
	}
	if cfg.Render.ReleaseDelay == 0 {
		cfg.Render.ReleaseDelay = 500 * time.Millisecond
	}

	if cfg.Dispatch.PreviewDir == "" {
		cfg.Dispatch.PreviewDir = filepath.Join(userHomeDir(), "Documents", "PrintBridge")
	}
	if cfg.Dispatch.PreviewMaxAge == 0 {
		cfg.Dispatch.PreviewMaxAge = 24 * time.Hour
	}
	if cfg.Dispatch.CleanupInterval == 0 {
		cfg.Dispatch.CleanupInterval = time.Hour
	}
	if cfg.Dispatch.TransientDir == "" {
		cfg.Dispatch.TransientDir = filepath.Join(os.TempDir(), AppDirName)
	}
	if cfg.Dispatch.TransientGrace == 0 {
		cfg.Dispatch.TransientGrace = 10 * time.Second
	}
	if cfg.Dispatch.DesktopDir == "" {
		cfg.Dispatch.DesktopDir = filepath.Join(userHomeDir(), "Desktop")
	}
	if cfg.Dispatch.CommandTimeout == 0 {
		cfg.Dispatch.CommandTimeout = 60 * time.Second
	}
	if cfg.Dispatch.SpoolWindow == 0 {
		cfg.Dispatch.SpoolWindow = 30 * time.Second
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "printbridge-companion"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.HTTP.PortStart < 1 || c.HTTP.PortStart > 65535 {
		return fmt.Errorf("http.port_start must be between 1 and 65535, got %d", c.HTTP.PortStart)
	}
	if c.HTTP.PortSpan < 1 {
		return fmt.Errorf("http.port_span must be positive, got %d", c.HTTP.PortSpan)
	}
	if c.HTTP.PortStart+c.HTTP.PortSpan-1 > 65535 {
		return fmt.Errorf("http port range %d+%d exceeds 65535", c.HTTP.PortStart, c.HTTP.PortSpan)
	}
	if c.Session.TTL < time.Minute {
		return fmt.Errorf("session.ttl must be at least 1m, got %s", c.Session.TTL)
	}
	if c.Render.ReadyTimeout > c.Render.NavigationTimeout {
		return fmt.Errorf("render.ready_timeout (%s) cannot exceed render.navigation_timeout (%s)",
			c.Render.ReadyTimeout, c.Render.NavigationTimeout)
	}
	if c.Surface.Cooldown < 0 || c.Surface.InterRequestDelay < 0 {
		return fmt.Errorf("surface delays cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// Addr returns host:port for the given port
func (h *HTTPConfig) Addr(port int) string {
	return fmt.Sprintf("%s:%d", h.Host, port)
}

// Ports returns every port in the configured range, in probe order
func (h *HTTPConfig) Ports() []int {
	ports := make([]int, 0, h.PortSpan)
	for p := h.PortStart; p < h.PortStart+h.PortSpan; p++ {
		ports = append(ports, p)
	}
	return ports
}

// DefaultSettleDelay returns how long to let a freshly loaded page settle
// before it is transformed. Windows Chrome paints web fonts noticeably later.
func DefaultSettleDelay(goos string) time.Duration {
	if goos == "windows" {
		return 1500 * time.Millisecond
	}
	return 500 * time.Millisecond
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

func userHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return os.TempDir()
}
