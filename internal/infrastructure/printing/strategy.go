package printing

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultSpoolWindow = 30 * time.Second

// ErrStrategyUnavailable is returned by a strategy whose tool is not installed
var ErrStrategyUnavailable = errors.New("print strategy unavailable")

// PrintOptions carries the printer-side settings of a dispatch
type PrintOptions struct {
	PrinterName string
	Copies      int
}

// PrintStrategy is one tier of the printer dispatch chain
type PrintStrategy interface {
	Name() string
	// Available reports whether the tool behind the strategy can be found
	Available() bool
	Print(ctx context.Context, path string, opts PrintOptions) error
}

// StrategyConfig locates the print tools for one platform
type StrategyConfig struct {
	GOOS string
	// AcrobatPath and SumatraPath override the built-in install locations
	AcrobatPath string
	SumatraPath string
	// ProgramDirs are the Windows program roots searched for installs,
	// usually %ProgramFiles%, %ProgramFiles(x86)% and %LOCALAPPDATA%
	ProgramDirs []string
	// SpoolWindow bounds tools that may stay open after handing the job to
	// the spooler; zero uses 30s
	SpoolWindow time.Duration
}

// commandStrategy prints by running a single external program
type commandStrategy struct {
	name       string
	runner     CommandRunner
	candidates []string
	args       func(path string, opts PrintOptions) []string
	// perCopy runs the program once per copy for tools without a copies flag
	perCopy bool
	// spoolWindow, when set, treats a tool still running after this long as
	// having spooled the job rather than failed
	spoolWindow time.Duration
}

func (s *commandStrategy) Name() string { return s.name }

func (s *commandStrategy) resolve() (string, bool) {
	for _, c := range s.candidates {
		if c == "" {
			continue
		}
		if p, err := s.runner.LookPath(c); err == nil {
			return p, true
		}
	}
	return "", false
}

func (s *commandStrategy) Available() bool {
	_, ok := s.resolve()
	return ok
}

func (s *commandStrategy) Print(ctx context.Context, path string, opts PrintOptions) error {
	bin, ok := s.resolve()
	if !ok {
		return fmt.Errorf("%s: %w", s.name, ErrStrategyUnavailable)
	}
	if opts.Copies < 1 {
		opts.Copies = 1
	}

	runs := 1
	if s.perCopy {
		runs = opts.Copies
	}
	for i := 0; i < runs; i++ {
		if err := s.run(ctx, bin, s.args(path, opts)); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (s *commandStrategy) run(ctx context.Context, bin string, args []string) error {
	if s.spoolWindow <= 0 {
		return s.runner.Run(ctx, bin, args...)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.spoolWindow)
	defer cancel()
	err := s.runner.Run(runCtx, bin, args...)
	if err != nil && ctx.Err() == nil &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded)) {
		// the client took the job and stayed open
		return nil
	}
	return err
}

// DefaultStrategies returns the ordered print chain for cfg.GOOS
func DefaultStrategies(cfg StrategyConfig, runner CommandRunner) []PrintStrategy {
	if cfg.GOOS == "windows" {
		return windowsStrategies(cfg, runner)
	}
	return unixStrategies(cfg, runner)
}

func windowsStrategies(cfg StrategyConfig, runner CommandRunner) []PrintStrategy {
	spool := cfg.SpoolWindow
	if spool <= 0 {
		spool = defaultSpoolWindow
	}
	acrobat := []string{cfg.AcrobatPath}
	sumatra := []string{cfg.SumatraPath}
	for _, dir := range cfg.ProgramDirs {
		if dir == "" {
			continue
		}
		acrobat = append(acrobat,
			filepath.Join(dir, "Adobe", "Acrobat DC", "Acrobat", "Acrobat.exe"),
			filepath.Join(dir, "Adobe", "Acrobat Reader DC", "Reader", "AcroRd32.exe"),
			filepath.Join(dir, "Adobe", "Acrobat Reader", "Reader", "AcroRd32.exe"),
		)
		sumatra = append(sumatra, filepath.Join(dir, "SumatraPDF", "SumatraPDF.exe"))
	}
	acrobat = append(acrobat, "AcroRd32.exe", "Acrobat.exe")
	sumatra = append(sumatra, "SumatraPDF.exe")

	return []PrintStrategy{
		&commandStrategy{
			name:        "acrobat",
			runner:      runner,
			candidates:  acrobat,
			perCopy:     true,
			spoolWindow: spool,
			args: func(path string, opts PrintOptions) []string {
				return []string{"/n", "/t", path, opts.PrinterName}
			},
		},
		&commandStrategy{
			name:       "sumatra",
			runner:     runner,
			candidates: sumatra,
			args: func(path string, opts PrintOptions) []string {
				return []string{
					"-print-to", opts.PrinterName,
					"-print-settings", fmt.Sprintf("noscale,%dx", opts.Copies),
					"-silent", path,
				}
			},
		},
		&commandStrategy{
			name:        "powershell",
			runner:      runner,
			candidates:  []string{"powershell.exe", "powershell", "pwsh.exe"},
			perCopy:     true,
			spoolWindow: spool,
			args: func(path string, opts PrintOptions) []string {
				script := fmt.Sprintf(
					"Start-Process -FilePath %s -Verb PrintTo -ArgumentList %s -WindowStyle Hidden -Wait",
					psQuote(path), psQuote(`"`+opts.PrinterName+`"`))
				return []string{"-NoProfile", "-NonInteractive", "-Command", script}
			},
		},
	}
}

func unixStrategies(cfg StrategyConfig, runner CommandRunner) []PrintStrategy {
	viewer := "xdg-open"
	if cfg.GOOS == "darwin" {
		viewer = "open"
	}

	return []PrintStrategy{
		&commandStrategy{
			name:       "lp",
			runner:     runner,
			candidates: []string{"lp"},
			args: func(path string, opts PrintOptions) []string {
				return []string{"-d", opts.PrinterName, "-n", strconv.Itoa(opts.Copies), path}
			},
		},
		&commandStrategy{
			name:       "lpr",
			runner:     runner,
			candidates: []string{"lpr"},
			args: func(path string, opts PrintOptions) []string {
				return []string{"-P", opts.PrinterName, "-#", strconv.Itoa(opts.Copies), path}
			},
		},
		// last resort hands the document to the desktop viewer so the user can print it
		&commandStrategy{
			name:       StrategyViewer,
			runner:     runner,
			candidates: []string{viewer},
			args: func(path string, _ PrintOptions) []string {
				return []string{path}
			},
		},
	}
}

// psQuote quotes s as a PowerShell single-quoted literal
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
