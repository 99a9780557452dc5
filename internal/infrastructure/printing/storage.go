package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/printbridge/companion/internal/domain/printing"
	"go.uber.org/zap"
)

// previewTimeLayout names preview files so they sort chronologically
const previewTimeLayout = "20060102-150405.000"

const maxPreviewSuffix = 1000

// FileStorageConfig contains configuration for rendered PDF storage
type FileStorageConfig struct {
	// PreviewDir receives user-visible preview PDFs
	PreviewDir string
	// TransientDir receives files that only live while a printer consumes them
	TransientDir string
	// DesktopDir receives the copy made when every print strategy failed
	DesktopDir string
	Logger     *zap.Logger
}

// FileStorage stores rendered PDFs on the local file system
type FileStorage struct {
	config *FileStorageConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewFileStorage creates file storage. Directories are created on first write
// so a missing Documents folder does not prevent startup.
func NewFileStorage(config *FileStorageConfig) (*FileStorage, error) {
	if config == nil || config.PreviewDir == "" {
		return nil, NewRenderError(printing.CodeDispatchFailed, "preview directory is required", nil)
	}
	if config.TransientDir == "" {
		config.TransientDir = filepath.Join(os.TempDir(), "printbridge")
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileStorage{
		config: config,
		logger: logger,
		now:    time.Now,
	}, nil
}

// PreviewDir returns the directory that holds preview PDFs
func (s *FileStorage) PreviewDir() string {
	return s.config.PreviewDir
}

// SavePreview writes pdf as <preview_dir>/print-<timestamp>.pdf
func (s *FileStorage) SavePreview(ctx context.Context, pdf []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewRenderError(printing.CodeDispatchFailed, "operation cancelled", err)
	}
	if len(pdf) == 0 {
		return "", NewRenderError(printing.CodeDispatchFailed, "PDF data is empty", nil)
	}
	if err := os.MkdirAll(s.config.PreviewDir, 0755); err != nil {
		return "", NewRenderError(printing.CodeDispatchFailed,
			fmt.Sprintf("failed to create preview directory: %s", s.config.PreviewDir), err)
	}

	stamp := strings.ReplaceAll(s.now().Format(previewTimeLayout), ".", "-")
	f, path, err := createPreviewFile(s.config.PreviewDir, "print-"+stamp)
	if err != nil {
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to create preview PDF", err)
	}
	if _, err := f.Write(pdf); err != nil {
		f.Close()
		os.Remove(path)
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to write preview PDF", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to write preview PDF", err)
	}

	s.logger.Info("preview PDF stored", zap.String("path", path), zap.Int("size", len(pdf)))
	return path, nil
}

// createPreviewFile creates base.pdf in dir, or base-2.pdf, base-3.pdf and so
// on when an earlier preview already took the name
func createPreviewFile(dir, base string) (*os.File, string, error) {
	for n := 1; n <= maxPreviewSuffix; n++ {
		name := base + ".pdf"
		if n > 1 {
			name = fmt.Sprintf("%s-%d.pdf", base, n)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free preview name for %s", base)
}

// SaveTransient writes pdf to a uniquely named file in the transient directory
func (s *FileStorage) SaveTransient(ctx context.Context, pdf []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewRenderError(printing.CodeDispatchFailed, "operation cancelled", err)
	}
	if len(pdf) == 0 {
		return "", NewRenderError(printing.CodeDispatchFailed, "PDF data is empty", nil)
	}
	if err := os.MkdirAll(s.config.TransientDir, 0700); err != nil {
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to create transient directory", err)
	}

	f, err := os.CreateTemp(s.config.TransientDir, "print-*.pdf")
	if err != nil {
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to create transient PDF", err)
	}
	if _, err := f.Write(pdf); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to write transient PDF", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to write transient PDF", err)
	}
	return f.Name(), nil
}

// CopyToDesktop copies src to the desktop directory and returns the new path
func (s *FileStorage) CopyToDesktop(src string) (string, error) {
	if s.config.DesktopDir == "" {
		return "", NewRenderError(printing.CodeDispatchFailed, "desktop directory is unknown", nil)
	}
	if err := os.MkdirAll(s.config.DesktopDir, 0755); err != nil {
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to create desktop directory", err)
	}

	stamp := strings.ReplaceAll(s.now().Format(previewTimeLayout), ".", "-")
	dst := filepath.Join(s.config.DesktopDir, "print-"+stamp+".pdf")
	if err := copyFile(src, dst); err != nil {
		return "", NewRenderError(printing.CodeDispatchFailed, "failed to copy PDF to desktop", err)
	}

	s.logger.Info("PDF copied to desktop", zap.String("path", dst))
	return dst, nil
}

// Remove deletes a file; a missing file is not an error
func (s *FileStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewRenderError(printing.CodeDispatchFailed, "failed to delete PDF file", err)
	}
	return nil
}

// OpenPreview opens a preview file by its base name for serving to the shell page
func (s *FileStorage) OpenPreview(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(printing.CodeDispatchFailed, "operation cancelled", err)
	}

	cleanPath := filepath.Clean(name)
	if filepath.IsAbs(cleanPath) || containsDotDot(name) || strings.ContainsAny(name, `/\`) {
		s.logger.Warn("blocked potentially malicious path", zap.String("name", name))
		return nil, NewRenderError(printing.CodeDispatchFailed, "invalid path", nil)
	}
	if filepath.Ext(cleanPath) != ".pdf" {
		return nil, NewRenderError(printing.CodeDispatchFailed, "invalid path", nil)
	}

	file, err := os.Open(filepath.Join(s.config.PreviewDir, cleanPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewRenderError(printing.CodeDispatchFailed, "PDF not found", err)
		}
		return nil, NewRenderError(printing.CodeDispatchFailed, "failed to open PDF file", err)
	}
	return file, nil
}

// CleanupOlderThan removes preview PDFs older than age and then removes the
// preview directory itself when nothing is left in it.
func (s *FileStorage) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := s.now().Add(-age)
	deletedCount := 0

	entries, err := os.ReadDir(s.config.PreviewDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, NewRenderError(printing.CodeDispatchFailed, "failed to read preview directory", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return deletedCount, nil
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pdf" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.config.PreviewDir, entry.Name())
			if err := os.Remove(path); err == nil {
				deletedCount++
				s.logger.Debug("deleted old preview", zap.String("path", path))
			}
		}
	}

	if remaining, err := os.ReadDir(s.config.PreviewDir); err == nil && len(remaining) == 0 {
		if err := os.Remove(s.config.PreviewDir); err == nil {
			s.logger.Debug("removed empty preview directory", zap.String("path", s.config.PreviewDir))
		}
	}

	s.logger.Info("preview cleanup completed",
		zap.Int("deleted", deletedCount),
		zap.Duration("age", age))

	return deletedCount, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}
