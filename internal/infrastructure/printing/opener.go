package printing

import (
	"context"
)

// FileOpener shows files and folders to the user with the platform's default handler
type FileOpener interface {
	Open(ctx context.Context, path string) error
	Reveal(ctx context.Context, dir string) error
}

// SystemOpener opens files with xdg-open, open or the Windows shell
type SystemOpener struct {
	runner CommandRunner
	goos   string
}

// NewSystemOpener creates an opener for goos
func NewSystemOpener(runner CommandRunner, goos string) *SystemOpener {
	return &SystemOpener{runner: runner, goos: goos}
}

// Open launches the default viewer for path
func (o *SystemOpener) Open(ctx context.Context, path string) error {
	name, args := o.command(path)
	return o.runner.Run(ctx, name, args...)
}

// Reveal opens dir in the file manager
func (o *SystemOpener) Reveal(ctx context.Context, dir string) error {
	name, args := o.command(dir)
	return o.runner.Run(ctx, name, args...)
}

func (o *SystemOpener) command(target string) (string, []string) {
	switch o.goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	case "darwin":
		return "open", []string{target}
	default:
		return "xdg-open", []string{target}
	}
}

var _ FileOpener = (*SystemOpener)(nil)
