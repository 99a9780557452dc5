package printing

import (
	"bufio"
	"bytes"
	"context"
	"strings"
)

// Printer is a locally installed print queue
type Printer struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// ListPrinters asks the OS for its print queues. It is best effort: callers
// should treat an error as an empty list.
func ListPrinters(ctx context.Context, runner CommandRunner, goos string) ([]Printer, error) {
	if goos == "windows" {
		out, err := runner.Output(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command",
			"Get-CimInstance Win32_Printer | ForEach-Object { \"$($_.Default)`t$($_.Name)\" }")
		if err != nil {
			return nil, err
		}
		return parseWindowsPrinters(out), nil
	}

	out, err := runner.Output(ctx, "lpstat", "-e")
	if err != nil {
		return nil, err
	}
	printers := parseLpstatDestinations(out)

	if def, err := runner.Output(ctx, "lpstat", "-d"); err == nil {
		markDefault(printers, parseLpstatDefault(def))
	}
	return printers, nil
}

// parseLpstatDestinations reads `lpstat -e`: one destination per line
func parseLpstatDestinations(out []byte) []Printer {
	printers := make([]Printer, 0)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			printers = append(printers, Printer{Name: name})
		}
	}
	return printers
}

// parseLpstatDefault reads `lpstat -d`, e.g. "system default destination: Office"
func parseLpstatDefault(out []byte) string {
	line := strings.TrimSpace(string(out))
	if i := strings.LastIndex(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

// parseWindowsPrinters reads "<True|False>\t<name>" lines
func parseWindowsPrinters(out []byte) []Printer {
	printers := make([]Printer, 0)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		flag, name, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "\t")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		printers = append(printers, Printer{
			Name:      strings.TrimSpace(name),
			IsDefault: strings.EqualFold(flag, "true"),
		})
	}
	return printers
}

func markDefault(printers []Printer, name string) {
	if name == "" {
		return
	}
	for i := range printers {
		if printers[i].Name == name {
			printers[i].IsDefault = true
		}
	}
}

// PrinterDirectory lists printers with the platform's own tools
type PrinterDirectory struct {
	Runner CommandRunner
	GOOS   string
}

// ListPrinters returns the print queues known to the OS
func (d *PrinterDirectory) ListPrinters(ctx context.Context) ([]Printer, error) {
	return ListPrinters(ctx, d.Runner, d.GOOS)
}
