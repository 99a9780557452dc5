package printing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPaperSizeName is used when the caller does not name its paper
	DefaultPaperSizeName = "Custom"
	// DefaultPrintSelector is the element isolated for printing when none is given
	DefaultPrintSelector = "#print-area"

	// maxPaperDimensionMM bounds a single paper edge; Chrome rejects absurd page sizes
	maxPaperDimensionMM = 5000
)

// PaperSize is a fixed physical page size in millimeters
type PaperSize struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewPaperSize creates a PaperSize after checking both edges are finite and positive
func NewPaperSize(name string, width, height float64) (PaperSize, error) {
	if !validDimension(width) || !validDimension(height) {
		return PaperSize{}, ErrInvalidPaperSize
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPaperSizeName
	}
	return PaperSize{Name: name, Width: width, Height: height}, nil
}

// NewPaperSizeFromDecimal creates a PaperSize from decimal edges, as decoded
// from requests that may carry numbers or numeric strings.
func NewPaperSizeFromDecimal(name string, width, height decimal.Decimal) (PaperSize, error) {
	if !width.IsPositive() || !height.IsPositive() {
		return PaperSize{}, ErrInvalidPaperSize
	}
	return NewPaperSize(name, width.Round(3).InexactFloat64(), height.Round(3).InexactFloat64())
}

// IsValid reports whether both edges are finite and positive
func (p PaperSize) IsValid() bool {
	return validDimension(p.Width) && validDimension(p.Height)
}

// Equals checks if two paper sizes describe the same page
func (p PaperSize) Equals(other PaperSize) bool {
	return p.Name == other.Name && p.Width == other.Width && p.Height == other.Height
}

// IsLandscape returns true when the page is wider than tall
func (p PaperSize) IsLandscape() bool {
	return p.Width > p.Height
}

func validDimension(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 && v <= maxPaperDimensionMM
}
