package dto

import (
	"github.com/printbridge/companion/internal/application/session"
	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/shopspring/decimal"
)

// Dimension is a paper edge in millimeters. Pages send it either as a JSON
// number or as a numeric string.
type Dimension struct {
	decimal.Decimal
}

// NewDimension creates a Dimension from a float
func NewDimension(v float64) Dimension {
	return Dimension{Decimal: decimal.NewFromFloat(v)}
}

// UnmarshalJSON rejects anything that is not a number with the paper size error
func (d *Dimension) UnmarshalJSON(data []byte) error {
	if err := d.Decimal.UnmarshalJSON(data); err != nil {
		return printing.ErrInvalidPaperSize
	}
	return nil
}

// SendURLsRequest is the job description a web page posts to /send-urls
type SendURLsRequest struct {
	Session       string    `json:"session" binding:"omitempty,max=128"`
	PreviewURL    string    `json:"preview_url" binding:"omitempty,max=4096"`
	PrintURL      string    `json:"print_url" binding:"omitempty,max=4096"`
	PaperWidth    Dimension `json:"paper_width"`
	PaperHeight   Dimension `json:"paper_height"`
	PaperSize     string    `json:"paper_size" binding:"omitempty,max=64"`
	PrintSelector string    `json:"print_selector" binding:"omitempty,max=512"`
}

// ToSubmitRequest converts the body into the ingest service input
func (r *SendURLsRequest) ToSubmitRequest() (session.SubmitRequest, error) {
	paper, err := printing.NewPaperSizeFromDecimal(r.PaperSize, r.PaperWidth.Decimal, r.PaperHeight.Decimal)
	if err != nil {
		return session.SubmitRequest{}, err
	}
	return session.SubmitRequest{
		Session:       r.Session,
		PreviewURL:    r.PreviewURL,
		PrintURL:      r.PrintURL,
		PaperSize:     paper,
		PrintSelector: r.PrintSelector,
	}, nil
}

// PaperSizeRequest is the paper block of a print submission
type PaperSizeRequest struct {
	Name   string    `json:"name" binding:"omitempty,max=64"`
	Width  Dimension `json:"width"`
	Height Dimension `json:"height"`
}

// PrintRequest is what the surface posts to /print
type PrintRequest struct {
	URL           string           `json:"url" binding:"required,max=4096"`
	PaperSize     PaperSizeRequest `json:"paperSize"`
	PrintSelector string           `json:"printSelector" binding:"omitempty,max=512"`
	Copies        int              `json:"copies" binding:"omitempty,min=1,max=99"`
	PrinterName   string           `json:"printerName" binding:"omitempty,max=256"`
	OutputType    string           `json:"outputType" binding:"omitempty,oneof=pdf printer"`
	Rotate180     bool             `json:"rotate180"`
	Side          string           `json:"side" binding:"omitempty,oneof=front back"`
}

// ToDomain converts the body into a domain print request
func (r *PrintRequest) ToDomain() (*printing.PrintRequest, error) {
	paper, err := printing.NewPaperSizeFromDecimal(r.PaperSize.Name, r.PaperSize.Width.Decimal, r.PaperSize.Height.Decimal)
	if err != nil {
		return nil, err
	}
	return &printing.PrintRequest{
		URL:           r.URL,
		PaperSize:     paper,
		PrintSelector: r.PrintSelector,
		Copies:        r.Copies,
		PrinterName:   r.PrinterName,
		OutputType:    printing.OutputType(r.OutputType),
		Rotate180:     r.Rotate180,
		Side:          printing.Side(r.Side),
	}, nil
}
