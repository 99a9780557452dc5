package surface

import (
	"encoding/json"

	"github.com/printbridge/companion/internal/domain/printing"
)

// DataPayload is pushed on the urls-received channel
type DataPayload struct {
	Session       string             `json:"session"`
	PreviewURL    string             `json:"previewUrl,omitempty"`
	PrintURL      string             `json:"printUrl,omitempty"`
	PaperSize     printing.PaperSize `json:"paperSize"`
	PrintSelector string             `json:"printSelector"`
}

// WaitingPayload is pushed when a surface is revealed with nothing to show
type WaitingPayload struct {
	Session string `json:"session,omitempty"`
}

// LoadingPayload is pushed once a reveal has finished
type LoadingPayload struct {
	Session string `json:"session,omitempty"`
}

// NewDataPayload builds the UI view of a job
func NewDataPayload(job *printing.PrintJob) DataPayload {
	return DataPayload{
		Session:       job.Session,
		PreviewURL:    job.PreviewURL,
		PrintURL:      job.PrintURL,
		PaperSize:     job.PaperSize,
		PrintSelector: job.PrintSelector,
	}
}

// key identifies a payload for duplicate suppression
func (p DataPayload) key() string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}
