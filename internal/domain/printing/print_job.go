package printing

import (
	"net/url"
	"strings"
	"time"
)

// PrintJob is the latest print description a page submitted for a session.
// Jobs are replaced whole; nothing patches an existing job in place.
type PrintJob struct {
	Session       string    `json:"session"`
	PreviewURL    string    `json:"preview_url,omitempty"`
	PrintURL      string    `json:"print_url,omitempty"`
	PaperSize     PaperSize `json:"paper_size"`
	PrintSelector string    `json:"print_selector"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewPrintJob validates its inputs and builds a job stamped with the current time
func NewPrintJob(session, previewURL, printURL string, paper PaperSize, selector string) (*PrintJob, error) {
	job := &PrintJob{
		Session:       strings.TrimSpace(session),
		PreviewURL:    strings.TrimSpace(previewURL),
		PrintURL:      strings.TrimSpace(printURL),
		PaperSize:     paper,
		PrintSelector: strings.TrimSpace(selector),
		CreatedAt:     time.Now(),
	}
	if job.PrintSelector == "" {
		job.PrintSelector = DefaultPrintSelector
	}
	if job.PaperSize.Name == "" {
		job.PaperSize.Name = DefaultPaperSizeName
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// Validate checks the job invariants
func (j *PrintJob) Validate() error {
	if j.Session == "" {
		return ErrMissingSession
	}
	if j.PreviewURL == "" && j.PrintURL == "" {
		return ErrMissingURL
	}
	for _, raw := range []string{j.PreviewURL, j.PrintURL} {
		if raw != "" && !isAbsoluteURL(raw) {
			return ErrInvalidURL
		}
	}
	if !j.PaperSize.IsValid() {
		return ErrInvalidPaperSize
	}
	return nil
}

// RenderURL returns the URL the renderer should load, preferring the print URL
func (j *PrintJob) RenderURL() string {
	if j.PrintURL != "" {
		return j.PrintURL
	}
	return j.PreviewURL
}

// IsExpired reports whether the job is older than ttl at now
func (j *PrintJob) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(j.CreatedAt) > ttl
}

// Clone returns a copy that callers may hold without sharing state with the store
func (j *PrintJob) Clone() *PrintJob {
	if j == nil {
		return nil
	}
	c := *j
	return &c
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && (u.Host != "" || u.Scheme == "file")
}
