package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Notifier is told about every stored job
type Notifier interface {
	Notify(session string, job *printing.PrintJob)
}

// SubmitRequest is a print description sent by a web page
type SubmitRequest struct {
	Session       string
	PreviewURL    string
	PrintURL      string
	PaperSize     printing.PaperSize
	PrintSelector string
}

// SubmitResponse echoes what was stored
type SubmitResponse struct {
	Success   bool               `json:"success"`
	Session   string             `json:"session"`
	PaperSize printing.PaperSize `json:"paperSize"`
}

// IngestService stores submitted jobs and wakes the working surface
type IngestService struct {
	repo     printing.SessionRepository
	notifier Notifier
	metrics  *telemetry.PrintMetrics
	logger   *zap.Logger
}

// NewIngestService creates a new IngestService. notifier and metrics may be nil.
func NewIngestService(repo printing.SessionRepository, notifier Notifier, metrics *telemetry.PrintMetrics, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		repo:     repo,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Submit validates and stores a job, replacing any earlier job of the same
// session. A missing session id is generated.
func (s *IngestService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	session := strings.TrimSpace(req.Session)
	if session == "" {
		session = uuid.New().String()
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "IngestService", "Submit",
		telemetry.WithAttribute(telemetry.SpanAttrSession, session),
	)
	defer span.End()

	job, err := printing.NewPrintJob(session, req.PreviewURL, req.PrintURL, req.PaperSize, req.PrintSelector)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	stored, err := s.repo.Put(ctx, job)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store job: %w", err)
	}
	s.metrics.RecordJobReceived(ctx)

	s.logger.Info("print job received",
		zap.String("session", stored.Session),
		zap.String("preview_url", stored.PreviewURL),
		zap.String("print_url", stored.PrintURL),
		zap.String("paper", stored.PaperSize.Name),
		zap.Float64("width_mm", stored.PaperSize.Width),
		zap.Float64("height_mm", stored.PaperSize.Height))

	if s.notifier != nil {
		s.notifier.Notify(stored.Session, stored)
	}

	telemetry.SetOK(span)
	return &SubmitResponse{
		Success:   true,
		Session:   stored.Session,
		PaperSize: stored.PaperSize,
	}, nil
}

// Get returns the live job of a session
func (s *IngestService) Get(ctx context.Context, session string) (*printing.PrintJob, bool) {
	return s.repo.Get(ctx, session)
}
