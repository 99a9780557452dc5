package printing

import "github.com/printbridge/companion/internal/domain/shared"

// Error codes for the print pipeline
const (
	CodeInvalidJob        = "INVALID_JOB"
	CodeLoadTimeout       = "LOAD_TIMEOUT"
	CodeReadyTimeout      = "READY_TIMEOUT"
	CodeTargetNotFound    = "TARGET_NOT_FOUND"
	CodeTransformFailed   = "TRANSFORM_FAILED"
	CodeRenderFailed      = "RENDER_FAILED"
	CodeDispatchFailed    = "DISPATCH_FAILED"
	CodePersistenceFailed = "PERSISTENCE_FAILED"
)

var (
	ErrMissingSession     = shared.NewDomainError(CodeInvalidJob, "session is required")
	ErrMissingURL         = shared.NewDomainError(CodeInvalidJob, "preview_url or print_url is required")
	ErrInvalidURL         = shared.NewDomainError(CodeInvalidJob, "url is not a valid absolute url")
	ErrInvalidPaperSize   = shared.NewDomainError(CodeInvalidJob, "paper width and height must be finite positive numbers")
	ErrInvalidOutputType  = shared.NewDomainError(CodeInvalidJob, "outputType must be pdf or printer")
	ErrMissingPrinterName = shared.NewDomainError(CodeInvalidJob, "printerName is required when outputType is printer")
	ErrInvalidCopies      = shared.NewDomainError(CodeInvalidJob, "copies must be between 1 and 99")
	ErrInvalidSide        = shared.NewDomainError(CodeInvalidJob, "side must be front, back or empty")
)
