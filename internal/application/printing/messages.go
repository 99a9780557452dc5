package printing

import (
	"errors"
	"strings"
	"unicode"

	"github.com/printbridge/companion/internal/domain/printing"
	infra "github.com/printbridge/companion/internal/infrastructure/printing"
)

// userMessage turns a pipeline error into something the person at the
// printer can act on
func userMessage(err error) string {
	switch infra.ErrorCode(err) {
	case printing.CodeLoadTimeout:
		return "The page took too long to load. Check the connection and try again."
	case printing.CodeReadyTimeout:
		return "The page did not finish loading in time. Please try again."
	case printing.CodeTargetNotFound:
		return "Nothing printable was found on the page."
	case printing.CodeTransformFailed:
		return "The page could not be prepared for printing."
	case printing.CodeRenderFailed:
		return "The PDF could not be generated. Please try again."
	case printing.CodeDispatchFailed:
		var re *infra.RenderError
		if errors.As(err, &re) && re.Message != "" {
			return sentence(re.Message)
		}
		return "The document could not be sent."
	case printing.CodeInvalidJob:
		return sentence(err.Error())
	}
	return "An unexpected error occurred while printing."
}

// sentence capitalizes msg and ends it with a period
func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return msg
	}
	r := []rune(msg)
	r[0] = unicode.ToUpper(r[0])
	msg = string(r)
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
