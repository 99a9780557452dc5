package dto

// ErrorResponse is the flat failure body every endpoint answers with
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// NewErrorResponse creates an error response without a code
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// NewErrorResponseWithCode creates an error response carrying a machine-readable code
func NewErrorResponseWithCode(code, message string) ErrorResponse {
	return ErrorResponse{Error: message, Code: code}
}

// StatusResponse answers GET /status
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// VersionResponse answers GET /version
type VersionResponse struct {
	Version string `json:"version"`
	Name    string `json:"name"`
}

// SurfaceResponse answers POST /surface
type SurfaceResponse struct {
	Success bool   `json:"success"`
	Session string `json:"session,omitempty"`
}
