package surface

import (
	"context"
	"errors"
)

// Channels pushed to the UI shell
const (
	ChannelConnectionInfo  = "connection-info"
	ChannelURLsReceived    = "urls-received"
	ChannelWaitingForData  = "waiting-for-data"
	ChannelLoadingComplete = "loading-complete"
)

// ErrSurfaceUnavailable is returned when no working surface could be shown
var ErrSurfaceUnavailable = errors.New("working surface unavailable")

// Surface is one visible-or-hidden UI window
type Surface interface {
	ID() string
	// Ready is closed once the UI reports it can take data
	Ready() <-chan struct{}
	// CloseRequests delivers a value each time the user asks to close the window
	CloseRequests() <-chan struct{}
	// Done is closed when the window is gone for good
	Done() <-chan struct{}
	Visible() bool
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
	Focus(ctx context.Context) error
	// Send pushes payload to the UI on the named channel
	Send(ctx context.Context, channel string, payload any) error
	Destroy() error
}

// Factory builds hidden surfaces
type Factory interface {
	Build(ctx context.Context) (Surface, error)
}

// State is the lifecycle position of the active slot
type State string

const (
	StateAbsent        State = "absent"
	StatePreloading    State = "preloading"
	StateActiveHidden  State = "active-hidden"
	StateActiveVisible State = "active-visible"
)

// ConnectionInfo tells the UI how to reach the companion
type ConnectionInfo struct {
	Port    int    `json:"port"`
	BaseURL string `json:"baseUrl"`
	Version string `json:"version"`
}

// Snapshot describes the orchestrator slots at one instant
type Snapshot struct {
	State      State  `json:"state"`
	ActiveID   string `json:"activeId,omitempty"`
	SpareReady bool   `json:"spareReady"`
	Queued     int    `json:"queued"`
	Session    string `json:"session,omitempty"`
	Quitting   bool   `json:"quitting"`
}

func alive(s Surface) bool {
	if s == nil {
		return false
	}
	select {
	case <-s.Done():
		return false
	default:
		return true
	}
}
