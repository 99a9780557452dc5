// Package protocol parses the custom-scheme URLs pages use to launch the
// companion, e.g. printbridge://print?session=abc.
package protocol

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultScheme is the scheme registered for the companion
const DefaultScheme = "printbridge"

// Actions understood in a launch URL
const (
	ActionPrint = "print"
	ActionOpen  = "open"
)

var (
	ErrEmptyURL          = errors.New("launch url is empty")
	ErrUnsupportedScheme = errors.New("unsupported launch url scheme")
	ErrUnknownAction     = errors.New("unknown launch url action")
	ErrInvalidSession    = errors.New("invalid session id in launch url")
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// LaunchRequest is a parsed launch URL
type LaunchRequest struct {
	Action  string
	Session string
}

// Parse reads a launch URL for scheme. The action may be written as host
// (printbridge://print), opaque part (printbridge:print) or path
// (printbridge:///print); a trailing slash is ignored. The session is
// optional.
func Parse(raw, scheme string) (*LaunchRequest, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	if scheme == "" {
		scheme = DefaultScheme
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid launch url: %w", err)
	}
	if !strings.EqualFold(u.Scheme, scheme) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	action := u.Host
	if action == "" {
		action = u.Opaque
		if action == "" {
			action = u.Path
		}
	}
	action = strings.ToLower(strings.Trim(action, "/"))
	if action == "" {
		action = ActionOpen
	}
	switch action {
	case ActionPrint, ActionOpen:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	session := strings.TrimSpace(u.Query().Get("session"))
	if session != "" && !sessionPattern.MatchString(session) {
		return nil, ErrInvalidSession
	}

	return &LaunchRequest{Action: action, Session: session}, nil
}

// IsLaunchURL reports whether arg looks like a launch URL for scheme
func IsLaunchURL(arg, scheme string) bool {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(arg)), strings.ToLower(scheme)+":")
}

// ValidSession reports whether s is acceptable as a session id in a launch
// URL or a surface request
func ValidSession(s string) bool {
	return sessionPattern.MatchString(s)
}
