package surface

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// BindingName is the function the shell page calls to talk back
	BindingName = "printbridgeEmit"
	// EventPrefix prefixes every CustomEvent dispatched into the shell page
	EventPrefix = "printbridge:"
)

// Inbound message types sent through the binding
const (
	MessageReady = "ready"
	MessageClose = "close"
)

type inboundMessage struct {
	Type string `json:"type"`
}

// parseInbound decodes a binding payload. A bare word is accepted as well
// as the JSON form the shell page sends.
func parseInbound(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", fmt.Errorf("empty binding payload")
	}
	if !strings.HasPrefix(payload, "{") {
		return payload, nil
	}
	var msg inboundMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return "", fmt.Errorf("invalid binding payload: %w", err)
	}
	if msg.Type == "" {
		return "", fmt.Errorf("binding payload has no type")
	}
	return msg.Type, nil
}

// dispatchScript builds the expression that raises channel in the page
func dispatchScript(channel string, payload any) (string, error) {
	detail := []byte("null")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s payload: %w", channel, err)
		}
		detail = b
	}
	name, err := json.Marshal(EventPrefix + channel)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("window.dispatchEvent(new CustomEvent(%s, {detail: %s})), true", name, detail), nil
}
