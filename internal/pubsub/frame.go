package pubsub

import (
	"encoding/json"
	"fmt"
)

// Protocol event names, following the Pusher convention.
const (
	EventNameConnectionEstablished = "pusher:connection_established"
	EventNameSubscribe             = "pusher:subscribe"
	EventNameUnsubscribe           = "pusher:unsubscribe"
	EventNamePing                  = "pusher:ping"
	EventNamePong                  = "pusher:pong"
	EventNameClientAuth            = "client-auth"
	EventNameAuthSuccess           = "pusher:auth_success"
	EventNameAuthFailed            = "pusher:auth_failed"
	EventNameSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	EventNameError                 = "pusher:error"
)

// ErrorCodeAccessDenied is the error code carried by pusher:error frames
// for access and validation failures.
const ErrorCodeAccessDenied = 4001

// Frame is the wire envelope for one protocol message. Inbound data may be
// an object or a string; outbound data is always a JSON-encoded string,
// matching the Pusher convention.
type Frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Auth    json.RawMessage `json:"auth,omitempty"`
}

// EventKind is the closed set of inbound events the handler dispatches on.
// Unrecognized event names decode to KindUnknown.
type EventKind int

// Inbound event kinds.
const (
	KindUnknown EventKind = iota
	KindConnectionEstablished
	KindClientAuth
	KindSubscribe
	KindUnsubscribe
	KindPing
)

// String returns a stable label for metrics.
func (k EventKind) String() string {
	switch k {
	case KindConnectionEstablished:
		return "connection_established"
	case KindClientAuth:
		return "client_auth"
	case KindSubscribe:
		return "subscribe"
	case KindUnsubscribe:
		return "unsubscribe"
	case KindPing:
		return "ping"
	default:
		return "unknown"
	}
}

// kindOf maps an event name to its kind.
func kindOf(event string) EventKind {
	switch event {
	case EventNameConnectionEstablished:
		return KindConnectionEstablished
	case EventNameClientAuth:
		return KindClientAuth
	case EventNameSubscribe:
		return KindSubscribe
	case EventNameUnsubscribe:
		return KindUnsubscribe
	case EventNamePing:
		return KindPing
	default:
		return KindUnknown
	}
}

// DecodeFrame parses one inbound frame and classifies its event. A payload
// that is not a JSON object fails with ErrInvalidPayload.
func DecodeFrame(data []byte) (*Frame, EventKind, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, KindUnknown, ErrInvalidPayload
	}
	return &frame, kindOf(frame.Event), nil
}

// ChannelName extracts the channel from a subscribe/unsubscribe frame's
// data. The data may be an object or a doubly-encoded JSON string, both of
// which appear in the wild.
func (f *Frame) ChannelName() string {
	if len(f.Data) == 0 {
		return ""
	}

	var data struct {
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(f.Data, &data); err == nil && data.Channel != "" {
		return data.Channel
	}

	var nested string
	if err := json.Unmarshal(f.Data, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &data); err == nil {
			return data.Channel
		}
	}

	return ""
}

// EncodeFrame builds an outbound frame. The payload is marshaled and then
// carried as a JSON string in the data field.
func EncodeFrame(event, channel string, payload any) ([]byte, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	frame := struct {
		Event   string `json:"event"`
		Channel string `json:"channel,omitempty"`
		Data    string `json:"data"`
	}{
		Event:   event,
		Channel: channel,
		Data:    string(inner),
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}
	return data, nil
}

// errorPayload is the data carried by pusher:error frames.
type errorPayload struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// EncodeErrorFrame builds a pusher:error frame with code 4001.
func EncodeErrorFrame(message string) ([]byte, error) {
	return EncodeFrame(EventNameError, "", errorPayload{
		Message: message,
		Code:    ErrorCodeAccessDenied,
	})
}
