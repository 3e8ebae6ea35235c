package geolocation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/go-errors/errors"
)

type EventType string

const (
	EventTypePosition EventType = "position"
	EventTypeError    EventType = "error"
)

type Event interface {
	GetType() EventType
}

// Fix is a single position reading. Accuracy is the radius in meters.
type Fix struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Accuracy   float64        `json:"accuracy"`
	Timestamp  time.Time      `json:"timestamp"`
}

type PositionEvent struct {
	Fix
}

func (e PositionEvent) GetType() EventType {
	return EventTypePosition
}

type ErrorReason string

const (
	ReasonPermissionDenied ErrorReason = "permission_denied"
	ReasonTimeout          ErrorReason = "timeout"
	ReasonUnavailable      ErrorReason = "unavailable"
)

var (
	ErrGeolocationDenied      = errors.New("geolocation permission denied")
	ErrGeolocationTimeout     = errors.New("geolocation timed out")
	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
	ErrInvalidMessage         = errors.New("invalid geolocation message")
)

type ErrorEvent struct {
	Reason  ErrorReason `json:"reason"`
	Message string      `json:"message,omitempty"`
}

func (e ErrorEvent) GetType() EventType {
	return EventTypeError
}

// Err maps the reason code to its sentinel error. Unknown reasons are treated as unavailable.
func (e ErrorEvent) Err() error {
	var sentinel error
	switch e.Reason {
	case ReasonPermissionDenied:
		sentinel = ErrGeolocationDenied
	case ReasonTimeout:
		sentinel = ErrGeolocationTimeout
	default:
		sentinel = ErrGeolocationUnavailable
	}
	if e.Message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, e.Message)
}

// ParseReason accepts the reason codes plus the numeric codes browsers report (1, 2, 3).
func ParseReason(s string) ErrorReason {
	switch s {
	case string(ReasonPermissionDenied), "permission-denied", "1":
		return ReasonPermissionDenied
	case string(ReasonTimeout), "3":
		return ReasonTimeout
	default:
		return ReasonUnavailable
	}
}

// Message is the wire form of a fix or a failure, shared by every source.
type Message struct {
	Lat       *float64   `json:"lat,omitempty"`
	Lng       *float64   `json:"lng,omitempty"`
	Accuracy  float64    `json:"accuracy,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Error     string     `json:"error,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// Event converts the message, stamping fixes without a timestamp with now.
func (m Message) Event(now time.Time) (Event, error) {
	if m.Error != "" {
		return ErrorEvent{Reason: ParseReason(m.Error), Message: m.Message}, nil
	}
	if m.Lat == nil || m.Lng == nil {
		return nil, fmt.Errorf("%w: lat and lng are required", ErrInvalidMessage)
	}
	coord := geo.Coordinate{Lat: *m.Lat, Lng: *m.Lng}
	if !coord.Valid() {
		return nil, fmt.Errorf("%w: coordinate %s out of range", ErrInvalidMessage, coord)
	}
	if m.Accuracy < 0 {
		return nil, fmt.Errorf("%w: negative accuracy", ErrInvalidMessage)
	}
	ts := now
	if m.Timestamp != nil {
		ts = *m.Timestamp
	}
	return PositionEvent{Fix: Fix{Coordinate: coord, Accuracy: m.Accuracy, Timestamp: ts}}, nil
}

func DecodeMessage(data []byte) (Event, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return msg.Event(time.Now())
}
