package geolocation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSSource subscribes to fixes published on a per-map subject.
type NATSSource struct {
	conn    *nats.Conn
	subject string
}

func NewNATSSource(conn *nats.Conn, subject string) *NATSSource {
	return &NATSSource{conn: conn, subject: subject}
}

func (s *NATSSource) Watch(_ context.Context, _ Options, emit func(Event)) (func(), error) {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		ev, err := DecodeMessage(msg.Data)
		if err != nil {
			slog.Warn("Error decoding geolocation message", "subject", msg.Subject, "error", err)
			return
		}
		emit(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("Error unsubscribing from NATS", "subject", s.subject, "error", err)
		}
	}, nil
}
