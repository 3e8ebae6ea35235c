package geolocation

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// PushSource receives fixes from the client over the HTTP API.
type PushSource struct {
	mu            sync.Mutex
	emit          func(Event)
	registrations *xsync.Counter
}

func NewPushSource() *PushSource {
	return &PushSource{registrations: xsync.NewCounter()}
}

func (s *PushSource) Watch(_ context.Context, _ Options, emit func(Event)) (func(), error) {
	s.mu.Lock()
	s.emit = emit
	s.mu.Unlock()
	s.registrations.Inc()
	return func() {
		s.mu.Lock()
		s.emit = nil
		s.mu.Unlock()
	}, nil
}

// Registrations is the number of times a watch was registered.
func (s *PushSource) Registrations() int64 {
	return s.registrations.Value()
}

// Deliver hands ev to the active watch. It reports false when nothing is watching.
func (s *PushSource) Deliver(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emit == nil {
		return false
	}
	s.emit(ev)
	return true
}

func (s *PushSource) Push(fix Fix) bool {
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}
	return s.Deliver(PositionEvent{Fix: fix})
}

func (s *PushSource) Fail(reason ErrorReason, message string) bool {
	return s.Deliver(ErrorEvent{Reason: reason, Message: message})
}
