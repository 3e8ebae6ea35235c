package render

import (
	"log/slog"
	"sync"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/paulmach/orb"
	"github.com/puzpuzpuz/xsync/v3"
)

const subscriberBuffer = 256

// Broadcaster is a Surface that fans every call out to subscribed streams
// as Commands. New subscribers first receive a replay of the current picture.
type Broadcaster struct {
	state *Recorder

	// mu orders publishes against subscribes so no subscriber sees a command twice or misses one.
	mu          sync.Mutex
	subscribers *xsync.MapOf[string, chan Command]
	lastSession *Command
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		state:       &Recorder{noLog: true},
		subscribers: xsync.NewMapOf[string, chan Command](),
	}
}

// Subscribe registers id and returns its stream, preloaded with a replay.
// Resubscribing with the same id replaces the earlier stream.
func (b *Broadcaster) Subscribe(id string) <-chan Command {
	b.mu.Lock()
	defer b.mu.Unlock()

	replay := b.state.Replay()
	if b.lastSession != nil {
		replay = append(replay, *b.lastSession)
	}
	ch := make(chan Command, subscriberBuffer+len(replay))
	for _, cmd := range replay {
		ch <- cmd
	}
	if b.closed {
		close(ch)
		return ch
	}
	if old, loaded := b.subscribers.LoadAndStore(id, ch); loaded {
		close(old)
	}
	return ch
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, loaded := b.subscribers.LoadAndDelete(id); loaded {
		close(ch)
	}
}

func (b *Broadcaster) Subscribers() int {
	return b.subscribers.Size()
}

// Publish sends cmd to every subscriber. A subscriber too slow to keep up is
// dropped and has to resubscribe for a fresh replay.
func (b *Broadcaster) Publish(cmd Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cmd.Type == CommandSession {
		b.lastSession = &cmd
	}
	b.publishLocked(cmd)
}

func (b *Broadcaster) publishLocked(cmd Command) {
	if b.closed {
		return
	}
	b.subscribers.Range(func(id string, ch chan Command) bool {
		select {
		case ch <- cmd:
		default:
			slog.Warn("Dropping slow render subscriber", "subscriber", id)
			b.subscribers.Delete(id)
			close(ch)
		}
		return true
	})
}

// Close ends every stream. Later calls are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.subscribers.Range(func(id string, ch chan Command) bool {
		b.subscribers.Delete(id)
		close(ch)
		return true
	})
}

func (b *Broadcaster) ShowMarker(c geo.Coordinate, style Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.ShowMarker(c, style)
	b.publishLocked(ShowMarkerCommand(c, style))
}

func (b *Broadcaster) ShowPath(path orb.LineString, style Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.ShowPath(path, style)
	b.publishLocked(ShowPathCommand(path, style))
}

func (b *Broadcaster) ClearPath() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.ClearPath()
	b.publishLocked(ClearPathCommand())
}

func (b *Broadcaster) ClearMarkers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.ClearMarkers()
	b.publishLocked(ClearMarkersCommand())
}

func (b *Broadcaster) CenterOn(c geo.Coordinate, zoom int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.CenterOn(c, zoom)
	b.publishLocked(CenterOnCommand(c, zoom))
}
