package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/campus-nav/internal/geolocation"
	"github.com/USA-RedDragon/campus-nav/internal/navmap"
	"github.com/USA-RedDragon/campus-nav/internal/render"
	"github.com/USA-RedDragon/campus-nav/internal/websocket"
	gorillaWebsocket "github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

// RenderWebsocket streams a map's render commands to its clients. Clients
// may send geolocation messages back on the same connection.
type RenderWebsocket struct {
	streams *xsync.MapOf[string, *render.Broadcaster]
}

func CreateRenderWebsocket() *RenderWebsocket {
	return &RenderWebsocket{
		streams: xsync.NewMapOf[string, *render.Broadcaster](),
	}
}

// Connections is the number of open streams across all maps.
func (c *RenderWebsocket) Connections() int {
	return c.streams.Size()
}

func (c *RenderWebsocket) OnMessage(_ context.Context, _ *http.Request, w websocket.Writer, msg []byte, msgType int, connID string, m *navmap.Map) {
	if msgType != gorillaWebsocket.TextMessage {
		slog.Debug("Ignoring non-text websocket message", "map", m.ID(), "connection", connID, "type", msgType)
		return
	}
	ev, err := geolocation.DecodeMessage(msg)
	if err != nil {
		slog.Warn("Error decoding geolocation message", "map", m.ID(), "connection", connID, "error", err)
		writeCommand(w, render.NoticeCommand(err.Error()))
		return
	}
	if err := m.Deliver(ev); err != nil {
		slog.Warn("Error delivering position", "map", m.ID(), "connection", connID, "error", err)
		writeCommand(w, render.NoticeCommand(err.Error()))
	}
}

func (c *RenderWebsocket) OnConnect(ctx context.Context, _ *http.Request, w websocket.Writer, connID string, m *navmap.Map) {
	broadcaster, ok := m.Surface().(*render.Broadcaster)
	if !ok {
		slog.Error("Map has no render stream", "map", m.ID())
		w.Error("map has no render stream")
		return
	}
	commands := broadcaster.Subscribe(connID)
	c.streams.Store(connID, broadcaster)
	slog.Debug("Render stream connected", "map", m.ID(), "connection", connID)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cmd, more := <-commands:
				if !more {
					// Map disposed or this subscriber fell behind.
					w.Error("stream closed")
					return
				}
				writeCommand(w, cmd)
			}
		}
	}()
}

func (c *RenderWebsocket) OnDisconnect(_ context.Context, _ *http.Request, connID string, m *navmap.Map) {
	broadcaster, loaded := c.streams.LoadAndDelete(connID)
	if !loaded {
		return
	}
	broadcaster.Unsubscribe(connID)
	slog.Debug("Render stream disconnected", "map", m.ID(), "connection", connID)
}

func writeCommand(w websocket.Writer, cmd render.Command) {
	data, err := json.Marshal(cmd)
	if err != nil {
		slog.Warn("Error marshalling render command", "type", cmd.Type, "error", err)
		return
	}
	w.WriteMessage(websocket.Message{
		Type: gorillaWebsocket.TextMessage,
		Data: data,
	})
}
