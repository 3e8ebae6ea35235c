package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/campus-nav/internal/config"
	"github.com/USA-RedDragon/campus-nav/internal/navmap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const bufferSize = 1024

// Websocket receives the lifecycle of one connection to a map stream.
// connID is unique per connection.
type Websocket interface {
	OnMessage(ctx context.Context, r *http.Request, w Writer, msg []byte, t int, connID string, m *navmap.Map)
	OnConnect(ctx context.Context, r *http.Request, w Writer, connID string, m *navmap.Map)
	OnDisconnect(ctx context.Context, r *http.Request, connID string, m *navmap.Map)
}

type Message struct {
	Type int
	Data []byte
}

// Writer queues frames for the connection. Error ends the connection.
type Writer interface {
	WriteMessage(msg Message)
	Error(reason string)
}

type wsWriter struct {
	writer chan Message
	error  chan string
	done   <-chan struct{}
}

func (w wsWriter) WriteMessage(msg Message) {
	select {
	case w.writer <- msg:
	case <-w.done:
	}
}

func (w wsWriter) Error(reason string) {
	select {
	case w.error <- reason:
	default:
	}
}

type WSHandler struct {
	wsUpgrader websocket.Upgrader
	handler    Websocket
}

func CreateHandler(ws Websocket, config *config.Config) func(*gin.Context) {
	handler := &WSHandler{
		wsUpgrader: websocket.Upgrader{
			HandshakeTimeout: 0,
			ReadBufferSize:   bufferSize,
			WriteBufferSize:  bufferSize,
			WriteBufferPool:  nil,
			Subprotocols:     []string{},
			Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			},
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if len(config.HTTP.CORSHosts) == 0 {
					return true
				}
				origin = strings.ToLower(origin)
				for _, host := range config.HTTP.CORSHosts {
					host = strings.ToLower(host)
					if strings.HasSuffix(host, ":443") && strings.HasPrefix(origin, "https://") {
						host = strings.TrimSuffix(host, ":443")
					}
					if strings.HasSuffix(host, ":80") && strings.HasPrefix(origin, "http://") {
						host = strings.TrimSuffix(host, ":80")
					}
					if strings.Contains(origin, host) {
						return true
					}
				}
				return false
			},
			EnableCompression: true,
		},
		handler: ws,
	}

	return func(c *gin.Context) {
		m, ok := c.MustGet("map").(*navmap.Map)
		if !ok {
			slog.Error("Failed to get map from context")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
			return
		}
		conn, err := handler.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to set websocket upgrade", "error", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		connID := uuid.NewString()
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer func() {
			cancel()
			handler.handler.OnDisconnect(ctx, c.Request, connID, m)
			_ = conn.Close()
		}()

		handler.handle(ctx, conn, c.Request, connID, m)
	}
}

func (h *WSHandler) handle(ctx context.Context, conn *websocket.Conn, r *http.Request, connID string, m *navmap.Map) {
	writer := wsWriter{
		writer: make(chan Message, bufferSize),
		error:  make(chan string, 1),
		done:   ctx.Done(),
	}
	h.handler.OnConnect(ctx, r, writer, connID, m)

	go func() {
		for {
			t, msg, err := conn.ReadMessage()
			if err != nil {
				writer.Error("read failed")
				break
			}
			switch {
			case t == websocket.PingMessage:
				writer.WriteMessage(Message{
					Type: websocket.PongMessage,
				})
			case strings.EqualFold(string(msg), "ping"):
				writer.WriteMessage(Message{
					Type: websocket.TextMessage,
					Data: []byte("PONG"),
				})
			default:
				h.handler.OnMessage(ctx, r, writer, msg, t, connID, m)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-writer.error:
			slog.Debug("Closing websocket", "map", m.ID(), "connection", connID, "reason", reason)
			return
		case msg := <-writer.writer:
			err := conn.WriteMessage(msg.Type, msg.Data)
			if err != nil {
				return
			}
		}
	}
}
