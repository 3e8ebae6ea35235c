package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/config"
	"github.com/USA-RedDragon/campus-nav/internal/navmap"
	websocketControllers "github.com/USA-RedDragon/campus-nav/internal/server/websocket"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	defTimeout      = 120 * time.Second
	shutdownTimeout = 240 * time.Second
)

// listener is one address family of one HTTP surface.
type listener struct {
	name    string
	network string
	server  *http.Server
}

type Server struct {
	handler   http.Handler
	listeners []listener
	stopped   atomic.Bool
}

type Router struct {
	*gin.Engine
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if strings.HasSuffix(req.URL.Path, "/") {
		req.URL.Path = filepath.Clean(req.URL.Path)
	}
	r.Engine.ServeHTTP(w, req)
}

// listenersFor builds a tcp4 and a tcp6 listener for l. A family with an
// empty host is not served.
func listenersFor(name string, l config.HTTPListener, handler http.Handler) []listener {
	port := strconv.Itoa(int(l.Port))
	var out []listener
	for _, family := range []struct{ network, host string }{
		{"tcp4", l.IPV4Host},
		{"tcp6", l.IPV6Host},
	} {
		if family.host == "" {
			continue
		}
		out = append(out, listener{
			name:    name,
			network: family.network,
			server: &http.Server{
				Addr:              net.JoinHostPort(family.host, port),
				ReadHeaderTimeout: defTimeout,
				WriteTimeout:      defTimeout,
				Handler:           handler,
			},
		})
	}
	return out
}

func NewServer(config *config.Config, registry *navmap.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	if config.HTTP.PProf.Enabled {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	if config.HTTP.PProf.Enabled {
		pprof.Register(r)
	}

	renderWebsocket := websocketControllers.CreateRenderWebsocket()
	applyMiddleware(r, config, "api", registry)
	applyRoutes(r, config, renderWebsocket)

	handler := &Router{Engine: r}
	s := &Server{
		handler:   handler,
		listeners: listenersFor("HTTP", config.HTTP.HTTPListener, handler),
	}

	if config.HTTP.Metrics.Enabled {
		metricsRouter := gin.New()
		applyMiddleware(metricsRouter, config, "metrics", registry)
		metricsRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))
		s.listeners = append(s.listeners, listenersFor("Metrics", config.HTTP.Metrics.HTTPListener, metricsRouter)...)
	}

	return s
}

// Handler is the API router, without the listeners.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds every listener and serves in the background. Binding errors
// are returned; serve errors after Stop are ignored.
func (s *Server) Start() error {
	for _, l := range s.listeners {
		l := l
		ln, err := net.Listen(l.network, l.server.Addr)
		if err != nil {
			return err
		}
		go func() {
			if err := l.server.Serve(ln); err != nil && !s.stopped.Load() {
				slog.Error("Server error", "server", l.name, "network", l.network, "error", err.Error())
			}
		}()
		slog.Info("Server started", "server", l.name, "address", ln.Addr().String())
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.stopped.Store(true)

	errGrp := errgroup.Group{}
	for _, l := range s.listeners {
		l := l
		errGrp.Go(func() error {
			return l.server.Shutdown(ctx)
		})
	}
	return errGrp.Wait()
}
