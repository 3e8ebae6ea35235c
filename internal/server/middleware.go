package server

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/USA-RedDragon/campus-nav/internal/config"
	"github.com/USA-RedDragon/campus-nav/internal/navmap"
	"github.com/USA-RedDragon/campus-nav/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func applyMiddleware(r *gin.Engine, config *config.Config, otelComponent string, registry *navmap.Registry) {
	r.Use(gin.Recovery())

	r.TrustedPlatform = "X-Real-IP"

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "authorization")
	corsConfig.AllowCredentials = true
	corsConfig.AllowWildcard = true
	if len(config.HTTP.CORSHosts) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	corsConfig.AllowOrigins = config.HTTP.CORSHosts
	r.Use(cors.New(corsConfig))

	err := r.SetTrustedProxies(config.HTTP.TrustedProxies)
	if err != nil {
		slog.Error("Failed to set trusted proxies", "error", err.Error())
	}

	r.Use(registryMiddleware(registry))
	r.Use(configMiddleware(config))

	if config.HTTP.Tracing.Enabled {
		r.Use(otelgin.Middleware(otelComponent))
		r.Use(tracingProvider(config))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		WithSpanID:        config.HTTP.Tracing.Enabled,
		WithTraceID:       config.HTTP.Tracing.Enabled,
		DefaultLevel:      slog.LevelInfo,
		ClientErrorLevel:  slog.LevelWarn,
		ServerErrorLevel:  slog.LevelError,
		WithRequestHeader: false,
	}))
}

func configMiddleware(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("config", config)
		c.Next()
	}
}

func tracingProvider(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.HTTP.Tracing.OTLPEndpoint != "" {
			ctx := c.Request.Context()
			span := trace.SpanFromContext(ctx)
			if span.IsRecording() {
				span.SetAttributes(
					attribute.String("http.method", c.Request.Method),
					attribute.String("http.path", c.Request.URL.Path),
				)
				if id, ok := c.Params.Get("id"); ok {
					span.SetAttributes(attribute.String("campusnav.map", id))
				}
			}
		}
		c.Next()
	}
}

func registryMiddleware(registry *navmap.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("registry", registry)
		c.Next()
	}
}

// bearerToken reads the token from the Authorization header, falling back
// to the token query parameter browsers have to use for websockets.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

// Requires a map token issued for the :id in the path. The map is placed
// in the context under "map".
func requireMapToken(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		mapID, ok := c.Params.Get("id")
		if !ok || mapID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		subject, err := utils.VerifyMapToken(config.JWT.Secret, token)
		if err != nil || subject != mapID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		registry, ok := c.MustGet("registry").(*navmap.Registry)
		if !ok {
			slog.Error("Failed to get registry from context")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
			return
		}
		m, ok := registry.Get(mapID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Map not found"})
			return
		}
		c.Set("map", m)
		c.Next()
	}
}
