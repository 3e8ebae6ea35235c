package server

import (
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/campus-nav/internal/config"
	controllersV1 "github.com/USA-RedDragon/campus-nav/internal/server/controllers/v1"
	websocketControllers "github.com/USA-RedDragon/campus-nav/internal/server/websocket"
	"github.com/USA-RedDragon/campus-nav/internal/websocket"
	"github.com/gin-gonic/gin"
)

func applyRoutes(r *gin.Engine, config *config.Config, renderWebsocket *websocketControllers.RenderWebsocket) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	apiV1 := r.Group("/v1")
	v1(apiV1, config)

	// Render stream
	wsV1 := r.Group("/ws/v1")
	wsV1.GET("/maps/:id", requireMapToken(config), websocket.CreateHandler(renderWebsocket, config))

	r.NoRoute(func(c *gin.Context) {
		slog.Warn("Not Found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
}

func v1(group *gin.RouterGroup, config *config.Config) {
	group.POST("/maps", controllersV1.POSTMap)

	maps := group.Group("/maps/:id", requireMapToken(config))
	maps.DELETE("", controllersV1.DELETEMap)
	maps.POST("/reload", controllersV1.POSTReload)
	maps.GET("/search", controllersV1.GETSearch)
	maps.GET("/popular", controllersV1.GETPopular)
	maps.POST("/goto", controllersV1.POSTGoTo)
	maps.PUT("/start", controllersV1.PUTStart)
	maps.PUT("/end", controllersV1.PUTEnd)
	maps.POST("/markers/click", controllersV1.POSTMarkerClick)
	maps.GET("/route", controllersV1.GETRoute)
	maps.DELETE("/route", controllersV1.DELETERoute)
	maps.POST("/route/retry", controllersV1.POSTRouteRetry)
	maps.POST("/locate", controllersV1.POSTLocate)
	maps.GET("/position", controllersV1.GETPosition)
	maps.POST("/position", controllersV1.POSTPosition)
	maps.GET("/walkways", controllersV1.GETWalkways)
}
