package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/config"
	"github.com/USA-RedDragon/campus-nav/internal/gazetteer"
	"github.com/USA-RedDragon/campus-nav/internal/geolocation"
	"github.com/USA-RedDragon/campus-nav/internal/navmap"
	"github.com/USA-RedDragon/campus-nav/internal/routing"
	apimodels "github.com/USA-RedDragon/campus-nav/internal/server/apimodels/v1"
	"github.com/USA-RedDragon/campus-nav/internal/session"
	"github.com/USA-RedDragon/campus-nav/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
)

// errorStatus maps a map operation failure to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, navmap.ErrUnknownLocation),
		errors.Is(err, navmap.ErrDisposed):
		return http.StatusNotFound
	case errors.Is(err, navmap.ErrPositionUnknown),
		errors.Is(err, navmap.ErrNotLocating),
		errors.Is(err, navmap.ErrPushUnsupported),
		errors.Is(err, session.ErrEndpointsIncomplete):
		return http.StatusConflict
	case errors.Is(err, geolocation.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, gazetteer.ErrFeedUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, navmap.ErrNoGeolocation),
		errors.Is(err, routing.ErrRoutingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("Map operation failed", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "Try again later"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func getMap(c *gin.Context) (*navmap.Map, bool) {
	m, ok := c.MustGet("map").(*navmap.Map)
	if !ok {
		slog.Error("Failed to get map from context")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
	}
	return m, ok
}

func POSTMap(c *gin.Context) {
	registry, ok := c.MustGet("registry").(*navmap.Registry)
	if !ok {
		slog.Error("Failed to get registry from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	config, ok := c.MustGet("config").(*config.Config)
	if !ok {
		slog.Error("Failed to get config from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	m, err := registry.Create(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	token, err := utils.GenerateMapToken(config.JWT.Secret, m.ID())
	if err != nil {
		registry.Dispose(m.ID())
		slog.Error("Failed to sign map token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	resp := apimodels.CreateMapResponse{
		ID:    m.ID(),
		Token: token,
	}
	if feedErr := m.FeedErr(); feedErr != nil {
		resp.FeedError = feedErr.Error()
	}
	c.JSON(http.StatusCreated, resp)
}

func DELETEMap(c *gin.Context) {
	registry, ok := c.MustGet("registry").(*navmap.Registry)
	if !ok {
		slog.Error("Failed to get registry from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	if !registry.Dispose(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Map not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func POSTReload(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	if err := m.Reload(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func GETSearch(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
	}
	c.JSON(http.StatusOK, apimodels.NewLocations(m.Search(c.Query("q"), limit)))
}

func GETPopular(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, apimodels.NewLocations(m.PopularDestinations()))
}

func POSTGoTo(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	var req apimodels.GoToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	loc, err := m.GoTo(req.Query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, apimodels.NewLocation(loc))
}

func PUTStart(c *gin.Context) {
	selectEndpoint(c, (*navmap.Map).SelectStart)
}

func PUTEnd(c *gin.Context) {
	selectEndpoint(c, (*navmap.Map).SelectEnd)
}

func selectEndpoint(c *gin.Context, set func(*navmap.Map, string) error) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	var req apimodels.EndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := set(m, req.Name); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

func POSTMarkerClick(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	var req apimodels.MarkerClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if err := m.MarkerClick(req.Name); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Snapshot())
}

func GETRoute(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	resp := apimodels.RouteResponse{Snapshot: m.Snapshot()}
	if route := m.Route(); route != nil && resp.State == session.StateReady {
		resp.Path = geojson.NewGeometry(route.Path)
	}
	c.JSON(http.StatusOK, resp)
}

func DELETERoute(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	m.Clear()
	c.JSON(http.StatusOK, m.Snapshot())
}

func POSTRouteRetry(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	if err := m.Retry(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, m.Snapshot())
}

func POSTLocate(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	started, err := m.Locate()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, apimodels.LocateResponse{Started: started})
}

func GETPosition(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	var resp apimodels.PositionResponse
	if fix, known := m.Position(); known {
		resp.Known = true
		resp.Lat = fix.Coordinate.Lat
		resp.Lng = fix.Coordinate.Lng
		resp.Accuracy = fix.Accuracy
	}
	if notice := m.LocationNotice(); notice != nil {
		resp.Notice = notice.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func POSTPosition(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	var msg geolocation.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ev, err := msg.Event(time.Now())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := m.Deliver(ev); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func GETWalkways(c *gin.Context) {
	m, ok := getMap(c)
	if !ok {
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, line := range m.Walkways() {
		fc.Append(geojson.NewFeature(line))
	}
	c.JSON(http.StatusOK, fc)
}
