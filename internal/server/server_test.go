package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/USA-RedDragon/campus-nav/internal/config"
	"github.com/USA-RedDragon/campus-nav/internal/gazetteer"
	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/geolocation"
	"github.com/USA-RedDragon/campus-nav/internal/navmap"
	"github.com/USA-RedDragon/campus-nav/internal/render"
	"github.com/USA-RedDragon/campus-nav/internal/routing"
	apimodels "github.com/USA-RedDragon/campus-nav/internal/server/apimodels/v1"
	"github.com/USA-RedDragon/campus-nav/internal/server"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWait = 2 * time.Second
	testTick = 10 * time.Millisecond
)

type buildings []gazetteer.Location

func (b buildings) Load(_ context.Context) ([]gazetteer.Location, error) {
	return append([]gazetteer.Location(nil), b...), nil
}

func (b buildings) Source() string {
	return "test://buildings"
}

//nolint:gochecknoglobals
var campus = buildings{
	{Name: "Library", Coordinate: geo.Coordinate{Lat: 28.6108, Lng: 77.0375}},
	{Name: "Main Gate", Coordinate: geo.Coordinate{Lat: 28.6095, Lng: 77.0362}},
	{Name: "Sports Complex", Coordinate: geo.Coordinate{Lat: 28.6121, Lng: 77.0390}},
}

func straightLine(_ context.Context, from, to geo.Coordinate) (*routing.Route, error) {
	return &routing.Route{
		Path:     orb.LineString{from.Point(), to.Point()},
		Distance: geo.Distance(from, to),
		Duration: time.Minute,
	}, nil
}

type testServer struct {
	handler  http.Handler
	registry *navmap.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWT: config.JWT{Secret: "changeme"},
		Map: config.Map{PopularDestinations: []string{"Library", "Cafeteria"}},
	}
	registry := navmap.NewRegistry(func(_ string) (navmap.Options, error) {
		return navmap.Options{
			Buildings:           campus,
			Router:              routing.RouterFunc(straightLine),
			Geolocation:         geolocation.NewPushSource(),
			GeolocationOptions:  geolocation.Options{Watch: true},
			Center:              geo.Coordinate{Lat: 28.6103, Lng: 77.0370},
			PopularDestinations: cfg.Map.PopularDestinations,
		}.Broadcast(render.NewBroadcaster()), nil
	}, nil)
	t.Cleanup(registry.DisposeAll)
	return &testServer{
		handler:  server.NewServer(cfg, registry).Handler(),
		registry: registry,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) createMap(t *testing.T) apimodels.CreateMapResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/maps", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp apimodels.CreateMapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.NotEmpty(t, resp.Token)
	return resp
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestTrailingSlashIsCleaned(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestStartAndStopIPv4Only(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		HTTP: config.HTTP{
			HTTPListener: config.HTTPListener{IPV4Host: "127.0.0.1"},
		},
		JWT: config.JWT{Secret: "changeme"},
	}
	registry := navmap.NewRegistry(func(_ string) (navmap.Options, error) {
		return navmap.Options{Buildings: campus}, nil
	}, nil)
	srv := server.NewServer(cfg, registry)
	require.NoError(t, srv.Start())
	require.NoError(t, srv.Stop())
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMapRoutesRequireToken(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	first := s.createMap(t)
	second := s.createMap(t)

	w := s.do(t, http.MethodGet, "/v1/maps/"+first.ID+"/popular", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/v1/maps/"+first.ID+"/popular", second.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/v1/maps/"+first.ID+"/popular?token="+first.Token, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearch(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	w := s.do(t, http.MethodGet, "/v1/maps/"+m.ID+"/search?q=libr", m.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []apimodels.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "Library", results[0].Name)

	w = s.do(t, http.MethodGet, "/v1/maps/"+m.ID+"/search?q=lib&limit=x", m.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPopularSkipsUnknownNames(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	w := s.do(t, http.MethodGet, "/v1/maps/"+m.ID+"/popular", m.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []apimodels.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Library", results[0].Name)
}

func TestSelectUnknownLocation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	w := s.do(t, http.MethodPut, "/v1/maps/"+m.ID+"/end", m.Token, apimodels.EndpointRequest{Name: "Atlantis"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/v1/maps/"+m.ID+"/start", m.Token, apimodels.EndpointRequest{Name: navmap.UserLocationName})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouteFromPushedPosition(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)
	base := "/v1/maps/" + m.ID

	w := s.do(t, http.MethodPost, base+"/position", m.Token, map[string]float64{"lat": 28.6095, "lng": 77.0362, "accuracy": 5})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, base+"/position", m.Token, nil)
		var pos apimodels.PositionResponse
		return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &pos) == nil && pos.Known
	}, testWait, testTick)

	w = s.do(t, http.MethodPut, base+"/end", m.Token, apimodels.EndpointRequest{Name: "library"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var route apimodels.RouteResponse
	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, base+"/route", m.Token, nil)
		route = apimodels.RouteResponse{}
		return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &route) == nil && route.State == "Ready"
	}, testWait, testTick)
	assert.Equal(t, navmap.UserLocationName, route.Start)
	assert.Equal(t, "Library", route.End)
	require.NotNil(t, route.Summary)
	assert.Equal(t, 1, route.Summary.DurationMinutes)
	assert.NotNil(t, route.Path)

	w = s.do(t, http.MethodDelete, base+"/route", m.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"Idle"`)
}

func TestPositionRejectsInvalidCoordinates(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	w := s.do(t, http.MethodPost, "/v1/maps/"+m.ID+"/position", m.Token, map[string]float64{"lat": 120, "lng": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPositionErrorBecomesNotice(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)
	base := "/v1/maps/" + m.ID

	w := s.do(t, http.MethodPost, base+"/position", m.Token, map[string]string{"error": "permission_denied"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, base+"/position", m.Token, nil)
		var pos apimodels.PositionResponse
		return json.Unmarshal(w.Body.Bytes(), &pos) == nil && pos.Notice != "" && !pos.Known
	}, testWait, testTick)
}

func TestGoTo(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	w := s.do(t, http.MethodPost, "/v1/maps/"+m.ID+"/goto", m.Token, apimodels.GoToRequest{Query: "sports"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var loc apimodels.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loc))
	assert.Equal(t, "Sports Complex", loc.Name)

	w = s.do(t, http.MethodPost, "/v1/maps/"+m.ID+"/goto", m.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetryWithoutEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	w := s.do(t, http.MethodPost, "/v1/maps/"+m.ID+"/route/retry", m.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteMap(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	w := s.do(t, http.MethodDelete, "/v1/maps/"+m.ID, m.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, s.registry.Len())

	w = s.do(t, http.MethodGet, "/v1/maps/"+m.ID+"/route", m.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWalkwaysEmptyWithoutFeed(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	w := s.do(t, http.MethodGet, "/v1/maps/"+m.ID+"/walkways", m.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"FeatureCollection"`)
}

func TestRenderStream(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	ts := httptest.NewServer(s.handler)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/v1/maps/" + m.ID + "?token=" + m.Token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = resp.Body.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"lat": 28.6095, "lng": 77.0362}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testWait)))
	seen := map[render.CommandType]bool{}
	for !seen[render.CommandSelected] {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var cmd render.Command
		require.NoError(t, json.Unmarshal(data, &cmd))
		seen[cmd.Type] = true
		if cmd.Type == render.CommandSelected {
			assert.JSONEq(t, `{"name":"Your Location"}`, string(cmd.Payload))
		}
	}
	assert.True(t, seen[render.CommandShowMarker])
}

func TestRenderStreamRequiresToken(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	m := s.createMap(t)

	ts := httptest.NewServer(s.handler)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/v1/maps/" + m.ID
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
