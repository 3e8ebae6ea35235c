package render_test

import (
	"encoding/json"
	"testing"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/USA-RedDragon/campus-nav/internal/render"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	library = geo.Coordinate{Lat: 28.610, Lng: 77.037}
	sports  = geo.Coordinate{Lat: 28.612, Lng: 77.040}
	walk    = orb.LineString{library.Point(), sports.Point()}
)

func TestRecorderPaths(t *testing.T) {
	t.Parallel()
	r := render.NewRecorder()
	r.ShowPath(walk, render.RoutePath)
	r.ShowPath(walk, render.RoutePath)
	assert.Len(t, r.Paths(), 2)
	r.ClearPath()
	assert.Empty(t, r.Paths())
	r.ShowPath(walk, render.RoutePath)
	assert.Len(t, r.Paths(), 1)
	assert.Len(t, r.Commands(), 4)
}

func TestRecorderUserMarkerMoves(t *testing.T) {
	t.Parallel()
	r := render.NewRecorder()
	r.ShowMarker(library, render.BuildingMarker)
	r.ShowMarker(geo.Coordinate{Lat: 1, Lng: 1}, render.UserMarker)
	r.ShowMarker(geo.Coordinate{Lat: 2, Lng: 2}, render.UserMarker)

	markers := r.Markers()
	require.Len(t, markers, 2)
	assert.Equal(t, geo.Coordinate{Lat: 2, Lng: 2}, markers[1].Coordinate)

	render.ClearMarkers(r)
	assert.Empty(t, r.Markers())
}

func TestRecorderCenter(t *testing.T) {
	t.Parallel()
	r := render.NewRecorder()
	_, _, ok := r.Center()
	assert.False(t, ok)
	r.CenterOn(library, 17)
	c, zoom, ok := r.Center()
	require.True(t, ok)
	assert.Equal(t, library, c)
	assert.Equal(t, 17, zoom)
}

func TestMulti(t *testing.T) {
	t.Parallel()
	a, b := render.NewRecorder(), render.NewRecorder()
	s := render.Multi(a, b)
	s.ShowMarker(library, render.BuildingMarker)
	s.ShowPath(walk, render.RoutePath)
	s.CenterOn(sports, 19)
	render.ClearMarkers(s)
	s.ClearPath()
	assert.Equal(t, a.Commands(), b.Commands())
	assert.Len(t, a.Commands(), 5)

	render.Discard.ShowPath(walk, render.RoutePath)
}

func drain(ch <-chan render.Command) []render.Command {
	var out []render.Command
	for {
		select {
		case cmd, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, cmd)
		default:
			return out
		}
	}
}

func TestBroadcasterReplayAndLive(t *testing.T) {
	t.Parallel()
	b := render.NewBroadcaster()
	b.CenterOn(library, 17)
	b.ShowMarker(library, render.BuildingMarker)
	b.ShowPath(walk, render.RoutePath)

	ch := b.Subscribe("client-1")
	replay := drain(ch)
	types := make([]render.CommandType, len(replay))
	for i, cmd := range replay {
		types[i] = cmd.Type
	}
	assert.Equal(t, []render.CommandType{
		render.CommandClearMarks,
		render.CommandCenterOn,
		render.CommandShowMarker,
		render.CommandClearPath,
		render.CommandShowPath,
	}, types)

	b.ClearPath()
	live := drain(ch)
	require.Len(t, live, 1)
	assert.Equal(t, render.CommandClearPath, live[0].Type)

	session, err := render.SessionCommand(map[string]string{"state": "Idle"})
	require.NoError(t, err)
	b.Publish(session)
	assert.Len(t, drain(ch), 1)

	late := drain(b.Subscribe("client-2"))
	assert.Equal(t, render.CommandSession, late[len(late)-1].Type)
	assert.Equal(t, 2, b.Subscribers())

	b.Unsubscribe("client-1")
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 1, b.Subscribers())

	b.Close()
	b.Close()
	assert.Equal(t, 0, b.Subscribers())
	b.ShowMarker(sports, render.BuildingMarker)
}

func TestBroadcasterDropsSlowSubscriber(t *testing.T) {
	t.Parallel()
	b := render.NewBroadcaster()
	ch := b.Subscribe("slow")
	for i := 0; i < 1000; i++ {
		b.CenterOn(library, i)
	}
	assert.Equal(t, 0, b.Subscribers())
	n := 0
	for range ch {
		n++
	}
	assert.Less(t, n, 1000)
}

func TestCommandJSON(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(render.ShowPathCommand(walk, render.RoutePath))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "show_path",
		"path": {"type": "LineString", "coordinates": [[77.037, 28.61], [77.04, 28.612]]},
		"style": {"kind": "route", "color": "#6FA1EC"}
	}`, string(data))
}
