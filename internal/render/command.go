package render

import (
	"encoding/json"

	"github.com/USA-RedDragon/campus-nav/internal/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type CommandType string

const (
	CommandShowMarker CommandType = "show_marker"
	CommandShowPath   CommandType = "show_path"
	CommandClearPath  CommandType = "clear_path"
	CommandCenterOn   CommandType = "center_on"
	CommandClearMarks CommandType = "clear_markers"
	// CommandSession carries a navigation state snapshot rather than a drawing.
	CommandSession  CommandType = "session"
	CommandSelected CommandType = "selected"
	CommandNotice   CommandType = "notice"
)

// Command is the wire form of a surface call.
type Command struct {
	Type       CommandType       `json:"type"`
	Coordinate *geo.Coordinate   `json:"coordinate,omitempty"`
	Path       *geojson.Geometry `json:"path,omitempty"`
	Style      *Style            `json:"style,omitempty"`
	Zoom       int               `json:"zoom,omitempty"`
	Payload    json.RawMessage   `json:"payload,omitempty"`
}

func ShowMarkerCommand(c geo.Coordinate, style Style) Command {
	return Command{Type: CommandShowMarker, Coordinate: &c, Style: &style}
}

func ShowPathCommand(path orb.LineString, style Style) Command {
	return Command{Type: CommandShowPath, Path: geojson.NewGeometry(path), Style: &style}
}

func ClearPathCommand() Command {
	return Command{Type: CommandClearPath}
}

func ClearMarkersCommand() Command {
	return Command{Type: CommandClearMarks}
}

func CenterOnCommand(c geo.Coordinate, zoom int) Command {
	return Command{Type: CommandCenterOn, Coordinate: &c, Zoom: zoom}
}

func SessionCommand(payload any) (Command, error) {
	return payloadCommand(CommandSession, payload)
}

// SelectedCommand tells the client which location was just picked as an endpoint.
func SelectedCommand(name string) Command {
	cmd, _ := payloadCommand(CommandSelected, map[string]string{"name": name})
	return cmd
}

// NoticeCommand carries a non-fatal condition the user should see.
func NoticeCommand(message string) Command {
	cmd, _ := payloadCommand(CommandNotice, map[string]string{"message": message})
	return cmd
}

func payloadCommand(t CommandType, payload any) (Command, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: t, Payload: data}, nil
}
