// Package leafmap describes interactive Leaflet maps as plain configuration
// values and renders them into standalone HTML documents.
package leafmap

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mapbook/internal/palette"
)

// Map is the full configuration of one map widget.
type Map struct {
	ID        string          `json:"id" yaml:"id"`
	Title     string          `json:"title,omitempty" yaml:"title,omitempty"`
	Tiles     TileLayer       `json:"tiles" yaml:"tiles"`
	View      *View           `json:"view,omitempty" yaml:"view,omitempty"`
	Bounds    *Bounds         `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Circles   []CircleLayer   `json:"circles,omitempty" yaml:"circles,omitempty"`
	Polylines []PolylineLayer `json:"polylines,omitempty" yaml:"polylines,omitempty"`
	Polygons  []PolygonLayer  `json:"polygons,omitempty" yaml:"polygons,omitempty"`
	Legends   []Legend        `json:"legends,omitempty" yaml:"legends,omitempty"`
	Labels    []TextLabel     `json:"labels,omitempty" yaml:"-"`
}

// TileLayer is the base map.
type TileLayer struct {
	URL         string `json:"url" yaml:"url"`
	Attribution string `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	MaxZoom     int    `json:"max_zoom,omitempty" yaml:"max_zoom,omitempty"`
}

// View fixes the initial centre and zoom.
type View struct {
	Lat  float64 `json:"lat" yaml:"lat"`
	Lng  float64 `json:"lng" yaml:"lng"`
	Zoom int     `json:"zoom" yaml:"zoom"`
}

// Bounds is a lat/lng box the map fits on load when no View is set.
type Bounds struct {
	South float64 `json:"south" yaml:"south"`
	West  float64 `json:"west" yaml:"west"`
	North float64 `json:"north" yaml:"north"`
	East  float64 `json:"east" yaml:"east"`
}

// CircleLayer draws fixed-radius circle markers.
type CircleLayer struct {
	Name    string         `json:"name" yaml:"name"`
	Radius  float64        `json:"radius" yaml:"radius"`
	Opacity float64        `json:"opacity" yaml:"opacity"`
	Stroke  bool           `json:"stroke" yaml:"stroke"`
	Markers []CircleMarker `json:"markers" yaml:"-"`
}

// CircleMarker is one circle.
type CircleMarker struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Color string  `json:"color"`
	Popup string  `json:"popup,omitempty"`
	Label string  `json:"label,omitempty"`
}

// PolylineLayer draws a path through lat/lng pairs.
type PolylineLayer struct {
	Name    string       `json:"name" yaml:"name"`
	Color   string       `json:"color" yaml:"color"`
	Weight  float64      `json:"weight" yaml:"weight"`
	Opacity float64      `json:"opacity" yaml:"opacity"`
	Coords  [][2]float64 `json:"coords" yaml:"-"`
}

// PolygonLayer draws a GeoJSON FeatureCollection. Each feature's
// "fill_color" property sets its fill; "label" becomes a hover tooltip.
type PolygonLayer struct {
	Name      string          `json:"name" yaml:"name"`
	Style     PolygonStyle    `json:"style" yaml:"style"`
	Highlight *Highlight      `json:"highlight,omitempty" yaml:"highlight,omitempty"`
	Features  json.RawMessage `json:"features" yaml:"-"`
}

// PolygonStyle is the resting outline and fill style.
type PolygonStyle struct {
	Color       string  `json:"color" yaml:"color"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Opacity     float64 `json:"opacity" yaml:"opacity"`
	FillOpacity float64 `json:"fill_opacity" yaml:"fill_opacity"`
	DashArray   string  `json:"dash_array,omitempty" yaml:"dash_array,omitempty"`
}

// Highlight is applied to a polygon while the pointer is over it.
type Highlight struct {
	Color        string  `json:"color,omitempty" yaml:"color,omitempty"`
	Weight       float64 `json:"weight" yaml:"weight"`
	FillOpacity  float64 `json:"fill_opacity" yaml:"fill_opacity"`
	BringToFront bool    `json:"bring_to_front" yaml:"bring_to_front"`
}

// Legend is a colour key control.
type Legend struct {
	Title    string          `json:"title,omitempty" yaml:"title,omitempty"`
	Position string          `json:"position" yaml:"position"`
	Entries  []palette.Entry `json:"entries" yaml:"entries"`
	NAColor  string          `json:"na_color,omitempty" yaml:"na_color,omitempty"`
}

// TextLabel is permanent text pinned at a point, such as a region name.
type TextLabel struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Text string  `json:"text"`
}

// New returns a map with a fresh element id and the given base tiles.
func New(title string, tiles TileLayer) *Map {
	return &Map{ID: NewID(), Title: title, Tiles: tiles}
}

// NewID returns a unique DOM id for a map container.
func NewID() string {
	return "map-" + uuid.NewString()
}

// Validate reports configuration that would render a broken widget.
func (m *Map) Validate() error {
	if m.ID == "" {
		return eris.New("leafmap: map id is required")
	}
	if m.Tiles.URL == "" {
		return eris.Errorf("leafmap: map %s has no tile url", m.ID)
	}
	if m.View == nil && m.Bounds == nil {
		return eris.Errorf("leafmap: map %s needs a view or bounds", m.ID)
	}
	for _, l := range m.Circles {
		if l.Radius <= 0 {
			return eris.Errorf("leafmap: circle layer %q radius must be > 0", l.Name)
		}
	}
	for _, l := range m.Polygons {
		if len(l.Features) == 0 {
			return eris.Errorf("leafmap: polygon layer %q has no features", l.Name)
		}
	}
	for _, l := range m.Labels {
		if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) {
			return eris.Errorf("leafmap: label %q has no position", l.Text)
		}
	}
	for _, l := range m.Legends {
		if len(l.Entries) == 0 {
			return eris.New("leafmap: legend has no entries")
		}
	}
	return nil
}

// FitPoints returns the bounds of lat/lng pairs, or nil when there are none.
func FitPoints(coords [][2]float64) *Bounds {
	if len(coords) == 0 {
		return nil
	}
	b := &Bounds{South: math.Inf(1), West: math.Inf(1), North: math.Inf(-1), East: math.Inf(-1)}
	for _, c := range coords {
		b.South = math.Min(b.South, c[0])
		b.North = math.Max(b.North, c[0])
		b.West = math.Min(b.West, c[1])
		b.East = math.Max(b.East, c[1])
	}
	return b
}
