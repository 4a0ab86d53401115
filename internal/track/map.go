package track

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mapbook/internal/leafmap"
	"github.com/sells-group/mapbook/internal/palette"
)

// MapOptions styles the track map.
type MapOptions struct {
	Title       string
	Tiles       leafmap.TileLayer
	Palette     string
	Radius      float64
	Opacity     float64
	LegendTitle string
	ShowRoute   bool
}

// Map draws one circle per point, coloured on a continuous palette whose
// domain is the full elevation range, with a matching legend.
func Map(points []Point, opts MapOptions) (*leafmap.Map, error) {
	lo, hi, ok := ElevationRange(points)
	if !ok {
		return nil, eris.New("track: no points to map")
	}
	if opts.Radius <= 0 {
		return nil, eris.Errorf("track: radius must be > 0, got %g", opts.Radius)
	}
	scale, err := palette.NewNumeric(opts.Palette, lo, hi)
	if err != nil {
		return nil, eris.Wrap(err, "track: elevation palette")
	}

	markers := make([]leafmap.CircleMarker, len(points))
	coords := make([][2]float64, len(points))
	for i, p := range points {
		markers[i] = leafmap.CircleMarker{
			Lat:   p.Lat,
			Lng:   p.Lng,
			Color: scale.Color(p.Elevation),
			Popup: popup(p),
		}
		coords[i] = [2]float64{p.Lat, p.Lng}
	}

	m := leafmap.New(opts.Title, opts.Tiles)
	m.Bounds = leafmap.FitPoints(coords)
	if opts.ShowRoute {
		m.Polylines = []leafmap.PolylineLayer{{Name: "route", Color: "#555555", Weight: 2, Opacity: 0.6, Coords: coords}}
	}
	m.Circles = []leafmap.CircleLayer{{
		Name:    "points",
		Radius:  opts.Radius,
		Opacity: opts.Opacity,
		Markers: markers,
	}}
	m.Legends = []leafmap.Legend{{
		Title:    opts.LegendTitle,
		Position: "bottomright",
		Entries:  scale.Legend(),
	}}
	return m, nil
}

func popup(p Point) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Elevation: %s m", humanize.FtoaWithDigits(p.Elevation, 1))
	if p.HasSpeed {
		fmt.Fprintf(&b, "<br/>Speed: %s", humanize.FtoaWithDigits(p.Speed, 1))
	}
	if !p.Time.IsZero() {
		fmt.Fprintf(&b, "<br/>Time: %s", p.Time.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
