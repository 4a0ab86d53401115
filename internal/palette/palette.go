// Package palette maps numeric values onto colours for map layers.
package palette

import (
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// NAColor is returned for missing or out-of-domain values.
const NAColor = "#808080"

// named holds the anchor colours of each built-in palette, low to high.
var named = map[string][]string{
	"viridis": {"#440154", "#472D7B", "#3B528B", "#2C728E", "#21908C", "#27AD81", "#5DC863", "#AADC32", "#FDE725"},
	"magma":   {"#000004", "#1D1147", "#51127C", "#832681", "#B73779", "#E75263", "#FC8961", "#FEC287", "#FCFDBF"},
	"inferno": {"#000004", "#1F0C48", "#550F6D", "#88226A", "#BA3655", "#E35932", "#F98C0A", "#F9C932", "#FCFFA4"},
	"plasma":  {"#0D0887", "#4C02A1", "#7E03A8", "#A92395", "#CC4678", "#E56B5D", "#F89441", "#FDC328", "#F0F921"},
	"ylorrd":  {"#FFFFCC", "#FFEDA0", "#FED976", "#FEB24C", "#FD8D3C", "#FC4E2A", "#E31A1C", "#BD0026", "#800026"},
	"ylgnbu":  {"#FFFFD9", "#EDF8B1", "#C7E9B4", "#7FCDBB", "#41B6C4", "#1D91C0", "#225EA8", "#253494", "#081D58"},
	"blues":   {"#F7FBFF", "#DEEBF7", "#C6DBEF", "#9ECAE1", "#6BAED6", "#4292C6", "#2171B5", "#08519C", "#08306B"},
	"greens":  {"#F7FCF5", "#E5F5E0", "#C7E9C0", "#A1D99B", "#74C476", "#41AB5D", "#238B45", "#006D2C", "#00441B"},
	"reds":    {"#FFF5F0", "#FEE0D2", "#FCBBA1", "#FC9272", "#FB6A4A", "#EF3B2C", "#CB181D", "#A50F15", "#67000D"},
	"purples": {"#FCFBFD", "#EFEDF5", "#DADAEB", "#BCBDDC", "#9E9AC8", "#807DBA", "#6A51A3", "#54278F", "#3F007D"},
	"spectral": {"#9E0142", "#D53E4F", "#F46D43", "#FDAE61", "#FEE08B", "#FFFFBF", "#E6F598", "#ABDDA4", "#66C2A5",
		"#3288BD", "#5E4FA2"},
	"rdylbu": {"#A50026", "#D73027", "#F46D43", "#FDAE61", "#FEE090", "#FFFFBF", "#E0F3F8", "#ABD9E9", "#74ADD1",
		"#4575B4", "#313695"},
}

// Names returns the built-in palette names, sorted.
func Names() []string {
	out := make([]string, 0, len(named))
	for k := range named {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Entry is one legend row.
type Entry struct {
	Color string  `json:"color" yaml:"color"`
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// Scale maps a value to a CSS colour.
type Scale interface {
	Color(v float64) string
	Legend() []Entry
}

// Parse resolves a palette spec: a built-in name (case-insensitive, "_r"
// suffix reverses it) or a comma-separated list of hex colours.
func Parse(spec string) ([]colorful.Color, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, eris.New("palette: empty palette")
	}

	reverse := false
	key := strings.ToLower(spec)
	if strings.HasSuffix(key, "_r") {
		reverse = true
		key = strings.TrimSuffix(key, "_r")
	}

	hexes, ok := named[key]
	if !ok {
		if !strings.Contains(spec, "#") {
			return nil, eris.Errorf("palette: unknown palette %q (built-in: %s)", spec, strings.Join(Names(), ", "))
		}
		hexes = strings.Split(spec, ",")
		reverse = false
	}

	stops := make([]colorful.Color, 0, len(hexes))
	for _, h := range hexes {
		c, err := colorful.Hex(strings.TrimSpace(h))
		if err != nil {
			return nil, eris.Wrapf(err, "palette: invalid colour %q", h)
		}
		stops = append(stops, c)
	}
	if len(stops) < 2 {
		return nil, eris.Errorf("palette: %q needs at least two colours", spec)
	}

	if reverse {
		for i, j := 0, len(stops)-1; i < j; i, j = i+1, j-1 {
			stops[i], stops[j] = stops[j], stops[i]
		}
	}
	return stops, nil
}

// ramp interpolates across stops in CIELAB; t is clamped to [0, 1].
func ramp(stops []colorful.Color, t float64) string {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1].Clamped().Hex()
	}
	return stops[i].BlendLab(stops[i+1], pos-float64(i)).Clamped().Hex()
}

// Range returns the min and max of the finite values.
func Range(values []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}
