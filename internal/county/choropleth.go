package county

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/boundary"
	"github.com/sells-group/mapbook/internal/leafmap"
	"github.com/sells-group/mapbook/internal/palette"
)

// ChoroplethOptions configures the case-rate map. Palette is required;
// HighlightColor and LegendTitle are optional and omitted when empty.
// Explicit Breaks take precedence over Bins.
type ChoroplethOptions struct {
	Title          string
	Tiles          leafmap.TileLayer
	Palette        string
	Bins           int
	Breaks         []float64
	Opacity        float64
	HighlightColor string
	LegendTitle    string
	ShowNames      bool // pin each county name at its centroid
}

// ChoroplethMap colours each feature by cases per 10,000 residents. Features
// with an undefined rate are filled with palette.NAColor.
func ChoroplethMap(features []Feature, opts ChoroplethOptions) (*leafmap.Map, error) {
	if opts.Palette == "" {
		return nil, eris.New("county: choropleth fill palette is required")
	}
	if len(features) == 0 {
		return nil, eris.New("county: no features to map")
	}

	rates := make([]float64, 0, len(features))
	for _, f := range features {
		if r, ok := f.CasesPer10k(); ok {
			rates = append(rates, r)
		}
	}

	scale, err := rateScale(opts, rates)
	if err != nil {
		return nil, err
	}

	extra := make(map[string]map[string]any, len(features))
	for _, f := range features {
		fill := palette.NAColor
		if r, ok := f.CasesPer10k(); ok && scale != nil {
			fill = scale.Color(r)
		}
		extra[f.Key] = map[string]any{"fill_color": fill, "label": Label(f)}
	}
	fc, err := FeatureCollection(features, extra)
	if err != nil {
		return nil, err
	}

	opacity := opts.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.7
	}
	layer := leafmap.PolygonLayer{
		Name:     "counties",
		Style:    leafmap.PolygonStyle{Color: "white", Weight: 1, Opacity: 1, FillOpacity: opacity, DashArray: "3"},
		Features: fc,
	}
	if opts.HighlightColor != "" {
		layer.Highlight = &leafmap.Highlight{
			Color:        opts.HighlightColor,
			Weight:       3,
			FillOpacity:  math.Min(1, opacity+0.2),
			BringToFront: true,
		}
	}

	m := leafmap.New(opts.Title, opts.Tiles)
	m.Polygons = []leafmap.PolygonLayer{layer}

	shapes := make([]boundary.Shape, len(features))
	for i, f := range features {
		shapes[i] = boundary.Shape{Region: f.Key, Geom: f.Geom}
	}
	if minLng, minLat, maxLng, maxLat, ok := boundary.Bounds(shapes); ok {
		m.Bounds = &leafmap.Bounds{South: minLat, West: minLng, North: maxLat, East: maxLng}
	}

	if opts.ShowNames {
		labels, err := nameLabels(features)
		if err != nil {
			return nil, err
		}
		m.Labels = labels
	}

	if scale != nil {
		m.Legends = []leafmap.Legend{{
			Title:    opts.LegendTitle,
			Position: "bottomright",
			Entries:  scale.Legend(),
			NAColor:  palette.NAColor,
		}}
	}
	return m, nil
}

func nameLabels(features []Feature) ([]leafmap.TextLabel, error) {
	labels := make([]leafmap.TextLabel, 0, len(features))
	for _, f := range features {
		lng, lat, err := boundary.Centroid(f.Geom)
		if err != nil {
			return nil, eris.Wrapf(err, "county: label %s", f.Key)
		}
		labels = append(labels, leafmap.TextLabel{Lat: lat, Lng: lng, Text: f.Name})
	}
	return labels, nil
}

// rateScale returns nil when no feature has a defined rate.
func rateScale(opts ChoroplethOptions, rates []float64) (palette.Scale, error) {
	if len(rates) == 0 {
		zap.L().Warn("county: no feature has a defined case rate")
		if _, err := palette.Parse(opts.Palette); err != nil {
			return nil, eris.Wrap(err, "county: fill palette")
		}
		return nil, nil
	}
	if len(opts.Breaks) > 0 || opts.Bins > 0 {
		var (
			b   *palette.Bin
			err error
		)
		if len(opts.Breaks) > 0 {
			b, err = palette.NewBinBreaks(opts.Palette, opts.Breaks)
		} else {
			b, err = palette.NewBin(opts.Palette, rates, opts.Bins)
		}
		if err != nil {
			return nil, eris.Wrap(err, "county: binned fill palette")
		}
		zap.L().Debug("county: binned case rates", zap.Float64s("breaks", b.Breaks()))
		return b, nil
	}
	n, err := palette.NewNumericFromValues(opts.Palette, rates)
	if err != nil {
		return nil, eris.Wrap(err, "county: fill palette")
	}
	lo, hi := n.Domain()
	zap.L().Debug("county: case rate domain", zap.Float64("min", lo), zap.Float64("max", hi))
	return n, nil
}
