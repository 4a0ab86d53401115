// Package track loads GPS track points and maps them as elevation-coloured
// circle markers.
package track

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/fetcher"
)

// Point is one GPS fix.
type Point struct {
	Lng       float64
	Lat       float64
	Elevation float64
	Speed     float64
	HasSpeed  bool
	Time      time.Time
}

type pointRow struct {
	Lng       string `csv:"lng"`
	Lat       string `csv:"lat"`
	Elevation string `csv:"elevation"`
	Speed     string `csv:"speed"`
	Time      string `csv:"time"`
}

var defaultRenames = map[string]string{
	"lon":       "lng",
	"long":      "lng",
	"longitude": "lng",
	"latitude":  "lat",
	"ele":       "elevation",
	"elev":      "elevation",
	"alt":       "elevation",
	"altitude":  "elevation",
	"timestamp": "time",
	"datetime":  "time",
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
}

// Load reads a track table. Points without finite coordinates and elevation
// are skipped; time and speed are optional.
func Load(ctx context.Context, f fetcher.Fetcher, location string, renames map[string]string) ([]Point, error) {
	body, err := f.Download(ctx, location)
	if err != nil {
		return nil, eris.Wrap(err, "track: fetch")
	}
	defer body.Close() //nolint:errcheck

	merged := make(map[string]string, len(defaultRenames)+len(renames))
	for k, v := range defaultRenames {
		merged[k] = v
	}
	for k, v := range renames {
		merged[strings.ToLower(k)] = v
	}

	rows, err := fetcher.DecodeCSV[pointRow](ctx, body, fetcher.DecodeOptions{
		Renames:  merged,
		Required: []string{"lng", "lat", "elevation"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "track: decode")
	}

	points := make([]Point, 0, len(rows))
	var skipped int
	for _, r := range rows {
		p, ok := r.point()
		if !ok {
			skipped++
			continue
		}
		points = append(points, p)
	}
	if skipped > 0 {
		zap.L().Warn("track: skipped unparseable points", zap.Int("skipped", skipped))
	}
	if len(points) == 0 {
		return nil, eris.Errorf("track: no usable points in %s", location)
	}
	zap.L().Info("track: loaded points", zap.String("source", location), zap.Int("points", len(points)))
	return points, nil
}

func (r pointRow) point() (Point, bool) {
	lng, ok1 := parseFinite(r.Lng)
	lat, ok2 := parseFinite(r.Lat)
	ele, ok3 := parseFinite(r.Elevation)
	if !ok1 || !ok2 || !ok3 || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Point{}, false
	}
	p := Point{Lng: lng, Lat: lat, Elevation: ele}
	if s, ok := parseFinite(r.Speed); ok {
		p.Speed = s
		p.HasSpeed = true
	}
	p.Time = parseTime(r.Time)
	return p, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ElevationRange returns the minimum and maximum elevation.
func ElevationRange(points []Point) (lo, hi float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	lo, hi = points[0].Elevation, points[0].Elevation
	for _, p := range points[1:] {
		lo = math.Min(lo, p.Elevation)
		hi = math.Max(hi, p.Elevation)
	}
	return lo, hi, true
}
