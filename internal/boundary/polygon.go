// Package boundary builds region polygons from vertex tables and shapefiles.
package boundary

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// Vertex is one boundary point of a region. Vertices sharing Region and Group
// form one ring; Order, when set, fixes their sequence.
type Vertex struct {
	Region   string
	Group    string
	Order    int
	HasOrder bool
	Lng      float64
	Lat      float64
}

// Shape is the geometry of one region.
type Shape struct {
	Region string
	Geom   *geom.MultiPolygon
}

// BuildPolygons groups vertices by region and group and closes each group
// into a polygon ring. Regions are returned in first-appearance order, one
// Shape per region. Rings with fewer than three distinct points are dropped.
func BuildPolygons(vertices []Vertex) ([]Shape, error) {
	type ringKey struct{ region, group string }

	var regions []string
	groupsByRegion := make(map[string][]string)
	points := make(map[ringKey][]Vertex)

	for _, v := range vertices {
		if v.Region == "" {
			continue
		}
		if _, ok := groupsByRegion[v.Region]; !ok {
			regions = append(regions, v.Region)
			groupsByRegion[v.Region] = nil
		}
		k := ringKey{v.Region, v.Group}
		if _, ok := points[k]; !ok {
			groupsByRegion[v.Region] = append(groupsByRegion[v.Region], v.Group)
		}
		points[k] = append(points[k], v)
	}

	shapes := make([]Shape, 0, len(regions))
	var dropped int
	for _, region := range regions {
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
		for _, group := range groupsByRegion[region] {
			ring := ringCoords(points[ringKey{region, group}])
			if ring == nil {
				dropped++
				zap.L().Debug("boundary: skipping degenerate ring",
					zap.String("region", region),
					zap.String("group", group),
				)
				continue
			}
			poly := geom.NewPolygon(geom.XY)
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, ring)); err != nil {
				return nil, eris.Wrapf(err, "boundary: ring for %s", region)
			}
			if err := mp.Push(poly); err != nil {
				return nil, eris.Wrapf(err, "boundary: polygon for %s", region)
			}
		}
		if mp.NumPolygons() == 0 {
			zap.L().Warn("boundary: region has no usable rings", zap.String("region", region))
			continue
		}
		shapes = append(shapes, Shape{Region: region, Geom: mp})
	}

	if len(shapes) == 0 {
		return nil, eris.New("boundary: no polygons built")
	}
	if dropped > 0 {
		zap.L().Debug("boundary: dropped rings", zap.Int("dropped", dropped))
	}
	return shapes, nil
}

// ringCoords orders the vertices, removes consecutive duplicates and closes
// the ring. Returns nil when fewer than three distinct points remain.
func ringCoords(vs []Vertex) []float64 {
	ordered := make([]Vertex, len(vs))
	copy(ordered, vs)
	if len(ordered) > 0 && ordered[0].HasOrder {
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	}

	flat := make([]float64, 0, 2*(len(ordered)+1))
	for i, v := range ordered {
		if i > 0 && v.Lng == ordered[i-1].Lng && v.Lat == ordered[i-1].Lat {
			continue
		}
		flat = append(flat, v.Lng, v.Lat)
	}

	n := len(flat) / 2
	if n > 1 && flat[0] == flat[2*n-2] && flat[1] == flat[2*n-1] {
		n--
		flat = flat[:2*n]
	}
	if n < 3 {
		return nil
	}
	return append(flat, flat[0], flat[1])
}

// Centroid returns the area-weighted centre of a region, used to anchor labels.
func Centroid(mp *geom.MultiPolygon) (lng, lat float64, err error) {
	c, err := xy.Centroid(mp)
	if err != nil {
		return 0, 0, eris.Wrap(err, "boundary: centroid")
	}
	return c[0], c[1], nil
}

// Bounds returns the combined extent of the shapes as (minLng, minLat, maxLng, maxLat).
func Bounds(shapes []Shape) (minLng, minLat, maxLng, maxLat float64, ok bool) {
	if len(shapes) == 0 {
		return 0, 0, 0, 0, false
	}
	b := geom.NewBounds(geom.XY)
	for _, s := range shapes {
		b.Extend(s.Geom)
	}
	return b.Min(0), b.Min(1), b.Max(0), b.Max(1), true
}
