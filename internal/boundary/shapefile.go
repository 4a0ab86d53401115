package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// ShapefileOptions selects the region name and filters records.
type ShapefileOptions struct {
	// NameField is the attribute holding the region name (case-insensitive).
	NameField string
	// Where keeps a record only when every attribute listed here matches.
	Where map[string]string
}

// ReadShapefile reads polygon records and returns one Shape per region name.
// Every shapefile part becomes its own polygon; records sharing a name are
// merged into one multipolygon.
func ReadShapefile(path string, opts ShapefileOptions) ([]Shape, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	nameIdx, ok := fieldIdx[strings.ToLower(opts.NameField)]
	if !ok {
		return nil, eris.Errorf("boundary: shapefile has no field %q", opts.NameField)
	}
	where := make(map[int]string, len(opts.Where))
	for field, want := range opts.Where {
		idx, ok := fieldIdx[strings.ToLower(field)]
		if !ok {
			return nil, eris.Errorf("boundary: shapefile has no field %q", field)
		}
		where[idx] = want
	}

	var order []string
	byName := make(map[string]*geom.MultiPolygon)
	var skipped int

	for reader.Next() {
		n, shape := reader.Shape()

		if !matches(reader, n, where) {
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		name := attr(reader, n, nameIdx)
		if name == "" {
			skipped++
			continue
		}

		mp, seen := byName[name]
		if !seen {
			mp = geom.NewMultiPolygon(geom.XY).SetSRID(4326)
			byName[name] = mp
			order = append(order, name)
		}
		appendParts(mp, poly)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records", zap.String("path", path), zap.Int("skipped", skipped))
	}

	shapes := make([]Shape, 0, len(order))
	for _, name := range order {
		if byName[name].NumPolygons() == 0 {
			continue
		}
		shapes = append(shapes, Shape{Region: name, Geom: byName[name]})
	}
	if len(shapes) == 0 {
		return nil, eris.New("boundary: no polygons in shapefile")
	}
	return shapes, nil
}

func attr(reader *shp.Reader, row, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.ReadAttribute(row, idx), "\x00"))
}

func matches(reader *shp.Reader, row int, where map[int]string) bool {
	for idx, want := range where {
		if !strings.EqualFold(attr(reader, row, idx), want) {
			return false
		}
	}
	return true
}

// appendParts adds a shapefile polygon to mp. Outer rings wind clockwise and
// holes counter-clockwise; a hole joins the outer ring that contains it, else
// the most recent one.
func appendParts(mp *geom.MultiPolygon, p *shp.Polygon) {
	var (
		outers [][]float64
		holes  [][][]float64
	)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 {
			continue
		}

		if len(outers) == 0 || !xy.IsRingCounterClockwise(geom.XY, flat) {
			outers = append(outers, flat)
			holes = append(holes, nil)
			continue
		}
		owner := len(outers) - 1
		first := geom.Coord{flat[0], flat[1]}
		for k, outer := range outers {
			if xy.IsPointInRing(geom.XY, first, outer) {
				owner = k
				break
			}
		}
		holes[owner] = append(holes[owner], flat)
	}

	for k, outer := range outers {
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, outer)); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon ring", zap.Int("part", k), zap.Error(err))
			continue
		}
		for _, hole := range holes[k] {
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, hole)); err != nil {
				zap.L().Debug("boundary: skipping malformed hole", zap.Int("part", k), zap.Error(err))
			}
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Int("part", k), zap.Error(err))
		}
	}
}
