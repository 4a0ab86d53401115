package boundary

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/fetcher"
)

// vertexRow is one row of a vertex table. Tables in the map_data layout carry
// the state in "region" and the county in "subregion".
type vertexRow struct {
	Region    string `csv:"region"`
	Subregion string `csv:"subregion"`
	Group     string `csv:"group"`
	Order     string `csv:"order"`
	Lng       string `csv:"lng"`
	Lat       string `csv:"lat"`
}

// defaultVertexRenames maps common coordinate headers onto canonical names.
var defaultVertexRenames = map[string]string{
	"long":      "lng",
	"lon":       "lng",
	"longitude": "lng",
	"x":         "lng",
	"latitude":  "lat",
	"y":         "lat",
	"county":    "subregion",
}

// LoadOptions configures where and how boundaries are read. State keeps only
// vertex rows whose "region" matches it (case-insensitively) when the table
// names counties in "subregion"; shapefiles filter through Shapefile.Where.
type LoadOptions struct {
	Renames   map[string]string
	State     string
	TempDir   string
	Shapefile ShapefileOptions
}

// Load reads region shapes from a vertex CSV, a zipped shapefile, or a local
// .shp file, chosen by the location's extension.
func Load(ctx context.Context, f fetcher.Fetcher, location string, opts LoadOptions) ([]Shape, error) {
	switch fetcher.Ext(location) {
	case ".zip":
		return loadZippedShapefile(ctx, f, location, opts)
	case ".shp":
		return ReadShapefile(location, opts.Shapefile)
	default:
		vertices, err := LoadVertices(ctx, f, location, opts.Renames, opts.State)
		if err != nil {
			return nil, err
		}
		return BuildPolygons(vertices)
	}
}

// LoadVertices decodes a vertex table. The region name is taken from the
// "subregion" column when present, else from "region". A non-empty state
// drops subregion rows belonging to other states, since county names repeat
// across states.
func LoadVertices(ctx context.Context, f fetcher.Fetcher, location string, renames map[string]string, state string) ([]Vertex, error) {
	body, err := f.Download(ctx, location)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: fetch vertices")
	}
	defer body.Close() //nolint:errcheck

	rows, err := fetcher.DecodeCSV[vertexRow](ctx, body, fetcher.DecodeOptions{
		Renames:  mergeRenames(defaultVertexRenames, renames),
		Required: []string{"lng", "lat"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "boundary: decode vertices")
	}

	state = strings.TrimSpace(state)
	vertices := make([]Vertex, 0, len(rows))
	states := make(map[string]struct{})
	var skipped, filtered int
	for i, r := range rows {
		if r.Subregion != "" && r.Region != "" {
			if state != "" && !strings.EqualFold(strings.TrimSpace(r.Region), state) {
				filtered++
				continue
			}
			states[strings.ToLower(strings.TrimSpace(r.Region))] = struct{}{}
		}
		v, ok := r.vertex()
		if !ok {
			skipped++
			zap.L().Debug("boundary: skipping vertex row", zap.Int("row", i+1))
			continue
		}
		vertices = append(vertices, v)
	}
	if skipped > 0 {
		zap.L().Warn("boundary: skipped unparseable vertex rows", zap.Int("skipped", skipped))
	}
	if filtered > 0 {
		zap.L().Debug("boundary: dropped vertex rows for other states", zap.String("state", state), zap.Int("rows", filtered))
		if len(vertices) == 0 {
			return nil, eris.Errorf("boundary: no vertices for state %q in %s", state, location)
		}
	}
	if len(states) > 1 {
		zap.L().Warn("boundary: vertex table spans several states; counties with the same name will merge",
			zap.Int("states", len(states)))
	}

	zap.L().Info("boundary: loaded vertices", zap.String("source", location), zap.Int("vertices", len(vertices)))
	return vertices, nil
}

func (r vertexRow) vertex() (Vertex, bool) {
	region := r.Subregion
	if region == "" {
		region = r.Region
	}
	lng, errLng := strconv.ParseFloat(r.Lng, 64)
	lat, errLat := strconv.ParseFloat(r.Lat, 64)
	if region == "" || errLng != nil || errLat != nil {
		return Vertex{}, false
	}
	v := Vertex{Region: region, Group: r.Group, Lng: lng, Lat: lat}
	if r.Order != "" {
		if ord, err := strconv.Atoi(r.Order); err == nil {
			v.Order = ord
			v.HasOrder = true
		}
	}
	return v, true
}

func loadZippedShapefile(ctx context.Context, f fetcher.Fetcher, location string, opts LoadOptions) ([]Shape, error) {
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	workDir, err := os.MkdirTemp(tempDir, "boundary-*")
	if err != nil {
		return nil, eris.Wrap(err, "boundary: create work dir")
	}
	defer os.RemoveAll(workDir) //nolint:errcheck

	zipPath, err := fetcher.DownloadToFile(ctx, f, location, workDir)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: fetch shapefile archive")
	}
	files, err := fetcher.ExtractZIP(zipPath, filepath.Join(workDir, "extract"))
	if err != nil {
		return nil, eris.Wrap(err, "boundary: extract shapefile archive")
	}
	shpPath, ok := fetcher.FindByExt(files, ".shp")
	if !ok {
		return nil, eris.Errorf("boundary: no .shp file in %s", location)
	}
	return ReadShapefile(shpPath, opts.Shapefile)
}

// mergeRenames overlays user renames on defaults; keys compare case-insensitively.
func mergeRenames(defaults, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[strings.ToLower(k)] = v
	}
	for k, v := range overrides {
		out[strings.ToLower(k)] = v
	}
	return out
}
