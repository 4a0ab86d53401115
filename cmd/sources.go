package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mapbook/internal/boundary"
	"github.com/sells-group/mapbook/internal/config"
	"github.com/sells-group/mapbook/internal/county"
	"github.com/sells-group/mapbook/internal/fetcher"
	"github.com/sells-group/mapbook/internal/leafmap"
	"github.com/sells-group/mapbook/internal/track"
)

func newFetcher(c *config.Config) *fetcher.Mux {
	timeout := time.Duration(c.Fetch.TimeoutSecs) * time.Second
	return &fetcher.Mux{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:    c.Fetch.UserAgent,
			Timeout:      timeout,
			MaxRetries:   c.Fetch.MaxRetries,
			RateLimiters: fetcher.DefaultRateLimiters(),
		}),
		FTP: fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout}),
	}
}

func tiles(c *config.Config) leafmap.TileLayer {
	return leafmap.TileLayer{URL: c.Map.TilesURL, Attribution: c.Map.Attribution}
}

func countySources(c *config.Config) county.Sources {
	return county.Sources{
		Boundary: c.Sources.BoundaryURL,
		BoundaryOpts: boundary.LoadOptions{
			Renames: c.Columns.Boundary,
			State:   c.Sources.State,
			TempDir: c.Fetch.TempDir,
			Shapefile: boundary.ShapefileOptions{
				NameField: c.Sources.BoundaryField,
				Where:     c.Sources.BoundaryWhere,
			},
		},
		Population: c.Sources.PopulationURL,
		PopOpts: county.PopulationOptions{
			Renames:   c.Columns.Population,
			SheetName: c.Sources.PopulationSheet,
		},
		Cases: c.Sources.CasesURL,
		CaseOpts: county.CaseOptions{
			State:   c.Sources.State,
			Renames: c.Columns.Cases,
		},
	}
}

func buildTrackMap(ctx context.Context, c *config.Config, f fetcher.Fetcher) (*leafmap.Map, error) {
	points, err := track.Load(ctx, f, c.Sources.TrackURL, c.Columns.Track)
	if err != nil {
		return nil, err
	}
	return track.Map(points, track.MapOptions{
		Title:       "GPS track",
		Tiles:       tiles(c),
		Palette:     c.Track.Palette,
		Radius:      c.Track.Radius,
		Opacity:     c.Track.Opacity,
		LegendTitle: c.Track.LegendTitle,
		ShowRoute:   c.Track.ShowRoute,
	})
}

func buildChoropleth(ctx context.Context, c *config.Config, f fetcher.Fetcher) (*leafmap.Map, error) {
	features, err := county.LoadFeatures(ctx, f, countySources(c))
	if err != nil {
		return nil, err
	}
	return county.ChoroplethMap(features, county.ChoroplethOptions{
		Title:          "Cases per 10,000 residents, " + c.Sources.State,
		Tiles:          tiles(c),
		Palette:        c.Choropleth.Palette,
		Bins:           c.Choropleth.Bins,
		Breaks:         c.Choropleth.Breaks,
		Opacity:        c.Choropleth.Opacity,
		HighlightColor: c.Choropleth.HighlightColor,
		LegendTitle:    c.Choropleth.LegendTitle,
		ShowNames:      c.Choropleth.ShowNames,
	})
}

// writeOutput streams to stdout for "" or "-", otherwise to the named file.
func writeOutput(cmdOut io.Writer, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmdOut)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
