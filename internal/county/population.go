package county

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/fetcher"
)

// Population is one county's population estimate.
type Population struct {
	Key        string
	Name       string
	Population int64
}

type populationRow struct {
	County     string `csv:"county"`
	Population string `csv:"population"`
}

var defaultPopulationRenames = map[string]string{
	"ctyname":     "county",
	"county name": "county",
	"name":        "county",
	"pop":         "population",
	"total":       "population",
}

// PopulationOptions locates the columns and, for workbooks, the sheet.
type PopulationOptions struct {
	Renames   map[string]string
	SheetName string
	SkipRows  int
}

// LoadPopulation reads a population table from CSV or XLSX, chosen by the
// location's extension. Thousands separators are accepted; rows without a
// county name or a parseable count are skipped.
func LoadPopulation(ctx context.Context, f fetcher.Fetcher, location string, opts PopulationOptions) ([]Population, error) {
	decode := fetcher.DecodeOptions{
		Renames:  mergeRenames(defaultPopulationRenames, opts.Renames),
		Required: []string{"county", "population"},
	}

	var rows []populationRow
	switch fetcher.Ext(location) {
	case ".xlsx":
		table, err := readWorkbook(ctx, f, location, fetcher.XLSXOptions{SheetName: opts.SheetName, SkipRows: opts.SkipRows})
		if err != nil {
			return nil, err
		}
		rows, err = fetcher.DecodeRows[populationRow](table, decode)
		if err != nil {
			return nil, eris.Wrap(err, "county: decode population")
		}
	default:
		body, err := f.Download(ctx, location)
		if err != nil {
			return nil, eris.Wrap(err, "county: fetch population")
		}
		defer body.Close() //nolint:errcheck
		rows, err = fetcher.DecodeCSV[populationRow](ctx, body, decode)
		if err != nil {
			return nil, eris.Wrap(err, "county: decode population")
		}
	}

	out := make([]Population, 0, len(rows))
	var skipped int
	for _, r := range rows {
		n, ok := parseCount(r.Population)
		key := NormalizeName(r.County)
		if !ok || key == "" {
			skipped++
			continue
		}
		out = append(out, Population{Key: key, Name: strings.TrimSpace(r.County), Population: n})
	}
	if skipped > 0 {
		zap.L().Warn("county: skipped population rows", zap.Int("skipped", skipped))
	}
	zap.L().Info("county: loaded population", zap.String("source", location), zap.Int("rows", len(out)))
	return out, nil
}

// parseCount reads a non-negative whole count such as "1,281,565" or "12.0".
// readWorkbook opens local workbooks in place and buffers remote ones.
func readWorkbook(ctx context.Context, f fetcher.Fetcher, location string, opts fetcher.XLSXOptions) ([][]string, error) {
	if path, ok := fetcher.LocalPath(location); ok {
		table, err := fetcher.ReadXLSX(path, opts)
		if err != nil {
			return nil, eris.Wrap(err, "county: read population workbook")
		}
		return table, nil
	}
	data, err := fetcher.ReadAll(ctx, f, location)
	if err != nil {
		return nil, eris.Wrap(err, "county: fetch population workbook")
	}
	table, err := fetcher.ReadXLSXBytes(data, opts)
	if err != nil {
		return nil, eris.Wrap(err, "county: read population workbook")
	}
	return table, nil
}

func parseCount(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n >= 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || v >= math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

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
