package county

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/mapbook/internal/boundary"
	"github.com/sells-group/mapbook/internal/fetcher"
	"github.com/sells-group/mapbook/internal/leafmap"
	"github.com/sells-group/mapbook/internal/palette"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func unitSquare(x float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}},
	}).SetSRID(4326)
}

func ptr(n int64) *int64 { return &n }

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hennepin County", "hennepin"},
		{"  St. Louis County ", "st louis"},
		{"ST LOUIS", "st louis"},
		{"Lac qui Parle", "lac qui parle"},
		{"LAKE OF THE WOODS COUNTY", "lake of the woods"},
		{"Acadia Parish", "acadia"},
		{"Miami-Dade County", "miami-dade"},
		{"O'Brien County", "obrien"},
		{"Yellow   Medicine", "yellow medicine"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	for _, s := range []string{"St. Louis County", "Lake of the Woods", "Miami-Dade"} {
		once := NormalizeName(s)
		assert.Equal(t, once, NormalizeName(once))
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Lake Of The Woods", DisplayName("lake of the woods"))
}

func TestParseCount(t *testing.T) {
	n, ok := parseCount("1,281,565")
	assert.True(t, ok)
	assert.Equal(t, int64(1281565), n)

	n, ok = parseCount(" 12.0 ")
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	for _, bad := range []string{"", "n/a", "-5", "NaN", "1e30", "Inf", "9.3e18"} {
		_, ok := parseCount(bad)
		assert.False(t, ok, bad)
	}
}

func TestLoadPopulation_CSV(t *testing.T) {
	path := writeFile(t, "pop.csv", "CTYNAME,POPESTIMATE2019\n"+
		"Hennepin County,\"1,265,843\"\n"+
		"Ramsey County,550321\n"+
		",100\n"+
		"Cook County,unknown\n")

	pops, err := LoadPopulation(context.Background(), &fetcher.Mux{}, path, PopulationOptions{
		Renames: map[string]string{"POPESTIMATE2019": "population"},
	})
	require.NoError(t, err)
	require.Len(t, pops, 2)
	assert.Equal(t, Population{Key: "hennepin", Name: "Hennepin County", Population: 1265843}, pops[0])
	assert.Equal(t, "ramsey", pops[1].Key)
}

// workbookFetcher serves one workbook for remote locations and fails for
// anything else.
type workbookFetcher struct {
	data  []byte
	calls int
}

func (w *workbookFetcher) Download(_ context.Context, location string) (io.ReadCloser, error) {
	w.calls++
	if !strings.HasPrefix(location, "https://") {
		return nil, eris.Errorf("unexpected download of %s", location)
	}
	return io.NopCloser(bytes.NewReader(w.data)), nil
}

func populationWorkbook(t *testing.T) string {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range []string{"Notes", "Counties"} {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		rows := [][]string{{"only notes here"}}
		if name == "Counties" {
			rows = [][]string{
				{"Annual Estimates of the Resident Population"},
				{"County", "Population"},
				{"Aitkin County", "15,886"},
				{"Anoka County", "356,921"},
			}
		}
		for _, r := range rows {
			row := sheet.AddRow()
			for _, v := range r {
				row.AddCell().SetString(v)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "pop.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoadPopulation_XLSX(t *testing.T) {
	path := populationWorkbook(t)
	opts := PopulationOptions{SheetName: "Counties", SkipRows: 1}

	t.Run("local path read in place", func(t *testing.T) {
		f := &workbookFetcher{}
		for _, location := range []string{path, "file://" + path} {
			pops, err := LoadPopulation(context.Background(), f, location, opts)
			require.NoError(t, err, location)
			require.Len(t, pops, 2)
			assert.Equal(t, "aitkin", pops[0].Key)
			assert.Equal(t, int64(356921), pops[1].Population)
		}
		assert.Zero(t, f.calls)
	})

	t.Run("remote workbook buffered", func(t *testing.T) {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		f := &workbookFetcher{data: data}
		pops, err := LoadPopulation(context.Background(), f, "https://example.com/pop.xlsx", opts)
		require.NoError(t, err)
		require.Len(t, pops, 2)
		assert.Equal(t, 1, f.calls)
	})
}

func TestLoadPopulation_MissingColumn(t *testing.T) {
	path := writeFile(t, "pop.csv", "county,people\nHennepin,1\n")
	_, err := LoadPopulation(context.Background(), &fetcher.Mux{}, path, PopulationOptions{})
	assert.ErrorContains(t, err, "missing required columns: population")
}

const nytCases = `date,county,state,fips,cases,deaths
2020-03-06,Ramsey,Minnesota,27123,1,0
2020-03-07,Cook,Illinois,17031,5,0
2020-03-08,Ramsey,Minnesota,27123,2,0
2020-03-08,Hennepin,Minnesota,27053,3,
2020-03-09,Hennepin,Minnesota,27053,7,1
not-a-date,Anoka,Minnesota,27003,1,0
2020-03-09,Unknown,Minnesota,,4,0
`

func TestLoadCases_FiltersState(t *testing.T) {
	path := writeFile(t, "us-counties.csv", nytCases)

	records, err := LoadCases(context.Background(), &fetcher.Mux{}, path, CaseOptions{State: "minnesota"})
	require.NoError(t, err)
	require.Len(t, records, 5)
	for _, c := range records {
		assert.Equal(t, "Minnesota", c.State)
	}
	assert.Equal(t, "hennepin", records[2].Key)
	assert.False(t, records[2].HasDeaths)
	assert.True(t, records[3].HasDeaths)
	assert.Equal(t, int64(1), records[3].Deaths)
	assert.Equal(t, day("2020-03-09"), records[3].Date)

	all, err := LoadCases(context.Background(), &fetcher.Mux{}, path, CaseOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestLatestCases(t *testing.T) {
	records := []Case{
		{Key: "ramsey", Date: day("2020-03-06"), Cases: 1},
		{Key: "hennepin", Date: day("2020-03-09"), Cases: 7},
		{Key: "ramsey", Date: day("2020-03-08"), Cases: 2},
		{Key: "hennepin", Date: day("2020-03-08"), Cases: 3},
		{Key: "ramsey", Date: day("2020-03-08"), Cases: 99},
	}

	latest := LatestCases(records)
	require.Len(t, latest, 2)
	assert.Equal(t, "ramsey", latest[0].Key)
	assert.Equal(t, int64(2), latest[0].Cases)
	assert.Equal(t, int64(7), latest[1].Cases)

	d, ok := LatestDate(records)
	assert.True(t, ok)
	assert.Equal(t, day("2020-03-09"), d)

	_, ok = LatestDate(nil)
	assert.False(t, ok)
}

func TestJoinPopulation(t *testing.T) {
	records := []Case{
		{Key: "hennepin", Cases: 100},
		{Key: "ramsey", Cases: 50},
		{Key: "unknown", Cases: 4},
	}
	pops := []Population{
		{Key: "hennepin", Population: 1000000},
		{Key: "hennepin", Population: 1},
		{Key: "ramsey", Population: 500000},
		{Key: "cook", Population: 5000000},
	}

	joined, unmatched := JoinPopulation(records, pops)
	require.Len(t, joined, len(records))
	require.NotNil(t, joined[0].Population)
	assert.Equal(t, int64(1000000), *joined[0].Population)
	assert.Equal(t, int64(500000), *joined[1].Population)
	assert.Nil(t, joined[2].Population)
	assert.Equal(t, []string{"unknown"}, unmatched)

	// inputs are not modified
	assert.Nil(t, records[0].Population)
}

func TestCasesPer10k(t *testing.T) {
	rate, ok := Feature{Cases: ptr(250), Population: ptr(500000)}.CasesPer10k()
	assert.True(t, ok)
	assert.InDelta(t, 5.0, rate, 1e-9)

	for _, f := range []Feature{
		{Cases: ptr(5)},
		{Population: ptr(10)},
		{Cases: ptr(5), Population: ptr(0)},
	} {
		_, ok := f.CasesPer10k()
		assert.False(t, ok)
	}
}

func TestBuildFeatures_LeftJoinFromGeometry(t *testing.T) {
	shapes := []boundary.Shape{
		{Region: "hennepin", Geom: unitSquare(0)},
		{Region: "St. Louis", Geom: unitSquare(2)},
		{Region: "lake", Geom: unitSquare(4)},
		{Region: "st louis", Geom: unitSquare(6)},
	}
	records := []Case{
		{Key: "hennepin", County: "Hennepin", Cases: 100, Population: ptr(1000000), Date: day("2020-05-01")},
		{Key: "st louis", County: "St. Louis", Cases: 10, Deaths: 1, HasDeaths: true},
		{Key: "cook", County: "Cook", Cases: 999},
	}

	features := BuildFeatures(shapes, records)
	require.Len(t, features, 3)

	assert.Equal(t, "Hennepin", features[0].Name)
	assert.Equal(t, int64(100), *features[0].Cases)
	assert.Equal(t, day("2020-05-01"), features[0].Date)

	assert.Equal(t, "st louis", features[1].Key)
	assert.Equal(t, 2, features[1].Geom.NumPolygons())
	assert.Equal(t, int64(1), *features[1].Deaths)
	assert.Nil(t, features[1].Population)

	assert.Equal(t, "Lake", features[2].Name)
	assert.Nil(t, features[2].Cases)

	// shape geometry is not mutated by the merge
	assert.Equal(t, 1, shapes[1].Geom.NumPolygons())
}

func TestLabel(t *testing.T) {
	label := Label(Feature{
		Name:       "Lake <of> Woods",
		Cases:      ptr(12345),
		Population: ptr(3740),
		Date:       day("2020-06-01"),
	})
	assert.Contains(t, label, "<strong>Lake &lt;of&gt; Woods</strong>")
	assert.Contains(t, label, "Cases: 12,345")
	assert.Contains(t, label, "Population: 3,740")
	assert.Contains(t, label, "Cases per 10,000: 33,008")
	assert.Contains(t, label, "As of 2020-06-01")
	assert.NotContains(t, label, "Deaths")

	label = Label(Feature{Name: "Cook"})
	assert.Contains(t, label, "Cases: n/a")
	assert.Contains(t, label, "Cases per 10,000: n/a")
}

type geoJSONDoc struct {
	Type     string `json:"type"`
	Features []struct {
		ID         string         `json:"id"`
		Geometry   map[string]any `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func TestFeatureCollection(t *testing.T) {
	features := []Feature{
		{Key: "hennepin", Name: "Hennepin", Geom: unitSquare(0), Cases: ptr(100), Population: ptr(1000000), Date: day("2020-05-01")},
		{Key: "lake", Name: "Lake", Geom: unitSquare(2)},
	}

	b, err := FeatureCollection(features, map[string]map[string]any{"lake": {"fill_color": "#808080"}})
	require.NoError(t, err)

	var doc geoJSONDoc
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)

	h := doc.Features[0]
	assert.Equal(t, "hennepin", h.ID)
	assert.Equal(t, "MultiPolygon", h.Geometry["type"])
	assert.Equal(t, 100.0, h.Properties["cases"])
	assert.InDelta(t, 1.0, h.Properties["cases_per_10k"], 1e-9)
	assert.Equal(t, "2020-05-01", h.Properties["date"])

	l := doc.Features[1].Properties
	assert.Nil(t, l["cases"])
	assert.Nil(t, l["cases_per_10k"])
	assert.Equal(t, "#808080", l["fill_color"])
	assert.NotContains(t, l, "date")
}

func choroplethFeatures() []Feature {
	return []Feature{
		{Key: "a", Name: "A", Geom: unitSquare(0), Cases: ptr(10), Population: ptr(10000)},
		{Key: "b", Name: "B", Geom: unitSquare(1), Cases: ptr(50), Population: ptr(10000)},
		{Key: "c", Name: "C", Geom: unitSquare(2), Cases: ptr(100), Population: ptr(10000)},
		{Key: "d", Name: "D", Geom: unitSquare(3)},
	}
}

func layerProperties(t *testing.T, m *leafmap.Map) []map[string]any {
	t.Helper()
	require.Len(t, m.Polygons, 1)
	var doc geoJSONDoc
	require.NoError(t, json.Unmarshal(m.Polygons[0].Features, &doc))
	out := make([]map[string]any, len(doc.Features))
	for i, f := range doc.Features {
		out[i] = f.Properties
	}
	return out
}

func TestChoroplethMap_RequiresPalette(t *testing.T) {
	_, err := ChoroplethMap(choroplethFeatures(), ChoroplethOptions{})
	assert.ErrorContains(t, err, "palette is required")

	_, err = ChoroplethMap(choroplethFeatures(), ChoroplethOptions{Palette: "not-a-palette"})
	assert.ErrorContains(t, err, "unknown palette")

	_, err = ChoroplethMap(nil, ChoroplethOptions{Palette: "viridis"})
	assert.ErrorContains(t, err, "no features")
}

func TestChoroplethMap_Continuous(t *testing.T) {
	m, err := ChoroplethMap(choroplethFeatures(), ChoroplethOptions{
		Title:       "Cases",
		Tiles:       leafmap.TileLayer{URL: "https://tiles.example/{z}/{x}/{y}.png"},
		Palette:     "YlOrRd",
		Opacity:     0.6,
		LegendTitle: "Cases per 10,000",
	})
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	scale, err := palette.NewNumeric("YlOrRd", 10, 100)
	require.NoError(t, err)

	props := layerProperties(t, m)
	assert.Equal(t, scale.Color(10), props[0]["fill_color"])
	assert.Equal(t, scale.Color(100), props[2]["fill_color"])
	assert.Equal(t, palette.NAColor, props[3]["fill_color"])
	assert.Contains(t, props[0]["label"], "<strong>A</strong>")

	assert.Nil(t, m.Polygons[0].Highlight)
	assert.Equal(t, 0.6, m.Polygons[0].Style.FillOpacity)
	require.Len(t, m.Legends, 1)
	assert.Equal(t, "Cases per 10,000", m.Legends[0].Title)
	assert.Equal(t, palette.NAColor, m.Legends[0].NAColor)
	assert.Equal(t, &leafmap.Bounds{South: 0, West: 0, North: 1, East: 4}, m.Bounds)
}

func TestChoroplethMap_BinsAndHighlight(t *testing.T) {
	m, err := ChoroplethMap(choroplethFeatures(), ChoroplethOptions{
		Tiles:          leafmap.TileLayer{URL: "https://tiles.example/{z}/{x}/{y}.png"},
		Palette:        "blues",
		Bins:           2,
		HighlightColor: "#666",
	})
	require.NoError(t, err)

	require.NotNil(t, m.Polygons[0].Highlight)
	assert.Equal(t, "#666", m.Polygons[0].Highlight.Color)
	assert.True(t, m.Polygons[0].Highlight.BringToFront)
	assert.Empty(t, m.Legends[0].Title)

	bins, err := palette.NewBin("blues", []float64{10, 50, 100}, 2)
	require.NoError(t, err)
	props := layerProperties(t, m)
	assert.Equal(t, bins.Color(50), props[1]["fill_color"])
	assert.Len(t, m.Legends[0].Entries, len(bins.Legend()))
}

func TestChoroplethMap_ExplicitBreaks(t *testing.T) {
	m, err := ChoroplethMap(choroplethFeatures(), ChoroplethOptions{
		Tiles:   leafmap.TileLayer{URL: "https://tiles.example/{z}/{x}/{y}.png"},
		Palette: "blues",
		Bins:    7,
		Breaks:  []float64{0, 20, 200},
	})
	require.NoError(t, err)

	require.Len(t, m.Legends, 1)
	require.Len(t, m.Legends[0].Entries, 2)
	props := layerProperties(t, m)
	assert.Equal(t, props[1]["fill_color"], props[2]["fill_color"])
	assert.NotEqual(t, props[0]["fill_color"], props[1]["fill_color"])

	_, err = ChoroplethMap(choroplethFeatures(), ChoroplethOptions{Palette: "blues", Breaks: []float64{5, 1}})
	assert.ErrorContains(t, err, "must increase")
}

func TestChoroplethMap_NameLabels(t *testing.T) {
	opts := ChoroplethOptions{
		Tiles:   leafmap.TileLayer{URL: "https://tiles.example/{z}/{x}/{y}.png"},
		Palette: "viridis",
	}
	m, err := ChoroplethMap(choroplethFeatures(), opts)
	require.NoError(t, err)
	assert.Empty(t, m.Labels)

	opts.ShowNames = true
	m, err = ChoroplethMap(choroplethFeatures(), opts)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	require.Len(t, m.Labels, 4)
	for i, l := range m.Labels {
		assert.Equal(t, choroplethFeatures()[i].Name, l.Text)
		assert.InDelta(t, float64(i)+0.5, l.Lng, 1e-9)
		assert.InDelta(t, 0.5, l.Lat, 1e-9)
	}
}

func TestChoroplethMap_NoDefinedRates(t *testing.T) {
	features := []Feature{{Key: "d", Name: "D", Geom: unitSquare(0)}}
	m, err := ChoroplethMap(features, ChoroplethOptions{
		Tiles:   leafmap.TileLayer{URL: "https://tiles.example/{z}/{x}/{y}.png"},
		Palette: "viridis",
	})
	require.NoError(t, err)
	assert.Empty(t, m.Legends)
	assert.Equal(t, palette.NAColor, layerProperties(t, m)[0]["fill_color"])
}

func TestLoadFeatures(t *testing.T) {
	vertices := writeFile(t, "mn.csv", "long,lat,group,order,region,subregion\n"+
		"0,0,1,1,minnesota,hennepin\n1,0,1,2,minnesota,hennepin\n1,1,1,3,minnesota,hennepin\n"+
		"2,0,2,4,minnesota,ramsey\n3,0,2,5,minnesota,ramsey\n3,1,2,6,minnesota,ramsey\n"+
		"4,0,3,7,minnesota,lake of the woods\n5,0,3,8,minnesota,lake of the woods\n5,1,3,9,minnesota,lake of the woods\n")
	pops := writeFile(t, "pop.csv", "county,population\nHennepin County,1000000\nRamsey County,500000\n")
	cases := writeFile(t, "cases.csv", nytCases)

	features, err := LoadFeatures(context.Background(), &fetcher.Mux{}, Sources{
		Boundary:   vertices,
		Population: pops,
		Cases:      cases,
		CaseOpts:   CaseOptions{State: "Minnesota"},
	})
	require.NoError(t, err)
	require.Len(t, features, 3)

	rate, ok := features[0].CasesPer10k()
	require.True(t, ok)
	assert.InDelta(t, 0.07, rate, 1e-9)

	assert.Equal(t, int64(2), *features[1].Cases)
	assert.Nil(t, features[2].Cases)
}

func TestLoadFeatures_NoCasesForState(t *testing.T) {
	vertices := writeFile(t, "mn.csv", "lng,lat,region\n0,0,a\n1,0,a\n1,1,a\n")
	pops := writeFile(t, "pop.csv", "county,population\nA,1\n")
	cases := writeFile(t, "cases.csv", nytCases)

	_, err := LoadFeatures(context.Background(), &fetcher.Mux{}, Sources{
		Boundary:   vertices,
		Population: pops,
		Cases:      cases,
		CaseOpts:   CaseOptions{State: "Wyoming"},
	})
	assert.ErrorContains(t, err, `no case rows for state "Wyoming"`)
}

func TestPopulationKeys_LowerCaseWithoutPeriods(t *testing.T) {
	path := writeFile(t, "pop.csv", "county,population\n"+
		"St. Louis County,200000\nLAKE OF THE WOODS COUNTY,3740\nLe Sueur County,28000\nSt. Croix,90000\n")

	pops, err := LoadPopulation(context.Background(), &fetcher.Mux{}, path, PopulationOptions{})
	require.NoError(t, err)
	require.Len(t, pops, 4)
	for _, p := range pops {
		assert.Equal(t, strings.ToLower(p.Key), p.Key)
		assert.NotContains(t, p.Key, ".")
	}
}

func TestJoinPopulation_HennepinCounty(t *testing.T) {
	records := []Case{{Key: NormalizeName("Hennepin County"), County: "Hennepin County", Cases: 10}}
	joined, unmatched := JoinPopulation(records, []Population{{Key: "hennepin", Population: 1265843}})

	assert.Empty(t, unmatched)
	require.NotNil(t, joined[0].Population)
	assert.Equal(t, int64(1265843), *joined[0].Population)
}
