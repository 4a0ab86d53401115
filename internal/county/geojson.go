package county

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FeatureCollection encodes features as GeoJSON. Missing values are null;
// extra properties, keyed by feature key, are merged into each feature.
func FeatureCollection(features []Feature, extra map[string]map[string]any) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(features))}
	for _, f := range features {
		props := map[string]any{
			"key":        f.Key,
			"name":       f.Name,
			"cases":      nullable(f.Cases),
			"deaths":     nullable(f.Deaths),
			"population": nullable(f.Population),
		}
		if rate, ok := f.CasesPer10k(); ok {
			props["cases_per_10k"] = rate
		} else {
			props["cases_per_10k"] = nil
		}
		if !f.Date.IsZero() {
			props["date"] = f.Date.Format(dateLayout)
		}
		for k, v := range extra[f.Key] {
			props[k] = v
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.Key,
			Geometry:   f.Geom,
			Properties: props,
		})
	}

	b, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "county: encode geojson")
	}
	return b, nil
}

func nullable(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
