package county

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/boundary"
	"github.com/sells-group/mapbook/internal/fetcher"
)

// Sources locates the three county inputs.
type Sources struct {
	Boundary     string
	BoundaryOpts boundary.LoadOptions
	Population   string
	PopOpts      PopulationOptions
	Cases        string
	CaseOpts     CaseOptions
}

// LoadFeatures fetches boundaries, population and cases, keeps each county's
// latest record, joins population onto it and attaches the result to the
// boundary polygons.
func LoadFeatures(ctx context.Context, f fetcher.Fetcher, src Sources) ([]Feature, error) {
	shapes, err := boundary.Load(ctx, f, src.Boundary, src.BoundaryOpts)
	if err != nil {
		return nil, err
	}
	pops, err := LoadPopulation(ctx, f, src.Population, src.PopOpts)
	if err != nil {
		return nil, err
	}
	records, err := LoadCases(ctx, f, src.Cases, src.CaseOpts)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.Errorf("county: no case rows for state %q", src.CaseOpts.State)
	}

	latest := LatestCases(records)
	joined, _ := JoinPopulation(latest, pops)
	features := BuildFeatures(shapes, joined)

	var withCases int
	for _, ft := range features {
		if ft.Cases != nil {
			withCases++
		}
	}
	asOf, _ := LatestDate(latest)
	zap.L().Info("county: built features",
		zap.Int("regions", len(features)),
		zap.Int("with_cases", withCases),
		zap.Time("as_of", asOf),
	)
	return features, nil
}
