package county

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapbook/internal/fetcher"
)

// Case is one county's cumulative case record on a date.
type Case struct {
	Key        string
	County     string
	State      string
	FIPS       string
	Date       time.Time
	Cases      int64
	Deaths     int64
	HasDeaths  bool
	Population *int64
}

type caseRow struct {
	Date   string `csv:"date"`
	County string `csv:"county"`
	State  string `csv:"state"`
	FIPS   string `csv:"fips"`
	Cases  string `csv:"cases"`
	Deaths string `csv:"deaths"`
}

const dateLayout = "2006-01-02"

// CaseOptions filters and maps a case table.
type CaseOptions struct {
	// State keeps only rows for this state (case-insensitive); empty keeps all.
	State   string
	Renames map[string]string
}

// LoadCases reads a cumulative case table in the date,county,state,fips,
// cases,deaths layout. Rows with an unparseable date or count are skipped.
func LoadCases(ctx context.Context, f fetcher.Fetcher, location string, opts CaseOptions) ([]Case, error) {
	body, err := f.Download(ctx, location)
	if err != nil {
		return nil, eris.Wrap(err, "county: fetch cases")
	}
	defer body.Close() //nolint:errcheck

	rows, err := fetcher.DecodeCSV[caseRow](ctx, body, fetcher.DecodeOptions{
		Renames:  opts.Renames,
		Required: []string{"date", "county", "cases"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "county: decode cases")
	}

	state := strings.TrimSpace(opts.State)
	out := make([]Case, 0, len(rows))
	var skipped int
	for _, r := range rows {
		if state != "" && !strings.EqualFold(strings.TrimSpace(r.State), state) {
			continue
		}
		c, ok := r.record()
		if !ok {
			skipped++
			continue
		}
		out = append(out, c)
	}
	if skipped > 0 {
		zap.L().Warn("county: skipped case rows", zap.Int("skipped", skipped))
	}
	zap.L().Info("county: loaded cases",
		zap.String("source", location),
		zap.String("state", state),
		zap.Int("rows", len(out)),
	)
	return out, nil
}

func (r caseRow) record() (Case, bool) {
	key := NormalizeName(r.County)
	date, err := time.Parse(dateLayout, strings.TrimSpace(r.Date))
	if err != nil || key == "" {
		return Case{}, false
	}
	n, ok := parseCount(r.Cases)
	if !ok {
		return Case{}, false
	}
	c := Case{
		Key:    key,
		County: strings.TrimSpace(r.County),
		State:  strings.TrimSpace(r.State),
		FIPS:   strings.TrimSpace(r.FIPS),
		Date:   date,
		Cases:  n,
	}
	if d, ok := parseCount(r.Deaths); ok {
		c.Deaths = d
		c.HasDeaths = true
	}
	return c, true
}

// LatestCases keeps each county's most recent record. Counties appear in the
// order they were first seen; on a date tie the earlier row wins.
func LatestCases(records []Case) []Case {
	idx := make(map[string]int)
	var out []Case
	for _, c := range records {
		i, ok := idx[c.Key]
		if !ok {
			idx[c.Key] = len(out)
			out = append(out, c)
			continue
		}
		if c.Date.After(out[i].Date) {
			out[i] = c
		}
	}
	return out
}

// LatestDate returns the newest date among the records.
func LatestDate(records []Case) (time.Time, bool) {
	var latest time.Time
	for _, c := range records {
		if c.Date.After(latest) {
			latest = c.Date
		}
	}
	return latest, !latest.IsZero()
}

// JoinPopulation attaches population estimates to case records by county key.
// Every case row is kept exactly once; duplicate population keys keep the
// first estimate. Returns the keys of case rows that found no population.
func JoinPopulation(records []Case, pops []Population) ([]Case, []string) {
	byKey := make(map[string]int64, len(pops))
	var dups int
	for _, p := range pops {
		if _, ok := byKey[p.Key]; ok {
			dups++
			continue
		}
		byKey[p.Key] = p.Population
	}
	if dups > 0 {
		zap.L().Warn("county: duplicate population keys ignored", zap.Int("duplicates", dups))
	}

	out := make([]Case, len(records))
	var unmatched []string
	for i, c := range records {
		out[i] = c
		if n, ok := byKey[c.Key]; ok {
			out[i].Population = &n
			continue
		}
		out[i].Population = nil
		unmatched = append(unmatched, c.Key)
	}
	if len(unmatched) > 0 {
		zap.L().Warn("county: case rows without population",
			zap.Int("unmatched", len(unmatched)),
			zap.Strings("counties", unmatched),
		)
	}
	return out, unmatched
}
