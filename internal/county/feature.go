package county

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/mapbook/internal/boundary"
)

// Feature is one county polygon with its joined attributes.
type Feature struct {
	Key        string
	Name       string
	Geom       *geom.MultiPolygon
	Date       time.Time
	Cases      *int64
	Deaths     *int64
	Population *int64
}

// CasesPer10k returns cases per 10,000 residents. It is undefined when cases
// or population are missing, or population is zero.
func (f Feature) CasesPer10k() (float64, bool) {
	if f.Cases == nil || f.Population == nil || *f.Population <= 0 {
		return 0, false
	}
	return float64(*f.Cases) / float64(*f.Population) * 10000, true
}

// BuildFeatures left-joins case records onto boundary shapes by normalised
// name. The result has one feature per distinct region, in shape order;
// shapes whose names normalise to the same key are merged.
func BuildFeatures(shapes []boundary.Shape, records []Case) []Feature {
	byKey := make(map[string]Case, len(records))
	for _, c := range records {
		if _, ok := byKey[c.Key]; !ok {
			byKey[c.Key] = c
		}
	}

	idx := make(map[string]int, len(shapes))
	out := make([]Feature, 0, len(shapes))
	for _, s := range shapes {
		key := NormalizeName(s.Region)
		if key == "" {
			continue
		}
		if i, ok := idx[key]; ok {
			mergeInto(out[i].Geom, s.Geom)
			continue
		}

		f := Feature{Key: key, Name: DisplayName(key), Geom: cloneMulti(s.Geom)}
		if c, ok := byKey[key]; ok {
			cases := c.Cases
			f.Cases = &cases
			f.Date = c.Date
			f.Population = c.Population
			if c.County != "" {
				f.Name = c.County
			}
			if c.HasDeaths {
				deaths := c.Deaths
				f.Deaths = &deaths
			}
		}
		idx[key] = len(out)
		out = append(out, f)
	}
	return out
}

func cloneMulti(mp *geom.MultiPolygon) *geom.MultiPolygon {
	out := geom.NewMultiPolygon(geom.XY).SetSRID(mp.SRID())
	mergeInto(out, mp)
	return out
}

func mergeInto(dst, src *geom.MultiPolygon) {
	for i := 0; i < src.NumPolygons(); i++ {
		_ = dst.Push(src.Polygon(i))
	}
}

// Label is the hover text for a feature. It is HTML; the county name is escaped.
func Label(f Feature) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<strong>%s</strong>", html.EscapeString(f.Name))
	fmt.Fprintf(&b, "<br/>Cases: %s", formatCount(f.Cases))
	if f.Deaths != nil {
		fmt.Fprintf(&b, "<br/>Deaths: %s", formatCount(f.Deaths))
	}
	fmt.Fprintf(&b, "<br/>Population: %s", formatCount(f.Population))
	if rate, ok := f.CasesPer10k(); ok {
		fmt.Fprintf(&b, "<br/>Cases per 10,000: %s", humanize.CommafWithDigits(math.Round(rate*10)/10, 1))
	} else {
		b.WriteString("<br/>Cases per 10,000: n/a")
	}
	if !f.Date.IsZero() {
		fmt.Fprintf(&b, "<br/>As of %s", f.Date.Format(dateLayout))
	}
	return b.String()
}

func formatCount(n *int64) string {
	if n == nil {
		return "n/a"
	}
	return humanize.Comma(*n)
}
