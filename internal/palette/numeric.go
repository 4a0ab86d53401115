package palette

import (
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// Numeric is a continuous colour scale over a closed domain.
type Numeric struct {
	stops []colorful.Color
	min   float64
	max   float64
	ticks int
}

// NewNumeric builds a continuous scale over [min, max].
func NewNumeric(spec string, min, max float64) (*Numeric, error) {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil, eris.New("palette: domain must be finite")
	}
	if min > max {
		return nil, eris.Errorf("palette: invalid domain [%g, %g]", min, max)
	}
	stops, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	return &Numeric{stops: stops, min: min, max: max, ticks: 5}, nil
}

// NewNumericFromValues builds a continuous scale over the full range of values.
func NewNumericFromValues(spec string, values []float64) (*Numeric, error) {
	lo, hi, ok := Range(values)
	if !ok {
		return nil, eris.New("palette: no finite values to build a domain from")
	}
	return NewNumeric(spec, lo, hi)
}

// Domain returns the scale bounds.
func (n *Numeric) Domain() (float64, float64) { return n.min, n.max }

// Color implements Scale. Values outside the domain get NAColor.
func (n *Numeric) Color(v float64) string {
	if math.IsNaN(v) || v < n.min || v > n.max {
		return NAColor
	}
	if n.max == n.min {
		return ramp(n.stops, 0.5)
	}
	return ramp(n.stops, (v-n.min)/(n.max-n.min))
}

// Legend implements Scale with evenly spaced round tick values.
func (n *Numeric) Legend() []Entry {
	ticks := Pretty(n.min, n.max, n.ticks)
	out := make([]Entry, 0, len(ticks))
	for _, v := range ticks {
		out = append(out, Entry{Color: n.Color(v), Label: formatTick(v), Value: v})
	}
	return out
}

// Pretty returns round tick values inside [lo, hi], roughly n of them.
func Pretty(lo, hi float64, n int) []float64 {
	if hi <= lo || n < 1 {
		return []float64{lo}
	}
	step := niceStep((hi - lo) / float64(n))
	start := math.Ceil(lo/step) * step
	var out []float64
	for i := 0; i <= maxTicks(n); i++ {
		v := start + float64(i)*step
		if v > hi+step*1e-9 {
			break
		}
		// Snap away float drift so labels stay round and inside the domain.
		snapped := math.Round(math.Round(v/step)*step*1e9) / 1e9
		snapped = math.Max(lo, math.Min(hi, snapped))
		if len(out) > 0 && snapped <= out[len(out)-1] {
			continue
		}
		out = append(out, snapped)
	}
	if len(out) == 0 {
		return []float64{lo, hi}
	}
	return out
}

// maxTicks bounds tick loops. A nice step is at least raw/sqrt(2), so a
// finite range never needs more than about 1.5n ticks.
func maxTicks(n int) int { return 4*n + 2 }

// niceStep rounds raw to 1, 2, 5 or 10 times a power of ten, switching at the
// geometric midpoints between candidates.
func niceStep(raw float64) float64 {
	exp := math.Floor(math.Log10(raw))
	base := math.Pow(10, exp)
	switch f := raw / base; {
	case f < math.Sqrt2:
		return base
	case f < math.Sqrt(10):
		return 2 * base
	case f < math.Sqrt(50):
		return 5 * base
	default:
		return 10 * base
	}
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
