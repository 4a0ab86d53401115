package palette

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// Bin is a discrete scale: values fall into right-closed intervals between
// round break points, each interval with one colour.
type Bin struct {
	breaks []float64
	colors []string
}

// NewBin builds roughly n equal-width bins with round breaks covering the
// full range of values.
func NewBin(spec string, values []float64, n int) (*Bin, error) {
	if n < 1 {
		return nil, eris.Errorf("palette: bin count must be >= 1, got %d", n)
	}
	lo, hi, ok := Range(values)
	if !ok {
		return nil, eris.New("palette: no finite values to build bins from")
	}
	stops, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	return newBin(stops, binBreaks(lo, hi, n)), nil
}

// NewBinBreaks builds a discrete scale from explicit, increasing breaks.
func NewBinBreaks(spec string, breaks []float64) (*Bin, error) {
	if len(breaks) < 2 {
		return nil, eris.New("palette: need at least two breaks")
	}
	for i := 1; i < len(breaks); i++ {
		if !(breaks[i] > breaks[i-1]) {
			return nil, eris.Errorf("palette: breaks must increase (%g after %g)", breaks[i], breaks[i-1])
		}
	}
	stops, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	return newBin(stops, breaks), nil
}

func newBin(stops []colorful.Color, breaks []float64) *Bin {
	k := len(breaks) - 1
	colors := make([]string, k)
	for i := range colors {
		t := 0.5
		if k > 1 {
			t = float64(i) / float64(k-1)
		}
		colors[i] = ramp(stops, t)
	}
	return &Bin{breaks: breaks, colors: colors}
}

func binBreaks(lo, hi float64, n int) []float64 {
	if hi == lo {
		return []float64{lo, lo + 1}
	}
	step := niceStep((hi - lo) / float64(n))
	start := math.Floor(lo/step) * step
	end := math.Ceil(hi/step) * step
	var out []float64
	for i := 0; i <= maxTicks(n); i++ {
		v := math.Round((start+float64(i)*step)*1e9) / 1e9
		if len(out) > 0 && v <= out[len(out)-1] {
			continue
		}
		out = append(out, v)
		if v >= end-step*1e-9 {
			break
		}
	}
	if len(out) < 2 {
		out = append(out, math.Max(out[0]+step, math.Nextafter(out[0], math.Inf(1))))
	}
	return out
}

// Breaks returns the bin boundaries.
func (b *Bin) Breaks() []float64 { return b.breaks }

// Color implements Scale.
func (b *Bin) Color(v float64) string {
	if math.IsNaN(v) || v < b.breaks[0] || v > b.breaks[len(b.breaks)-1] {
		return NAColor
	}
	for i := 1; i < len(b.breaks); i++ {
		if v <= b.breaks[i] {
			return b.colors[i-1]
		}
	}
	return b.colors[len(b.colors)-1]
}

// Legend implements Scale with one entry per bin.
func (b *Bin) Legend() []Entry {
	out := make([]Entry, len(b.colors))
	for i, c := range b.colors {
		out[i] = Entry{
			Color: c,
			Label: formatTick(b.breaks[i]) + " – " + formatTick(b.breaks[i+1]),
			Value: b.breaks[i],
		}
	}
	return out
}
