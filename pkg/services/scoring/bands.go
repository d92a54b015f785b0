package scoring

import (
	"github.com/de-tools/vision-audit/pkg/models/domain"
)

// subScore maps a raw metric value onto [0,1] by piecewise-linear
// interpolation through the band knots: poor→0.25, fair→0.5, good→0.75,
// excellent→1.0. Below the poor boundary the poor–fair segment slope is
// extended until the score reaches 0. Direction reverses the raw ordering.
func subScore(raw float64, b domain.Bands, dir domain.Direction) float64 {
	var xs, ys [5]float64
	if dir == domain.LowerIsBetter {
		floor := b.Poor + (b.Poor - b.Fair)
		xs = [5]float64{b.Excellent, b.Good, b.Fair, b.Poor, floor}
		ys = [5]float64{1, 0.75, 0.5, 0.25, 0}
	} else {
		floor := b.Poor - (b.Fair - b.Poor)
		xs = [5]float64{floor, b.Poor, b.Fair, b.Good, b.Excellent}
		ys = [5]float64{0, 0.25, 0.5, 0.75, 1}
	}
	if raw <= xs[0] {
		return ys[0]
	}
	if raw >= xs[4] {
		return ys[4]
	}
	for i := 1; i < 5; i++ {
		if raw <= xs[i] {
			t := (raw - xs[i-1]) / (xs[i] - xs[i-1])
			return ys[i-1] + t*(ys[i]-ys[i-1])
		}
	}
	return ys[4]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
