package score

import "math"

// clamp01 limits v to [0, 1]; NaN maps to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 1:
		return 1
	default:
		return v
	}
}

// clampedRatio maps val linearly into [0, 1] with ceil as the saturation point.
func clampedRatio(val, ceil float64) float64 {
	if ceil <= 0 || val <= 0 {
		return 0
	}
	return clamp01(val / ceil)
}

// logCurve maps val into [0, 1] with logarithmic diminishing returns so a
// few very popular repositories do not dominate.
func logCurve(val, ceil float64) float64 {
	if ceil <= 0 || val <= 0 {
		return 0
	}
	return clamp01(math.Log1p(val) / math.Log1p(ceil))
}

// expDecay models freshness with a half-life; val <= 0 is fully fresh.
func expDecay(val, halfLife float64) float64 {
	if halfLife <= 0 {
		return 0
	}
	if val <= 0 {
		return 1
	}
	return math.Exp(-val * math.Ln2 / halfLife)
}
