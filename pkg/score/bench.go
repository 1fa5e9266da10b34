package score

// BenchWeights controls bench_score. Reference is the smoke-test latency,
// in seconds, that earns full speed credit.
type BenchWeights struct {
	Pass      float64
	Speed     float64
	Reference float64
}

// DefaultBenchWeights returns pass 0.7, speed 0.3 and a 1s reference.
func DefaultBenchWeights() BenchWeights {
	return BenchWeights{Pass: 0.7, Speed: 0.3, Reference: 1}
}

// NormalizedSpeed is clamp(reference/observed, 0, 1). Tools faster than the
// reference are capped at 1; a non-positive observation counts as instant.
func NormalizedSpeed(observed, reference float64) float64 {
	if reference <= 0 {
		return 0
	}
	if observed <= 0 {
		return 1
	}
	return clamp01(reference / observed)
}

// BenchScore returns bench_score. A failed probe scores 0. A pass without a
// latency earns no speed credit.
func BenchScore(passed bool, latency *float64, w BenchWeights) float64 {
	if !passed {
		return 0
	}
	speed := 0.0
	if latency != nil {
		speed = NormalizedSpeed(*latency, w.Reference)
	}
	return clamp01(w.Pass*1 + w.Speed*speed)
}
