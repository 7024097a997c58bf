package generator

import (
	"math"
	"math/rand"

	"medsynth/pkg/sampling"
)

// ExpectedVolume is the pure growth-trend model: the expected record count
// for one period given a base volume, a per-period trend rate, a relative
// noise amplitude, and a noise seed. It performs no calendar math and holds
// no state; identical inputs always yield the identical count.
func ExpectedVolume(period int, base, trend, noise float64, seed int64) int {
	expected := base * math.Pow(1+trend, float64(period))
	if noise > 0 {
		// One dedicated generator per period keeps periods independently
		// reproducible regardless of evaluation order.
		rng := rand.New(rand.NewSource(seed + int64(period)))
		expected *= 1 + noise*(2*rng.Float64()-1)
	}
	if expected < 0 {
		return 0
	}
	return int(math.Round(expected))
}

// VolumeSeries evaluates the growth model over consecutive periods and
// packages the counts for the bulk sampler. The per-period growth step feeds
// the aggregate's running growth factor.
func VolumeSeries(periods int, base, trend, noise float64, seed int64) []sampling.PeriodVolume {
	out := make([]sampling.PeriodVolume, 0, periods)
	for period := 0; period < periods; period++ {
		out = append(out, sampling.PeriodVolume{
			Period:     period,
			Count:      ExpectedVolume(period, base, trend, noise, seed),
			GrowthStep: 1 + trend,
		})
	}
	return out
}
