package core

import (
	"math"

	"github.com/montanaflynn/stats"
)

// -----------------------------------------------------------------------------

// Summary holds the per-partition value statistics.
type Summary struct {
	Count  int64
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64
}

// -----------------------------------------------------------------------------

// Summarize computes mean, min, max and the sample standard deviation.
// Empty input yields a zero Summary; a single value has StdDev 0.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}

	input := stats.Float64Data(data)
	mean, _ := stats.Mean(input)
	minV, _ := stats.Min(input)
	maxV, _ := stats.Max(input)

	return Summary{
		Count:  int64(len(data)),
		Mean:   mean,
		Min:    minV,
		Max:    maxV,
		StdDev: CalculateSampleStd(data),
	}
}

// -----------------------------------------------------------------------------

// CalculateSampleStd returns the n-1 standard deviation, 0 for n <= 1.
func CalculateSampleStd(data []float64) float64 {
	if len(data) <= 1 {
		return 0
	}
	std, err := stats.StandardDeviationSample(stats.Float64Data(data))
	if err != nil || math.IsNaN(std) {
		return 0
	}
	return std
}
