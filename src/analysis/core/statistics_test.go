package core

import (
	"math"
	"testing"

	"series-canon/src/models"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, int64(8), s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	// sample variance = 32/7
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.StdDev, 1e-12)
}

func TestSummarizeDegenerate(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	one := Summarize([]float64{3.5})
	assert.Equal(t, int64(1), one.Count)
	assert.Equal(t, 3.5, one.Mean)
	assert.Equal(t, 0.0, one.StdDev)
	assert.False(t, math.IsNaN(one.StdDev))
}

func TestCoverage(t *testing.T) {
	assert.Equal(t, 100.0, CalculateCoveragePct(48, 48))
	assert.InDelta(t, 104.1666, CalculateCoveragePct(50, 48), 1e-3)
	assert.Equal(t, 0.0, CalculateCoveragePct(3, 0))

	assert.Equal(t, models.CoverageComplete, CoverageLabel(48, 48))
	assert.Equal(t, models.CoveragePartial, CoverageLabel(3, 48))
	assert.Equal(t, models.CoverageOver100, CoverageLabel(50, 48))
	assert.Equal(t, models.CoverageEmpty, CoverageLabel(0, 48))
	assert.Equal(t, models.CoverageUnknown, CoverageLabel(2, 0))
}
