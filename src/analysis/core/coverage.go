package core

import "series-canon/src/models"

// -----------------------------------------------------------------------------

// CalculateCoveragePct returns observed/expected as a percentage. The result
// is never clamped; values above 100 carry overlap evidence.
func CalculateCoveragePct(observed, expected int64) float64 {
	if expected <= 0 {
		return 0.0
	}
	return float64(observed) / float64(expected) * 100
}

// -----------------------------------------------------------------------------

// CoverageLabel classifies a partition's coverage.
func CoverageLabel(observed, expected int64) string {
	switch {
	case observed == 0:
		return models.CoverageEmpty
	case expected <= 0:
		return models.CoverageUnknown
	case observed > expected:
		return models.CoverageOver100
	case observed == expected:
		return models.CoverageComplete
	default:
		return models.CoveragePartial
	}
}
