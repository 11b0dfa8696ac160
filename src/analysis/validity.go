package analysis

import (
	"time"

	"series-canon/src/models"
)

// ValidityResult partitions records into accepted and rejected.
type ValidityResult struct {
	Accepted []models.MWindowRecord
	Rejected []models.MRejectedRecord
}

// -----------------------------------------------------------------------------

// CountByReason tallies rejected records per reason tag.
func (v ValidityResult) CountByReason() map[string]int {
	counts := make(map[string]int)
	for _, r := range v.Rejected {
		counts[r.Reason]++
	}
	return counts
}

// ValidityFilter applies a source's range and sign rules.
type ValidityFilter struct {
	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewValidityFilter() *ValidityFilter {
	return &ValidityFilter{now: time.Now}
}

// -----------------------------------------------------------------------------

// Apply splits records by rules. Sign is checked before range, so a negative
// value on a source that forbids negatives is tagged sign_invalid even when
// it is also below min_value. Input order is preserved in both outputs.
func (f *ValidityFilter) Apply(records []models.MWindowRecord, rules models.MValidityRules) ValidityResult {
	res := ValidityResult{Accepted: make([]models.MWindowRecord, 0, len(records))}
	rejectedAt := f.now().UTC()

	for _, rec := range records {
		reason := Check(rec.Value, rules)
		if reason == "" {
			res.Accepted = append(res.Accepted, rec)
			continue
		}
		res.Rejected = append(res.Rejected, models.MRejectedRecord{
			Record:     rec,
			Reason:     reason,
			RejectedAt: rejectedAt,
		})
	}

	return res
}

// -----------------------------------------------------------------------------

// Check returns the reject reason for value, or "" if it passes.
func Check(value float64, rules models.MValidityRules) string {
	if value < 0 && !rules.AllowNegative {
		return models.RejectSignInvalid
	}
	if rules.MinValue != nil && value < *rules.MinValue {
		return models.RejectOutOfRange
	}
	if rules.MaxValue != nil && value > *rules.MaxValue {
		return models.RejectOutOfRange
	}
	return ""
}
