package analysis

import (
	"testing"

	"series-canon/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidityFilterPartitions(t *testing.T) {
	rules := models.MValidityRules{MinValue: ptr(0), MaxValue: ptr(100)}
	res := NewValidityFilter().Apply([]models.MWindowRecord{
		at("00:00", 5),
		at("00:30", 101),
		at("01:00", -3),
		at("01:30", 100),
		at("02:00", 0),
	}, rules)

	require.Len(t, res.Accepted, 3)
	assert.Equal(t, []float64{5, 100, 0}, []float64{res.Accepted[0].Value, res.Accepted[1].Value, res.Accepted[2].Value})
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, models.RejectOutOfRange, res.Rejected[0].Reason)
	assert.Equal(t, models.RejectSignInvalid, res.Rejected[1].Reason)
	assert.Equal(t, map[string]int{models.RejectOutOfRange: 1, models.RejectSignInvalid: 1}, res.CountByReason())
	assert.False(t, res.Rejected[0].RejectedAt.IsZero())
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		rules models.MValidityRules
		want  string
	}{
		{"unbounded positive", 1e9, models.MValidityRules{}, ""},
		{"negative forbidden by default", -0.1, models.MValidityRules{}, models.RejectSignInvalid},
		{"negative allowed", -5, models.MValidityRules{AllowNegative: true}, ""},
		{"sign before range", -5, models.MValidityRules{MinValue: ptr(0)}, models.RejectSignInvalid},
		{"below min with negatives allowed", -5, models.MValidityRules{MinValue: ptr(-1), AllowNegative: true}, models.RejectOutOfRange},
		{"above max", 11, models.MValidityRules{MaxValue: ptr(10)}, models.RejectOutOfRange},
		{"bounds inclusive", 10, models.MValidityRules{MinValue: ptr(10), MaxValue: ptr(10)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.value, tt.rules))
		})
	}
}
