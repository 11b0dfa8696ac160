package analysis

import (
	"strconv"
	"testing"
	"time"

	"series-canon/src/helpers"
	"series-canon/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloorToWindow(t *testing.T) {
	tests := []struct {
		ts, w, want int64
	}{
		{0, 1800, 0},
		{1799, 1800, 0},
		{1800, 1800, 1800},
		{1709251199, 1800, 1709249400},
		{-1, 1800, -1800},
		{-1800, 1800, -1800},
		{-1801, 1800, -3600},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FloorToWindow(tt.ts, tt.w), "floor(%d, %d)", tt.ts, tt.w)
	}
	assert.True(t, IsAligned(3600, 1800))
	assert.False(t, IsAligned(3601, 1800))
	assert.False(t, IsAligned(0, 0))
}

func TestNormalizeFloorsSamples(t *testing.T) {
	n := NewNormalizer(testLogger())
	res := n.Normalize(extract(
		row(day.Add(10*time.Minute+7*time.Second), 12.5),
		row(day.Add(59*time.Minute), "13"),
	), testDesc())

	require.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.RowsRead)
	assert.Equal(t, day, res.Records[0].WindowStart)
	assert.Equal(t, day.Add(30*time.Minute), res.Records[1].WindowStart)
	assert.Equal(t, 13.0, res.Records[1].Value)
	assert.Equal(t, "pm25", res.Records[0].Metric)
	assert.Equal(t, int64(1800), res.Records[0].WindowDuration)

	// Alignment holds for every produced record.
	for _, r := range res.Records {
		assert.Zero(t, r.WindowStart.Unix()%r.WindowDuration)
	}
}

func TestNormalizeFieldMappingAndUnits(t *testing.T) {
	desc := testDesc()
	desc.FieldMapping = models.MFieldMapping{Timestamp: "meta.time", Value: "reading.v", Metric: "station"}
	desc.TimestampUnit = "ms"
	desc.ValueScale = 1000

	ms := day.Add(45*time.Minute).UnixMilli() + 999
	res := NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"meta": {"time": `+itoa(ms)+`}, "reading": {"v": 0.012}, "station": "north"}`),
		[]byte(`{"meta": {"time": `+itoa(ms)+`}, "reading": {"v": 0.02}}`),
	), desc)

	require.Len(t, res.Records, 2)
	assert.Equal(t, day.Add(30*time.Minute), res.Records[0].WindowStart)
	assert.InDelta(t, 12.0, res.Records[0].Value, 1e-9)
	assert.Equal(t, "north", res.Records[0].Metric)
	// Falls back to the descriptor's constant metric.
	assert.Equal(t, "pm25", res.Records[1].Metric)
}

func TestNormalizeStringTimestamps(t *testing.T) {
	desc := testDesc()
	res := NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": "2024-03-01T01:10:00Z", "value": 1}`),
		[]byte(`{"ts": "2024-03-01 02:59:59", "value": 2}`),
	), desc)
	require.Len(t, res.Records, 2)
	assert.Equal(t, day.Add(time.Hour), res.Records[0].WindowStart)
	assert.Equal(t, day.Add(150*time.Minute), res.Records[1].WindowStart)

	desc.TimestampFormat = "02/01/2006 15:04"
	res = NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": "01/03/2024 00:31", "value": 1}`),
	), desc)
	require.Len(t, res.Records, 1)
	assert.Equal(t, day.Add(30*time.Minute), res.Records[0].WindowStart)
}

func TestNormalizeMalformedRowsAreCounted(t *testing.T) {
	desc := testDesc()
	desc.Metric = ""
	desc.FieldMapping.Metric = "m"

	res := NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`not json`),
		[]byte(`{"value": 1, "m": "x"}`),
		[]byte(`{"ts": "yesterday-ish", "value": 1, "m": "x"}`),
		[]byte(`{"ts": 1709251200, "m": "x"}`),
		[]byte(`{"ts": 1709251200, "value": "abc", "m": "x"}`),
		[]byte(`{"ts": 1709251200, "value": "NaN", "m": "x"}`),
		[]byte(`{"ts": 1709251200, "value": 3}`),
		[]byte(`{"ts": 1709251200, "value": 4, "m": "x"}`),
	), desc)

	require.Len(t, res.Records, 1)
	assert.Equal(t, 8, res.RowsRead)
	assert.Equal(t, map[string]int{
		helpers.ReasonNotJSON:          1,
		helpers.ReasonMissingTimestamp: 1,
		helpers.ReasonBadTimestamp:     1,
		helpers.ReasonMissingValue:     1,
		helpers.ReasonNonNumericValue:  1,
		helpers.ReasonNonFiniteValue:   1,
		helpers.ReasonMissingMetric:    1,
	}, res.Malformed)
}

func TestNormalizeWindowStartSemanticsRejectsMisaligned(t *testing.T) {
	desc := testDesc()
	desc.TimestampSemantics = models.TimestampWindowStart

	res := NewNormalizer(testLogger()).Normalize(extract(
		row(day.Add(30*time.Minute), 1),
		row(day.Add(45*time.Minute), 2),
	), desc)

	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.AlignmentViolations)
	assert.Empty(t, res.Malformed)
	assert.Equal(t, day.Add(30*time.Minute), res.Records[0].WindowStart)

	// A non-zero sub-second part is off the boundary too.
	res = NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": "2024-03-01T00:00:00.500Z", "value": 1}`),
		[]byte(`{"ts": 1709251200.5, "value": 2}`),
		[]byte(`{"ts": "2024-03-01T00:30:00Z", "value": 3}`),
		[]byte(`{"ts": 1709254800.0, "value": 4}`),
	), desc)

	require.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.AlignmentViolations)
	assert.Empty(t, res.Malformed)
	assert.Equal(t, day.Add(30*time.Minute), res.Records[0].WindowStart)
	assert.Equal(t, day.Add(time.Hour), res.Records[1].WindowStart)

	desc.TimestampUnit = "ms"
	res = NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": 1709251200500, "value": 1}`),
		[]byte(`{"ts": 1709251200000, "value": 2}`),
	), desc)

	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.AlignmentViolations)
	assert.Equal(t, day, res.Records[0].WindowStart)
	assert.Equal(t, 2.0, res.Records[0].Value)
}

func TestNormalizeSampleSemanticsFloorsSubSecond(t *testing.T) {
	desc := testDesc()
	desc.TimestampUnit = "ms"

	res := NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": 1709251200500, "value": 1}`),
	), desc)
	require.Len(t, res.Records, 1)
	assert.Equal(t, day, res.Records[0].WindowStart)

	desc.TimestampUnit = ""
	res = NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": 1709251200.5, "value": 1}`),
		[]byte(`{"ts": "2024-03-01T00:29:59.999Z", "value": 2}`),
	), desc)
	require.Len(t, res.Records, 2)
	assert.Zero(t, res.AlignmentViolations)
	assert.Equal(t, day, res.Records[0].WindowStart)
	assert.Equal(t, day, res.Records[1].WindowStart)
}

func TestNormalizeOutOfRangeEpochIsBadTimestamp(t *testing.T) {
	res := NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": 1e300, "value": 1}`),
		[]byte(`{"ts": -1e300, "value": 1}`),
		[]byte(`{"ts": 9000000000000000000, "value": 1}`),
		row(day, 1),
	), testDesc())

	require.Len(t, res.Records, 1)
	assert.Equal(t, map[string]int{helpers.ReasonBadTimestamp: 3}, res.Malformed)

	desc := testDesc()
	desc.TimestampUnit = "ns"
	res = NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": 1e300, "value": 1}`),
		[]byte(`{"ts": 1709251200000000000, "value": 1}`),
	), desc)
	require.Len(t, res.Records, 1)
	assert.Equal(t, map[string]int{helpers.ReasonBadTimestamp: 1}, res.Malformed)
	assert.Equal(t, day, res.Records[0].WindowStart)
}

func TestNormalizeNegativeEpoch(t *testing.T) {
	res := NewNormalizer(testLogger()).Normalize(extract(
		[]byte(`{"ts": -1, "value": 1}`),
	), testDesc())
	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(-1800), res.Records[0].WindowStart.Unix())
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
