package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"series-canon/src/helpers"
	"series-canon/src/logger"
	"series-canon/src/models"

	"github.com/araddon/dateparse"
	"github.com/tidwall/gjson"
)

// NormalizeResult is the canonical output of one extract plus drop counters.
type NormalizeResult struct {
	Records             []models.MWindowRecord
	RowsRead            int
	Malformed           map[string]int
	AlignmentViolations int
}

// Normalizer maps raw provider rows onto canonical window records.
type Normalizer struct {
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewNormalizer(log *logger.Logger) *Normalizer {
	return &Normalizer{Logger: log}
}

// -----------------------------------------------------------------------------

// Normalize maps every raw row through the descriptor's field mapping.
// Bad rows are dropped and counted; a single bad row never fails the batch.
func (n *Normalizer) Normalize(extract models.MRawExtract, desc models.MSourceDescriptor) NormalizeResult {
	res := NormalizeResult{
		Records:   make([]models.MWindowRecord, 0, len(extract.Rows)),
		RowsRead:  len(extract.Rows),
		Malformed: make(map[string]int),
	}

	for i, row := range extract.Rows {
		rec, err := n.normalizeRow(row, desc)
		if err != nil {
			var sce *helpers.SeriesCanonError
			switch {
			case errors.As(err, &sce) && sce.Kind == helpers.KindAlignmentViolation:
				res.AlignmentViolations++
			case sce != nil:
				res.Malformed[sce.Message]++
			default:
				res.Malformed[helpers.ReasonNotJSON]++
			}
			if n.Logger != nil {
				n.Logger.Debug("%s row %d of %s dropped: %v", desc.SourceID, i, extract.Name, err)
			}
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if n.Logger != nil && (len(res.Malformed) > 0 || res.AlignmentViolations > 0) {
		n.Logger.Warning("%s: %d/%d rows of %s dropped (malformed=%v, misaligned=%d)",
			desc.SourceID, res.RowsRead-len(res.Records), res.RowsRead, extract.Name, res.Malformed, res.AlignmentViolations)
	}

	return res
}

// -----------------------------------------------------------------------------

func (n *Normalizer) normalizeRow(row []byte, desc models.MSourceDescriptor) (models.MWindowRecord, error) {
	if !gjson.ValidBytes(row) {
		return models.MWindowRecord{}, helpers.NewMalformedRecord(helpers.ReasonNotJSON, nil)
	}

	tsField := gjson.GetBytes(row, desc.FieldMapping.Timestamp)
	if !tsField.Exists() || tsField.Type == gjson.Null {
		return models.MWindowRecord{}, helpers.NewMalformedRecord(helpers.ReasonMissingTimestamp, nil)
	}
	ts, err := parseTimestamp(tsField, desc)
	if err != nil {
		return models.MWindowRecord{}, helpers.NewMalformedRecord(helpers.ReasonBadTimestamp, err)
	}

	value, err := parseValue(gjson.GetBytes(row, desc.FieldMapping.Value))
	if err != nil {
		return models.MWindowRecord{}, err
	}
	value *= desc.Scale()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return models.MWindowRecord{}, helpers.NewMalformedRecord(helpers.ReasonNonFiniteValue, nil)
	}

	metric := desc.Metric
	if desc.FieldMapping.Metric != "" {
		if m := strings.TrimSpace(gjson.GetBytes(row, desc.FieldMapping.Metric).String()); m != "" {
			metric = m
		}
	}
	if metric == "" {
		return models.MWindowRecord{}, helpers.NewMalformedRecord(helpers.ReasonMissingMetric, nil)
	}

	// Only sample timestamps are floored; a window start must already sit
	// exactly on a boundary, sub-second part included.
	sec := ts.Unix()
	if desc.Semantics() == models.TimestampWindowStart && (ts.Nanosecond() != 0 || !IsAligned(sec, desc.WindowDuration)) {
		return models.MWindowRecord{}, helpers.NewAlignmentViolation(
			"timestamp %s is not on a %ds boundary", ts.Format(time.RFC3339Nano), desc.WindowDuration)
	}

	return models.MWindowRecord{
		WindowStart:    time.Unix(FloorToWindow(sec, desc.WindowDuration), 0).UTC(),
		Source:         desc.SourceID,
		Metric:         metric,
		Value:          value,
		WindowDuration: desc.WindowDuration,
	}, nil
}

// -----------------------------------------------------------------------------

// Epochs outside years 1..9999 are rejected as bad timestamps.
const (
	minEpochSeconds int64 = -62135596800 // 0001-01-01T00:00:00Z
	maxEpochSeconds int64 = 253402300799 // 9999-12-31T23:59:59Z
)

// parseTimestamp returns the full-precision UTC instant of a timestamp field.
func parseTimestamp(field gjson.Result, desc models.MSourceDescriptor) (time.Time, error) {
	switch field.Type {
	case gjson.Number:
		return epochToTime(field, desc.TimestampUnit)
	case gjson.String:
		s := strings.TrimSpace(field.Str)
		if s == "" {
			return time.Time{}, fmt.Errorf("empty timestamp")
		}
		var (
			t   time.Time
			err error
		)
		if desc.TimestampFormat != "" {
			t, err = time.Parse(desc.TimestampFormat, s)
		} else {
			t, err = dateparse.ParseIn(s, time.UTC)
		}
		if err != nil {
			return time.Time{}, err
		}
		return checkedUnix(t.Unix(), int64(t.Nanosecond()))
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %s", field.Type)
	}
}

// -----------------------------------------------------------------------------

// epochToTime converts a numeric epoch in unit to an instant. Integer input
// is converted exactly; fractional input keeps nanosecond precision.
func epochToTime(field gjson.Result, unit string) (time.Time, error) {
	var perSecond int64
	switch unit {
	case "", "s":
		perSecond = 1
	case "ms":
		perSecond = 1000
	case "us":
		perSecond = 1000 * 1000
	case "ns":
		perSecond = 1000 * 1000 * 1000
	default:
		return time.Time{}, fmt.Errorf("unknown timestamp unit %q", unit)
	}

	if raw, err := strconv.ParseInt(field.Raw, 10, 64); err == nil {
		sec, rem := raw/perSecond, raw%perSecond
		if rem < 0 {
			sec--
			rem += perSecond
		}
		return checkedUnix(sec, rem*(int64(time.Second)/perSecond))
	}

	f := field.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("non-finite epoch %q", field.Raw)
	}
	secs := f / float64(perSecond)
	if secs < float64(minEpochSeconds) || secs >= float64(maxEpochSeconds+1) {
		return time.Time{}, fmt.Errorf("epoch %q out of range", field.Raw)
	}
	whole := math.Floor(secs)
	nsec := int64(math.Round((secs - whole) * float64(time.Second)))
	if nsec >= int64(time.Second) {
		whole++
		nsec -= int64(time.Second)
	}
	return checkedUnix(int64(whole), nsec)
}

// -----------------------------------------------------------------------------

func checkedUnix(sec, nsec int64) (time.Time, error) {
	if sec < minEpochSeconds || sec > maxEpochSeconds {
		return time.Time{}, fmt.Errorf("epoch %ds out of range", sec)
	}
	return time.Unix(sec, nsec).UTC(), nil
}

// -----------------------------------------------------------------------------

func parseValue(field gjson.Result) (float64, error) {
	switch field.Type {
	case gjson.Number:
		return field.Float(), nil
	case gjson.String:
		s := strings.TrimSpace(field.Str)
		if s == "" {
			return 0, helpers.NewMalformedRecord(helpers.ReasonMissingValue, nil)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, helpers.NewMalformedRecord(helpers.ReasonNonNumericValue, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, helpers.NewMalformedRecord(helpers.ReasonNonFiniteValue, nil)
		}
		return v, nil
	case gjson.Null:
		return 0, helpers.NewMalformedRecord(helpers.ReasonMissingValue, nil)
	default:
		if !field.Exists() {
			return 0, helpers.NewMalformedRecord(helpers.ReasonMissingValue, nil)
		}
		return 0, helpers.NewMalformedRecord(helpers.ReasonNonNumericValue, nil)
	}
}
