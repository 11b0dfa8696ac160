package analysis

import (
	"fmt"
	"io"
	"time"

	"series-canon/src/logger"
	"series-canon/src/models"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.NewLoggerTo(io.Discard, nil, "test")
}

func ptr(v float64) *float64 { return &v }

func testDesc() models.MSourceDescriptor {
	return models.MSourceDescriptor{
		SourceID:       "aqi",
		WindowDuration: 1800,
		Metric:         "pm25",
		ValueUnit:      "ug/m3",
		FieldMapping:   models.MFieldMapping{Timestamp: "ts", Value: "value"},
		Rules:          models.MValidityRules{MinValue: ptr(0), MaxValue: ptr(500)},
	}
}

// at returns a window record starting hh:mm after day.
func at(hhmm string, value float64) models.MWindowRecord {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		panic(err)
	}
	return models.MWindowRecord{
		WindowStart:    day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute),
		Source:         "aqi",
		Metric:         "pm25",
		Value:          value,
		WindowDuration: 1800,
	}
}

// row renders a raw JSON row with a unix timestamp.
func row(ts time.Time, value interface{}) []byte {
	switch v := value.(type) {
	case string:
		return []byte(fmt.Sprintf(`{"ts": %d, "value": %q}`, ts.Unix(), v))
	default:
		return []byte(fmt.Sprintf(`{"ts": %d, "value": %v}`, ts.Unix(), v))
	}
}

func extract(rows ...[]byte) models.MRawExtract {
	return models.MRawExtract{Source: "aqi", Name: "test.ndjson", Rows: rows}
}
