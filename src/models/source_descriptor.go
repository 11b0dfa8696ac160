package models

import "time"

// Timestamp semantics of a source's raw rows.
const (
	// TimestampSample rows carry a sample instant that is floored into its window.
	TimestampSample = "sample"
	// TimestampWindowStart rows already name a window start and must be aligned.
	TimestampWindowStart = "window_start"
)

// MSourceDescriptor describes one provider feed: how its raw rows map to the
// canonical schema and which validity rules apply to its values.
type MSourceDescriptor struct {
	SourceID           string         `yaml:"source_id" json:"source_id" validate:"required"`
	WindowDuration     int64          `yaml:"window_duration" json:"window_duration" validate:"gt=0"`
	FieldMapping       MFieldMapping  `yaml:"field_mapping" json:"field_mapping"`
	Metric             string         `yaml:"metric" json:"metric,omitempty"`
	ValueUnit          string         `yaml:"value_unit" json:"value_unit,omitempty"`
	ValueScale         float64        `yaml:"value_scale" json:"value_scale,omitempty"`
	TimestampUnit      string         `yaml:"timestamp_unit" json:"timestamp_unit,omitempty" validate:"omitempty,oneof=s ms us ns"`
	TimestampFormat    string         `yaml:"timestamp_format" json:"timestamp_format,omitempty"`
	TimestampSemantics string         `yaml:"timestamp_semantics" json:"timestamp_semantics,omitempty" validate:"omitempty,oneof=sample window_start"`
	Calendar           string         `yaml:"calendar" json:"calendar,omitempty"`
	ActiveFrom         *time.Time     `yaml:"active_from" json:"active_from,omitempty"`
	ActiveUntil        *time.Time     `yaml:"active_until" json:"active_until,omitempty"`
	Rules              MValidityRules `yaml:"rules" json:"rules"`
}

// MFieldMapping holds gjson paths into a raw JSON row.
type MFieldMapping struct {
	Timestamp string `yaml:"timestamp" json:"timestamp" validate:"required"`
	Value     string `yaml:"value" json:"value" validate:"required"`
	Metric    string `yaml:"metric" json:"metric,omitempty"`
}

// MValidityRules are per-source sanity bounds. Nil bounds are unbounded.
type MValidityRules struct {
	MinValue      *float64 `yaml:"min_value" json:"min_value,omitempty"`
	MaxValue      *float64 `yaml:"max_value" json:"max_value,omitempty"`
	AllowNegative bool     `yaml:"allow_negative" json:"allow_negative"`
}

// -----------------------------------------------------------------------------

// Scale returns the unit conversion factor, defaulting to 1.
func (d MSourceDescriptor) Scale() float64 {
	if d.ValueScale == 0 {
		return 1
	}
	return d.ValueScale
}

// -----------------------------------------------------------------------------

// Semantics returns the timestamp semantics, defaulting to sample.
func (d MSourceDescriptor) Semantics() string {
	if d.TimestampSemantics == "" {
		return TimestampSample
	}
	return d.TimestampSemantics
}
