package config

import (
	"os"
	"path/filepath"
	"testing"

	"series-canon/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
name: series-canon
port: 8090
log_level: DEBUG
storage:
  db_type: sqlite
  db_path: /tmp/canon.db
engine:
  workers: 3
sources:
  - source_id: aqi
    window_duration: 1800
    metric: pm25
    value_unit: ug/m3
    field_mapping:
      timestamp: ts
      value: reading.value
    rules:
      min_value: 0
      max_value: 1000
  - source_id: kp
    window_duration: 3600
    field_mapping:
      timestamp: time_tag
      value: kp
      metric: station
    rules:
      allow_negative: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "series-canon", cfg.Name)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 3, cfg.Engine.Workers)
	require.Len(t, cfg.Sources, 2)

	aqi, ok := cfg.Source("aqi")
	require.True(t, ok)
	assert.Equal(t, int64(1800), aqi.WindowDuration)
	require.NotNil(t, aqi.Rules.MinValue)
	assert.Equal(t, 0.0, *aqi.Rules.MinValue)
	assert.Equal(t, 1000.0, *aqi.Rules.MaxValue)
	assert.Equal(t, 1.0, aqi.Scale())

	kp, ok := cfg.Source("kp")
	require.True(t, ok)
	assert.True(t, kp.Rules.AllowNegative)
	assert.Nil(t, kp.Rules.MinValue)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
name: x
sources:
  - source_id: s
    window_duration: 60
    metric: m
    field_mapping: {timestamp: t, value: v}
`))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.DBType)
	assert.Equal(t, 8088, cfg.Port)
	assert.GreaterOrEqual(t, cfg.Engine.Workers, 1)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no sources", "name: x\n"},
		{"missing name", "sources: [{source_id: s, window_duration: 60, metric: m, field_mapping: {timestamp: t, value: v}}]\n"},
		{"sqlite without path", "name: x\nstorage: {db_type: sqlite}\nsources: [{source_id: s, window_duration: 60, metric: m, field_mapping: {timestamp: t, value: v}}]\n"},
		{"unknown db", "name: x\nstorage: {db_type: oracle}\nsources: [{source_id: s, window_duration: 60, metric: m, field_mapping: {timestamp: t, value: v}}]\n"},
		{"duplicate source", "name: x\nsources: [{source_id: s, window_duration: 60, metric: m, field_mapping: {timestamp: t, value: v}}, {source_id: s, window_duration: 60, metric: m, field_mapping: {timestamp: t, value: v}}]\n"},
		{"duration not dividing day", "name: x\nsources: [{source_id: s, window_duration: 7, metric: m, field_mapping: {timestamp: t, value: v}}]\n"},
		{"no metric", "name: x\nsources: [{source_id: s, window_duration: 60, field_mapping: {timestamp: t, value: v}}]\n"},
		{"inverted bounds", "name: x\nsources: [{source_id: s, window_duration: 60, metric: m, field_mapping: {timestamp: t, value: v}, rules: {min_value: 5, max_value: 1}}]\n"},
		{"bad semantics", "name: x\nsources: [{source_id: s, window_duration: 60, metric: m, timestamp_semantics: nearest, field_mapping: {timestamp: t, value: v}}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidateDescriptorIsConfigurationError(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	d, _ := cfg.Source("aqi")
	d.WindowDuration = 7000
	err = ValidateDescriptor(d)
	require.Error(t, err)
	assert.True(t, helpers.IsConfigurationError(err))
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Sources, loaded.Sources)

	_, err = NewConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}
