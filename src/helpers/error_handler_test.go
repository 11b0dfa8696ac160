package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"series-canon/src/logger"
	"series-canon/src/models"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cfgErr := fmt.Errorf("partition 2024-03-01/aqi/pm25: %w", NewConfigurationError("mixed durations %v", []int64{1800, 3600}))

	assert.True(t, IsConfigurationError(cfgErr))
	assert.True(t, errors.Is(cfgErr, ErrConfiguration))
	assert.False(t, errors.Is(cfgErr, ErrMergeConflict))

	kind, ok := KindOf(cfgErr)
	assert.True(t, ok)
	assert.Equal(t, KindConfigurationError, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestMalformedRecordMessage(t *testing.T) {
	err := NewMalformedRecord(ReasonBadTimestamp, errors.New("no layout"))
	assert.Equal(t, "bad_timestamp: no layout", err.Error())
	assert.True(t, errors.Is(err, ErrMalformedRecord))

	bare := &SeriesCanonError{Kind: KindValidityViolation}
	assert.Equal(t, "validity_violation", bare.Error())
	assert.True(t, errors.Is(bare, ErrValidityViolation))
}

func TestHandleCountsByKind(t *testing.T) {
	var buf bytes.Buffer
	h := NewErrorHandler(logger.NewLoggerTo(&buf, &models.MConfig{LogFormat: "json"}, "Errors"))

	h.Handle(nil, "noop")
	h.Handle(NewMergeConflict("key arrived twice"), "merge")
	h.Handle(NewMergeConflict("key arrived twice"), "merge")
	h.Handle(NewConfigurationError("bad duration"), "aggregate")
	h.Handle(errors.New("disk full"), "store")

	assert.Equal(t, 2, h.Count(KindMergeConflict))
	assert.Equal(t, 1, h.Count(KindConfigurationError))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "Error in store: disk full")

	h.ResetErrorCount()
	assert.Equal(t, 0, h.Count(KindMergeConflict))
}
