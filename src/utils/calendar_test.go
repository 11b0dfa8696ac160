package utils

import (
	"testing"
	"time"

	"series-canon/src/models"

	"github.com/stretchr/testify/assert"
)

func TestCalendarRegistryIsClosed(t *testing.T) {
	reg := NewCalendarRegistry([]models.MSourceDescriptor{
		{SourceID: "equities", Calendar: "xnys"},
		{SourceID: "weather"},
		{SourceID: "made-up", Calendar: "zzzz"},
	}, nil)

	saturday := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	assert.True(t, reg.IsClosed("equities", saturday))
	assert.False(t, reg.IsClosed("equities", monday))

	assert.False(t, reg.IsClosed("weather", saturday))
	assert.False(t, reg.IsClosed("unknown", saturday))

	assert.True(t, reg.IsClosed("made-up", saturday))
	assert.False(t, reg.IsClosed("made-up", monday))
}

func TestGetCalendarFallback(t *testing.T) {
	cal := GetCalendar("nope")
	assert.True(t, cal.Fallback)
	assert.Equal(t, "nope", cal.MIC)
}
