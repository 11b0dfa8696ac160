package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers open/closed questions for one exchange calendar
// using scmhub/calendar.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar loads the calendar for an ISO-10383 MIC such as "xnys".
// Unknown MICs fall back to a Mon-Fri calendar in UTC.
func GetCalendar(mic string) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: time.UTC}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// IsTradingDay reports whether the calendar has a session on the given
// calendar date. Only the year, month and day of date are used.
func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}

	loc := tc.Timezone
	if loc == nil {
		loc = time.UTC
	}
	// Noon in the exchange's zone keeps the date stable across offsets.
	local := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)
	return tc.Calendar.IsBusinessDay(local)
}
