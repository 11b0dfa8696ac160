package utils

import (
	"sync"
	"time"

	"series-canon/src/logger"
	"series-canon/src/models"
)

// CalendarRegistry maps source ids to the exchange calendar they declare.
type CalendarRegistry struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewCalendarRegistry(sources []models.MSourceDescriptor, l *logger.Logger) *CalendarRegistry {
	cr := &CalendarRegistry{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	cr.MapSourcesToCalendars(sources)
	return cr
}

// -----------------------------------------------------------------------------

// MapSourcesToCalendars replaces the registry content with the calendars
// named by sources. Sources without a calendar are not tracked.
func (cr *CalendarRegistry) MapSourcesToCalendars(sources []models.MSourceDescriptor) {
	byMIC := make(map[string]*TradingCalendar)
	next := make(map[string]*TradingCalendar)

	for _, src := range sources {
		if src.Calendar == "" {
			continue
		}
		cal, ok := byMIC[src.Calendar]
		if !ok {
			cal = GetCalendar(src.Calendar)
			byMIC[src.Calendar] = cal
			if cal.Fallback && cr.Logger != nil {
				cr.Logger.Warning("Calendar '%s' for source '%s' is unknown, using Mon-Fri fallback", src.Calendar, src.SourceID)
			}
		}
		next[src.SourceID] = cal
	}

	cr.mu.Lock()
	cr.Calendars = next
	cr.mu.Unlock()

	if cr.Logger != nil {
		cr.Logger.Info("CalendarRegistry: mapped %d sources to %d unique calendars.", len(next), len(byMIC))
	}
}

// -----------------------------------------------------------------------------

// IsClosed reports whether the source's calendar has no session on day.
// Sources without a calendar are never closed.
func (cr *CalendarRegistry) IsClosed(sourceID string, day time.Time) bool {
	cr.mu.RLock()
	cal, ok := cr.Calendars[sourceID]
	cr.mu.RUnlock()

	if !ok {
		return false
	}
	return !cal.IsTradingDay(day)
}
