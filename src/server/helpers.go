package server

import (
	"fmt"
	"strconv"
	"time"

	"series-canon/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

func toLatestData(v interface{}) (*models.MLatestData, bool) {
	switch d := v.(type) {
	case models.MLatestData:
		return &d, true
	case *models.MLatestData:
		if d == nil {
			return nil, false
		}
		return d, true
	default:
		return nil, false
	}
}

// -----------------------------------------------------------------------------

// filterState narrows a cached state to sources and metric. Empty filters
// match everything.
func filterState(state *models.MLatestData, sources []string, metric string) *models.MLatestData {
	out := &models.MLatestData{
		Type:       state.Type,
		Reports:    make(map[string]models.MRunReport),
		Aggregates: []models.MDailyAggregate{},
		Timestamp:  state.Timestamp,
	}

	for src, r := range state.Reports {
		if len(sources) == 0 || contains(sources, src) {
			out.Reports[src] = r
		}
	}
	for _, a := range state.Aggregates {
		if len(sources) > 0 && !contains(sources, a.Source) {
			continue
		}
		if metric != "" && a.Metric != metric {
			continue
		}
		out.Aggregates = append(out.Aggregates, a)
	}
	return out
}

// -----------------------------------------------------------------------------

// dateParam reads an optional YYYY-MM-DD query parameter.
func dateParam(c *gin.Context, key string) (string, error) {
	v := c.Query(key)
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse(models.DateLayout, v); err != nil {
		return "", fmt.Errorf("invalid %s date '%s', expected YYYY-MM-DD", key, v)
	}
	return v, nil
}

// -----------------------------------------------------------------------------

func intParam(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s '%s'", key, v)
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
