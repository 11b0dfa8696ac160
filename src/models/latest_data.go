package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type       string                `json:"type"` // "INITIAL" or "RUN"
	Reports    map[string]MRunReport `json:"reports"`
	Aggregates []MDailyAggregate     `json:"aggregates"`
	Timestamp  int64                 `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Sources []string `json:"sources"`
	Metric  string   `json:"metric"`
}
