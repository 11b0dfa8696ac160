package models

// MRawExtract is one provider batch as handed over by the ingestion
// collaborator: an enumerable set of raw JSON rows for a single source.
type MRawExtract struct {
	Source string   `json:"source"`
	Name   string   `json:"name"` // file name or batch label
	Rows   [][]byte `json:"-"`
}
