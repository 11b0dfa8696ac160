package models

import "time"

// Reject reason tags produced by the validity filter.
const (
	RejectOutOfRange  = "out_of_range"
	RejectSignInvalid = "sign_invalid"
)

// MRejectedRecord is a window that failed its source's validity rules.
// It is kept for audit and never enters the canonical store.
type MRejectedRecord struct {
	Record     MWindowRecord `json:"record"`
	Reason     string        `json:"reason"`
	RunID      string        `json:"run_id,omitempty"`
	RejectedAt time.Time     `json:"rejected_at"`
}
