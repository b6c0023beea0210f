// Package domain is the Processing-state aggregate of spec.md
// §3/§4.5/§4.7.
package domain

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type ProcessingState struct {
	OrderID       string
	Version       int
	Status        Status
	AttemptCount  int
	LastError     string
}

// NewProcessingState creates the ∅→pending entry on first reception of
// order.created for an unknown order, per spec.md §4.5.
func NewProcessingState(orderID string) *ProcessingState {
	return &ProcessingState{OrderID: orderID, Status: StatusPending}
}

// RecordAttempt increments attempt_count and sets the outcome of one
// processing attempt (spec.md §4.5/§4.7: pending -> {success, failed},
// subsequent retries may re-enter pending with the counter bumped).
func (s *ProcessingState) RecordAttempt(result Status, reason string) {
	s.AttemptCount++
	s.Version++
	s.Status = result
	if result == StatusFailed {
		s.LastError = reason
	} else {
		s.LastError = ""
	}
}
