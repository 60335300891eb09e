package ledger

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus tracks the review state of one imported record.
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusConfirmed MatchStatus = "confirmed"
	MatchStatusRejected  MatchStatus = "rejected"
	MatchStatusSkipped   MatchStatus = "skipped"
)

// SessionStatus tracks the lifecycle of a reconciliation session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// ImportedRecord is one parsed row from an external bank/brokerage file.
// Parsing itself happens upstream; the core only sees plain records.
type ImportedRecord struct {
	ExternalRef string
	Date        time.Time
	Amount      Money
	Description string
}

// ReconciliationMatch pairs an imported record with an optional suggested
// ledger transaction and a confidence score.
type ReconciliationMatch struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Record    ImportedRecord
	// SuggestedTransactionID is the best-scoring candidate, if any.
	SuggestedTransactionID *uuid.UUID
	Score                  int
	Matched                bool
	Status                 MatchStatus
}

// ReconciliationSession binds one account and one imported file to its
// candidate matches. The session owns its matches (cascade delete).
type ReconciliationSession struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	FileName  string
	Status    SessionStatus
	CreatedAt time.Time
	Matches   []ReconciliationMatch
}

// Resolved reports whether every match is confirmed or rejected (no pending
// or skipped remain), which is the auto-complete condition.
func (s *ReconciliationSession) Resolved() bool {
	for _, m := range s.Matches {
		if m.Status == MatchStatusPending || m.Status == MatchStatusSkipped {
			return false
		}
	}
	return true
}

// MatchByID finds a match within the session.
func (s *ReconciliationSession) MatchByID(matchID uuid.UUID) (ReconciliationMatch, bool) {
	for _, m := range s.Matches {
		if m.ID == matchID {
			return m, true
		}
	}
	return ReconciliationMatch{}, false
}
