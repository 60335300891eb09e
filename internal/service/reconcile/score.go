package reconcile

import (
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
)

const (
	amountPoints  = 50
	datePoints    = 30
	memoMaxPoints = 20
	// matchThreshold is the minimum score for a suggested match. Amount
	// equality alone reaches it; date and memo only add confidence.
	matchThreshold = 50
	// dateWindowDays is the calendar-day tolerance for the date bonus.
	dateWindowDays = 3
)

// Score rates how likely an imported record and a ledger transaction describe
// the same real-world event, evaluated against the entry net amount for the
// session's account. Amount equality is a gate, not additive: unequal amounts
// score zero regardless of date or memo.
func Score(rec ledger.ImportedRecord, txn *ledger.Transaction, accountID uuid.UUID) int {
	net, err := txn.NetAmountForAccount(accountID)
	if err != nil {
		return 0
	}
	cmp, err := rec.Amount.Cmp(net)
	if err != nil || cmp != 0 {
		return 0
	}
	score := amountPoints
	if withinDays(rec.Date, txn.Date, dateWindowDays) {
		score += datePoints
	}
	score += int(similarity(rec.Description, txn.Memo) * memoMaxPoints)
	return score
}

// Matched reports whether a score clears the suggestion threshold.
func Matched(score int) bool { return score >= matchThreshold }

func withinDays(a, b time.Time, days int) bool {
	diff := dateOnly(a).Sub(dateOnly(b))
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(days)*24*time.Hour
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// similarity is a case-insensitive normalized edit-distance ratio in [0, 1].
// Two empty strings are identical (ratio 1).
func similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
