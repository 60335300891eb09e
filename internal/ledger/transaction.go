package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/meta"
)

// Entry is one leg of a double-entry transaction. Conceptually an entry is
// either a debit or a credit; the struct stores both sides with the unused
// one at zero.
type Entry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	Debit         Money
	Credit        Money
	Memo          string
}

// DebitEntry builds an entry with the full amount on the debit side.
func DebitEntry(accountID uuid.UUID, amount Money, memo string) Entry {
	return Entry{AccountID: accountID, Debit: amount, Credit: Zero(amount.Currency()), Memo: memo}
}

// CreditEntry builds an entry with the full amount on the credit side.
func CreditEntry(accountID uuid.UUID, amount Money, memo string) Entry {
	return Entry{AccountID: accountID, Debit: Zero(amount.Currency()), Credit: amount, Memo: memo}
}

func (e Entry) IsDebit() bool  { return !e.Debit.IsZero() }
func (e Entry) IsCredit() bool { return !e.Credit.IsZero() }

// NetAmount returns debit minus credit.
func (e Entry) NetAmount() (Money, error) { return e.Debit.Sub(e.Credit) }

// Currency returns the entry's currency, taken from whichever side carries it.
func (e Entry) Currency() string {
	if c := e.Debit.Currency(); c != "" {
		return c
	}
	return e.Credit.Currency()
}

// Transaction is an ordered collection of entries that must balance per
// currency. Once posted it is immutable except for categorization metadata
// and reversal linkage.
type Transaction struct {
	ID       uuid.UUID
	EntityID uuid.UUID
	Date     time.Time
	PostedAt *time.Time
	Memo     string
	// Reference carries external correlation tokens, semicolon-delimited
	// (e.g. import-tracking tokens appended by reconciliation).
	Reference string
	Category  Category
	Metadata  meta.Metadata `json:"metadata,omitempty"`
	// ReversesTransactionID is a non-owning back-reference to the transaction
	// this one reverses, if any.
	ReversesTransactionID *uuid.UUID
	Entries               []Entry
}

// AddEntry appends an entry. No validation happens until Validate.
func (t *Transaction) AddEntry(e Entry) { t.Entries = append(t.Entries, e) }

// IsReversal reports whether this transaction reverses another.
func (t *Transaction) IsReversal() bool { return t.ReversesTransactionID != nil }

// AccountIDs returns the distinct account ids referenced by the entries.
func (t *Transaction) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(t.Entries))
	out := make([]uuid.UUID, 0, len(t.Entries))
	for _, e := range t.Entries {
		if _, ok := seen[e.AccountID]; ok {
			continue
		}
		seen[e.AccountID] = struct{}{}
		out = append(out, e.AccountID)
	}
	return out
}

// Validate enforces the double-entry balance invariant: at least two entries,
// each entry on one side only, and sum(debits) == sum(credits) for every
// currency present.
func (t *Transaction) Validate() error {
	if len(t.Entries) < 2 {
		return errs.ErrTooFewEntries
	}
	type totals struct{ debits, credits decimal.Decimal }
	byCurrency := make(map[string]*totals)
	bump := func(cur string) *totals {
		tt, ok := byCurrency[cur]
		if !ok {
			tt = &totals{}
			byCurrency[cur] = tt
		}
		return tt
	}
	for _, e := range t.Entries {
		if e.IsDebit() && e.IsCredit() {
			return errs.ErrInvalid
		}
		if !e.Debit.IsZero() {
			tt := bump(e.Debit.Currency())
			tt.debits = tt.debits.Add(e.Debit.Amount())
		}
		if !e.Credit.IsZero() {
			tt := bump(e.Credit.Currency())
			tt.credits = tt.credits.Add(e.Credit.Amount())
		}
	}
	for cur, tt := range byCurrency {
		if !tt.debits.Equal(tt.credits) {
			return &errs.UnbalancedTransactionError{Currency: cur, Debits: tt.debits, Credits: tt.credits}
		}
	}
	return nil
}

// IsBalanced is the boolean form of Validate.
func (t *Transaction) IsBalanced() bool { return t.Validate() == nil }

// NetAmountForAccount sums debit minus credit across this transaction's
// entries for one account. Used by reconciliation scoring and balances.
func (t *Transaction) NetAmountForAccount(accountID uuid.UUID) (Money, error) {
	net := Money{}
	for _, e := range t.Entries {
		if e.AccountID != accountID {
			continue
		}
		n, err := e.NetAmount()
		if err != nil {
			return Money{}, err
		}
		net, err = net.Add(n)
		if err != nil {
			return Money{}, err
		}
	}
	return net, nil
}
