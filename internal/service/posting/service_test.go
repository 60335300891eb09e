package posting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/service/posting"
	"github.com/marwick/ledger/internal/storage/memory"
)

func seedLedger(t *testing.T) (*memory.Store, posting.Service, ledger.Entity, ledger.Account, ledger.Account) {
	t.Helper()
	store := memory.New()
	svc := posting.New(store, store)

	entity := ledger.Entity{ID: uuid.New(), Name: "Family Trust", Kind: ledger.EntityKindTrust}
	store.SeedEntity(entity)
	checking := ledger.Account{ID: uuid.New(), EntityID: entity.ID, Name: "Checking", Currency: "USD", Type: ledger.AccountTypeAsset, Group: "checking", Institution: "First National", Active: true}
	income := ledger.Account{ID: uuid.New(), EntityID: entity.ID, Name: "Salary", Currency: "USD", Type: ledger.AccountTypeRevenue, Group: "salary", Institution: "Employer", Active: true}
	store.SeedAccount(checking)
	store.SeedAccount(income)
	return store, svc, entity, checking, income
}

func simpleTxn(entityID, debit, credit uuid.UUID, amount string, date time.Time) ledger.Transaction {
	txn := ledger.Transaction{EntityID: entityID, Date: date, Memo: "test"}
	txn.AddEntry(ledger.DebitEntry(debit, ledger.MustParseMoney(amount, "USD"), ""))
	txn.AddEntry(ledger.CreditEntry(credit, ledger.MustParseMoney(amount, "USD"), ""))
	return txn
}

func TestPostTransaction(t *testing.T) {
	_, svc, entity, checking, income := seedLedger(t)
	txn := simpleTxn(entity.ID, checking.ID, income.ID, "500.00", time.Now().UTC())

	posted, err := svc.PostTransaction(context.Background(), txn)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if posted.ID == uuid.Nil || posted.PostedAt == nil {
		t.Fatalf("expected assigned id and posted timestamp: %+v", posted)
	}
	if posted.Category != ledger.CategoryUncategorized {
		t.Fatalf("expected default category, got %s", posted.Category)
	}
	for _, e := range posted.Entries {
		if e.ID == uuid.Nil || e.TransactionID != posted.ID {
			t.Fatalf("entry ids not stamped: %+v", e)
		}
	}
}

func TestPostTransaction_Unbalanced(t *testing.T) {
	_, svc, entity, checking, income := seedLedger(t)
	txn := ledger.Transaction{EntityID: entity.ID, Date: time.Now().UTC()}
	txn.AddEntry(ledger.DebitEntry(checking.ID, ledger.MustParseMoney("500.00", "USD"), ""))
	txn.AddEntry(ledger.CreditEntry(income.ID, ledger.MustParseMoney("400.00", "USD"), ""))

	if _, err := svc.PostTransaction(context.Background(), txn); !errors.Is(err, errs.ErrUnbalanced) {
		t.Fatalf("expected unbalanced, got %v", err)
	}
}

func TestPostTransaction_UnknownAccount(t *testing.T) {
	_, svc, entity, checking, _ := seedLedger(t)
	txn := simpleTxn(entity.ID, checking.ID, uuid.New(), "10.00", time.Now().UTC())
	if _, err := svc.PostTransaction(context.Background(), txn); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostTransaction_CrossEntityAccount(t *testing.T) {
	store, svc, entity, checking, _ := seedLedger(t)
	other := ledger.Account{ID: uuid.New(), EntityID: uuid.New(), Name: "Other", Currency: "USD", Type: ledger.AccountTypeAsset, Group: "checking", Institution: "Elsewhere", Active: true}
	store.SeedAccount(other)
	txn := simpleTxn(entity.ID, checking.ID, other.ID, "10.00", time.Now().UTC())
	// account belongs to a different entity and is invisible to this one
	if _, err := svc.PostTransaction(context.Background(), txn); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for cross-entity account, got %v", err)
	}
}

func TestReverseTransaction(t *testing.T) {
	_, svc, entity, checking, income := seedLedger(t)
	orig, err := svc.PostTransaction(context.Background(), simpleTxn(entity.ID, checking.ID, income.ID, "250.00", time.Now().UTC()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	rev, err := svc.ReverseTransaction(context.Background(), entity.ID, orig.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if rev.ReversesTransactionID == nil || *rev.ReversesTransactionID != orig.ID {
		t.Fatalf("expected reversal link, got %+v", rev.ReversesTransactionID)
	}
	// entries are debit/credit mirrored
	for i, e := range rev.Entries {
		if !e.Debit.Equal(orig.Entries[i].Credit) || !e.Credit.Equal(orig.Entries[i].Debit) {
			t.Fatalf("entry %d not mirrored", i)
		}
	}

	// net effect on the account is zero
	bal, err := svc.AccountBalance(context.Background(), entity.ID, checking.ID, nil)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("expected zero balance after reversal, got %s", bal)
	}
}

func TestRecategorize(t *testing.T) {
	_, svc, entity, checking, income := seedLedger(t)
	orig, err := svc.PostTransaction(context.Background(), simpleTxn(entity.ID, checking.ID, income.ID, "42.00", time.Now().UTC()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	updated, err := svc.Recategorize(context.Background(), entity.ID, orig.ID, ledger.CategoryInvestment, map[string]string{"source": "review"})
	if err != nil {
		t.Fatalf("recategorize: %v", err)
	}
	if updated.Category != ledger.CategoryInvestment {
		t.Fatalf("expected investments, got %s", updated.Category)
	}
	if updated.Metadata["source"] != "review" {
		t.Fatalf("expected merged metadata, got %+v", updated.Metadata)
	}
	// entries are untouched
	if len(updated.Entries) != 2 {
		t.Fatalf("recategorize must not touch entries")
	}
}

func TestTrialBalance(t *testing.T) {
	_, svc, entity, checking, income := seedLedger(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.PostTransaction(context.Background(), simpleTxn(entity.ID, checking.ID, income.ID, "100.00", base)); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := svc.PostTransaction(context.Background(), simpleTxn(entity.ID, checking.ID, income.ID, "50.00", base.AddDate(0, 0, 10))); err != nil {
		t.Fatalf("post: %v", err)
	}

	tb, err := svc.TrialBalance(context.Background(), entity.ID, nil)
	if err != nil {
		t.Fatalf("trial balance: %v", err)
	}
	if !tb[checking.ID].Equal(ledger.MustParseMoney("150", "USD")) {
		t.Fatalf("expected checking 150, got %s", tb[checking.ID])
	}
	if !tb[income.ID].Equal(ledger.MustParseMoney("-150", "USD")) {
		t.Fatalf("expected income -150, got %s", tb[income.ID])
	}

	// debits equal credits across the whole ledger
	total := ledger.Money{}
	for _, m := range tb {
		total, err = total.Add(m)
		if err != nil {
			t.Fatalf("sum: %v", err)
		}
	}
	if !total.IsZero() {
		t.Fatalf("trial balance must net to zero, got %s", total)
	}

	// as-of cuts off the later transaction
	asOf := base.AddDate(0, 0, 5)
	tb, err = svc.TrialBalance(context.Background(), entity.ID, &asOf)
	if err != nil {
		t.Fatalf("trial balance asOf: %v", err)
	}
	if !tb[checking.ID].Equal(ledger.MustParseMoney("100", "USD")) {
		t.Fatalf("expected checking 100 as of %s, got %s", asOf, tb[checking.ID])
	}
}

func TestListTransactions_Ordered(t *testing.T) {
	_, svc, entity, checking, income := seedLedger(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	// post out of date order
	if _, err := svc.PostTransaction(context.Background(), simpleTxn(entity.ID, checking.ID, income.ID, "2.00", base.AddDate(0, 0, 2))); err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := svc.PostTransaction(context.Background(), simpleTxn(entity.ID, checking.ID, income.ID, "1.00", base)); err != nil {
		t.Fatalf("post: %v", err)
	}

	list, err := svc.ListTransactions(context.Background(), entity.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || !list[0].Date.Before(list[1].Date) {
		t.Fatalf("expected ascending date order, got %d items", len(list))
	}
}
