package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
)

func scoreTxn(accountID uuid.UUID, amount, memo string, date time.Time) ledger.Transaction {
	txn := ledger.Transaction{ID: uuid.New(), EntityID: uuid.New(), Date: date, Memo: memo}
	txn.AddEntry(ledger.DebitEntry(accountID, ledger.MustParseMoney(amount, "USD"), ""))
	txn.AddEntry(ledger.CreditEntry(uuid.New(), ledger.MustParseMoney(amount, "USD"), ""))
	return txn
}

func TestScore_PerfectMatch(t *testing.T) {
	accountID := uuid.New()
	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	txn := scoreTxn(accountID, "125.00", "ACME PAYROLL", date)
	rec := ledger.ImportedRecord{
		ExternalRef: "stmt-1",
		Date:        date,
		Amount:      ledger.MustParseMoney("125.00", "USD"),
		Description: "ACME PAYROLL",
	}
	if got := Score(rec, &txn, accountID); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}

func TestScore_AmountIsAGate(t *testing.T) {
	accountID := uuid.New()
	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	txn := scoreTxn(accountID, "125.00", "ACME PAYROLL", date)
	rec := ledger.ImportedRecord{
		Date:        date,
		Amount:      ledger.MustParseMoney("125.01", "USD"),
		Description: "ACME PAYROLL",
	}
	if got := Score(rec, &txn, accountID); got != 0 {
		t.Fatalf("amount mismatch must score 0, got %d", got)
	}
}

func TestScore_DateWindow(t *testing.T) {
	accountID := uuid.New()
	txnDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	txn := scoreTxn(accountID, "50.00", "", txnDate)
	rec := ledger.ImportedRecord{Amount: ledger.MustParseMoney("50.00", "USD")}

	// 3 days out still earns the date bonus (memo: both empty, full bonus)
	rec.Date = txnDate.AddDate(0, 0, 3)
	if got := Score(rec, &txn, accountID); got != 100 {
		t.Fatalf("expected 100 within window, got %d", got)
	}
	// 4 days out does not
	rec.Date = txnDate.AddDate(0, 0, 4)
	if got := Score(rec, &txn, accountID); got != 70 {
		t.Fatalf("expected 70 outside window, got %d", got)
	}
}

func TestScore_MemoSimilarityPartial(t *testing.T) {
	accountID := uuid.New()
	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	txn := scoreTxn(accountID, "50.00", "coffee", date)
	rec := ledger.ImportedRecord{
		Date:        date,
		Amount:      ledger.MustParseMoney("50.00", "USD"),
		Description: "totally different text",
	}
	got := Score(rec, &txn, accountID)
	if got < 80 || got >= 100 {
		t.Fatalf("expected amount+date plus partial memo in [80,100), got %d", got)
	}
}

func TestScore_CaseInsensitiveMemo(t *testing.T) {
	accountID := uuid.New()
	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	txn := scoreTxn(accountID, "50.00", "Acme Payroll", date)
	rec := ledger.ImportedRecord{
		Date:        date,
		Amount:      ledger.MustParseMoney("50.00", "USD"),
		Description: "  ACME PAYROLL ",
	}
	if got := Score(rec, &txn, accountID); got != 100 {
		t.Fatalf("expected 100 for case/space-insensitive memo, got %d", got)
	}
}

func TestMatched_Threshold(t *testing.T) {
	if !Matched(50) {
		t.Fatalf("50 must clear the threshold")
	}
	if Matched(49) {
		t.Fatalf("49 must not clear the threshold")
	}
}
