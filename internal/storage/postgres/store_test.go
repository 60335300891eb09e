package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open for init: %v", err)
	}
	defer s.Close()
	// Resolve init SQL path relative to this test file so CWD doesn't matter
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	path := filepath.Join(repoRoot, "db", "migrations", "0001_init.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	// Exec may contain multiple statements; pgx supports this
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open for truncate: %v", err)
	}
	defer s.Close()
	_, _ = s.pool.Exec(ctx, `truncate table recon_matches, recon_sessions, lot_dispositions, lots, positions, entries, transactions, accounts, entities cascade`)
}

func TestStore_AccountsAndTransactions(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	entity, accs, err := s.SeedDev(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if entity.ID == uuid.Nil || len(accs) != 3 {
		t.Fatalf("unexpected seed: %+v", entity)
	}

	entities, err := s.ListEntities(ctx)
	if err != nil || len(entities) != 1 {
		t.Fatalf("list entities: %v (%d)", err, len(entities))
	}

	// Accounts: list + get + update
	list, err := s.ListAccounts(ctx, entity.ID)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(list))
	}
	got, err := s.GetAccount(ctx, entity.ID, list[0].ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	got.Name = got.Name + " (upd)"
	if _, err := s.UpdateAccount(ctx, got); err != nil {
		t.Fatalf("update account: %v", err)
	}
	if _, err := s.GetAccount(ctx, entity.ID, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// Transactions: create + read back with entries
	cash := accs[1]
	opening := accs[0]
	txn := ledger.Transaction{
		ID:       uuid.New(),
		EntityID: entity.ID,
		Date:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Memo:     "opening balance",
		Category: ledger.CategoryGeneral,
	}
	amount := ledger.MustParseMoney("1234.56", "USD")
	debit := ledger.DebitEntry(cash.ID, amount, "")
	credit := ledger.CreditEntry(opening.ID, amount, "")
	debit.ID = uuid.New()
	credit.ID = uuid.New()
	txn.AddEntry(debit)
	txn.AddEntry(credit)
	if _, err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	gotTxn, err := s.TransactionByID(ctx, entity.ID, txn.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if len(gotTxn.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(gotTxn.Entries))
	}
	if err := gotTxn.Validate(); err != nil {
		t.Fatalf("stored transaction must stay balanced: %v", err)
	}

	byEntity, err := s.TransactionsByEntityID(ctx, entity.ID)
	if err != nil || len(byEntity) != 1 {
		t.Fatalf("transactions by entity: %v (%d)", err, len(byEntity))
	}
	byAccount, err := s.TransactionsByAccountID(ctx, cash.ID)
	if err != nil || len(byAccount) != 1 {
		t.Fatalf("transactions by account: %v (%d)", err, len(byAccount))
	}

	// Update header fields only
	gotTxn.Category = ledger.CategoryInvestment
	if _, err := s.UpdateTransaction(ctx, gotTxn); err != nil {
		t.Fatalf("update transaction: %v", err)
	}
	gotTxn, _ = s.TransactionByID(ctx, entity.ID, txn.ID)
	if gotTxn.Category != ledger.CategoryInvestment {
		t.Fatalf("category update not persisted, got %s", gotTxn.Category)
	}
}

func TestStore_LotsAndDispositions(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	entity, accs, err := s.SeedDev(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	brokerage := accs[2]
	pos := ledger.Position{ID: uuid.New(), EntityID: entity.ID, AccountID: brokerage.ID, Symbol: "VTI", Currency: "USD"}
	if _, err := s.CreatePosition(ctx, pos); err != nil {
		t.Fatalf("create position: %v", err)
	}
	positions, err := s.ListPositions(ctx, brokerage.ID)
	if err != nil || len(positions) != 1 {
		t.Fatalf("list positions: %v (%d)", err, len(positions))
	}
	if _, err := s.GetPosition(ctx, pos.ID); err != nil {
		t.Fatalf("get position: %v", err)
	}

	lot := ledger.NewTaxLot(pos.ID, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), ledger.MustParseMoney("100.50", "USD"), ledger.MustParseQuantity("50"), ledger.AcquisitionTypePurchase)
	if _, err := s.CreateLot(ctx, lot); err != nil {
		t.Fatalf("create lot: %v", err)
	}

	stored, err := s.LotByID(ctx, lot.ID)
	if err != nil {
		t.Fatalf("get lot: %v", err)
	}
	if !stored.CostPerShare.Equal(lot.CostPerShare) || !stored.RemainingQuantity.Equal(lot.RemainingQuantity) {
		t.Fatalf("lot round trip lost precision: %+v", stored)
	}

	// Optimistic save: first write wins, stale version rejected
	stored.RemainingQuantity = ledger.MustParseQuantity("20")
	if err := s.SaveLots(ctx, []ledger.TaxLot{stored}); err != nil {
		t.Fatalf("save lots: %v", err)
	}
	if err := s.SaveLots(ctx, []ledger.TaxLot{stored}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict on stale version, got %v", err)
	}
	ghost := ledger.NewTaxLot(pos.ID, time.Now().UTC(), ledger.MustParseMoney("1", "USD"), ledger.MustParseQuantity("1"), ledger.AcquisitionTypePurchase)
	if err := s.SaveLots(ctx, []ledger.TaxLot{ghost}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for unknown lot, got %v", err)
	}

	window, err := s.LotsAcquiredInWindow(ctx, pos.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	if err != nil || len(window) != 1 {
		t.Fatalf("lots in window: %v (%d)", err, len(window))
	}

	d := ledger.LotDisposition{
		LotID:           lot.ID,
		PositionID:      pos.ID,
		QuantitySold:    ledger.MustParseQuantity("30"),
		CostBasis:       ledger.MustParseMoney("3015", "USD"),
		Proceeds:        ledger.MustParseMoney("3600", "USD"),
		AcquisitionDate: lot.AcquisitionDate,
		DispositionDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.RecordDispositions(ctx, []ledger.LotDisposition{d}); err != nil {
		t.Fatalf("record dispositions: %v", err)
	}
	ds, err := s.DispositionsByPosition(ctx, pos.ID)
	if err != nil || len(ds) != 1 {
		t.Fatalf("dispositions: %v (%d)", err, len(ds))
	}
	if !ds[0].CostBasis.Equal(d.CostBasis) || !ds[0].Proceeds.Equal(d.Proceeds) {
		t.Fatalf("disposition round trip lost precision: %+v", ds[0])
	}
}

func TestStore_ReconciliationSessions(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	_, accs, err := s.SeedDev(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	cash := accs[1]

	session := ledger.ReconciliationSession{
		ID:        uuid.New(),
		AccountID: cash.ID,
		FileName:  "april.csv",
		Status:    ledger.SessionStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	for i, ref := range []string{"stmt-1", "stmt-2"} {
		session.Matches = append(session.Matches, ledger.ReconciliationMatch{
			ID:        uuid.New(),
			SessionID: session.ID,
			Record: ledger.ImportedRecord{
				ExternalRef: ref,
				Date:        time.Date(2024, 4, 1+i, 0, 0, 0, 0, time.UTC),
				Amount:      ledger.MustParseMoney("125.00", "USD"),
				Description: "payroll",
			},
			Status: ledger.MatchStatusPending,
		})
	}
	if _, err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := s.SessionByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(got.Matches) != 2 || got.Matches[0].Record.ExternalRef != "stmt-1" {
		t.Fatalf("matches out of order: %+v", got.Matches)
	}
	if !got.Matches[0].Record.Amount.Equal(ledger.MustParseMoney("125.00", "USD")) {
		t.Fatalf("amount round trip lost precision: %s", got.Matches[0].Record.Amount)
	}

	if _, ok, err := s.PendingSessionByAccount(ctx, cash.ID); err != nil || !ok {
		t.Fatalf("expected pending session: %v ok=%v", err, ok)
	}

	m := got.Matches[0]
	m.Status = ledger.MatchStatusConfirmed
	if err := s.UpdateMatch(ctx, m); err != nil {
		t.Fatalf("update match: %v", err)
	}
	got, _ = s.SessionByID(ctx, session.ID)
	if got.Matches[0].Status != ledger.MatchStatusConfirmed {
		t.Fatalf("match update not persisted: %+v", got.Matches[0])
	}

	if err := s.UpdateSessionStatus(ctx, session.ID, ledger.SessionStatusCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if _, ok, _ := s.PendingSessionByAccount(ctx, cash.ID); ok {
		t.Fatalf("completed session must not report as pending")
	}

	if err := s.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.SessionByID(ctx, session.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
