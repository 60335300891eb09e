package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. This package focuses on mapping between the
// domain entities and SQL rows and running the necessary statements/transactions.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/meta"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// SeedDev inserts one entity with an opening-balances, brokerage and cash
// account for quick local testing. Fresh UUIDs each run.
func (s *Store) SeedDev(ctx context.Context) (ledger.Entity, []ledger.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Entity{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	entity := ledger.Entity{ID: uuid.New(), Name: "Dev Family Trust", Kind: ledger.EntityKindTrust}
	if _, err := tx.Exec(ctx, `insert into entities (id, name, kind) values ($1,$2,$3)`, entity.ID, entity.Name, entity.Kind); err != nil {
		return ledger.Entity{}, nil, err
	}
	opening := ledger.Account{ID: uuid.New(), EntityID: entity.ID, Name: "Opening Balances", Currency: "USD", Type: ledger.AccountTypeEquity, Group: "opening_balances", Institution: "System", System: true, Active: true}
	cash := ledger.Account{ID: uuid.New(), EntityID: entity.ID, Name: "Checking", Currency: "USD", Type: ledger.AccountTypeAsset, Group: "checking", Institution: "First National", Active: true}
	brokerage := ledger.Account{ID: uuid.New(), EntityID: entity.ID, Name: "Brokerage", Currency: "USD", Type: ledger.AccountTypeAsset, Group: "brokerage", Institution: "Vanguard", Active: true}
	accs := []ledger.Account{opening, cash, brokerage}
	for _, a := range accs {
		if err := insertAccount(ctx, tx, a); err != nil {
			return ledger.Entity{}, nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Entity{}, nil, err
	}
	return entity, accs, nil
}

// --- Entities ---

// ListEntities returns all entities ordered by name.
func (s *Store) ListEntities(ctx context.Context) ([]ledger.Entity, error) {
	rows, err := s.pool.Query(ctx, `select id, name, kind from entities order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Entity, 0)
	for rows.Next() {
		var e ledger.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Account reads ---

const accountCols = `id, entity_id, name, currency, type, "group", institution, metadata, system, active`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var mdBytes []byte
	if err := row.Scan(&a.ID, &a.EntityID, &a.Name, &a.Currency, &a.Type, &a.Group, &a.Institution, &mdBytes, &a.System, &a.Active); err != nil {
		return ledger.Account{}, err
	}
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			a.Metadata = m
		}
	}
	return a, nil
}

// AccountsByIDs returns accounts for an entity filtered by IDs.
func (s *Store) AccountsByIDs(ctx context.Context, entityID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]ledger.Account{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		select `+accountCols+`
		from accounts
		where entity_id = $1 and id = any($2)
	`, entityID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]ledger.Account)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// ListAccounts returns all accounts for an entity.
func (s *Store) ListAccounts(ctx context.Context, entityID uuid.UUID) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `
		select `+accountCols+`
		from accounts
		where entity_id = $1
		order by type, "group", institution, name
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount fetches a single account by id for an entity.
func (s *Store) GetAccount(ctx context.Context, entityID, accountID uuid.UUID) (ledger.Account, error) {
	row := s.pool.QueryRow(ctx, `
		select `+accountCols+`
		from accounts
		where id = $1 and entity_id = $2
	`, accountID, entityID)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

// --- Account writes ---

func insertAccount(ctx context.Context, ex pgx.Tx, a ledger.Account) error {
	md, _ := a.Metadata.MarshalStableJSON()
	_, err := ex.Exec(ctx, `
		insert into accounts (id, entity_id, name, currency, type, "group", institution, metadata, system, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.EntityID, a.Name, strings.ToUpper(a.Currency), a.Type, strings.ToLower(a.Group), a.Institution, md, a.System, a.Active)
	return err
}

// CreateAccount inserts an account row.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if err := a.Metadata.Validate(); err != nil {
		return ledger.Account{}, err
	}
	md, _ := a.Metadata.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into accounts (id, entity_id, name, currency, type, "group", institution, metadata, system, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, a.ID, a.EntityID, a.Name, strings.ToUpper(a.Currency), a.Type, strings.ToLower(a.Group), a.Institution, md, a.System, a.Active)
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

// UpdateAccount updates mutable fields (name, group, institution, metadata, active).
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if err := a.Metadata.Validate(); err != nil {
		return ledger.Account{}, err
	}
	md, _ := a.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update accounts
		set name=$1, "group"=$2, institution=$3, metadata=$4, active=$5
		where id=$6 and entity_id=$7
	`, a.Name, strings.ToLower(a.Group), a.Institution, md, a.Active, a.ID, a.EntityID)
	if err != nil {
		return ledger.Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// --- Positions ---

// ListPositions returns positions held inside an account.
func (s *Store) ListPositions(ctx context.Context, accountID uuid.UUID) ([]ledger.Position, error) {
	rows, err := s.pool.Query(ctx, `
		select id, entity_id, account_id, symbol, currency
		from positions
		where account_id = $1
		order by symbol
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Position, 0)
	for rows.Next() {
		var p ledger.Position
		if err := rows.Scan(&p.ID, &p.EntityID, &p.AccountID, &p.Symbol, &p.Currency); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPosition fetches a position by id.
func (s *Store) GetPosition(ctx context.Context, positionID uuid.UUID) (ledger.Position, error) {
	var p ledger.Position
	err := s.pool.QueryRow(ctx, `
		select id, entity_id, account_id, symbol, currency
		from positions
		where id = $1
	`, positionID).Scan(&p.ID, &p.EntityID, &p.AccountID, &p.Symbol, &p.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Position{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Position{}, err
	}
	return p, nil
}

// CreatePosition inserts a position row.
func (s *Store) CreatePosition(ctx context.Context, p ledger.Position) (ledger.Position, error) {
	_, err := s.pool.Exec(ctx, `
		insert into positions (id, entity_id, account_id, symbol, currency)
		values ($1,$2,$3,$4,$5)
	`, p.ID, p.EntityID, p.AccountID, strings.ToUpper(p.Symbol), strings.ToUpper(p.Currency))
	if err != nil {
		return ledger.Position{}, err
	}
	return p, nil
}

// --- Transaction reads ---

const txnCols = `id, entity_id, date, posted_at, memo, reference, category, metadata, reverses_transaction_id`

func scanTxn(row pgx.Row) (ledger.Transaction, error) {
	var t ledger.Transaction
	var mdBytes []byte
	if err := row.Scan(&t.ID, &t.EntityID, &t.Date, &t.PostedAt, &t.Memo, &t.Reference, &t.Category, &mdBytes, &t.ReversesTransactionID); err != nil {
		return ledger.Transaction{}, err
	}
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			t.Metadata = m
		}
	}
	return t, nil
}

// loadEntries attaches entries to the given transactions, preserving txn order.
func (s *Store) loadEntries(ctx context.Context, txns []ledger.Transaction) ([]ledger.Transaction, error) {
	if len(txns) == 0 {
		return txns, nil
	}
	ids := make([]uuid.UUID, 0, len(txns))
	idx := make(map[uuid.UUID]*ledger.Transaction, len(txns))
	for i := range txns {
		ids = append(ids, txns[i].ID)
		idx[txns[i].ID] = &txns[i]
	}
	rows, err := s.pool.Query(ctx, `
		select id, transaction_id, account_id, debit::text, credit::text, currency, memo
		from entries
		where transaction_id = any($1)
		order by id asc
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		e, txnID, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if t := idx[txnID]; t != nil {
			t.Entries = append(t.Entries, e)
		}
	}
	return txns, rows.Err()
}

func scanEntry(rows pgx.Rows) (ledger.Entry, uuid.UUID, error) {
	var (
		e             ledger.Entry
		txnID         uuid.UUID
		debit, credit string
		currency      string
	)
	if err := rows.Scan(&e.ID, &txnID, &e.AccountID, &debit, &credit, &currency, &e.Memo); err != nil {
		return ledger.Entry{}, uuid.Nil, err
	}
	d, err := ledger.ParseMoney(debit, currency)
	if err != nil {
		return ledger.Entry{}, uuid.Nil, fmt.Errorf("scan entry debit: %w", err)
	}
	c, err := ledger.ParseMoney(credit, currency)
	if err != nil {
		return ledger.Entry{}, uuid.Nil, fmt.Errorf("scan entry credit: %w", err)
	}
	e.TransactionID = txnID
	e.Debit = d
	e.Credit = c
	return e, txnID, nil
}

// TransactionsByEntityID returns all transactions for an entity with entries
// populated, asc by (date, id).
func (s *Store) TransactionsByEntityID(ctx context.Context, entityID uuid.UUID) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select `+txnCols+`
		from transactions
		where entity_id = $1
		order by date asc, id asc
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	txns := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.loadEntries(ctx, txns)
}

// TransactionByID returns a transaction scoped to an entity.
func (s *Store) TransactionByID(ctx context.Context, entityID, txnID uuid.UUID) (ledger.Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		select `+txnCols+`
		from transactions
		where id = $1 and entity_id = $2
	`, txnID, entityID)
	t, err := scanTxn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	loaded, err := s.loadEntries(ctx, []ledger.Transaction{t})
	if err != nil {
		return ledger.Transaction{}, err
	}
	return loaded[0], nil
}

// GetTransaction returns a transaction by id without entity scoping. Used by
// reconciliation, which works from entry-level suggestions.
func (s *Store) GetTransaction(ctx context.Context, txnID uuid.UUID) (ledger.Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		select `+txnCols+`
		from transactions
		where id = $1
	`, txnID)
	t, err := scanTxn(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	loaded, err := s.loadEntries(ctx, []ledger.Transaction{t})
	if err != nil {
		return ledger.Transaction{}, err
	}
	return loaded[0], nil
}

// TransactionsByAccountID returns transactions with at least one entry against
// the account, asc by (date, id).
func (s *Store) TransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select distinct t.id, t.entity_id, t.date, t.posted_at, t.memo, t.reference, t.category, t.metadata, t.reverses_transaction_id
		from transactions t
		join entries e on e.transaction_id = t.id
		where e.account_id = $1
		order by t.date asc, t.id asc
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	txns := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return s.loadEntries(ctx, txns)
}

// --- Transaction writes ---

// CreateTransaction inserts a transaction + its entries in one database tx.
func (s *Store) CreateTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	md, _ := txn.Metadata.MarshalStableJSON()
	if _, err := tx.Exec(ctx, `
		insert into transactions (id, entity_id, date, posted_at, memo, reference, category, metadata, reverses_transaction_id)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, txn.ID, txn.EntityID, txn.Date, txn.PostedAt, txn.Memo, txn.Reference, txn.Category, md, txn.ReversesTransactionID); err != nil {
		return ledger.Transaction{}, err
	}
	for _, e := range txn.Entries {
		if _, err := tx.Exec(ctx, `
			insert into entries (id, transaction_id, account_id, debit, credit, currency, memo)
			values ($1,$2,$3,$4,$5,$6,$7)
		`, e.ID, txn.ID, e.AccountID, e.Debit.Amount(), e.Credit.Amount(), e.Currency(), e.Memo); err != nil {
			return ledger.Transaction{}, fmt.Errorf("insert entry: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Transaction{}, err
	}
	return txn, nil
}

// UpdateTransaction updates the mutable header fields. Entries are immutable
// once posted.
func (s *Store) UpdateTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	md, _ := txn.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update transactions
		set memo=$1, reference=$2, category=$3, metadata=$4
		where id=$5
	`, txn.Memo, txn.Reference, txn.Category, md, txn.ID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return txn, nil
}

// --- Lots ---

const lotCols = `id, position_id, acquisition_date, cost_per_share::text, currency, original_quantity::text, remaining_quantity::text, disposition_date, wash_sale_disallowed, wash_sale_adjustment::text, acquisition_type, version`

func scanLot(row pgx.Row) (ledger.TaxLot, error) {
	var (
		l                    ledger.TaxLot
		cost, orig, rem, adj string
		currency             string
	)
	if err := row.Scan(&l.ID, &l.PositionID, &l.AcquisitionDate, &cost, &currency, &orig, &rem, &l.DispositionDate, &l.WashSaleDisallowed, &adj, &l.AcquisitionType, &l.Version); err != nil {
		return ledger.TaxLot{}, err
	}
	var err error
	if l.CostPerShare, err = ledger.ParseMoney(cost, currency); err != nil {
		return ledger.TaxLot{}, err
	}
	if l.OriginalQuantity, err = ledger.ParseQuantity(orig); err != nil {
		return ledger.TaxLot{}, err
	}
	if l.RemainingQuantity, err = ledger.ParseQuantity(rem); err != nil {
		return ledger.TaxLot{}, err
	}
	if l.WashSaleAdjustment, err = ledger.ParseMoney(adj, currency); err != nil {
		return ledger.TaxLot{}, err
	}
	return l, nil
}

// LotsByPosition returns all lots for a position asc by (acquisition_date, id).
func (s *Store) LotsByPosition(ctx context.Context, positionID uuid.UUID) ([]ledger.TaxLot, error) {
	rows, err := s.pool.Query(ctx, `
		select `+lotCols+`
		from lots
		where position_id = $1
		order by acquisition_date asc, id asc
	`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.TaxLot, 0)
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LotByID returns a single lot.
func (s *Store) LotByID(ctx context.Context, lotID uuid.UUID) (ledger.TaxLot, error) {
	row := s.pool.QueryRow(ctx, `select `+lotCols+` from lots where id = $1`, lotID)
	l, err := scanLot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.TaxLot{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.TaxLot{}, err
	}
	return l, nil
}

// LotsAcquiredInWindow returns lots acquired within [from, to] inclusive.
func (s *Store) LotsAcquiredInWindow(ctx context.Context, positionID uuid.UUID, from, to time.Time) ([]ledger.TaxLot, error) {
	rows, err := s.pool.Query(ctx, `
		select `+lotCols+`
		from lots
		where position_id = $1 and acquisition_date >= $2 and acquisition_date <= $3
		order by acquisition_date asc, id asc
	`, positionID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.TaxLot, 0)
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLot inserts a lot row.
func (s *Store) CreateLot(ctx context.Context, lot ledger.TaxLot) (ledger.TaxLot, error) {
	_, err := s.pool.Exec(ctx, `
		insert into lots (id, position_id, acquisition_date, cost_per_share, currency, original_quantity, remaining_quantity, disposition_date, wash_sale_disallowed, wash_sale_adjustment, acquisition_type, version)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, lot.ID, lot.PositionID, lot.AcquisitionDate, lot.CostPerShare.Amount(), lot.CostPerShare.Currency(),
		lot.OriginalQuantity.Decimal(), lot.RemainingQuantity.Decimal(), lot.DispositionDate,
		lot.WashSaleDisallowed, lot.WashSaleAdjustment.Amount(), lot.AcquisitionType, lot.Version)
	if err != nil {
		return ledger.TaxLot{}, err
	}
	return lot, nil
}

// SaveLots updates all lots in one database tx with an optimistic version
// check. Any stale version aborts the whole batch with errs.ErrConflict.
func (s *Store) SaveLots(ctx context.Context, lots []ledger.TaxLot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, l := range lots {
		ct, err := tx.Exec(ctx, `
			update lots
			set cost_per_share=$1, original_quantity=$2, remaining_quantity=$3, disposition_date=$4,
			    wash_sale_disallowed=$5, wash_sale_adjustment=$6, version = version + 1
			where id=$7 and version=$8
		`, l.CostPerShare.Amount(), l.OriginalQuantity.Decimal(), l.RemainingQuantity.Decimal(), l.DispositionDate,
			l.WashSaleDisallowed, l.WashSaleAdjustment.Amount(), l.ID, l.Version)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `select exists(select 1 from lots where id=$1)`, l.ID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return errs.ErrConflict
			}
			return errs.ErrNotFound
		}
	}
	return tx.Commit(ctx)
}

// RecordDispositions inserts realized sale records in one database tx.
func (s *Store) RecordDispositions(ctx context.Context, dispositions []ledger.LotDisposition) error {
	if len(dispositions) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, d := range dispositions {
		if _, err := tx.Exec(ctx, `
			insert into lot_dispositions (lot_id, position_id, quantity_sold, cost_basis, proceeds, currency, acquisition_date, disposition_date)
			values ($1,$2,$3,$4,$5,$6,$7,$8)
		`, d.LotID, d.PositionID, d.QuantitySold.Decimal(), d.CostBasis.Amount(), d.Proceeds.Amount(),
			d.CostBasis.Currency(), d.AcquisitionDate, d.DispositionDate); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// DispositionsByPosition returns recorded dispositions asc by disposition date.
func (s *Store) DispositionsByPosition(ctx context.Context, positionID uuid.UUID) ([]ledger.LotDisposition, error) {
	rows, err := s.pool.Query(ctx, `
		select lot_id, position_id, quantity_sold::text, cost_basis::text, proceeds::text, currency, acquisition_date, disposition_date
		from lot_dispositions
		where position_id = $1
		order by disposition_date asc, id asc
	`, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.LotDisposition, 0)
	for rows.Next() {
		var (
			d                    ledger.LotDisposition
			qty, basis, proceeds string
			currency             string
		)
		if err := rows.Scan(&d.LotID, &d.PositionID, &qty, &basis, &proceeds, &currency, &d.AcquisitionDate, &d.DispositionDate); err != nil {
			return nil, err
		}
		if d.QuantitySold, err = ledger.ParseQuantity(qty); err != nil {
			return nil, err
		}
		if d.CostBasis, err = ledger.ParseMoney(basis, currency); err != nil {
			return nil, err
		}
		if d.Proceeds, err = ledger.ParseMoney(proceeds, currency); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Reconciliation ---

// CreateSession inserts the session and all its matches in one database tx.
func (s *Store) CreateSession(ctx context.Context, session ledger.ReconciliationSession) (ledger.ReconciliationSession, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.ReconciliationSession{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `
		insert into recon_sessions (id, account_id, file_name, status, created_at)
		values ($1,$2,$3,$4,$5)
	`, session.ID, session.AccountID, session.FileName, session.Status, session.CreatedAt); err != nil {
		return ledger.ReconciliationSession{}, err
	}
	for i, m := range session.Matches {
		if _, err := tx.Exec(ctx, `
			insert into recon_matches (id, session_id, ord, external_ref, record_date, amount, currency, description, suggested_transaction_id, score, matched, status)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, m.ID, session.ID, i, m.Record.ExternalRef, m.Record.Date, m.Record.Amount.Amount(), m.Record.Amount.Currency(),
			m.Record.Description, m.SuggestedTransactionID, m.Score, m.Matched, m.Status); err != nil {
			return ledger.ReconciliationSession{}, fmt.Errorf("insert match: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.ReconciliationSession{}, err
	}
	return session, nil
}

// SessionByID fetches a session and its matches in insertion order.
func (s *Store) SessionByID(ctx context.Context, sessionID uuid.UUID) (ledger.ReconciliationSession, error) {
	var sess ledger.ReconciliationSession
	err := s.pool.QueryRow(ctx, `
		select id, account_id, file_name, status, created_at
		from recon_sessions
		where id = $1
	`, sessionID).Scan(&sess.ID, &sess.AccountID, &sess.FileName, &sess.Status, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ReconciliationSession{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.ReconciliationSession{}, err
	}
	rows, err := s.pool.Query(ctx, `
		select id, external_ref, record_date, amount::text, currency, description, suggested_transaction_id, score, matched, status
		from recon_matches
		where session_id = $1
		order by ord asc
	`, sessionID)
	if err != nil {
		return ledger.ReconciliationSession{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m                ledger.ReconciliationMatch
			amount, currency string
		)
		if err := rows.Scan(&m.ID, &m.Record.ExternalRef, &m.Record.Date, &amount, &currency, &m.Record.Description, &m.SuggestedTransactionID, &m.Score, &m.Matched, &m.Status); err != nil {
			return ledger.ReconciliationSession{}, err
		}
		if m.Record.Amount, err = ledger.ParseMoney(amount, currency); err != nil {
			return ledger.ReconciliationSession{}, err
		}
		m.SessionID = sess.ID
		sess.Matches = append(sess.Matches, m)
	}
	return sess, rows.Err()
}

// PendingSessionByAccount reports whether the account has a pending session.
func (s *Store) PendingSessionByAccount(ctx context.Context, accountID uuid.UUID) (ledger.ReconciliationSession, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		select id from recon_sessions where account_id = $1 and status = $2
	`, accountID, ledger.SessionStatusPending).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ReconciliationSession{}, false, nil
	}
	if err != nil {
		return ledger.ReconciliationSession{}, false, err
	}
	sess, err := s.SessionByID(ctx, id)
	if err != nil {
		return ledger.ReconciliationSession{}, false, err
	}
	return sess, true, nil
}

// UpdateSessionStatus moves a session to a new status.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID uuid.UUID, status ledger.SessionStatus) error {
	ct, err := s.pool.Exec(ctx, `update recon_sessions set status=$1 where id=$2`, status, sessionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdateMatch persists a match status change.
func (s *Store) UpdateMatch(ctx context.Context, match ledger.ReconciliationMatch) error {
	ct, err := s.pool.Exec(ctx, `
		update recon_matches set status=$1 where id=$2 and session_id=$3
	`, match.Status, match.ID, match.SessionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteSession removes a session; matches cascade via FK.
func (s *Store) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from recon_sessions where id=$1`, sessionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
