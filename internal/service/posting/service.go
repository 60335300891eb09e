// Package posting implements the ledger posting rules: referenced accounts
// must exist, debits must equal credits per currency, and a transaction with
// its entries is persisted atomically. Balances are derived by summing
// entries at query time, never materialized.
package posting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/meta"
)

// Repo defines read operations needed by the service.
type Repo interface {
	AccountsByIDs(ctx context.Context, entityID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
	TransactionsByEntityID(ctx context.Context, entityID uuid.UUID) ([]ledger.Transaction, error)
	TransactionByID(ctx context.Context, entityID, txnID uuid.UUID) (ledger.Transaction, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	// CreateTransaction persists the transaction and its entries as one
	// durable write; on failure nothing is persisted.
	CreateTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error)
}

// Service validates and posts balanced transactions and exposes the derived
// balance reads consumed by reporting.
type Service interface {
	PostTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error)
	GetTransaction(ctx context.Context, entityID, txnID uuid.UUID) (ledger.Transaction, error)
	ListTransactions(ctx context.Context, entityID uuid.UUID) ([]ledger.Transaction, error)
	ReverseTransaction(ctx context.Context, entityID, txnID uuid.UUID, date time.Time) (ledger.Transaction, error)
	Recategorize(ctx context.Context, entityID, txnID uuid.UUID, category ledger.Category, md meta.Metadata) (ledger.Transaction, error)
	TrialBalance(ctx context.Context, entityID uuid.UUID, asOf *time.Time) (map[uuid.UUID]ledger.Money, error)
	AccountBalance(ctx context.Context, entityID, accountID uuid.UUID, asOf *time.Time) (ledger.Money, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// PostTransaction verifies account existence, validates the balance
// invariant, then persists atomically. Any failure aborts the whole post.
func (s *service) PostTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	if txn.EntityID == uuid.Nil {
		return ledger.Transaction{}, errs.ErrInvalid
	}
	ids := txn.AccountIDs()
	accMap, err := s.repo.AccountsByIDs(ctx, txn.EntityID, ids)
	if err != nil {
		return ledger.Transaction{}, err
	}
	for _, id := range ids {
		acc, ok := accMap[id]
		if !ok {
			return ledger.Transaction{}, errs.ErrNotFound
		}
		if acc.EntityID != txn.EntityID {
			return ledger.Transaction{}, errs.ErrForbidden
		}
	}
	if err := txn.Validate(); err != nil {
		return ledger.Transaction{}, err
	}

	txn.ID = uuid.New()
	now := time.Now().UTC()
	txn.PostedAt = &now
	if txn.Category == "" {
		txn.Category = ledger.CategoryUncategorized
	}
	for i := range txn.Entries {
		txn.Entries[i].ID = uuid.New()
		txn.Entries[i].TransactionID = txn.ID
	}
	return s.writer.CreateTransaction(ctx, txn)
}

func (s *service) GetTransaction(ctx context.Context, entityID, txnID uuid.UUID) (ledger.Transaction, error) {
	if entityID == uuid.Nil || txnID == uuid.Nil {
		return ledger.Transaction{}, errs.ErrInvalid
	}
	return s.repo.TransactionByID(ctx, entityID, txnID)
}

func (s *service) ListTransactions(ctx context.Context, entityID uuid.UUID) ([]ledger.Transaction, error) {
	if entityID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.TransactionsByEntityID(ctx, entityID)
}

// ReverseTransaction posts a new transaction whose entries are the exact
// debit/credit mirror of the original, linked via ReversesTransactionID.
// The original is left untouched; reversal is additive, never destructive.
func (s *service) ReverseTransaction(ctx context.Context, entityID, txnID uuid.UUID, date time.Time) (ledger.Transaction, error) {
	if entityID == uuid.Nil || txnID == uuid.Nil {
		return ledger.Transaction{}, errs.ErrInvalid
	}
	orig, err := s.repo.TransactionByID(ctx, entityID, txnID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	rev := ledger.Transaction{
		EntityID:              entityID,
		Date:                  date,
		Memo:                  "reversal of " + orig.ID.String() + ": " + orig.Memo,
		Category:              orig.Category,
		ReversesTransactionID: &orig.ID,
	}
	for _, e := range orig.Entries {
		rev.AddEntry(ledger.Entry{
			AccountID: e.AccountID,
			Debit:     e.Credit,
			Credit:    e.Debit,
			Memo:      e.Memo,
		})
	}
	return s.PostTransaction(ctx, rev)
}

// Recategorize is the only permitted mutation of a posted transaction:
// category and categorization metadata.
func (s *service) Recategorize(ctx context.Context, entityID, txnID uuid.UUID, category ledger.Category, md meta.Metadata) (ledger.Transaction, error) {
	if entityID == uuid.Nil || txnID == uuid.Nil {
		return ledger.Transaction{}, errs.ErrInvalid
	}
	if err := md.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	txn, err := s.repo.TransactionByID(ctx, entityID, txnID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if category != "" {
		txn.Category = category
	}
	if md != nil {
		merged := txn.Metadata.Clone()
		merged.Merge(md)
		txn.Metadata = merged
	}
	return s.writer.UpdateTransaction(ctx, txn)
}

// TrialBalance returns net amounts (debits - credits) per account up to asOf.
func (s *service) TrialBalance(ctx context.Context, entityID uuid.UUID, asOf *time.Time) (map[uuid.UUID]ledger.Money, error) {
	if entityID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	txns, err := s.repo.TransactionsByEntityID(ctx, entityID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]ledger.Money)
	for _, t := range txns {
		if asOf != nil && t.Date.After(*asOf) {
			continue
		}
		for _, e := range t.Entries {
			net, err := e.NetAmount()
			if err != nil {
				return nil, err
			}
			sum, err := out[e.AccountID].Add(net)
			if err != nil {
				return nil, err
			}
			out[e.AccountID] = sum
		}
	}
	return out, nil
}

// AccountBalance returns the net amount for a single account up to asOf.
func (s *service) AccountBalance(ctx context.Context, entityID, accountID uuid.UUID, asOf *time.Time) (ledger.Money, error) {
	if entityID == uuid.Nil || accountID == uuid.Nil {
		return ledger.Money{}, errs.ErrInvalid
	}
	txns, err := s.repo.TransactionsByEntityID(ctx, entityID)
	if err != nil {
		return ledger.Money{}, err
	}
	var net ledger.Money
	for _, t := range txns {
		if asOf != nil && t.Date.After(*asOf) {
			continue
		}
		n, err := t.NetAmountForAccount(accountID)
		if err != nil {
			return ledger.Money{}, err
		}
		net, err = net.Add(n)
		if err != nil {
			return ledger.Money{}, err
		}
	}
	return net, nil
}
