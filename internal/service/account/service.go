// Package account implements account and position rules: immutable identity
// fields, curated family-office groups, soft-deletes, and per-entity unique
// Path.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/dictionary"
	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/slug"
)

// Repo defines read operations needed by the service.
type Repo interface {
	ListAccounts(ctx context.Context, entityID uuid.UUID) ([]ledger.Account, error)
	GetAccount(ctx context.Context, entityID, accountID uuid.UUID) (ledger.Account, error)
	ListPositions(ctx context.Context, accountID uuid.UUID) ([]ledger.Position, error)
	GetPosition(ctx context.Context, positionID uuid.UUID) (ledger.Position, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	CreatePosition(ctx context.Context, p ledger.Position) (ledger.Position, error)
}

// Service exposes validation and lifecycle operations for accounts and the
// security positions held inside brokerage accounts.
type Service interface {
	ValidateCreate(a ledger.Account) error
	Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
	List(ctx context.Context, entityID uuid.UUID) ([]ledger.Account, error)
	Get(ctx context.Context, entityID, accountID uuid.UUID) (ledger.Account, error)
	Deactivate(ctx context.Context, entityID, accountID uuid.UUID) error
	CreatePosition(ctx context.Context, entityID, accountID uuid.UUID, symbol, currency string) (ledger.Position, error)
	ListPositions(ctx context.Context, accountID uuid.UUID) ([]ledger.Position, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) ValidateCreate(account ledger.Account) error {
	if account.EntityID == uuid.Nil {
		return errs.ErrInvalid
	}
	if account.Name == "" {
		return errors.New("name is required")
	}
	if account.Currency == "" {
		return errors.New("currency is required")
	}
	group := strings.ToLower(account.Group)
	if group == "" {
		return errors.New("group is required")
	}
	if !slug.IsSlug(group) {
		return errors.New("invalid group slug")
	}
	if account.Institution == "" {
		return errors.New("institution is required")
	}
	switch account.Type {
	case ledger.AccountTypeAsset, ledger.AccountTypeLiability, ledger.AccountTypeEquity,
		ledger.AccountTypeRevenue, ledger.AccountTypeExpense:
		// ok
	default:
		return errors.New("invalid account type")
	}
	// Reserved groups are system-only.
	if dictionary.IsReserved(group) && !account.System {
		return errors.New("group is reserved for system accounts")
	}
	if account.System {
		if account.Type != ledger.AccountTypeEquity || !strings.EqualFold(group, "opening_balances") {
			return errors.New("system accounts must be equity opening_balances")
		}
	}
	return nil
}

func (s *service) Create(ctx context.Context, account ledger.Account) (ledger.Account, error) {
	account.Currency = strings.ToUpper(account.Currency)
	account.Group = strings.ToLower(account.Group)
	if err := s.ValidateCreate(account); err != nil {
		return ledger.Account{}, err
	}
	// Path must be unique per entity.
	existing, err := s.repo.ListAccounts(ctx, account.EntityID)
	if err != nil {
		return ledger.Account{}, err
	}
	for _, a := range existing {
		if a.Active && strings.EqualFold(a.Path(), account.Path()) {
			return ledger.Account{}, errs.ErrConflict
		}
	}
	account.ID = uuid.New()
	account.Active = true
	return s.writer.CreateAccount(ctx, account)
}

func (s *service) List(ctx context.Context, entityID uuid.UUID) ([]ledger.Account, error) {
	if entityID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListAccounts(ctx, entityID)
}

func (s *service) Get(ctx context.Context, entityID, accountID uuid.UUID) (ledger.Account, error) {
	if entityID == uuid.Nil || accountID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	return s.repo.GetAccount(ctx, entityID, accountID)
}

// Deactivate soft-deletes an account. System accounts cannot be deactivated.
func (s *service) Deactivate(ctx context.Context, entityID, accountID uuid.UUID) error {
	a, err := s.repo.GetAccount(ctx, entityID, accountID)
	if err != nil {
		return err
	}
	if a.System {
		return errs.ErrSystemAccount
	}
	a.Active = false
	_, err = s.writer.UpdateAccount(ctx, a)
	return err
}

// CreatePosition opens a security position inside a brokerage-type account.
func (s *service) CreatePosition(ctx context.Context, entityID, accountID uuid.UUID, symbol, currency string) (ledger.Position, error) {
	if entityID == uuid.Nil || accountID == uuid.Nil || symbol == "" {
		return ledger.Position{}, errs.ErrInvalid
	}
	acc, err := s.repo.GetAccount(ctx, entityID, accountID)
	if err != nil {
		return ledger.Position{}, err
	}
	if acc.Type != ledger.AccountTypeAsset {
		return ledger.Position{}, errs.ErrInvalid
	}
	if currency == "" {
		currency = acc.Currency
	}
	existing, err := s.repo.ListPositions(ctx, accountID)
	if err != nil {
		return ledger.Position{}, err
	}
	for _, p := range existing {
		if strings.EqualFold(p.Symbol, symbol) {
			return ledger.Position{}, errs.ErrConflict
		}
	}
	p := ledger.Position{
		ID:        uuid.New(),
		EntityID:  entityID,
		AccountID: accountID,
		Symbol:    strings.ToUpper(symbol),
		Currency:  strings.ToUpper(currency),
	}
	return s.writer.CreatePosition(ctx, p)
}

func (s *service) ListPositions(ctx context.Context, accountID uuid.UUID) ([]ledger.Position, error) {
	if accountID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListPositions(ctx, accountID)
}
