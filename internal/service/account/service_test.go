package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/service/account"
	"github.com/marwick/ledger/internal/storage/memory"
)

func setup(t *testing.T) (*memory.Store, account.Service, ledger.Entity) {
	t.Helper()
	store := memory.New()
	svc := account.New(store, store)
	entity := ledger.Entity{ID: uuid.New(), Name: "Family Trust", Kind: ledger.EntityKindTrust}
	store.SeedEntity(entity)
	return store, svc, entity
}

func validAccount(entityID uuid.UUID) ledger.Account {
	return ledger.Account{
		EntityID:    entityID,
		Name:        "Brokerage",
		Currency:    "usd",
		Type:        ledger.AccountTypeAsset,
		Group:       "brokerage",
		Institution: "Vanguard",
	}
}

func TestCreate_NormalizesAndAssigns(t *testing.T) {
	_, svc, entity := setup(t)
	created, err := svc.Create(context.Background(), validAccount(entity.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil || !created.Active {
		t.Fatalf("expected assigned active account, got %+v", created)
	}
	if created.Currency != "USD" {
		t.Fatalf("currency must be uppercased, got %q", created.Currency)
	}
	if created.Path() != "asset:brokerage:vanguard" {
		t.Fatalf("unexpected path: %s", created.Path())
	}
}

func TestCreate_DuplicatePath(t *testing.T) {
	_, svc, entity := setup(t)
	if _, err := svc.Create(context.Background(), validAccount(entity.ID)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), validAccount(entity.ID)); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict for duplicate path, got %v", err)
	}
	// same path on a different entity is fine
	other := ledger.Entity{ID: uuid.New(), Name: "Other", Kind: ledger.EntityKindIndividual}
	if _, err := svc.Create(context.Background(), validAccount(other.ID)); err != nil {
		t.Fatalf("create for other entity: %v", err)
	}
}

func TestCreate_ReusePathAfterDeactivate(t *testing.T) {
	_, svc, entity := setup(t)
	created, err := svc.Create(context.Background(), validAccount(entity.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Deactivate(context.Background(), entity.ID, created.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	// inactive accounts do not block the path
	if _, err := svc.Create(context.Background(), validAccount(entity.ID)); err != nil {
		t.Fatalf("create after deactivate: %v", err)
	}
}

func TestValidateCreate(t *testing.T) {
	_, svc, entity := setup(t)

	cases := []struct {
		name   string
		mutate func(*ledger.Account)
	}{
		{"missing name", func(a *ledger.Account) { a.Name = "" }},
		{"missing currency", func(a *ledger.Account) { a.Currency = "" }},
		{"missing group", func(a *ledger.Account) { a.Group = "" }},
		{"bad group slug", func(a *ledger.Account) { a.Group = "Not A Slug!" }},
		{"missing institution", func(a *ledger.Account) { a.Institution = "" }},
		{"bad type", func(a *ledger.Account) { a.Type = "weird" }},
		{"reserved group", func(a *ledger.Account) { a.Group = "opening_balances" }},
		{"system non-equity", func(a *ledger.Account) { a.System = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAccount(entity.ID)
			a.Currency = "USD"
			tc.mutate(&a)
			if err := svc.ValidateCreate(a); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	// the one legal system account shape
	sys := ledger.Account{
		EntityID:    entity.ID,
		Name:        "Opening Balances",
		Currency:    "USD",
		Type:        ledger.AccountTypeEquity,
		Group:       "opening_balances",
		Institution: "System",
		System:      true,
	}
	if err := svc.ValidateCreate(sys); err != nil {
		t.Fatalf("system opening balances must validate: %v", err)
	}
}

func TestDeactivate_SystemAccountRefused(t *testing.T) {
	store, svc, entity := setup(t)
	sys := ledger.Account{
		ID: uuid.New(), EntityID: entity.ID, Name: "Opening Balances", Currency: "USD",
		Type: ledger.AccountTypeEquity, Group: "opening_balances", Institution: "System",
		System: true, Active: true,
	}
	store.SeedAccount(sys)
	if err := svc.Deactivate(context.Background(), entity.ID, sys.ID); !errors.Is(err, errs.ErrSystemAccount) {
		t.Fatalf("expected system_account, got %v", err)
	}
}

func TestCreatePosition(t *testing.T) {
	_, svc, entity := setup(t)
	brokerage, err := svc.Create(context.Background(), validAccount(entity.ID))
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	p, err := svc.CreatePosition(context.Background(), entity.ID, brokerage.ID, "vti", "")
	if err != nil {
		t.Fatalf("create position: %v", err)
	}
	if p.Symbol != "VTI" {
		t.Fatalf("symbol must be uppercased, got %q", p.Symbol)
	}
	if p.Currency != "USD" {
		t.Fatalf("currency must default to the account's, got %q", p.Currency)
	}

	// duplicate symbol, case-insensitive
	if _, err := svc.CreatePosition(context.Background(), entity.ID, brokerage.ID, "Vti", ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict for duplicate symbol, got %v", err)
	}

	list, err := svc.ListPositions(context.Background(), brokerage.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 position, got %d (%v)", len(list), err)
	}
}

func TestCreatePosition_RequiresAssetAccount(t *testing.T) {
	_, svc, entity := setup(t)
	income := validAccount(entity.ID)
	income.Name = "Salary"
	income.Type = ledger.AccountTypeRevenue
	income.Group = "salary"
	created, err := svc.Create(context.Background(), income)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := svc.CreatePosition(context.Background(), entity.ID, created.ID, "VTI", ""); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("expected invalid for non-asset account, got %v", err)
	}
}
