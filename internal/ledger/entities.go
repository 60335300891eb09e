package ledger

import (
	"strings"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/meta"
)

// AccountType enumerates the broad classification of an account in the ledger.
type AccountType string

const (
	// AccountTypeAsset increases on the debit side and holds resources owned by an entity.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability increases on the credit side and tracks obligations.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the entity's residual interest.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeRevenue represents inflows that increase equity.
	AccountTypeRevenue AccountType = "revenue"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "expense"
)

// EntityKind classifies the legal form of an owning entity.
type EntityKind string

const (
	EntityKindIndividual  EntityKind = "individual"
	EntityKindTrust       EntityKind = "trust"
	EntityKindLLC         EntityKind = "llc"
	EntityKindPartnership EntityKind = "partnership"
)

// Category identifies how a posted transaction is classified for reporting.
// Categorization is the one piece of a posted transaction that stays mutable.
type Category string

const (
	CategoryUncategorized Category = "uncategorized"
	CategoryGeneral       Category = "general"
	CategoryInvestment    Category = "investment"
	CategoryDistribution  Category = "distribution"
	CategoryContribution  Category = "contribution"
	CategoryManagementFee Category = "management_fee"
	CategoryInterest      Category = "interest"
	CategoryDividend      Category = "dividend"
	CategoryTax           Category = "tax"
	CategoryTransfers     Category = "transfers"
	CategoryHousehold     Category = "household"
	CategoryCharity       Category = "charity"
	CategoryIncome        Category = "income"
)

// Entity is an owning legal entity of the family office (a person, trust,
// LLC or partnership). Accounts, transactions and positions belong to
// exactly one entity.
type Entity struct {
	ID   uuid.UUID
	Name string
	Kind EntityKind
}

// Account represents a ledger account belonging to an entity.
type Account struct {
	ID       uuid.UUID
	EntityID uuid.UUID
	Name     string
	Currency string
	Type     AccountType
	// Group describes the instrument or sub-type (e.g., bank, brokerage, receivable).
	Group string
	// Institution identifies the specific custodian or counterparty (e.g., Schwab, Chase).
	Institution string
	// Metadata holds additional key-value attributes for the account.
	Metadata meta.Metadata `json:"metadata,omitempty"`
	// System marks reserved, immutable accounts (e.g., Equity:OpeningBalances).
	System bool
	// Active indicates whether the account is active (soft-delete when false).
	Active bool
}

// Path returns a colon-separated identifier for the account: type:group:institution.
// Example: asset:brokerage:schwab
func (a Account) Path() string {
	if a.Type == AccountTypeEquity && strings.EqualFold(a.Group, "opening_balances") {
		return "equity:openingbalances"
	}
	return string(a.Type) + ":" + strings.ToLower(a.Group) + ":" + strings.ToLower(a.Institution)
}

// Position is a security holding inside a brokerage account. Tax lots hang
// off a position; the position itself carries no quantity, that is always
// derived from its open lots.
type Position struct {
	ID        uuid.UUID
	EntityID  uuid.UUID
	AccountID uuid.UUID
	Symbol    string
	Currency  string
}
