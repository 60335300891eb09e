package dictionary

import "github.com/marwick/ledger/internal/ledger"

// GroupDef describes one curated account group in the family-office chart of
// accounts. Reserved groups are created by the system and cannot be chosen
// freely.
type GroupDef struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Reserved bool   `json:"reserved"`
}

var curated = map[ledger.AccountType][]GroupDef{
	ledger.AccountTypeEquity: {
		{Code: "opening_balances", Label: "Opening Balances", Reserved: true},
		{Code: "owner_equity", Label: "Owner Equity", Reserved: false},
		{Code: "trust_corpus", Label: "Trust Corpus", Reserved: false},
	},
	ledger.AccountTypeAsset: {
		{Code: "bank", Label: "Bank", Reserved: false},
		{Code: "brokerage", Label: "Brokerage", Reserved: false},
		{Code: "cash", Label: "Cash", Reserved: false},
		{Code: "money_market", Label: "Money Market", Reserved: false},
		{Code: "real_estate", Label: "Real Estate", Reserved: false},
		{Code: "receivable", Label: "Receivable", Reserved: false},
	},
	ledger.AccountTypeLiability: {
		{Code: "credit_card", Label: "Credit Card", Reserved: false},
		{Code: "mortgage", Label: "Mortgage", Reserved: false},
		{Code: "margin_loan", Label: "Margin Loan", Reserved: false},
		{Code: "payable", Label: "Payable", Reserved: false},
		{Code: "tax_payable", Label: "Tax Payable", Reserved: false},
	},
	ledger.AccountTypeRevenue: {
		{Code: "dividends", Label: "Dividends", Reserved: false},
		{Code: "interest", Label: "Interest", Reserved: false},
		{Code: "realized_gains", Label: "Realized Gains", Reserved: false},
		{Code: "rental_income", Label: "Rental Income", Reserved: false},
		{Code: "distributions", Label: "Distributions", Reserved: false},
		{Code: "other_income", Label: "Other Income", Reserved: false},
	},
	ledger.AccountTypeExpense: {
		{Code: "management_fees", Label: "Management Fees", Reserved: false},
		{Code: "advisory_fees", Label: "Advisory Fees", Reserved: false},
		{Code: "taxes", Label: "Taxes", Reserved: false},
		{Code: "insurance", Label: "Insurance", Reserved: false},
		{Code: "household", Label: "Household", Reserved: false},
		{Code: "charity", Label: "Charity", Reserved: false},
		{Code: "legal", Label: "Legal & Accounting", Reserved: false},
	},
}

// GroupsFor returns the curated groups for an account type.
func GroupsFor(t ledger.AccountType) []GroupDef {
	defs := curated[t]
	out := make([]GroupDef, len(defs))
	copy(out, defs)
	return out
}

// IsCurated reports whether code is a curated group for the account type.
func IsCurated(t ledger.AccountType, code string) bool {
	for _, d := range curated[t] {
		if d.Code == code {
			return true
		}
	}
	return false
}

// IsReserved reports whether code is reserved for system use.
func IsReserved(code string) bool {
	for _, defs := range curated {
		for _, d := range defs {
			if d.Code == code && d.Reserved {
				return true
			}
		}
	}
	return false
}
