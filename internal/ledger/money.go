package ledger

import (
	"encoding/json"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/marwick/ledger/internal/errs"
)

// Money is an exact-decimal monetary amount tagged with an ISO currency code.
// All arithmetic is decimal; floats never enter the ledger.
//
// A zero Money with an empty currency is weak: it adopts the other operand's
// currency, so accumulating into a zero value works without seeding the
// currency first.
type Money struct {
	value    decimal.Decimal
	currency string
}

// NewMoney builds a Money from an exact decimal and a currency code.
func NewMoney(value decimal.Decimal, currency string) Money {
	return Money{value: value, currency: strings.ToUpper(currency)}
}

// ParseMoney parses a decimal string such as "1234.56".
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d, currency), nil
}

// MustParseMoney is ParseMoney for literals in tests and seeds.
func MustParseMoney(s, currency string) Money {
	m, err := ParseMoney(s, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the distinguished zero value for a currency.
func Zero(currency string) Money { return NewMoney(decimal.Zero, currency) }

func (m Money) Amount() decimal.Decimal { return m.value }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.value.IsZero() }
func (m Money) IsNegative() bool        { return m.value.IsNegative() }
func (m Money) IsPositive() bool        { return m.value.IsPositive() }
func (m Money) Neg() Money              { return Money{value: m.value.Neg(), currency: m.currency} }

// Equal reports value-and-currency equality. Zero values compare equal across
// currencies only when one side carries no currency.
func (m Money) Equal(n Money) bool {
	if !m.value.Equal(n.value) {
		return false
	}
	return m.currency == n.currency || m.currency == "" || n.currency == ""
}

// Add returns m+n, failing when both carry different currencies.
func (m Money) Add(n Money) (Money, error) {
	cur, err := joinCurrency(m, n)
	if err != nil {
		return Money{}, err
	}
	return Money{value: m.value.Add(n.value), currency: cur}, nil
}

// Sub returns m-n, failing when both carry different currencies.
func (m Money) Sub(n Money) (Money, error) {
	cur, err := joinCurrency(m, n)
	if err != nil {
		return Money{}, err
	}
	return Money{value: m.value.Sub(n.value), currency: cur}, nil
}

// Cmp compares two amounts of the same currency (-1, 0, +1).
func (m Money) Cmp(n Money) (int, error) {
	if _, err := joinCurrency(m, n); err != nil {
		return 0, err
	}
	return m.value.Cmp(n.value), nil
}

// MulDecimal scales by a unitless factor, preserving the currency.
func (m Money) MulDecimal(d decimal.Decimal) Money {
	return Money{value: m.value.Mul(d), currency: m.currency}
}

// MulQuantity returns a total amount: per-unit money times a share count.
func (m Money) MulQuantity(q Quantity) Money {
	return Money{value: m.value.Mul(q.value), currency: m.currency}
}

// DivQuantity returns a per-unit amount: total money divided by a share count.
func (m Money) DivQuantity(q Quantity) Money {
	return Money{value: m.value.Div(q.value), currency: m.currency}
}

// Round rounds to the currency's minor-unit digits (2 for USD). Unknown
// currencies round to 2.
func (m Money) Round() Money {
	return Money{value: m.value.Round(minorDigits(m.currency)), currency: m.currency}
}

// RoundTo rounds to an explicit number of decimal places.
func (m Money) RoundTo(places int32) Money {
	return Money{value: m.value.Round(places), currency: m.currency}
}

func (m Money) String() string {
	if m.currency == "" {
		return m.value.String()
	}
	return m.value.String() + " " + m.currency
}

// minorDigits resolves the fraction digits for a currency code via the
// go-money currency table.
func minorDigits(code string) int32 {
	if c := gomoney.GetCurrency(code); c != nil {
		return int32(c.Fraction)
	}
	return 2
}

func joinCurrency(a, b Money) (string, error) {
	if a.currency == "" {
		return b.currency, nil
	}
	if b.currency == "" || a.currency == b.currency {
		return a.currency, nil
	}
	return "", errs.ErrCurrencyMismatch
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.value.String(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Amount == "" {
		*m = Money{currency: strings.ToUpper(raw.Currency)}
		return nil
	}
	parsed, err := ParseMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
