package ledger

import "github.com/shopspring/decimal"

// Quantity is an exact-decimal share count. It has no currency; multiplying a
// per-share Money by a Quantity yields a Money.
type Quantity struct {
	value decimal.Decimal
}

// Qty builds a Quantity from an exact decimal.
func Qty(value decimal.Decimal) Quantity { return Quantity{value: value} }

// QtyFromInt builds a whole-share Quantity.
func QtyFromInt(n int64) Quantity { return Quantity{value: decimal.NewFromInt(n)} }

// ParseQuantity parses a decimal string such as "12.5".
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: d}, nil
}

// MustParseQuantity is ParseQuantity for literals in tests and seeds.
func MustParseQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Decimal() decimal.Decimal     { return q.value }
func (q Quantity) Add(p Quantity) Quantity      { return Quantity{value: q.value.Add(p.value)} }
func (q Quantity) Sub(p Quantity) Quantity      { return Quantity{value: q.value.Sub(p.value)} }
func (q Quantity) Mul(p Quantity) Quantity      { return Quantity{value: q.value.Mul(p.value)} }
func (q Quantity) Div(p Quantity) Quantity      { return Quantity{value: q.value.Div(p.value)} }
func (q Quantity) MulDecimal(d decimal.Decimal) Quantity {
	return Quantity{value: q.value.Mul(d)}
}
func (q Quantity) Equal(p Quantity) bool       { return q.value.Equal(p.value) }
func (q Quantity) LessThan(p Quantity) bool    { return q.value.LessThan(p.value) }
func (q Quantity) GreaterThan(p Quantity) bool { return q.value.GreaterThan(p.value) }
func (q Quantity) Cmp(p Quantity) int          { return q.value.Cmp(p.value) }
func (q Quantity) IsZero() bool                { return q.value.IsZero() }
func (q Quantity) IsNegative() bool            { return q.value.IsNegative() }
func (q Quantity) IsPositive() bool            { return q.value.IsPositive() }

// Round rounds to the given number of decimal places (share quantities are
// carried to 4 places in pro-rata disposals).
func (q Quantity) Round(places int32) Quantity { return Quantity{value: q.value.Round(places)} }

func (q Quantity) String() string { return q.value.String() }

func (q Quantity) MarshalJSON() ([]byte, error) { return q.value.MarshalJSON() }
func (q *Quantity) UnmarshalJSON(b []byte) error {
	return q.value.UnmarshalJSON(b)
}
