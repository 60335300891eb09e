package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marwick/ledger/internal/errs"
)

// AcquisitionType records how shares entered a position.
type AcquisitionType string

const (
	AcquisitionTypePurchase   AcquisitionType = "purchase"
	AcquisitionTypeTransfer   AcquisitionType = "transfer"
	AcquisitionTypeGift       AcquisitionType = "gift"
	AcquisitionTypeInherited  AcquisitionType = "inherited"
	AcquisitionTypeReinvested AcquisitionType = "reinvested"
)

// LotState is the lifecycle state derived from remaining quantity.
type LotState string

const (
	LotStateOpen              LotState = "open"
	LotStatePartiallyDisposed LotState = "partially_disposed"
	LotStateFullyDisposed     LotState = "fully_disposed"
)

// longTermThresholdDays is the IRS holding-period boundary: a disposal is
// long-term iff held strictly more than 365 days.
const longTermThresholdDays = 365

// washSaleWindowDays is the replacement window on each side of a loss sale.
const washSaleWindowDays = 30

// TaxLot is a single acquisition of shares into a position, tracked
// separately for cost-basis purposes. Lots are mutated in place by Sell,
// ApplySplit and MarkWashSale and are never deleted; a fully disposed lot
// remains as historical record.
type TaxLot struct {
	ID                 uuid.UUID
	PositionID         uuid.UUID
	AcquisitionDate    time.Time
	CostPerShare       Money
	OriginalQuantity   Quantity
	RemainingQuantity  Quantity
	DispositionDate    *time.Time
	WashSaleDisallowed bool
	WashSaleAdjustment Money
	AcquisitionType    AcquisitionType
	// Version guards concurrent lot mutation: stores reject a save whose
	// version does not match the stored row.
	Version int
}

// NewTaxLot opens a lot with remaining quantity equal to the original.
func NewTaxLot(positionID uuid.UUID, acquired time.Time, costPerShare Money, quantity Quantity, acqType AcquisitionType) TaxLot {
	return TaxLot{
		ID:                 uuid.New(),
		PositionID:         positionID,
		AcquisitionDate:    acquired,
		CostPerShare:       costPerShare,
		OriginalQuantity:   quantity,
		RemainingQuantity:  quantity,
		WashSaleAdjustment: Zero(costPerShare.Currency()),
		AcquisitionType:    acqType,
		Version:            1,
	}
}

// TotalCost returns cost per share times the original quantity.
func (l *TaxLot) TotalCost() Money { return l.CostPerShare.MulQuantity(l.OriginalQuantity) }

// AdjustedCostPerShare is the cost per share including any wash-sale
// disallowed-loss adjustment spread over the original quantity. Once a lot is
// wash-sale-marked, all basis math uses this value.
func (l *TaxLot) AdjustedCostPerShare() Money {
	if !l.WashSaleDisallowed {
		return l.CostPerShare
	}
	perShare := l.WashSaleAdjustment.DivQuantity(l.OriginalQuantity)
	adj, _ := l.CostPerShare.Add(perShare)
	return adj
}

// RemainingCost returns the basis of the undisposed shares.
func (l *TaxLot) RemainingCost() Money {
	return l.AdjustedCostPerShare().MulQuantity(l.RemainingQuantity)
}

func (l *TaxLot) IsFullyDisposed() bool { return l.RemainingQuantity.IsZero() }
func (l *TaxLot) IsOpen() bool          { return l.RemainingQuantity.IsPositive() }

// State derives the lifecycle state from the quantities.
func (l *TaxLot) State() LotState {
	switch {
	case l.RemainingQuantity.IsZero():
		return LotStateFullyDisposed
	case l.RemainingQuantity.LessThan(l.OriginalQuantity):
		return LotStatePartiallyDisposed
	default:
		return LotStateOpen
	}
}

// HoldingPeriodDays returns whole calendar days held, using the disposition
// date when set and asOf otherwise.
func (l *TaxLot) HoldingPeriodDays(asOf time.Time) int {
	end := asOf
	if l.DispositionDate != nil {
		end = *l.DispositionDate
	}
	return daysBetween(l.AcquisitionDate, end)
}

// IsLongTerm reports whether the holding period exceeds 365 days.
func (l *TaxLot) IsLongTerm(asOf time.Time) bool {
	return l.HoldingPeriodDays(asOf) > longTermThresholdDays
}

// Sell disposes quantity shares on date, reducing the remaining quantity and
// stamping the disposition date when the lot depletes. It returns the cost
// basis disposed at the (wash-sale-adjusted) cost per share.
func (l *TaxLot) Sell(quantity Quantity, date time.Time) (Money, error) {
	if !quantity.IsPositive() {
		return Money{}, errs.ErrInvalid
	}
	if dateOnly(date).Before(dateOnly(l.AcquisitionDate)) {
		return Money{}, errs.ErrInvalidLotOperation
	}
	if quantity.GreaterThan(l.RemainingQuantity) {
		return Money{}, &errs.InsufficientQuantityError{
			LotID:     l.ID,
			Requested: quantity.Decimal(),
			Remaining: l.RemainingQuantity.Decimal(),
		}
	}
	l.RemainingQuantity = l.RemainingQuantity.Sub(quantity)
	if l.RemainingQuantity.IsZero() {
		d := date
		l.DispositionDate = &d
	}
	return l.AdjustedCostPerShare().MulQuantity(quantity), nil
}

// ApplySplit rescales the lot for a corporate action split of num-for-den
// shares. Quantities scale by num/den; cost per share is re-derived from the
// unchanged total cost so basis is preserved exactly.
func (l *TaxLot) ApplySplit(num, den int64) error {
	if num <= 0 || den <= 0 {
		return errs.ErrInvalidLotOperation
	}
	total := l.TotalCost()
	ratio := decimal.NewFromInt(num).Div(decimal.NewFromInt(den))
	l.OriginalQuantity = l.OriginalQuantity.MulDecimal(ratio)
	l.RemainingQuantity = l.RemainingQuantity.MulDecimal(ratio)
	l.CostPerShare = NewMoney(total.Amount().Div(l.OriginalQuantity.Decimal()), total.Currency())
	return nil
}

// MarkWashSale records a disallowed loss against this replacement lot,
// raising its effective cost basis by the disallowed amount.
func (l *TaxLot) MarkWashSale(disallowedLoss Money) error {
	if !disallowedLoss.IsPositive() {
		return errs.ErrInvalid
	}
	if c := disallowedLoss.Currency(); c != "" && c != l.CostPerShare.Currency() {
		return errs.ErrCurrencyMismatch
	}
	l.WashSaleDisallowed = true
	l.WashSaleAdjustment = disallowedLoss
	return nil
}

// LotDisposition records one lot's contribution to an executed sale. These
// records feed Form 8949 generation.
type LotDisposition struct {
	LotID           uuid.UUID
	PositionID      uuid.UUID
	QuantitySold    Quantity
	CostBasis       Money
	Proceeds        Money
	AcquisitionDate time.Time
	DispositionDate time.Time
}

// GainLoss returns proceeds minus cost basis.
func (d LotDisposition) GainLoss() (Money, error) { return d.Proceeds.Sub(d.CostBasis) }

// IsLongTerm applies the same >365-day rule as TaxLot.
func (d LotDisposition) IsLongTerm() bool {
	return daysBetween(d.AcquisitionDate, d.DispositionDate) > longTermThresholdDays
}

// WashSaleWindow returns the inclusive replacement-lot window around a sale.
func WashSaleWindow(saleDate time.Time) (from, to time.Time) {
	return saleDate.AddDate(0, 0, -washSaleWindowDays), saleDate.AddDate(0, 0, washSaleWindowDays)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}
