package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTaxLot_SellPartial(t *testing.T) {
	lot := NewTaxLot(uuid.New(), day(2024, 1, 10), MustParseMoney("100.00", "USD"), MustParseQuantity("50"), AcquisitionTypePurchase)

	basis, err := lot.Sell(MustParseQuantity("30"), day(2024, 6, 1))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !basis.Equal(MustParseMoney("3000", "USD")) {
		t.Fatalf("expected basis 3000, got %s", basis)
	}
	if !lot.RemainingQuantity.Equal(MustParseQuantity("20")) {
		t.Fatalf("expected 20 remaining, got %s", lot.RemainingQuantity)
	}
	if lot.State() != LotStatePartiallyDisposed {
		t.Fatalf("expected partially_disposed, got %s", lot.State())
	}
	if lot.DispositionDate != nil {
		t.Fatalf("disposition date must only be set when the lot depletes")
	}
}

func TestTaxLot_SellToZero(t *testing.T) {
	lot := NewTaxLot(uuid.New(), day(2024, 1, 10), MustParseMoney("100.00", "USD"), MustParseQuantity("50"), AcquisitionTypePurchase)
	saleDate := day(2024, 6, 1)
	if _, err := lot.Sell(MustParseQuantity("50"), saleDate); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if lot.State() != LotStateFullyDisposed {
		t.Fatalf("expected fully_disposed, got %s", lot.State())
	}
	if lot.DispositionDate == nil || !lot.DispositionDate.Equal(saleDate) {
		t.Fatalf("expected disposition date %s, got %v", saleDate, lot.DispositionDate)
	}
}

func TestTaxLot_SellOversell(t *testing.T) {
	lot := NewTaxLot(uuid.New(), day(2024, 1, 10), MustParseMoney("10", "USD"), MustParseQuantity("5"), AcquisitionTypePurchase)
	_, err := lot.Sell(MustParseQuantity("6"), day(2024, 2, 1))
	var iq *errs.InsufficientQuantityError
	if !errors.As(err, &iq) {
		t.Fatalf("expected InsufficientQuantityError, got %v", err)
	}
	if iq.Requested.String() != "6" || iq.Remaining.String() != "5" {
		t.Fatalf("unexpected detail: %+v", iq)
	}
	// lot untouched
	if !lot.RemainingQuantity.Equal(MustParseQuantity("5")) {
		t.Fatalf("lot mutated on failed sell")
	}
}

func TestTaxLot_SellBeforeAcquisition(t *testing.T) {
	lot := NewTaxLot(uuid.New(), day(2024, 3, 15), MustParseMoney("10", "USD"), MustParseQuantity("5"), AcquisitionTypePurchase)
	if _, err := lot.Sell(MustParseQuantity("1"), day(2024, 3, 14)); !errors.Is(err, errs.ErrInvalidLotOperation) {
		t.Fatalf("expected invalid lot operation, got %v", err)
	}
}

func TestTaxLot_ApplySplit(t *testing.T) {
	lot := NewTaxLot(uuid.New(), day(2023, 5, 1), MustParseMoney("200.00", "USD"), MustParseQuantity("100"), AcquisitionTypePurchase)
	if err := lot.ApplySplit(2, 1); err != nil {
		t.Fatalf("split: %v", err)
	}
	if !lot.OriginalQuantity.Equal(MustParseQuantity("200")) || !lot.RemainingQuantity.Equal(MustParseQuantity("200")) {
		t.Fatalf("unexpected quantities after split: %s / %s", lot.RemainingQuantity, lot.OriginalQuantity)
	}
	if !lot.CostPerShare.Equal(MustParseMoney("100", "USD")) {
		t.Fatalf("expected cost per share 100, got %s", lot.CostPerShare)
	}
	if !lot.TotalCost().Equal(MustParseMoney("20000", "USD")) {
		t.Fatalf("split must preserve total cost, got %s", lot.TotalCost())
	}
}

func TestTaxLot_ApplySplitReverse(t *testing.T) {
	// 1-for-10 reverse split
	lot := NewTaxLot(uuid.New(), day(2023, 5, 1), MustParseMoney("1.00", "USD"), MustParseQuantity("1000"), AcquisitionTypePurchase)
	if err := lot.ApplySplit(1, 10); err != nil {
		t.Fatalf("reverse split: %v", err)
	}
	if !lot.RemainingQuantity.Equal(MustParseQuantity("100")) {
		t.Fatalf("expected 100 shares, got %s", lot.RemainingQuantity)
	}
	if !lot.CostPerShare.Equal(MustParseMoney("10", "USD")) {
		t.Fatalf("expected cost per share 10, got %s", lot.CostPerShare)
	}
}

func TestTaxLot_ApplySplitInvalidRatio(t *testing.T) {
	lot := NewTaxLot(uuid.New(), day(2023, 5, 1), MustParseMoney("1", "USD"), MustParseQuantity("10"), AcquisitionTypePurchase)
	if err := lot.ApplySplit(0, 1); !errors.Is(err, errs.ErrInvalidLotOperation) {
		t.Fatalf("expected invalid lot operation, got %v", err)
	}
	if err := lot.ApplySplit(2, -1); !errors.Is(err, errs.ErrInvalidLotOperation) {
		t.Fatalf("expected invalid lot operation, got %v", err)
	}
}

func TestTaxLot_MarkWashSale(t *testing.T) {
	lot := NewTaxLot(uuid.New(), day(2024, 2, 1), MustParseMoney("90.00", "USD"), MustParseQuantity("100"), AcquisitionTypePurchase)
	if err := lot.MarkWashSale(MustParseMoney("500.00", "USD")); err != nil {
		t.Fatalf("mark wash sale: %v", err)
	}
	if !lot.WashSaleDisallowed {
		t.Fatalf("expected wash sale flag")
	}
	// adjustment spreads over the original quantity: 90 + 500/100 = 95
	if !lot.AdjustedCostPerShare().Equal(MustParseMoney("95", "USD")) {
		t.Fatalf("expected adjusted cost 95, got %s", lot.AdjustedCostPerShare())
	}
	if !lot.RemainingCost().Equal(MustParseMoney("9500", "USD")) {
		t.Fatalf("expected remaining cost 9500, got %s", lot.RemainingCost())
	}

	// selling now disposes at the adjusted basis
	basis, err := lot.Sell(MustParseQuantity("10"), day(2024, 3, 1))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !basis.Equal(MustParseMoney("950", "USD")) {
		t.Fatalf("expected adjusted basis 950, got %s", basis)
	}
}

func TestTaxLot_MarkWashSaleRejectsNonPositive(t *testing.T) {
	lot := NewTaxLot(uuid.New(), day(2024, 2, 1), MustParseMoney("90", "USD"), MustParseQuantity("100"), AcquisitionTypePurchase)
	if err := lot.MarkWashSale(MustParseMoney("-1", "USD")); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if err := lot.MarkWashSale(MustParseMoney("1", "GBP")); !errors.Is(err, errs.ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
}

func TestTaxLot_LongTermBoundary(t *testing.T) {
	acq := day(2023, 1, 10)
	lot := NewTaxLot(uuid.New(), acq, MustParseMoney("1", "USD"), MustParseQuantity("1"), AcquisitionTypePurchase)

	// exactly 365 days held is still short-term
	if lot.IsLongTerm(acq.AddDate(0, 0, 365)) {
		t.Fatalf("365 days must be short-term")
	}
	if !lot.IsLongTerm(acq.AddDate(0, 0, 366)) {
		t.Fatalf("366 days must be long-term")
	}
}

func TestLotDisposition_GainLossAndTerm(t *testing.T) {
	d := LotDisposition{
		LotID:           uuid.New(),
		PositionID:      uuid.New(),
		QuantitySold:    MustParseQuantity("10"),
		CostBasis:       MustParseMoney("1000", "USD"),
		Proceeds:        MustParseMoney("1250", "USD"),
		AcquisitionDate: day(2022, 3, 1),
		DispositionDate: day(2024, 3, 1),
	}
	gain, err := d.GainLoss()
	if err != nil {
		t.Fatalf("gain: %v", err)
	}
	if !gain.Equal(MustParseMoney("250", "USD")) {
		t.Fatalf("expected gain 250, got %s", gain)
	}
	if !d.IsLongTerm() {
		t.Fatalf("expected long-term")
	}
}

func TestWashSaleWindow(t *testing.T) {
	from, to := WashSaleWindow(day(2024, 6, 15))
	if !from.Equal(day(2024, 5, 16)) || !to.Equal(day(2024, 7, 15)) {
		t.Fatalf("unexpected window: %s .. %s", from, to)
	}
}
