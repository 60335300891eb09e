// Package lots implements tax-lot selection and disposal. MatchSale is a
// pure, read-only selection so callers can preview tax impact; ExecuteSale
// mutates the chosen lots and persists the whole touched set in one atomic
// write.
package lots

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
)

// quantityPlaces is the rounding precision for pro-rata share quantities.
const quantityPlaces = 4

// Repo defines read operations needed by the service.
type Repo interface {
	// LotsByPosition returns all lots for a position ordered ascending by
	// (acquisition date, id). This stable base order is what every
	// selection sort and tie-break builds on.
	LotsByPosition(ctx context.Context, positionID uuid.UUID) ([]ledger.TaxLot, error)
	LotByID(ctx context.Context, lotID uuid.UUID) (ledger.TaxLot, error)
	// LotsAcquiredInWindow returns the position's lots acquired within
	// [from, to] inclusive.
	LotsAcquiredInWindow(ctx context.Context, positionID uuid.UUID, from, to time.Time) ([]ledger.TaxLot, error)
	// DispositionsByPosition returns recorded dispositions ordered ascending
	// by disposition date.
	DispositionsByPosition(ctx context.Context, positionID uuid.UUID) ([]ledger.LotDisposition, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateLot(ctx context.Context, lot ledger.TaxLot) (ledger.TaxLot, error)
	// SaveLots persists every lot in the slice atomically. Implementations
	// must reject the whole batch with errs.ErrConflict when any lot's
	// version is stale.
	SaveLots(ctx context.Context, lots []ledger.TaxLot) error
	// RecordDispositions appends realized sale records for tax reporting.
	RecordDispositions(ctx context.Context, dispositions []ledger.LotDisposition) error
}

// Service exposes lot queries, pure sale matching, mutating sale execution
// and wash-sale window detection.
type Service interface {
	RecordAcquisition(ctx context.Context, positionID uuid.UUID, date time.Time, quantity ledger.Quantity, costPerShare ledger.Money, acqType ledger.AcquisitionType) (ledger.TaxLot, error)
	OpenLots(ctx context.Context, positionID uuid.UUID) ([]ledger.TaxLot, error)
	PositionCostBasis(ctx context.Context, positionID uuid.UUID) (ledger.Money, error)
	MatchSale(ctx context.Context, positionID uuid.UUID, quantity ledger.Quantity, method SelectionMethod, specificLotIDs []uuid.UUID) ([]ledger.TaxLot, error)
	ExecuteSale(ctx context.Context, positionID uuid.UUID, quantity ledger.Quantity, proceeds ledger.Money, saleDate time.Time, method SelectionMethod, specificLotIDs []uuid.UUID) ([]ledger.LotDisposition, error)
	ApplySplit(ctx context.Context, lotID uuid.UUID, num, den int64) (ledger.TaxLot, error)
	MarkWashSale(ctx context.Context, lotID uuid.UUID, disallowedLoss ledger.Money) (ledger.TaxLot, error)
	DetectWashSales(ctx context.Context, positionID uuid.UUID, saleDate time.Time, lossAmount ledger.Money) ([]ledger.TaxLot, error)
	Dispositions(ctx context.Context, positionID uuid.UUID) ([]ledger.LotDisposition, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

// RecordAcquisition opens a new lot from a parsed buy record.
func (s *service) RecordAcquisition(ctx context.Context, positionID uuid.UUID, date time.Time, quantity ledger.Quantity, costPerShare ledger.Money, acqType ledger.AcquisitionType) (ledger.TaxLot, error) {
	if positionID == uuid.Nil || !quantity.IsPositive() || costPerShare.IsNegative() {
		return ledger.TaxLot{}, errs.ErrInvalid
	}
	if acqType == "" {
		acqType = ledger.AcquisitionTypePurchase
	}
	lot := ledger.NewTaxLot(positionID, date, costPerShare, quantity, acqType)
	return s.writer.CreateLot(ctx, lot)
}

// OpenLots returns lots with remaining quantity > 0 in the stable base order.
func (s *service) OpenLots(ctx context.Context, positionID uuid.UUID) ([]ledger.TaxLot, error) {
	all, err := s.repo.LotsByPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	open := make([]ledger.TaxLot, 0, len(all))
	for _, l := range all {
		if l.IsOpen() {
			open = append(open, l)
		}
	}
	return open, nil
}

// PositionCostBasis sums remaining cost across open lots. Currency is
// uniform within a position; an empty position yields a zero Money.
func (s *service) PositionCostBasis(ctx context.Context, positionID uuid.UUID) (ledger.Money, error) {
	open, err := s.OpenLots(ctx, positionID)
	if err != nil {
		return ledger.Money{}, err
	}
	total := ledger.Money{}
	for i := range open {
		total, err = total.Add(open[i].RemainingCost())
		if err != nil {
			return ledger.Money{}, err
		}
	}
	return total, nil
}

// MatchSale selects the ordered lots a sale would draw from WITHOUT mutating
// anything, so callers can preview which lots would go and at what basis.
func (s *service) MatchSale(ctx context.Context, positionID uuid.UUID, quantity ledger.Quantity, method SelectionMethod, specificLotIDs []uuid.UUID) ([]ledger.TaxLot, error) {
	if !quantity.IsPositive() {
		return nil, errs.ErrInvalid
	}
	open, err := s.OpenLots(ctx, positionID)
	if err != nil {
		return nil, err
	}

	switch method {
	case SpecificID:
		return s.matchSpecific(ctx, open, quantity, specificLotIDs)
	case AverageCost:
		// Average-cost disposal draws pro-rata from every open lot.
		if err := requireAvailable(open, quantity); err != nil {
			return nil, err
		}
		return open, nil
	}

	sorted := make([]ledger.TaxLot, len(open))
	copy(sorted, open)
	switch method {
	case FIFO:
		// base order is already ascending by acquisition date
	case LIFO:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].AcquisitionDate.After(sorted[j].AcquisitionDate)
		})
	case HIFO, MinimizeGain:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CostPerShare.Amount().GreaterThan(sorted[j].CostPerShare.Amount())
		})
	case MaximizeGain:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CostPerShare.Amount().LessThan(sorted[j].CostPerShare.Amount())
		})
	default:
		return nil, errs.ErrInvalid
	}

	// Greedy prefix: accumulate until the requested quantity is covered.
	matched := make([]ledger.TaxLot, 0, len(sorted))
	cum := ledger.Quantity{}
	for _, l := range sorted {
		matched = append(matched, l)
		cum = cum.Add(l.RemainingQuantity)
		if !cum.LessThan(quantity) {
			return matched, nil
		}
	}
	return nil, &errs.InsufficientLotsError{Requested: quantity.Decimal(), Available: cum.Decimal()}
}

func (s *service) matchSpecific(ctx context.Context, open []ledger.TaxLot, quantity ledger.Quantity, lotIDs []uuid.UUID) ([]ledger.TaxLot, error) {
	if len(lotIDs) == 0 {
		return nil, errs.ErrInvalid
	}
	byID := make(map[uuid.UUID]ledger.TaxLot, len(open))
	for _, l := range open {
		byID[l.ID] = l
	}
	matched := make([]ledger.TaxLot, 0, len(lotIDs))
	available := ledger.Quantity{}
	for _, id := range lotIDs {
		l, ok := byID[id]
		if !ok {
			// Distinguish "gone" from "never existed" so the caller can react.
			if existing, err := s.repo.LotByID(ctx, id); err == nil && existing.IsFullyDisposed() {
				return nil, &errs.InvalidLotSelectionError{LotID: id, Reason: "already fully disposed"}
			}
			return nil, &errs.InvalidLotSelectionError{LotID: id, Reason: "lot not found"}
		}
		matched = append(matched, l)
		available = available.Add(l.RemainingQuantity)
	}
	if available.LessThan(quantity) {
		return nil, &errs.InsufficientLotsError{Requested: quantity.Decimal(), Available: available.Decimal()}
	}
	return matched, nil
}

func requireAvailable(open []ledger.TaxLot, quantity ledger.Quantity) error {
	total := ledger.Quantity{}
	for _, l := range open {
		total = total.Add(l.RemainingQuantity)
	}
	if total.LessThan(quantity) {
		return &errs.InsufficientLotsError{Requested: quantity.Decimal(), Available: total.Decimal()}
	}
	return nil
}

// ExecuteSale mutates the matched lots via Sell and persists the whole
// touched set in one SaveLots call, so a failure partway through leaves no
// partially-updated position behind.
func (s *service) ExecuteSale(ctx context.Context, positionID uuid.UUID, quantity ledger.Quantity, proceeds ledger.Money, saleDate time.Time, method SelectionMethod, specificLotIDs []uuid.UUID) ([]ledger.LotDisposition, error) {
	matched, err := s.MatchSale(ctx, positionID, quantity, method, specificLotIDs)
	if err != nil {
		return nil, err
	}

	var (
		dispositions []ledger.LotDisposition
		touched      []ledger.TaxLot
	)
	if method == AverageCost {
		dispositions, touched, err = sellAverageCost(matched, quantity, proceeds, saleDate)
	} else {
		dispositions, touched, err = sellStandard(matched, quantity, proceeds, saleDate)
	}
	if err != nil {
		return nil, err
	}
	if err := s.writer.SaveLots(ctx, touched); err != nil {
		return nil, err
	}
	if err := s.writer.RecordDispositions(ctx, dispositions); err != nil {
		return nil, err
	}
	return dispositions, nil
}

// Dispositions returns the realized sale records for a position.
func (s *service) Dispositions(ctx context.Context, positionID uuid.UUID) ([]ledger.LotDisposition, error) {
	if positionID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.DispositionsByPosition(ctx, positionID)
}

// sellStandard walks the matched lots in order, selling
// min(remaining needed, lot remaining) from each. Proceeds are allocated by
// quantity fraction, rounded to the currency's minor unit.
func sellStandard(matched []ledger.TaxLot, quantity ledger.Quantity, proceeds ledger.Money, saleDate time.Time) ([]ledger.LotDisposition, []ledger.TaxLot, error) {
	dispositions := make([]ledger.LotDisposition, 0, len(matched))
	touched := make([]ledger.TaxLot, 0, len(matched))
	needed := quantity
	for i := range matched {
		if needed.IsZero() {
			break
		}
		lot := matched[i]
		sell := lot.RemainingQuantity
		if needed.LessThan(sell) {
			sell = needed
		}
		basis, err := lot.Sell(sell, saleDate)
		if err != nil {
			// MatchSale already proved sufficiency; this is an internal
			// consistency bug, not a user error.
			return nil, nil, err
		}
		fraction := sell.Div(quantity).Decimal()
		dispositions = append(dispositions, ledger.LotDisposition{
			LotID:           lot.ID,
			PositionID:      lot.PositionID,
			QuantitySold:    sell,
			CostBasis:       basis.Round(),
			Proceeds:        proceeds.MulDecimal(fraction).Round(),
			AcquisitionDate: lot.AcquisitionDate,
			DispositionDate: saleDate,
		})
		touched = append(touched, lot)
		needed = needed.Sub(sell)
	}
	return dispositions, touched, nil
}

// sellAverageCost disposes pro-rata from every open lot at the blended
// average cost. Each lot but the last sells its share of the requested
// quantity rounded to 4 places; the last lot takes the exact remainder so
// the disposed quantities sum to the request with no rounding drift.
func sellAverageCost(matched []ledger.TaxLot, quantity ledger.Quantity, proceeds ledger.Money, saleDate time.Time) ([]ledger.LotDisposition, []ledger.TaxLot, error) {
	totalQty := ledger.Quantity{}
	totalCost := ledger.Money{}
	var err error
	for i := range matched {
		totalQty = totalQty.Add(matched[i].RemainingQuantity)
		totalCost, err = totalCost.Add(matched[i].RemainingCost())
		if err != nil {
			return nil, nil, err
		}
	}
	avgCostPerShare := totalCost.DivQuantity(totalQty)
	sellFraction := quantity.Div(totalQty).Decimal()

	dispositions := make([]ledger.LotDisposition, 0, len(matched))
	touched := make([]ledger.TaxLot, 0, len(matched))
	sold := ledger.Quantity{}
	for i := range matched {
		lot := matched[i]
		var sell ledger.Quantity
		if i == len(matched)-1 {
			sell = quantity.Sub(sold)
		} else {
			sell = lot.RemainingQuantity.MulDecimal(sellFraction).Round(quantityPlaces)
		}
		if !sell.IsPositive() {
			continue
		}
		if _, err := lot.Sell(sell, saleDate); err != nil {
			return nil, nil, err
		}
		proceedsFraction := sell.Div(quantity).Decimal()
		dispositions = append(dispositions, ledger.LotDisposition{
			LotID:           lot.ID,
			PositionID:      lot.PositionID,
			QuantitySold:    sell,
			CostBasis:       avgCostPerShare.MulQuantity(sell).RoundTo(2),
			Proceeds:        proceeds.MulDecimal(proceedsFraction).RoundTo(2),
			AcquisitionDate: lot.AcquisitionDate,
			DispositionDate: saleDate,
		})
		touched = append(touched, lot)
		sold = sold.Add(sell)
	}
	return dispositions, touched, nil
}

// ApplySplit rescales a lot for an integer-ratio corporate action and
// persists it.
func (s *service) ApplySplit(ctx context.Context, lotID uuid.UUID, num, den int64) (ledger.TaxLot, error) {
	lot, err := s.repo.LotByID(ctx, lotID)
	if err != nil {
		return ledger.TaxLot{}, err
	}
	if err := lot.ApplySplit(num, den); err != nil {
		return ledger.TaxLot{}, err
	}
	if err := s.writer.SaveLots(ctx, []ledger.TaxLot{lot}); err != nil {
		return ledger.TaxLot{}, err
	}
	return lot, nil
}

// MarkWashSale records a disallowed loss on a replacement lot and persists it.
func (s *service) MarkWashSale(ctx context.Context, lotID uuid.UUID, disallowedLoss ledger.Money) (ledger.TaxLot, error) {
	lot, err := s.repo.LotByID(ctx, lotID)
	if err != nil {
		return ledger.TaxLot{}, err
	}
	if err := lot.MarkWashSale(disallowedLoss); err != nil {
		return ledger.TaxLot{}, err
	}
	if err := s.writer.SaveLots(ctx, []ledger.TaxLot{lot}); err != nil {
		return ledger.TaxLot{}, err
	}
	return lot, nil
}

// DetectWashSales returns replacement-candidate lots acquired within the
// 30-day window around a loss sale. The wash-sale rule never applies to
// gains, so a non-positive loss returns an empty list.
func (s *service) DetectWashSales(ctx context.Context, positionID uuid.UUID, saleDate time.Time, lossAmount ledger.Money) ([]ledger.TaxLot, error) {
	if !lossAmount.IsPositive() {
		return []ledger.TaxLot{}, nil
	}
	from, to := ledger.WashSaleWindow(saleDate)
	return s.repo.LotsAcquiredInWindow(ctx, positionID, from, to)
}
