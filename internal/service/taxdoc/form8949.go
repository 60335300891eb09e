// Package taxdoc turns lot disposition records into Form 8949 / Schedule D
// shaped data. It is a read-only consumer of the lot engine's output.
package taxdoc

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
)

// Row is one Form 8949 line: a single disposition of one lot.
type Row struct {
	Description     string       `json:"description"`
	AcquisitionDate time.Time    `json:"acquisition_date"`
	DispositionDate time.Time    `json:"disposition_date"`
	Proceeds        ledger.Money `json:"proceeds"`
	CostBasis       ledger.Money `json:"cost_basis"`
	GainLoss        ledger.Money `json:"gain_loss"`
}

// Part is one of the two 8949 parts (Part I short-term, Part II long-term)
// with its Schedule D column totals.
type Part struct {
	Rows          []Row        `json:"rows"`
	TotalProceeds ledger.Money `json:"total_proceeds"`
	TotalCost     ledger.Money `json:"total_cost"`
	TotalGainLoss ledger.Money `json:"total_gain_loss"`
}

// Form8949 splits a year's dispositions by holding period.
type Form8949 struct {
	Year      int  `json:"year"`
	ShortTerm Part `json:"short_term"`
	LongTerm  Part `json:"long_term"`
}

// Build assembles a Form 8949 for a tax year from disposition records.
// Dispositions outside the year are skipped. Classification uses the same
// >365-day rule as the lot engine. symbols maps position ids to security
// descriptions.
func Build(year int, dispositions []ledger.LotDisposition, symbols map[uuid.UUID]string) (Form8949, error) {
	form := Form8949{Year: year}
	for _, d := range dispositions {
		if d.DispositionDate.Year() != year {
			continue
		}
		gain, err := d.GainLoss()
		if err != nil {
			return Form8949{}, err
		}
		desc := symbols[d.PositionID]
		if desc == "" {
			desc = d.PositionID.String()
		}
		row := Row{
			Description:     fmt.Sprintf("%s %s sh", d.QuantitySold, desc),
			AcquisitionDate: d.AcquisitionDate,
			DispositionDate: d.DispositionDate,
			Proceeds:        d.Proceeds,
			CostBasis:       d.CostBasis,
			GainLoss:        gain,
		}
		part := &form.ShortTerm
		if d.IsLongTerm() {
			part = &form.LongTerm
		}
		if err := part.add(row); err != nil {
			return Form8949{}, err
		}
	}
	form.ShortTerm.sortRows()
	form.LongTerm.sortRows()
	return form, nil
}

func (p *Part) add(row Row) error {
	var err error
	if p.TotalProceeds, err = p.TotalProceeds.Add(row.Proceeds); err != nil {
		return err
	}
	if p.TotalCost, err = p.TotalCost.Add(row.CostBasis); err != nil {
		return err
	}
	if p.TotalGainLoss, err = p.TotalGainLoss.Add(row.GainLoss); err != nil {
		return err
	}
	p.Rows = append(p.Rows, row)
	return nil
}

// sortRows orders by disposition then acquisition date for stable output.
func (p *Part) sortRows() {
	sort.SliceStable(p.Rows, func(i, j int) bool {
		if !p.Rows[i].DispositionDate.Equal(p.Rows[j].DispositionDate) {
			return p.Rows[i].DispositionDate.Before(p.Rows[j].DispositionDate)
		}
		return p.Rows[i].AcquisitionDate.Before(p.Rows[j].AcquisitionDate)
	})
}
