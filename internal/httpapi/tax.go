package httpapi

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/service/taxdoc"
)

// form8949 assembles the tax-year sale report across all positions of a
// brokerage account.
func (s *Server) form8949(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawAccount := q.Get("account_id")
	if rawAccount == "" {
		badRequest(w, "account_id is required")
		return
	}
	accountID, err := uuid.Parse(rawAccount)
	if err != nil {
		badRequest(w, "invalid account_id")
		return
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year < 1900 {
		badRequest(w, "invalid year")
		return
	}

	positions, err := s.accounts.ListPositions(r.Context(), accountID)
	if err != nil {
		respondErr(w, err)
		return
	}
	symbols := make(map[uuid.UUID]string, len(positions))
	var dispositions []ledger.LotDisposition
	for _, p := range positions {
		symbols[p.ID] = p.Symbol
		ds, err := s.lots.Dispositions(r.Context(), p.ID)
		if err != nil {
			respondErr(w, err)
			return
		}
		dispositions = append(dispositions, ds...)
	}
	form, err := taxdoc.Build(year, dispositions, symbols)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, form)
}
