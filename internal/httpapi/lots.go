package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/service/lots"
)

func positionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid position id")
		return uuid.Nil, false
	}
	return id, true
}

// listLots returns the position's open lots in acquisition order.
func (s *Server) listLots(w http.ResponseWriter, r *http.Request) {
	positionID, ok := positionIDParam(w, r)
	if !ok {
		return
	}
	open, err := s.lots.OpenLots(r.Context(), positionID)
	if err != nil {
		respondErr(w, err)
		return
	}
	items := make([]lotResponse, 0, len(open))
	for _, l := range open {
		items = append(items, toLotResponse(l))
	}
	toJSON(w, http.StatusOK, items)
}

func (s *Server) getCostBasis(w http.ResponseWriter, r *http.Request) {
	positionID, ok := positionIDParam(w, r)
	if !ok {
		return
	}
	basis, err := s.lots.PositionCostBasis(r.Context(), positionID)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, struct {
		PositionID uuid.UUID    `json:"position_id"`
		CostBasis  ledger.Money `json:"cost_basis"`
	}{PositionID: positionID, CostBasis: basis})
}

func (s *Server) postAcquisition(w http.ResponseWriter, r *http.Request) {
	positionID, ok := positionIDParam(w, r)
	if !ok {
		return
	}
	var req postAcquisitionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	qty, err := ledger.ParseQuantity(req.Quantity)
	if err != nil {
		badRequest(w, "invalid quantity")
		return
	}
	cost, err := req.CostPerShare.toDomain()
	if err != nil {
		badRequest(w, "invalid cost_per_share")
		return
	}
	lot, err := s.lots.RecordAcquisition(r.Context(), positionID, req.Date, qty, cost, req.AcquisitionType)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toLotResponse(lot))
}

// matchSale previews which lots a sale would draw from without mutating them.
func (s *Server) matchSale(w http.ResponseWriter, r *http.Request) {
	positionID, ok := positionIDParam(w, r)
	if !ok {
		return
	}
	var req matchSaleRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	qty, err := ledger.ParseQuantity(req.Quantity)
	if err != nil {
		badRequest(w, "invalid quantity")
		return
	}
	method, err := lots.ParseSelectionMethod(req.Method)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	matched, err := s.lots.MatchSale(r.Context(), positionID, qty, method, req.LotIDs)
	if err != nil {
		respondErr(w, err)
		return
	}
	items := make([]lotResponse, 0, len(matched))
	for _, l := range matched {
		items = append(items, toLotResponse(l))
	}
	toJSON(w, http.StatusOK, items)
}

// sell executes a sale, returning the realized dispositions.
func (s *Server) sell(w http.ResponseWriter, r *http.Request) {
	positionID, ok := positionIDParam(w, r)
	if !ok {
		return
	}
	var req sellRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	qty, err := ledger.ParseQuantity(req.Quantity)
	if err != nil {
		badRequest(w, "invalid quantity")
		return
	}
	proceeds, err := req.Proceeds.toDomain()
	if err != nil {
		badRequest(w, "invalid proceeds")
		return
	}
	method, err := lots.ParseSelectionMethod(req.Method)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	dispositions, err := s.lots.ExecuteSale(r.Context(), positionID, qty, proceeds, req.Date, method, req.LotIDs)
	if err != nil {
		respondErr(w, err)
		return
	}
	items := make([]dispositionResponse, 0, len(dispositions))
	for _, d := range dispositions {
		resp, err := toDispositionResponse(d)
		if err != nil {
			respondErr(w, err)
			return
		}
		items = append(items, resp)
	}
	toJSON(w, http.StatusOK, items)
}

// washSaleCandidates lists replacement lots acquired within the 30-day window
// around a loss sale.
func (s *Server) washSaleCandidates(w http.ResponseWriter, r *http.Request) {
	positionID, ok := positionIDParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	saleDate, err := time.Parse(time.RFC3339, q.Get("sale_date"))
	if err != nil {
		badRequest(w, "invalid sale_date")
		return
	}
	loss, err := ledger.ParseMoney(q.Get("loss"), q.Get("currency"))
	if err != nil {
		badRequest(w, "invalid loss")
		return
	}
	candidates, err := s.lots.DetectWashSales(r.Context(), positionID, saleDate, loss)
	if err != nil {
		respondErr(w, err)
		return
	}
	items := make([]lotResponse, 0, len(candidates))
	for _, l := range candidates {
		items = append(items, toLotResponse(l))
	}
	toJSON(w, http.StatusOK, items)
}

func (s *Server) splitLot(w http.ResponseWriter, r *http.Request) {
	lotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid lot id")
		return
	}
	var req splitRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	lot, err := s.lots.ApplySplit(r.Context(), lotID, req.Numerator, req.Denominator)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toLotResponse(lot))
}

func (s *Server) markWashSale(w http.ResponseWriter, r *http.Request) {
	lotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid lot id")
		return
	}
	var req washSaleRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	loss, err := req.DisallowedLoss.toDomain()
	if err != nil {
		badRequest(w, "invalid disallowed_loss")
		return
	}
	lot, err := s.lots.MarkWashSale(r.Context(), lotID, loss)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toLotResponse(lot))
}
