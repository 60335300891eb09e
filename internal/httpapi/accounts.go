package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
)

func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostAccount).(ledger.Account)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	created, err := s.accounts.Create(r.Context(), in)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	q, ok := r.Context().Value(ctxKeyListAccounts).(listAccountsQuery)
	if !ok {
		badRequest(w, "missing validated query")
		return
	}
	accs, err := s.accounts.List(r.Context(), q.EntityID)
	if err != nil {
		respondErr(w, err)
		return
	}
	items := make([]accountResponse, 0, len(accs))
	for _, a := range accs {
		items = append(items, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, items)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	entityID, ok := requireEntityID(w, r)
	if !ok {
		return
	}
	a, err := s.accounts.Get(r.Context(), entityID, accountID)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

// deactivateAccount soft-deletes; system accounts are refused with 409.
func (s *Server) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	entityID, ok := requireEntityID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Deactivate(r.Context(), entityID, accountID); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postPosition(w http.ResponseWriter, r *http.Request) {
	var req postPositionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	p, err := s.accounts.CreatePosition(r.Context(), req.EntityID, req.AccountID, req.Symbol, req.Currency)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toPositionResponse(p))
}

func (s *Server) listPositions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("account_id")
	if raw == "" {
		badRequest(w, "account_id is required")
		return
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid account_id")
		return
	}
	positions, err := s.accounts.ListPositions(r.Context(), accountID)
	if err != nil {
		respondErr(w, err)
		return
	}
	items := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		items = append(items, toPositionResponse(p))
	}
	toJSON(w, http.StatusOK, items)
}
