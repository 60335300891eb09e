package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/meta"
)

// postTransaction posts a validated transaction from the request context.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	txn, ok := r.Context().Value(ctxKeyPostTransaction).(ledger.Transaction)
	if !ok {
		badRequest(w, "missing validated payload")
		return
	}
	created, err := s.posting.PostTransaction(r.Context(), txn)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q, ok := r.Context().Value(ctxKeyListTransactions).(listTransactionsQuery)
	if !ok {
		badRequest(w, "missing validated query")
		return
	}
	txns, err := s.posting.ListTransactions(r.Context(), q.EntityID)
	if err != nil {
		respondErr(w, err)
		return
	}
	items := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		items = append(items, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, listTransactionsResponse{Items: items})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	txnID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid transaction id")
		return
	}
	entityID, ok := requireEntityID(w, r)
	if !ok {
		return
	}
	txn, err := s.posting.GetTransaction(r.Context(), entityID, txnID)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(txn))
}

// reverseTransaction posts the debit/credit mirror of an existing transaction.
func (s *Server) reverseTransaction(w http.ResponseWriter, r *http.Request) {
	txnID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid transaction id")
		return
	}
	var req reverseTransactionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.EntityID == uuid.Nil {
		badRequest(w, "entity_id is required")
		return
	}
	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}
	rev, err := s.posting.ReverseTransaction(r.Context(), req.EntityID, txnID, date)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toTransactionResponse(rev))
}

// recategorizeTransaction changes category/metadata, the only mutation a
// posted transaction allows.
func (s *Server) recategorizeTransaction(w http.ResponseWriter, r *http.Request) {
	txnID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid transaction id")
		return
	}
	var req recategorizeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.EntityID == uuid.Nil {
		badRequest(w, "entity_id is required")
		return
	}
	txn, err := s.posting.Recategorize(r.Context(), req.EntityID, txnID, req.Category, meta.New(req.Metadata))
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(txn))
}

// trialBalance reports per-account net balances for an entity.
func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	q, ok := r.Context().Value(ctxKeyTrialBalance).(trialBalanceQuery)
	if !ok {
		badRequest(w, "missing validated query")
		return
	}
	balances, err := s.posting.TrialBalance(r.Context(), q.EntityID, q.AsOf)
	if err != nil {
		respondErr(w, err)
		return
	}
	accounts, err := s.accounts.List(r.Context(), q.EntityID)
	if err != nil {
		respondErr(w, err)
		return
	}
	resp := trialBalanceResponse{EntityID: q.EntityID, AsOf: q.AsOf, Accounts: make([]trialBalanceAccount, 0, len(balances))}
	for _, a := range accounts {
		bal, ok := balances[a.ID]
		if !ok {
			continue
		}
		resp.Accounts = append(resp.Accounts, trialBalanceAccount{
			AccountID: a.ID,
			Name:      a.Name,
			Path:      a.Path(),
			Balance:   bal,
		})
	}
	toJSON(w, http.StatusOK, resp)
}

func (s *Server) getAccountBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	entityID, ok := requireEntityID(w, r)
	if !ok {
		return
	}
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	bal, err := s.posting.AccountBalance(r.Context(), entityID, accountID, asOf)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, accountBalanceResponse{AccountID: accountID, AsOf: asOf, Balance: bal})
}
