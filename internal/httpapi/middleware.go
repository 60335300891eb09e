package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/meta"
)

type ctxKey string

const (
	ctxKeyPostTransaction  ctxKey = "validatedPostTransaction"
	ctxKeyListTransactions ctxKey = "validatedListTransactions"
	ctxKeyPostAccount      ctxKey = "validatedPostAccount"
	ctxKeyListAccounts     ctxKey = "validatedListAccounts"
	ctxKeyTrialBalance     ctxKey = "validatedTrialBalance"
)

// validatePostTransaction decodes and validates POST /v1/transactions and
// stores the domain transaction in the request context for the handler.
func (s *Server) validatePostTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postTransactionRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					badRequest(w, err.Error())
					return
				}
			}
			txn, err := toTransactionDomain(req)
			if err != nil {
				badRequest(w, err.Error())
				return
			}
			if err := txn.Validate(); err != nil {
				respondErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostTransaction, txn)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateListTransactions parses query params for GET /v1/transactions.
func (s *Server) validateListTransactions() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entityID, ok := requireEntityID(w, r)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyListTransactions, listTransactionsQuery{EntityID: entityID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateTrialBalance parses GET /v1/trial-balance query.
func (s *Server) validateTrialBalance() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entityID, ok := requireEntityID(w, r)
			if !ok {
				return
			}
			asOf, ok := parseAsOf(w, r)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyTrialBalance, trialBalanceQuery{EntityID: entityID, AsOf: asOf})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostAccount decodes POST /v1/accounts and runs service validation.
func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postAccountRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.Metadata != nil {
				if err := meta.New(req.Metadata).Validate(); err != nil {
					badRequest(w, err.Error())
					return
				}
			}
			in := toAccountDomain(req)
			if err := s.accounts.ValidateCreate(in); err != nil {
				badRequest(w, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostAccount, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateListAccounts parses query params for GET /v1/accounts.
func (s *Server) validateListAccounts() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entityID, ok := requireEntityID(w, r)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyListAccounts, listAccountsQuery{EntityID: entityID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireEntityID extracts the entity_id query param, writing a 400 when
// missing or malformed.
func requireEntityID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("entity_id")
	if raw == "" {
		badRequest(w, "entity_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid entity_id")
		return uuid.Nil, false
	}
	return id, true
}

// parseAsOf extracts the optional as_of RFC3339 query param.
func parseAsOf(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		badRequest(w, "invalid as_of")
		return nil, false
	}
	tt := t.UTC()
	return &tt, true
}

func toAccountDomain(req postAccountRequest) ledger.Account {
	return ledger.Account{
		EntityID:    req.EntityID,
		Name:        req.Name,
		Currency:    req.Currency,
		Type:        req.Type,
		Group:       req.Group,
		Institution: req.Institution,
		Metadata:    meta.New(req.Metadata),
		System:      req.System,
	}
}

func toTransactionDomain(req postTransactionRequest) (ledger.Transaction, error) {
	txn := ledger.Transaction{
		EntityID: req.EntityID,
		Date:     req.Date,
		Memo:     req.Memo,
		Category: req.Category,
		Metadata: meta.New(req.Metadata),
	}
	for _, e := range req.Entries {
		entry := ledger.Entry{AccountID: e.AccountID, Memo: e.Memo}
		if e.Debit != nil {
			d, err := e.Debit.toDomain()
			if err != nil {
				return ledger.Transaction{}, err
			}
			entry.Debit = d
			entry.Credit = ledger.Zero(d.Currency())
		}
		if e.Credit != nil {
			c, err := e.Credit.toDomain()
			if err != nil {
				return ledger.Transaction{}, err
			}
			entry.Credit = c
			if e.Debit == nil {
				entry.Debit = ledger.Zero(c.Currency())
			}
		}
		if e.Debit == nil && e.Credit == nil {
			return ledger.Transaction{}, errs.ErrInvalid
		}
		txn.AddEntry(entry)
	}
	return txn, nil
}
