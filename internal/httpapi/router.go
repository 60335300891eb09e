// Package httpapi wires the HTTP surface of the ledger service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marwick/ledger/internal/service/account"
	"github.com/marwick/ledger/internal/service/lots"
	"github.com/marwick/ledger/internal/service/posting"
	"github.com/marwick/ledger/internal/service/reconcile"
)

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	posting  posting.Service
	accounts account.Service
	lots     lots.Service
	recon    reconcile.Service
	store    Store
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(store Store, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		posting:  posting.New(store, store),
		accounts: account.New(store, store),
		lots:     lots.New(store, store),
		recon:    reconcile.New(store, store, store, store),
		store:    store,
		log:      logger,
		rt:       r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Transactions
	s.rt.With(s.validatePostTransaction()).Post("/v1/transactions", s.postTransaction)
	s.rt.With(s.validateListTransactions()).Get("/v1/transactions", s.listTransactions)
	s.rt.Get("/v1/transactions/{id}", s.getTransaction)
	s.rt.Post("/v1/transactions/{id}/reverse", s.reverseTransaction)
	s.rt.Patch("/v1/transactions/{id}/category", s.recategorizeTransaction)
	s.rt.With(s.validateTrialBalance()).Get("/v1/trial-balance", s.trialBalance)
	// Accounts
	s.rt.With(s.validatePostAccount()).Post("/v1/accounts", s.postAccount)
	s.rt.With(s.validateListAccounts()).Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Get("/v1/accounts/{id}/balance", s.getAccountBalance)
	s.rt.Delete("/v1/accounts/{id}", s.deactivateAccount)
	// Positions and lots
	s.rt.Post("/v1/positions", s.postPosition)
	s.rt.Get("/v1/positions", s.listPositions)
	s.rt.Get("/v1/positions/{id}/lots", s.listLots)
	s.rt.Get("/v1/positions/{id}/cost-basis", s.getCostBasis)
	s.rt.Post("/v1/positions/{id}/acquisitions", s.postAcquisition)
	s.rt.Post("/v1/positions/{id}/match-sale", s.matchSale)
	s.rt.Post("/v1/positions/{id}/sell", s.sell)
	s.rt.Get("/v1/positions/{id}/wash-sale-candidates", s.washSaleCandidates)
	s.rt.Post("/v1/lots/{id}/split", s.splitLot)
	s.rt.Post("/v1/lots/{id}/wash-sale", s.markWashSale)
	// Reconciliation
	s.rt.Post("/v1/reconciliations", s.postReconciliation)
	s.rt.Get("/v1/reconciliations/{id}", s.getReconciliation)
	s.rt.Post("/v1/reconciliations/{id}/matches/{matchID}/confirm", s.confirmMatch)
	s.rt.Post("/v1/reconciliations/{id}/matches/{matchID}/reject", s.rejectMatch)
	s.rt.Post("/v1/reconciliations/{id}/matches/{matchID}/skip", s.skipMatch)
	s.rt.Post("/v1/reconciliations/{id}/close", s.closeReconciliation)
	// Tax documents
	s.rt.Get("/v1/tax/form8949", s.form8949)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
