package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
)

// postReconciliation scores a batch of imported records against the ledger
// and opens a review session.
func (s *Server) postReconciliation(w http.ResponseWriter, r *http.Request) {
	var req postReconciliationRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	records := make([]ledger.ImportedRecord, 0, len(req.Records))
	for _, rec := range req.Records {
		amount, err := rec.Amount.toDomain()
		if err != nil {
			badRequest(w, "invalid record amount")
			return
		}
		records = append(records, ledger.ImportedRecord{
			ExternalRef: rec.ExternalRef,
			Date:        rec.Date,
			Amount:      amount,
			Description: rec.Description,
		})
	}
	session, err := s.recon.CreateSession(r.Context(), req.AccountID, req.FileName, records)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) getReconciliation(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	session, err := s.recon.GetSession(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) confirmMatch(w http.ResponseWriter, r *http.Request) {
	s.actOnMatch(w, r, s.recon.ConfirmMatch)
}

func (s *Server) rejectMatch(w http.ResponseWriter, r *http.Request) {
	s.actOnMatch(w, r, s.recon.RejectMatch)
}

func (s *Server) skipMatch(w http.ResponseWriter, r *http.Request) {
	s.actOnMatch(w, r, s.recon.SkipMatch)
}

// actOnMatch resolves the session/match path params and applies one of the
// confirm/reject/skip service operations.
func (s *Server) actOnMatch(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, sessionID, matchID uuid.UUID) (ledger.ReconciliationMatch, error)) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		badRequest(w, "invalid match id")
		return
	}
	match, err := action(r.Context(), sessionID, matchID)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, matchResponse{
		ID:                     match.ID,
		ExternalRef:            match.Record.ExternalRef,
		Date:                   match.Record.Date,
		Amount:                 match.Record.Amount,
		Description:            match.Record.Description,
		SuggestedTransactionID: match.SuggestedTransactionID,
		Score:                  match.Score,
		Matched:                match.Matched,
		Status:                 match.Status,
	})
}

func (s *Server) closeReconciliation(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	session, err := s.recon.CloseSession(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSessionResponse(session))
}
