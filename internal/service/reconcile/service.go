// Package reconcile matches imported bank/brokerage records against posted
// ledger transactions and drives the stateful confirm/reject/skip review
// workflow.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/slug"
)

// TransactionRepo reads candidate ledger transactions.
type TransactionRepo interface {
	// TransactionsByAccountID returns transactions touching the account,
	// ordered ascending by (date, id). Suggestion tie-breaks depend on
	// this order: strict greater-than scoring means the earliest of equal
	// candidates wins.
	TransactionsByAccountID(ctx context.Context, accountID uuid.UUID) ([]ledger.Transaction, error)
	GetTransaction(ctx context.Context, txnID uuid.UUID) (ledger.Transaction, error)
}

// TransactionWriter updates a confirmed transaction's reference field.
type TransactionWriter interface {
	UpdateTransaction(ctx context.Context, txn ledger.Transaction) (ledger.Transaction, error)
}

// SessionRepo reads reconciliation sessions.
type SessionRepo interface {
	SessionByID(ctx context.Context, sessionID uuid.UUID) (ledger.ReconciliationSession, error)
	PendingSessionByAccount(ctx context.Context, accountID uuid.UUID) (ledger.ReconciliationSession, bool, error)
}

// SessionWriter persists sessions and match-state changes.
type SessionWriter interface {
	// CreateSession persists the session together with its matches.
	CreateSession(ctx context.Context, session ledger.ReconciliationSession) (ledger.ReconciliationSession, error)
	UpdateSessionStatus(ctx context.Context, sessionID uuid.UUID, status ledger.SessionStatus) error
	UpdateMatch(ctx context.Context, match ledger.ReconciliationMatch) error
}

// Service drives reconciliation sessions: scoring on creation, then the
// per-match review workflow until the session reaches a terminal state.
type Service interface {
	CreateSession(ctx context.Context, accountID uuid.UUID, fileName string, records []ledger.ImportedRecord) (ledger.ReconciliationSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (ledger.ReconciliationSession, error)
	ConfirmMatch(ctx context.Context, sessionID, matchID uuid.UUID) (ledger.ReconciliationMatch, error)
	RejectMatch(ctx context.Context, sessionID, matchID uuid.UUID) (ledger.ReconciliationMatch, error)
	SkipMatch(ctx context.Context, sessionID, matchID uuid.UUID) (ledger.ReconciliationMatch, error)
	CloseSession(ctx context.Context, sessionID uuid.UUID) (ledger.ReconciliationSession, error)
}

type service struct {
	txnRepo   TransactionRepo
	txnWriter TransactionWriter
	repo      SessionRepo
	writer    SessionWriter
}

func New(txnRepo TransactionRepo, txnWriter TransactionWriter, repo SessionRepo, writer SessionWriter) Service {
	return &service{txnRepo: txnRepo, txnWriter: txnWriter, repo: repo, writer: writer}
}

// CreateSession scores every imported record against the account's
// transactions and persists the session with one pending match per record.
// An account can have only one pending session at a time.
func (s *service) CreateSession(ctx context.Context, accountID uuid.UUID, fileName string, records []ledger.ImportedRecord) (ledger.ReconciliationSession, error) {
	if accountID == uuid.Nil || len(records) == 0 {
		return ledger.ReconciliationSession{}, errs.ErrInvalid
	}
	if _, exists, err := s.repo.PendingSessionByAccount(ctx, accountID); err != nil {
		return ledger.ReconciliationSession{}, err
	} else if exists {
		return ledger.ReconciliationSession{}, errs.ErrConflict
	}
	candidates, err := s.txnRepo.TransactionsByAccountID(ctx, accountID)
	if err != nil {
		return ledger.ReconciliationSession{}, err
	}

	session := ledger.ReconciliationSession{
		ID:        uuid.New(),
		AccountID: accountID,
		FileName:  fileName,
		Status:    ledger.SessionStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	for _, rec := range records {
		match := ledger.ReconciliationMatch{
			ID:        uuid.New(),
			SessionID: session.ID,
			Record:    rec,
			Status:    ledger.MatchStatusPending,
		}
		best := 0
		for i := range candidates {
			// strict > : the first (earliest) of equal scores wins.
			if sc := Score(rec, &candidates[i], accountID); sc > best {
				best = sc
				id := candidates[i].ID
				match.SuggestedTransactionID = &id
			}
		}
		match.Score = best
		match.Matched = Matched(best)
		session.Matches = append(session.Matches, match)
	}
	return s.writer.CreateSession(ctx, session)
}

func (s *service) GetSession(ctx context.Context, sessionID uuid.UUID) (ledger.ReconciliationSession, error) {
	if sessionID == uuid.Nil {
		return ledger.ReconciliationSession{}, errs.ErrInvalid
	}
	return s.repo.SessionByID(ctx, sessionID)
}

// ConfirmMatch marks the imported record as the same event as the suggested
// transaction. Instead of posting a duplicate, it appends an import-tracking
// token to the transaction's reference, semicolon-delimited.
func (s *service) ConfirmMatch(ctx context.Context, sessionID, matchID uuid.UUID) (ledger.ReconciliationMatch, error) {
	session, match, err := s.loadMatch(ctx, sessionID, matchID)
	if err != nil {
		return ledger.ReconciliationMatch{}, err
	}
	if match.SuggestedTransactionID == nil {
		return ledger.ReconciliationMatch{}, errs.ErrInvalid
	}
	txn, err := s.txnRepo.GetTransaction(ctx, *match.SuggestedTransactionID)
	if err != nil {
		return ledger.ReconciliationMatch{}, err
	}
	token := importToken(session.FileName, match.Record.ExternalRef)
	if txn.Reference == "" {
		txn.Reference = token
	} else {
		txn.Reference = txn.Reference + ";" + token
	}
	if _, err := s.txnWriter.UpdateTransaction(ctx, txn); err != nil {
		return ledger.ReconciliationMatch{}, err
	}
	return s.transitionMatch(ctx, session, match, ledger.MatchStatusConfirmed)
}

// RejectMatch marks the record as not represented by the suggestion.
func (s *service) RejectMatch(ctx context.Context, sessionID, matchID uuid.UUID) (ledger.ReconciliationMatch, error) {
	session, match, err := s.loadMatch(ctx, sessionID, matchID)
	if err != nil {
		return ledger.ReconciliationMatch{}, err
	}
	return s.transitionMatch(ctx, session, match, ledger.MatchStatusRejected)
}

// SkipMatch defers the decision. Skipped matches may be confirmed or
// rejected later; they keep the session from auto-completing.
func (s *service) SkipMatch(ctx context.Context, sessionID, matchID uuid.UUID) (ledger.ReconciliationMatch, error) {
	session, match, err := s.loadMatch(ctx, sessionID, matchID)
	if err != nil {
		return ledger.ReconciliationMatch{}, err
	}
	return s.transitionMatch(ctx, session, match, ledger.MatchStatusSkipped)
}

// CloseSession forces a terminal state: completed when nothing is left
// pending or skipped, abandoned otherwise.
func (s *service) CloseSession(ctx context.Context, sessionID uuid.UUID) (ledger.ReconciliationSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return ledger.ReconciliationSession{}, err
	}
	status := ledger.SessionStatusAbandoned
	if session.Resolved() {
		status = ledger.SessionStatusCompleted
	}
	if err := s.writer.UpdateSessionStatus(ctx, session.ID, status); err != nil {
		return ledger.ReconciliationSession{}, err
	}
	session.Status = status
	return session, nil
}

func (s *service) loadMatch(ctx context.Context, sessionID, matchID uuid.UUID) (ledger.ReconciliationSession, ledger.ReconciliationMatch, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return ledger.ReconciliationSession{}, ledger.ReconciliationMatch{}, err
	}
	match, ok := session.MatchByID(matchID)
	if !ok {
		return ledger.ReconciliationSession{}, ledger.ReconciliationMatch{}, errs.ErrNotFound
	}
	return session, match, nil
}

// transitionMatch persists the match status and auto-completes the session
// once every match is confirmed or rejected.
func (s *service) transitionMatch(ctx context.Context, session ledger.ReconciliationSession, match ledger.ReconciliationMatch, status ledger.MatchStatus) (ledger.ReconciliationMatch, error) {
	match.Status = status
	if err := s.writer.UpdateMatch(ctx, match); err != nil {
		return ledger.ReconciliationMatch{}, err
	}
	for i := range session.Matches {
		if session.Matches[i].ID == match.ID {
			session.Matches[i].Status = status
		}
	}
	if session.Status == ledger.SessionStatusPending && session.Resolved() {
		if err := s.writer.UpdateSessionStatus(ctx, session.ID, ledger.SessionStatusCompleted); err != nil {
			return ledger.ReconciliationMatch{}, err
		}
	}
	return match, nil
}

// importToken builds the reference token recorded on a confirmed
// transaction: import:<file>:<external ref>, slugified.
func importToken(fileName, externalRef string) string {
	return "import:" + slug.Slugify(fileName) + ":" + slug.Slugify(externalRef)
}
