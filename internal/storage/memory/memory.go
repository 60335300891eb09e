package memory

// Package memory provides a simple in-memory implementation used for development and tests.
// It keeps code paths easy to follow while allowing us to plug in a real DB later.
import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/errs"
	"github.com/marwick/ledger/internal/ledger"
)

// txnKey tracks ordering for transactions per entity: sorted asc by (Date, ID)
type txnKey struct {
	Date time.Time
	ID   uuid.UUID
}

// Store is an in-memory implementation of every repository+writer used by the
// services. It is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
	mu        sync.RWMutex
	entities  map[uuid.UUID]ledger.Entity
	accounts  map[uuid.UUID]ledger.Account
	positions map[uuid.UUID]ledger.Position
	txns      map[uuid.UUID]*ledger.Transaction
	lots      map[uuid.UUID]*ledger.TaxLot
	sessions  map[uuid.UUID]*ledger.ReconciliationSession
	// Realized sale records per position, in execution order
	dispositions map[uuid.UUID][]ledger.LotDisposition
	// Per-entity sorted index of transactions for ordered scans
	txnKeysByEntity map[uuid.UUID][]txnKey
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		entities:        make(map[uuid.UUID]ledger.Entity),
		accounts:        make(map[uuid.UUID]ledger.Account),
		positions:       make(map[uuid.UUID]ledger.Position),
		txns:            make(map[uuid.UUID]*ledger.Transaction),
		lots:            make(map[uuid.UUID]*ledger.TaxLot),
		sessions:        make(map[uuid.UUID]*ledger.ReconciliationSession),
		dispositions:    make(map[uuid.UUID][]ledger.LotDisposition),
		txnKeysByEntity: make(map[uuid.UUID][]txnKey),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedEntity(e ledger.Entity)     { s.mu.Lock(); s.entities[e.ID] = e; s.mu.Unlock() }
func (s *Store) SeedAccount(a ledger.Account)   { s.mu.Lock(); s.accounts[a.ID] = a; s.mu.Unlock() }
func (s *Store) SeedPosition(p ledger.Position) { s.mu.Lock(); s.positions[p.ID] = p; s.mu.Unlock() }

func (s *Store) SeedLot(l ledger.TaxLot) {
	s.mu.Lock()
	cp := l
	s.lots[cp.ID] = &cp
	s.mu.Unlock()
}

func (s *Store) SeedTransaction(t ledger.Transaction) {
	s.mu.Lock()
	cp := t
	s.txns[cp.ID] = &cp
	s.insertTxnIndexLocked(cp.EntityID, txnKey{Date: cp.Date, ID: cp.ID})
	s.mu.Unlock()
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.entities = map[uuid.UUID]ledger.Entity{}
	s.accounts = map[uuid.UUID]ledger.Account{}
	s.positions = map[uuid.UUID]ledger.Position{}
	s.txns = map[uuid.UUID]*ledger.Transaction{}
	s.lots = map[uuid.UUID]*ledger.TaxLot{}
	s.sessions = map[uuid.UUID]*ledger.ReconciliationSession{}
	s.dispositions = map[uuid.UUID][]ledger.LotDisposition{}
	s.txnKeysByEntity = map[uuid.UUID][]txnKey{}
	s.mu.Unlock()
}

// ListEntities returns all entities.
func (s *Store) ListEntities(_ context.Context) ([]ledger.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AccountsByIDs implements posting.Repo.
func (s *Store) AccountsByIDs(_ context.Context, entityID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if acc, ok := s.accounts[id]; ok && acc.EntityID == entityID {
			out[id] = acc
		}
	}
	return out, nil
}

// ListAccounts implements account.Repo.
func (s *Store) ListAccounts(_ context.Context, entityID uuid.UUID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0)
	for _, a := range s.accounts {
		if a.EntityID == entityID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out, nil
}

// GetAccount returns an entity's account by ID.
func (s *Store) GetAccount(_ context.Context, entityID, accountID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.EntityID != entityID {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// CreateAccount persists a new account.
func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return a, nil
}

// UpdateAccount persists changes to an account.
func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	s.accounts[a.ID] = a
	return a, nil
}

// ListPositions implements account.Repo.
func (s *Store) ListPositions(_ context.Context, accountID uuid.UUID) ([]ledger.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Position, 0)
	for _, p := range s.positions {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// GetPosition returns a position by ID.
func (s *Store) GetPosition(_ context.Context, positionID uuid.UUID) (ledger.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[positionID]
	if !ok {
		return ledger.Position{}, errs.ErrNotFound
	}
	return p, nil
}

// CreatePosition persists a new position.
func (s *Store) CreatePosition(_ context.Context, p ledger.Position) (ledger.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = p
	return p, nil
}

// CreateTransaction implements posting.Writer. The transaction and its
// entries are stored as one value, so the write is atomic by construction.
func (s *Store) CreateTransaction(_ context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := txn
	s.txns[t.ID] = &t
	s.insertTxnIndexLocked(t.EntityID, txnKey{Date: t.Date, ID: t.ID})
	return t, nil
}

// UpdateTransaction replaces an existing transaction by ID.
func (s *Store) UpdateTransaction(_ context.Context, txn ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txns[txn.ID]; !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	t := txn
	s.txns[txn.ID] = &t
	return t, nil
}

// TransactionsByEntityID returns all transactions for an entity asc by (Date, ID).
func (s *Store) TransactionsByEntityID(_ context.Context, entityID uuid.UUID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.txnKeysByEntity[entityID]
	out := make([]ledger.Transaction, 0, len(keys))
	for _, k := range keys {
		if t, ok := s.txns[k.ID]; ok && t.EntityID == entityID {
			out = append(out, *t)
		}
	}
	return out, nil
}

// TransactionByID returns a single transaction scoped to an entity.
func (s *Store) TransactionByID(_ context.Context, entityID, txnID uuid.UUID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[txnID]
	if !ok || t.EntityID != entityID {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return *t, nil
}

// GetTransaction implements reconcile.TransactionRepo: unscoped lookup by ID.
func (s *Store) GetTransaction(_ context.Context, txnID uuid.UUID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[txnID]
	if !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return *t, nil
}

// TransactionsByAccountID returns transactions with at least one entry against
// the account, asc by (Date, ID).
func (s *Store) TransactionsByAccountID(_ context.Context, accountID uuid.UUID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, 0)
	for _, t := range s.txns {
		for _, e := range t.Entries {
			if e.AccountID == accountID {
				out = append(out, *t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// CreateLot implements lots.Writer.
func (s *Store) CreateLot(_ context.Context, lot ledger.TaxLot) (ledger.TaxLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := lot
	s.lots[l.ID] = &l
	return l, nil
}

// LotByID returns a lot by ID.
func (s *Store) LotByID(_ context.Context, lotID uuid.UUID) (ledger.TaxLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lots[lotID]
	if !ok {
		return ledger.TaxLot{}, errs.ErrNotFound
	}
	return *l, nil
}

// LotsByPosition returns a position's lots asc by (AcquisitionDate, ID).
func (s *Store) LotsByPosition(_ context.Context, positionID uuid.UUID) ([]ledger.TaxLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lotsByPositionLocked(positionID), nil
}

// LotsAcquiredInWindow returns lots acquired within [from, to] inclusive.
func (s *Store) LotsAcquiredInWindow(_ context.Context, positionID uuid.UUID, from, to time.Time) ([]ledger.TaxLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.lotsByPositionLocked(positionID)
	out := make([]ledger.TaxLot, 0, len(all))
	for _, l := range all {
		if l.AcquisitionDate.Before(from) || l.AcquisitionDate.After(to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// SaveLots implements lots.Writer: the whole batch succeeds or fails under one
// lock. A stale version on any lot rejects the batch with errs.ErrConflict.
func (s *Store) SaveLots(_ context.Context, lots []ledger.TaxLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range lots {
		existing, ok := s.lots[lots[i].ID]
		if !ok {
			return errs.ErrNotFound
		}
		if existing.Version != lots[i].Version {
			return errs.ErrConflict
		}
	}
	for i := range lots {
		l := lots[i]
		l.Version++
		s.lots[l.ID] = &l
	}
	return nil
}

// RecordDispositions appends realized sale records.
func (s *Store) RecordDispositions(_ context.Context, dispositions []ledger.LotDisposition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range dispositions {
		s.dispositions[d.PositionID] = append(s.dispositions[d.PositionID], d)
	}
	return nil
}

// DispositionsByPosition returns recorded dispositions asc by disposition date.
func (s *Store) DispositionsByPosition(_ context.Context, positionID uuid.UUID) ([]ledger.LotDisposition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.dispositions[positionID]
	out := make([]ledger.LotDisposition, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DispositionDate.Before(out[j].DispositionDate)
	})
	return out, nil
}

// CreateSession implements reconcile.SessionWriter; the session owns its
// matches, so they are stored together.
func (s *Store) CreateSession(_ context.Context, session ledger.ReconciliationSession) (ledger.ReconciliationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := session
	cp.Matches = make([]ledger.ReconciliationMatch, len(session.Matches))
	copy(cp.Matches, session.Matches)
	s.sessions[cp.ID] = &cp
	return session, nil
}

// SessionByID returns a session with its matches.
func (s *Store) SessionByID(_ context.Context, sessionID uuid.UUID) (ledger.ReconciliationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ledger.ReconciliationSession{}, errs.ErrNotFound
	}
	out := *sess
	out.Matches = make([]ledger.ReconciliationMatch, len(sess.Matches))
	copy(out.Matches, sess.Matches)
	return out, nil
}

// PendingSessionByAccount reports whether the account has a pending session.
func (s *Store) PendingSessionByAccount(_ context.Context, accountID uuid.UUID) (ledger.ReconciliationSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.AccountID == accountID && sess.Status == ledger.SessionStatusPending {
			return *sess, true, nil
		}
	}
	return ledger.ReconciliationSession{}, false, nil
}

// UpdateSessionStatus moves a session to a new status.
func (s *Store) UpdateSessionStatus(_ context.Context, sessionID uuid.UUID, status ledger.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return errs.ErrNotFound
	}
	sess.Status = status
	return nil
}

// UpdateMatch replaces a match inside its owning session.
func (s *Store) UpdateMatch(_ context.Context, match ledger.ReconciliationMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[match.SessionID]
	if !ok {
		return errs.ErrNotFound
	}
	for i := range sess.Matches {
		if sess.Matches[i].ID == match.ID {
			sess.Matches[i] = match
			return nil
		}
	}
	return errs.ErrNotFound
}

// DeleteSession removes a session and, with it, its matches.
func (s *Store) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// lotsByPositionLocked returns copies sorted asc by (AcquisitionDate, ID).
// Caller must hold s.mu (read lock).
func (s *Store) lotsByPositionLocked(positionID uuid.UUID) []ledger.TaxLot {
	out := make([]ledger.TaxLot, 0)
	for _, l := range s.lots {
		if l.PositionID == positionID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AcquisitionDate.Equal(out[j].AcquisitionDate) {
			return out[i].AcquisitionDate.Before(out[j].AcquisitionDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// insertTxnIndexLocked inserts k into the per-entity sorted index, keeping order asc by (Date, ID).
// Caller must hold s.mu (write lock).
func (s *Store) insertTxnIndexLocked(entityID uuid.UUID, k txnKey) {
	keys := s.txnKeysByEntity[entityID]
	i := sort.Search(len(keys), func(i int) bool {
		if keys[i].Date.After(k.Date) {
			return true
		}
		if keys[i].Date.Equal(k.Date) {
			return keys[i].ID.String() > k.ID.String()
		}
		return false
	})
	if i == len(keys) {
		s.txnKeysByEntity[entityID] = append(keys, k)
		return
	}
	keys = append(keys, txnKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	s.txnKeysByEntity[entityID] = keys
}
