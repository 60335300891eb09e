package httpapi

import (
	"github.com/marwick/ledger/internal/service/account"
	"github.com/marwick/ledger/internal/service/lots"
	"github.com/marwick/ledger/internal/service/posting"
	"github.com/marwick/ledger/internal/service/reconcile"
)

// Store is the full storage surface the HTTP layer wires into the services.
// Both the memory and postgres stores satisfy it.
type Store interface {
	posting.Repo
	posting.Writer
	account.Repo
	account.Writer
	lots.Repo
	lots.Writer
	reconcile.TransactionRepo
	reconcile.TransactionWriter
	reconcile.SessionRepo
	reconcile.SessionWriter
}
