package memory

import (
	"github.com/marwick/ledger/internal/service/account"
	"github.com/marwick/ledger/internal/service/lots"
	"github.com/marwick/ledger/internal/service/posting"
	"github.com/marwick/ledger/internal/service/reconcile"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	// Service layer repos and writers
	_ posting.Repo                = (*Store)(nil)
	_ posting.Writer              = (*Store)(nil)
	_ account.Repo                = (*Store)(nil)
	_ account.Writer              = (*Store)(nil)
	_ lots.Repo                   = (*Store)(nil)
	_ lots.Writer                 = (*Store)(nil)
	_ reconcile.TransactionRepo   = (*Store)(nil)
	_ reconcile.TransactionWriter = (*Store)(nil)
	_ reconcile.SessionRepo       = (*Store)(nil)
	_ reconcile.SessionWriter     = (*Store)(nil)
)
