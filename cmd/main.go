package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/httpapi"
	"github.com/marwick/ledger/internal/ledger"
	"github.com/marwick/ledger/internal/storage/memory"
	pgstore "github.com/marwick/ledger/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var srvMux http.Handler
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		// Use Postgres store when DATABASE_URL is provided
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = func() { pg.Close() }
		// Optional dev seed for compose/local
		if dev := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED"))); dev == "1" || dev == "true" || dev == "yes" {
			entity, accs, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", entity, accs)
				printDevSeedBanner(entity, accs)
			}
		}
		srvMux = httpapi.New(pg, logger).Handler()
		logger.Info("storage backend: postgres")
	} else {
		// Default to in-memory store with a small dev seed
		store := memory.New()
		entity := ledger.Entity{ID: uuid.New(), Name: "Dev Family Trust", Kind: ledger.EntityKindTrust}
		store.SeedEntity(entity)
		opening := ledger.Account{ID: uuid.New(), EntityID: entity.ID, Name: "Opening Balances", Currency: "USD", Type: ledger.AccountTypeEquity, Group: "opening_balances", Institution: "System", System: true, Active: true}
		checking := ledger.Account{ID: uuid.New(), EntityID: entity.ID, Name: "Checking", Currency: "USD", Type: ledger.AccountTypeAsset, Group: "checking", Institution: "First National", Active: true}
		brokerage := ledger.Account{ID: uuid.New(), EntityID: entity.ID, Name: "Brokerage", Currency: "USD", Type: ledger.AccountTypeAsset, Group: "brokerage", Institution: "Vanguard", Active: true}
		store.SeedAccount(opening)
		store.SeedAccount(checking)
		store.SeedAccount(brokerage)
		logDevSeed(logger, "memory", entity, []ledger.Account{opening, checking, brokerage})
		printDevSeedBanner(entity, []ledger.Account{opening, checking, brokerage})
		srvMux = httpapi.New(store, logger).Handler()
		logger.Info("storage backend: memory")
	}

	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           srvMux,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, entity ledger.Entity, accs []ledger.Account) {
	ids := map[string]string{}
	for _, a := range accs {
		if a.System && strings.EqualFold(a.Group, "opening_balances") {
			ids["opening_balances_account_id"] = a.ID.String()
		}
		if a.Type == ledger.AccountTypeAsset && strings.EqualFold(a.Group, "checking") {
			ids["checking_account_id"] = a.ID.String()
		}
		if a.Type == ledger.AccountTypeAsset && strings.EqualFold(a.Group, "brokerage") {
			ids["brokerage_account_id"] = a.ID.String()
		}
	}
	l.Info("DEV seed ("+backend+")", "entity_id", entity.ID.String(), "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(entity ledger.Entity, accs []ledger.Account) {
	var openingID, checkingID, brokerageID string
	for _, a := range accs {
		if a.System && strings.EqualFold(a.Group, "opening_balances") {
			openingID = a.ID.String()
		}
		if a.Type == ledger.AccountTypeAsset && strings.EqualFold(a.Group, "checking") {
			checkingID = a.ID.String()
		}
		if a.Type == ledger.AccountTypeAsset && strings.EqualFold(a.Group, "brokerage") {
			brokerageID = a.ID.String()
		}
	}
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("entity_id: %s\n", entity.ID.String())
	if openingID != "" {
		fmt.Printf("opening_balances_account_id: %s\n", openingID)
	}
	if checkingID != "" {
		fmt.Printf("checking_account_id: %s\n", checkingID)
	}
	if brokerageID != "" {
		fmt.Printf("brokerage_account_id: %s\n", brokerageID)
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
