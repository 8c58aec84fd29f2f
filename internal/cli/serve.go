package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pharmalink/m/internal/api"
	"pharmalink/m/internal/auth"
	"pharmalink/m/internal/cache"
	"pharmalink/m/internal/repository"
	"pharmalink/m/internal/seed"
	"pharmalink/m/internal/service"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var medCache service.MedicationCache
	c, err := cache.Open(ctx, a.cfg.RedisAddr, a.cfg.RedisPass, a.cfg.CacheTTL, a.log)
	switch {
	case err != nil:
		a.log.Warn("redis unavailable, autocomplete cache disabled", zap.Error(err))
	case c != nil:
		defer c.Close()
		medCache = c
	}

	catalog := repository.NewCatalog(db)
	if a.cfg.CatalogCSV != "" {
		n, err := seed.LoadCatalogFile(ctx, catalog, a.cfg.CatalogCSV, a.log)
		switch {
		case err != nil:
			a.log.Warn("medication catalog not loaded", zap.Error(err))
		case n > 0 && c != nil:
			a.purgeMedicationCache(ctx, c)
		}
	}

	tx := repository.NewTxManager(db)
	inventory := repository.NewInventory(db)
	ledger := service.NewLedger(tx, catalog, inventory, a.log)
	handler := api.New(api.Deps{
		Accounts:     service.NewAccounts(tx, repository.NewUsers(db), catalog, a.log),
		Ledger:       ledger,
		Reservations: service.NewReservations(tx, catalog, repository.NewReservations(db), ledger, a.log),
		Search:       service.NewSearch(catalog, inventory, medCache, a.log),
		Tokens:       auth.NewTokens(a.cfg.Secret, a.cfg.TokenTTL),
		Log:          a.log,
		CORSOrigins:  a.cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("PharmaLink server starting", zap.String("addr", srv.Addr), zap.String("env", a.cfg.Env))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
