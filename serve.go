package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/billbatista/easychore/api"
	"github.com/billbatista/easychore/config"
	"github.com/billbatista/easychore/eventlogger"
	"github.com/billbatista/easychore/home"
	"github.com/billbatista/easychore/identity"
	"github.com/billbatista/easychore/ledger"
	"github.com/billbatista/easychore/store"
	"github.com/billbatista/easychore/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	db, err := store.OpenAndMigrate(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return errors.Annotate(err, "database connection")
	}
	defer db.Close()

	verifier, err := identity.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return errors.Annotate(err, "identity verifier")
	}

	evtlogger := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(evtlogger, cfg.EventBuffer)
	worker.Start()
	defer worker.Shutdown()

	registry := prometheus.NewRegistry()
	collector := ledger.NewCollector()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	homeRepo := home.NewRepository(db)
	userRepo := user.NewRepository(db, homeRepo)
	ledgerSvc := ledger.New(ledger.NewRepository(db), homeRepo,
		ledger.WithEvents(worker),
		ledger.WithMetrics(collector),
		ledger.WithStrictSplit(cfg.StrictSplit),
	)

	router := api.NewRouter(&api.Server{
		Ledger:   ledgerSvc,
		Homes:    homeRepo,
		Users:    userRepo,
		Events:   worker,
		Verifier: verifier,
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr, "driver", cfg.DBDriver, "strict_split", cfg.StrictSplit)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errors.Annotate(err, "listening")
	case <-stop:
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Annotate(err, "http server shutdown")
	}
	return nil
}
