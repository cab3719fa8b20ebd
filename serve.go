package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/survey3/app"
	"github.com/mbolis/survey3/auth"
	"github.com/mbolis/survey3/config"
	"github.com/mbolis/survey3/database"
	"github.com/mbolis/survey3/ipfs"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/metrics"
	"github.com/mbolis/survey3/routes"
	"github.com/mbolis/survey3/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE:  serveRun,
	}
}

func serveRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	err = db.Migrate(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pinner := ipfs.NewWeb3Storage(cfg.Web3URL, cfg.Web3Token, cfg.UpstreamTTL, m)
	var gateway ipfs.Fetcher = ipfs.NewGateway(cfg.Gateway, cfg.UpstreamTTL, cfg.Retries, m)
	if cfg.CacheDir != "" {
		cache, err := ipfs.OpenCache(cfg.CacheDir, gateway, m)
		if err != nil {
			return err
		}
		defer cache.Close()
		gateway = cache
	}

	svc := service.New(db, pinner, gateway,
		auth.NewTokens(cfg.SigningKey, cfg.TokenTTL),
		service.WithFanOut(cfg.FanOut),
	)

	handler := routes.Wire(app.App{
		Service: svc,
		Config:  cfg,
		Metrics: m,
	})

	return runServer(ctx, cfg, handler)
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s (%s)", cfg.Url(), cfg.BaseURL)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	if err = <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
