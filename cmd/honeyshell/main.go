package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	sqliteadapter "github.com/ericfisherdev/honeyshell/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/honeyshell/internal/adapter/driving/http"
	"github.com/ericfisherdev/honeyshell/internal/adapter/driving/sshd"
	"github.com/ericfisherdev/honeyshell/internal/application"
	"github.com/ericfisherdev/honeyshell/internal/banner"
	"github.com/ericfisherdev/honeyshell/internal/config"
	"github.com/ericfisherdev/honeyshell/internal/metrics"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// 1. Load configuration (fail before anything binds).
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"binds", cfg.Binds,
		"db_path", cfg.DBPath,
		"credential_ttl", cfg.CredentialTTL,
		"login_probability", cfg.LoginProbability,
		"admin_addr", cfg.AdminAddr,
	)

	// 2. First SIGINT/SIGTERM cancels ctx; a second one exits immediately.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	stopped := make(chan struct{})
	defer close(stopped)
	go watchSignals(sigs, stopped,
		func(sig os.Signal) {
			logger.Warn("got first exit signal, terminating gracefully", "signal", sig.String())
			cancel()
		},
		func(sig os.Signal) {
			logger.Warn("got second exit signal, terminating hard", "signal", sig.String())
			os.Exit(1)
		},
	)

	// 3. Open the ledger (dual reader/writer with WAL mode). The schema is
	// prepared by the SSH server on start.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	logger.Info("database opened", "path", cfg.DBPath)

	// 4. Load the banner template and host keys.
	tmpl, err := banner.Load(cfg.BannerFile)
	if err != nil {
		return err
	}
	hostKeys, err := sshd.LoadHostKeys(cfg.HostKeys)
	if err != nil {
		return err
	}

	// 5. Metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	// 6. Wire adapters and services.
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	commandStore := sqliteadapter.NewCommandRepo(db)

	authSvc := application.NewAuthService(credentialStore, application.AuthConfig{
		LoginProbability: cfg.LoginProbability,
		CredentialTTL:    cfg.CredentialTTL,
		AcceptPublicKeys: cfg.AcceptPublicKeys,
	}, logger, application.WithAuthMetrics(m))

	shellSvc := application.NewShellService(commandStore, tmpl, logger,
		application.WithHostname(cfg.Hostname),
		application.WithShellMetrics(m),
	)

	handlers := application.NewHandlerRegistry(m)

	sshServer := sshd.NewServer(sshd.Config{
		Addrs:    cfg.Binds,
		HostKeys: hostKeys,
		Version:  cfg.ServerVersion,
	}, db, authSvc, shellSvc, handlers, logger)

	// 7. Start the honeypot.
	logger.Debug("starting server")
	if err := sshServer.Start(ctx); err != nil {
		return err
	}
	logger.Info("server startup completed")

	// 8. Admin API.
	var adminSrv *http.Server
	if cfg.AdminAddr != "" {
		reportSvc := application.NewReportService(credentialStore, commandStore)
		apiHandler := httphandler.NewHandler(reportSvc, sshServer, logger.With("component", "admin"))

		adminSrv = &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           httphandler.NewServeMux(apiHandler, registry, logger.With("component", "admin")),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		go func() {
			logger.Info("admin server starting", "addr", cfg.AdminAddr)
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin server error", "error", err)
			}
		}()
	}

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// 10. Stop the honeypot. Only a second signal cuts this short.
	if err := sshServer.Stop(context.Background()); err != nil {
		logger.Error("ssh server shutdown error", "error", err)
	}

	if adminSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown error", "error", err)
		}
	}

	// 11. Log shutdown complete.
	logger.Info("shutdown complete")
	return nil
}
