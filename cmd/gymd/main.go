// cmd/gymd/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"gymnexus/internal/config"
	"gymnexus/internal/gym"
	"gymnexus/internal/ledger"
	"gymnexus/internal/logging"
	"gymnexus/internal/metrics"
	"gymnexus/internal/pricing"
	"gymnexus/internal/telemetry"
	"gymnexus/internal/timezone"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", ".env", "path to a .env file")
	snapshotPath := flag.String("snapshot", "", "restore clients from a JSON snapshot at startup")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *envFile, *snapshotPath); err != nil {
		fmt.Fprintf(os.Stderr, "gymd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, envFile, snapshotPath string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	now := timezone.Clock(cfg.Timezone)
	cash, entries, closeLogs, err := openLogs(ctx, cfg.Ledger, logger)
	if err != nil {
		return err
	}
	defer closeLogs()

	l := ledger.New(cash, entries,
		ledger.WithClock(now),
		ledger.WithOpeningBalance(cfg.Gym.OpeningCash),
		ledger.WithLogger(logger),
	)
	skipped, err := l.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild cash balance: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"balance": l.Balance(),
		"skipped": len(skipped),
	}).Info("cash ledger loaded")

	prices, err := pricing.NewService(cfg.Prices, cfg.AdminPIN, now, logger)
	if err != nil {
		return err
	}
	if cfg.AdminPIN == "" {
		logger.Warn("no admin pin configured; price updates are disabled")
	}

	m := metrics.New()
	svc, err := gym.NewService(gym.SettingsFromConfig(cfg), l, prices,
		gym.WithClock(now),
		gym.WithLogger(logger),
		gym.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	if snapshotPath != "" {
		if err := restore(ctx, svc, snapshotPath, logger); err != nil {
			return err
		}
	}

	sched, err := gym.NewScheduler(svc, cfg.Schedule.NightlyReport, timezone.Location(cfg.Timezone), logger, m)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	handler := gym.NewHandler(svc, cfg.Server.RateLimit, cfg.Server.RateBurst, m, logger)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"gym":     cfg.Gym.Name,
			"backend": cfg.Ledger.Backend,
		}).Info("gymd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openLogs builds the cash and entry logs for the configured backend.
func openLogs(ctx context.Context, cfg config.LedgerConfig, logger logrus.FieldLogger) (ledger.Log, ledger.Log, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := sqlx.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to reach database: %w", err)
		}
		if err := ledger.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		breaker := ledger.NewBreaker("ledger")
		logger.Info("ledger backed by postgres")
		return ledger.NewPostgresLog(db, ledger.StreamCash, breaker),
			ledger.NewPostgresLog(db, ledger.StreamEntries, breaker),
			func() { db.Close() }, nil
	case config.BackendMemory:
		logger.Warn("ledger kept in memory; records are lost on exit")
		return ledger.NewMemoryLog(), ledger.NewMemoryLog(), func() {}, nil
	default:
		logger.WithFields(logrus.Fields{
			"cash":    cfg.CashPath,
			"entries": cfg.EntriesPath,
		}).Info("ledger backed by files")
		return ledger.NewFileLog(cfg.CashPath), ledger.NewFileLog(cfg.EntriesPath), func() {}, nil
	}
}

func restore(ctx context.Context, svc gym.Service, path string, logger logrus.FieldLogger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := gym.ReadSnapshot(f)
	if err != nil {
		return err
	}
	res, err := svc.Restore(ctx, snap)
	if err != nil {
		return err
	}
	for _, fl := range res.Failures {
		logger.WithFields(logrus.Fields{
			"ref":  fl.Ref,
			"kind": fl.Kind,
		}).Warn(fl.Message)
	}
	return nil
}
