package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/stride/internal/adapters/assignment"
	"github.com/okian/stride/internal/adapters/catalog"
	"github.com/okian/stride/internal/adapters/eventlog"
	"github.com/okian/stride/internal/adapters/http/api"
	"github.com/okian/stride/internal/adapters/http/site"
	"github.com/okian/stride/internal/adapters/http/swagger"
	"github.com/okian/stride/internal/adapters/repository"
	"github.com/okian/stride/internal/adapters/sqlitedb"
	app "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/app/scheduler"
	"github.com/okian/stride/internal/config"
	"github.com/okian/stride/internal/domain/condition"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Only the custom registry is exposed; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "stride exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closeStores, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStores(); err != nil {
			log.Error(ctx, "closing stores failed", logger.Error(err))
		}
	}()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildService wires the stores named by cfg into a service. The returned
// func closes whatever was opened.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func() error, error) {
	problems, err := catalog.Load(cfg.ProblemsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load problems: %w", err)
	}

	settings, err := condition.NewSettings(cfg.ConditionScope, cfg.ConditionPolicy,
		cfg.ConditionProbability, cfg.ConditionOverrides, cfg.ConditionInverted)
	if err != nil {
		return nil, nil, fmt.Errorf("condition settings: %w", err)
	}

	var (
		db       *sql.DB
		events   eventlog.Log
		store    repository.Store
		stickies condition.Store
	)
	if cfg.DatabasePath == "" {
		log.Warn(ctx, "database_path not set; events and models are kept in memory")
		events = eventlog.NewMemoryLog()
		store = repository.NewMemoryStore(repository.WithLogger(log.Named("repository")))
		stickies = assignment.NewMemoryStore()
	} else {
		db, err = sqlitedb.Open(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		events = eventlog.NewSQLiteLog(db)
		store = repository.NewCachedStore(repository.NewSQLiteStore(db, repository.WithLogger(log.Named("repository"))))
		stickies = assignment.NewSQLiteStore(db)
	}
	closeStores := func() error {
		if db == nil {
			return nil
		}
		return db.Close()
	}

	assigner, err := condition.NewAssigner(settings, stickies)
	if err != nil {
		_ = closeStores()
		return nil, nil, fmt.Errorf("condition assigner: %w", err)
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithCatalog(problems),
		app.WithEventLog(events),
		app.WithModelStore(store),
		app.WithAssigner(assigner),
		app.WithSchedulerOptions(
			scheduler.WithMinCorrectCount(cfg.MinCorrectCount),
			scheduler.WithIncrement(cfg.RebuildIncrement),
			scheduler.WithMinFeatureProportion(cfg.MinFeatureProportion),
			scheduler.WithMaxScorePercentile(cfg.MaxScorePercentile),
			scheduler.WithClassifier(cfg.ClassifierEnabled),
			scheduler.WithNgramRange(cfg.NgramMin, cfg.NgramMax),
		),
	)
	log.Info(ctx, "service configured",
		logger.Int("problems", problems.Len()),
		logger.String("policy", cfg.ConditionPolicy),
		logger.Bool("persistent", db != nil),
	)
	return svc, closeStores, nil
}

func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
