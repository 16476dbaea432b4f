package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/semmidev/tenantvault/internal/adapter/compressor"
	"github.com/semmidev/tenantvault/internal/adapter/database"
	"github.com/semmidev/tenantvault/internal/adapter/notifier"
	"github.com/semmidev/tenantvault/internal/adapter/repository"
	"github.com/semmidev/tenantvault/internal/adapter/storage"
	"github.com/semmidev/tenantvault/internal/config"
	"github.com/semmidev/tenantvault/internal/domain"
	"github.com/semmidev/tenantvault/internal/infrastructure/httpserver"
	"github.com/semmidev/tenantvault/internal/infrastructure/logger"
	"github.com/semmidev/tenantvault/internal/infrastructure/scheduler"
	"github.com/semmidev/tenantvault/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	driver  *usecase.Driver
	backup  *usecase.BackupUseCase
	closers []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &App{config: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.Shutdown()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config
	log := a.logger

	log.Infof("Starting %s", cfg.App.Name)

	dataStore, err := a.initDataStore(ctx)
	if err != nil {
		return err
	}
	if err := dataStore.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", dataStore.GetType(), err)
	}
	log.Infof("✓ Connected to %s data store", dataStore.GetType())

	pool, err := repository.NewPool(ctx, cfg.LedgerURL())
	if err != nil {
		return fmt.Errorf("failed to connect to ledger database: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	log.Infof("✓ Connected to ledger database")

	blobStore, err := a.initBlobStore(ctx)
	if err != nil {
		return err
	}

	var comp domain.Compressor
	if cfg.Backup.Compress {
		comp = compressor.NewGzip()
		log.Infof("✓ Snapshot compression enabled")
	}

	var notify domain.Notifier
	if cfg.Notify.Telegram.Enabled {
		tg, err := notifier.NewTelegram(&cfg.Notify.Telegram)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram: %w", err)
		}
		notify = tg
		log.Infof("✓ Telegram notifications enabled")
	}

	tables := cfg.BackupTables()
	if len(cfg.Backup.Tables) == 0 {
		log.Infof("Using built-in table list %s (%d tables)", domain.DefaultTablesVersion, len(tables))
	}

	runs := repository.NewRunRepository(pool)
	settings := repository.NewSettingsRepository(pool)

	backupLog := log.Named("backup")
	ledger := usecase.NewLedger(runs)
	exporter := usecase.NewExporter(dataStore, tables, cfg.Database.TenantColumn, backupLog)
	writer := usecase.NewSnapshotWriter(blobStore, comp, backupLog)
	cleanup := usecase.NewCleanup(runs, blobStore, log.Named("retention"))

	a.backup = usecase.NewBackupUseCase(settings, ledger, exporter, writer, blobStore, cleanup, backupLog)
	a.driver = usecase.NewDriver(settings, runs, a.backup, log.Named("driver"), usecase.DriverOptions{
		Workers:       cfg.Backup.Workers,
		StuckAfter:    cfg.Backup.StuckAfter,
		Notifier:      notify,
		OnlyOnFailure: cfg.Notify.Telegram.OnlyOnFailure,
	})

	return nil
}

func (a *App) initDataStore(ctx context.Context) (domain.DataStore, error) {
	dbCfg := &a.config.Database

	switch dbCfg.Type {
	case "postgresql":
		pg, err := database.NewPostgreSQL(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		return pg, nil

	case "mysql":
		my, err := database.NewMySQL(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MySQL: %w", err)
		}
		a.closers = append(a.closers, func() { _ = my.Close() })
		return my, nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbCfg.Type)
	}
}

func (a *App) initBlobStore(ctx context.Context) (domain.BlobStore, error) {
	stCfg := &a.config.Storage
	log := a.logger

	switch stCfg.Type {
	case "local":
		local, err := storage.NewLocal(stCfg.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		log.Infof("✓ Local storage enabled (%s)", local.GetPath(""))
		return local, nil

	case "s3":
		s3, err := storage.NewS3(ctx, stCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3: %w", err)
		}
		log.Infof("✓ AWS S3 storage enabled (bucket: %s)", stCfg.Bucket)
		return s3, nil

	case "gcs":
		gcs, err := storage.NewGCS(ctx, stCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS: %w", err)
		}
		a.closers = append(a.closers, func() { _ = gcs.Close() })
		log.Infof("✓ Google Cloud Storage enabled (bucket: %s)", stCfg.Bucket)
		return gcs, nil

	case "azure":
		az, err := storage.NewAzure(stCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Azure Blob Storage: %w", err)
		}
		log.Infof("✓ Azure Blob Storage enabled (container: %s)", stCfg.Container)
		return az, nil

	case "gdrive":
		gd, err := storage.NewGDrive(ctx, stCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Drive: %w", err)
		}
		log.Infof("✓ Google Drive storage enabled")
		return gd, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", stCfg.Type)
	}
}

// RunOnce performs a single scheduler pass.
func (a *App) RunOnce(ctx context.Context) (*usecase.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Server.RunTimeout)
	defer cancel()
	return a.driver.RunOnce(ctx, time.Now())
}

func (a *App) RunManual(ctx context.Context, tenantID string) (*domain.BackupRun, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Server.RunTimeout)
	defer cancel()
	return a.backup.RunManual(ctx, tenantID)
}

// Serve runs the cron trigger and the HTTP trigger until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.config

	sched := scheduler.New(a.logger.CronLogger())
	err := sched.AddJob("backup-pass", cfg.Backup.Schedule, func(ctx context.Context) error {
		a.logger.Infof("=== Triggered scheduled backup pass ===")
		_, err := a.RunOnce(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backup pass: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpserver.New(a.driver, a.backup, a.logger.Named("http"), httpserver.Options{
			TriggerToken: cfg.Server.TriggerToken,
			RunTimeout:   cfg.Server.RunTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sched.Start()
	a.logger.Infof("Scheduler started (%s), listening on %s", cfg.Backup.Schedule, cfg.Server.Addr)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warnf("HTTP server shutdown: %v", err)
	}
	sched.Stop()

	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.logger.Close()
}
