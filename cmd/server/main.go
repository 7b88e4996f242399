package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcatalog "github.com/vendorsync/backend/internal/application/catalog"
	appfeedsync "github.com/vendorsync/backend/internal/application/feedsync"
	appvendor "github.com/vendorsync/backend/internal/application/vendor"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/cache"
	"github.com/vendorsync/backend/internal/infrastructure/config"
	"github.com/vendorsync/backend/internal/infrastructure/crypto"
	"github.com/vendorsync/backend/internal/infrastructure/event"
	"github.com/vendorsync/backend/internal/infrastructure/feedcsv"
	"github.com/vendorsync/backend/internal/infrastructure/fetcher"
	"github.com/vendorsync/backend/internal/infrastructure/logger"
	"github.com/vendorsync/backend/internal/infrastructure/persistence"
	"github.com/vendorsync/backend/internal/infrastructure/scheduler"
	"github.com/vendorsync/backend/internal/infrastructure/storage"
	httpiface "github.com/vendorsync/backend/internal/interfaces/http"
	"github.com/vendorsync/backend/internal/interfaces/http/handlers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := persistence.NewDatabase(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	schemas, err := buildSchemaRegistry(cfg.Vendors)
	if err != nil {
		return fmt.Errorf("vendor schemas: %w", err)
	}
	log.Info("vendor schemas registered", zap.Int("count", len(schemas.Codes())))

	cipher, err := crypto.NewFieldCipher(cfg.Vault.MasterKey, cfg.Vault.KDFSalt)
	if err != nil {
		return fmt.Errorf("init field cipher: %w", err)
	}

	// Repositories
	snapshots := persistence.NewGormSnapshotRepository(db)
	runs := persistence.NewGormSyncRunRepository(db)
	records := persistence.NewGormRecordRepository(db)
	offerings := persistence.NewGormOfferingRepository(db)
	priorities := persistence.NewGormPriorityRepository(db)
	credentials := persistence.NewGormCredentialRepository(db)
	committer := persistence.NewGormCommitter(db)

	// Priority cache, with cross-instance invalidation when redis is on
	var priorityCache vendor.PriorityCache = cache.NewInMemoryPriorityCache(priorities, log)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()

		rcache := cache.NewRedisInvalidatingCache(priorityCache, rdb, log)
		go rcache.Listen(ctx)
		priorityCache = rcache
		log.Info("redis priority invalidation enabled", zap.String("addr", cfg.Redis.Addr()))
	}

	// Event bus with the audit trail subscribed
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log))

	// Raw feed archive
	var archive storage.FeedArchive = storage.NopFeedArchive{}
	if cfg.Archive.Enabled {
		s3Archive, err := storage.NewS3FeedArchive(ctx, cfg.Archive, log)
		if err != nil {
			return fmt.Errorf("init feed archive: %w", err)
		}
		archive = s3Archive
		log.Info("feed archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	}

	// Fetchers
	httpFetcher := fetcher.NewHTTPFetcher(cfg.Fetcher, log)
	dropFetcher := fetcher.NewDropDirFetcher()
	fetchers := fetcher.NewRegistry(httpFetcher, dropFetcher)

	// Application services
	vaultSvc := appvendor.NewVaultService(schemas, credentials, cipher, bus, log)
	prioritySvc := appvendor.NewPriorityService(priorities, priorityCache, bus, log)
	detector := appfeedsync.NewChangeDetectorService(schemas, snapshots, feedcsv.NewParser(), log)
	reconciler := appcatalog.NewReconcilerService(schemas, records, offerings, priorityCache, committer, log)
	orchestrator := appfeedsync.NewOrchestratorService(
		vaultSvc, fetchers, detector, reconciler, runs, archive,
		cfg.Sync.RunTimeout, cfg.Sync.MaxRunDuration, log)

	// Scheduler
	syncScheduler := scheduler.NewSyncScheduler(orchestrator, log)
	if cfg.Scheduler.Enabled {
		syncScheduler.Start()
		defer syncScheduler.Stop()
	}

	router := httpiface.NewRouter(cfg, log, httpiface.Handlers{
		Sync:        handlers.NewSyncHandler(orchestrator, cfg.Sync.HistoryLimit),
		Credentials: handlers.NewCredentialHandler(vaultSvc),
		Priorities:  handlers.NewPriorityHandler(prioritySvc),
		Schedules:   handlers.NewScheduleHandler(syncScheduler),
		Health:      handlers.NewHealthHandler(db),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// buildSchemaRegistry turns the config vendor declarations into validated
// domain schemas.
func buildSchemaRegistry(declared []config.VendorSchemaConfig) (*vendor.SchemaRegistry, error) {
	schemas := make([]*vendor.Schema, 0, len(declared))
	for _, d := range declared {
		fields := make([]vendor.FieldSpec, 0, len(d.Fields))
		for _, f := range d.Fields {
			fields = append(fields, vendor.FieldSpec{
				Name:      f.Name,
				Aliases:   f.Aliases,
				Sensitive: f.Sensitive,
			})
		}
		schemas = append(schemas, &vendor.Schema{
			VendorCode: vendor.Code(d.Code),
			Category:   d.Category,
			Encoding:   vendor.FeedEncoding(d.Encoding),
			HasHeader:  d.HasHeader,
			Columns: vendor.FeedColumns{
				Key:         d.Columns.Key,
				Price:       d.Columns.Price,
				Quantity:    d.Columns.Quantity,
				Description: d.Columns.Description,
			},
			Fields: fields,
		})
	}
	return vendor.NewSchemaRegistry(schemas...)
}
