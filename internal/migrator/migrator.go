package migrator

import (
	"context"
	"errors"
	"fmt"

	"catalog-migrator/internal/migrator/adapter/decorator"
	"catalog-migrator/internal/migrator/adapter/persistence"
	"catalog-migrator/internal/migrator/adapter/persistence/mongodb"
	"catalog-migrator/internal/migrator/adapter/rest"
	"catalog-migrator/internal/migrator/config"
	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/migrator/domain/repository"
	"catalog-migrator/internal/migrator/usecase"
	"catalog-migrator/internal/shared/eventbus"
	"catalog-migrator/internal/shared/logger"

	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"
)

// Options are the per-invocation switches that change how the module is
// assembled.
type Options struct {
	DryRun   bool
	SaveData bool
	// Filter is an optional CEL expression selecting source records.
	Filter string
}

// MigratorModule represents the complete migration module
type MigratorModule struct {
	config       *config.Config
	logger       logger.Logger
	bus          *eventbus.EventBus
	source       client.StoreClient
	destination  client.StoreClient
	dryRun       *decorator.DryRun
	orchestrator *usecase.Orchestrator
	closers      []func(ctx context.Context) error
}

// NewMigratorModule connects to both stores over REST and assembles the
// module.
func NewMigratorModule(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) (*MigratorModule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.NopIfNil(log)
	source, err := newRESTClient(cfg, cfg.Source(), log.WithFields(map[string]interface{}{"side": "source"}))
	if err != nil {
		return nil, fmt.Errorf("failed to create source client: %w", err)
	}
	destination, err := newRESTClient(cfg, cfg.Destination(), log.WithFields(map[string]interface{}{"side": "destination"}))
	if err != nil {
		return nil, fmt.Errorf("failed to create destination client: %w", err)
	}
	return NewMigratorModuleWithStores(ctx, cfg, source, destination, opts, log)
}

func newRESTClient(cfg *config.Config, store config.StoreConfig, log logger.Logger) (*rest.Client, error) {
	return rest.NewClient(rest.Config{
		Store:       store.Store,
		AccessToken: store.AccessToken,
		APIVersion:  cfg.APIVersion,
		Timeout:     cfg.HTTPTimeout,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
	}, rest.WithLogger(log))
}

// NewMigratorModuleWithStores assembles the module around existing store
// clients.
func NewMigratorModuleWithStores(ctx context.Context, cfg *config.Config, source, destination client.StoreClient, opts Options, log logger.Logger) (*MigratorModule, error) {
	log = logger.NopIfNil(log)
	m := &MigratorModule{
		config:      cfg,
		logger:      log.WithComponent("migrator"),
		bus:         eventbus.NewEventBusWithConfig(log, cfg.Journal.BusConfig()),
		source:      source,
		destination: destination,
	}

	var filter usecase.RecordFilter
	if opts.Filter != "" {
		f, err := usecase.NewCELFilter(opts.Filter)
		if err != nil {
			return nil, err
		}
		filter = f
		m.logger.Infof("only migrating records matching %q", f.Expression())
	}

	if opts.SaveData {
		repo, err := newSnapshotRepository(ctx, cfg.Snapshot, log)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, repo.Close)
		m.source = decorator.NewSnapshotting(m.source, repo, log)
	}

	if opts.DryRun {
		m.dryRun = decorator.NewDryRun(m.destination, log)
		m.destination = m.dryRun
		m.logger.Warn("dry run: no record will be created or deleted")
	}

	if cfg.Journal.Enabled() {
		journal := persistence.NewRedisJournal(redis.NewClient(&redis.Options{
			Addr:     cfg.Journal.RedisAddr,
			Password: cfg.Journal.RedisPassword,
			DB:       cfg.Journal.RedisDB,
		}), cfg.Journal.Stream, cfg.Journal.MaxLen, log)
		if err := journal.Ping(ctx); err != nil {
			_ = journal.Close()
			_ = m.Stop(ctx)
			return nil, err
		}
		m.closers = append(m.closers, func(context.Context) error { return journal.Close() })
		m.bus.SubscribeAll(usecase.NewJournalHandler(journal))
	}

	reconciler := usecase.NewReconciler(m.destination, filter, m.bus, log)
	entities := usecase.NewEntityMigrator(m.source, m.destination, reconciler, m.bus,
		usecase.RetryConfig{Delay: cfg.ImageRetryDelay, Clock: clock.WallClock}, log)
	m.orchestrator = usecase.NewOrchestrator(m.source, m.destination, entities, m.bus, log)
	return m, nil
}

func newSnapshotRepository(ctx context.Context, cfg config.SnapshotConfig, log logger.Logger) (repository.SnapshotRepository, error) {
	if cfg.MongoURI != "" {
		mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return mongodb.NewSnapshotRepository(mongoClient, cfg.MongoDB, log), nil
	}
	return persistence.NewFileSnapshotRepository(cfg.Dir, cfg.Format, log)
}

// Preflight checks the access scopes of both stores.
func (m *MigratorModule) Preflight(ctx context.Context) error {
	return m.orchestrator.Preflight(ctx)
}

// Run performs one migration run.
func (m *MigratorModule) Run(ctx context.Context, opts usecase.RunOptions) (*usecase.RunReport, error) {
	report, err := m.orchestrator.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	if m.dryRun != nil {
		for _, resource := range model.MigrationOrder {
			if n := m.dryRun.Created(resource); n > 0 {
				m.logger.Infof("[dry-run] %d %s would be created", n, resource)
			}
		}
	}
	return report, nil
}

// Stop detaches event subscribers, then releases snapshot locks and
// connections.
func (m *MigratorModule) Stop(ctx context.Context) error {
	for _, eventType := range m.bus.GetEventTypes() {
		m.bus.Unsubscribe(eventType)
	}
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}
