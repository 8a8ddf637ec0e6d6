package usecase

import (
	"context"
	"fmt"
	"time"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/migrator/domain/service"
	"catalog-migrator/internal/shared/eventbus"
	"catalog-migrator/internal/shared/logger"

	"github.com/juju/clock"
)

// imageCreateAttempts is the first try plus exactly one retry.
const imageCreateAttempts = 2

// RetryConfig controls the pause before the image retry.
type RetryConfig struct {
	Delay time.Duration
	Clock clock.Clock
}

// DefaultRetryConfig waits one second on the wall clock.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Delay: time.Second, Clock: clock.WallClock}
}

// EntityMigrator knows how to recreate every resource type at the
// destination. Each Migrate* method is one phase: it lists its inputs from
// both stores, builds the key index and reconciles.
type EntityMigrator struct {
	source      client.StoreClient
	destination client.StoreClient
	reconciler  *Reconciler
	events      *publisher
	retry       RetryConfig
	logger      logger.Logger
}

// NewEntityMigrator wires a migrator. bus may be nil.
func NewEntityMigrator(source, destination client.StoreClient, reconciler *Reconciler, bus eventbus.EventBusInterface, retry RetryConfig, log logger.Logger) *EntityMigrator {
	log = logger.NopIfNil(log).WithComponent("migrator")
	if retry.Delay <= 0 {
		retry.Delay = DefaultRetryConfig().Delay
	}
	if retry.Clock == nil {
		retry.Clock = clock.WallClock
	}
	return &EntityMigrator{
		source:      source,
		destination: destination,
		reconciler:  reconciler,
		events:      newPublisher(bus, "migrator", log),
		retry:       retry,
		logger:      log,
	}
}

// destinationIndex drains the destination listing and folds it by natural
// key, warning about keys that appear twice.
func destinationIndex[T model.Record](ctx context.Context, m *EntityMigrator, req client.ListRequest) (*model.KeyIndex, error) {
	records, err := listAll[T](ctx, m.destination, req)
	if err != nil {
		return nil, fmt.Errorf("build %s key index: %w", req.Resource, err)
	}
	return service.BuildKeyIndex(req.Resource, records, m.collisionReporter(ctx, req.Resource)), nil
}

func (m *EntityMigrator) collisionReporter(ctx context.Context, resource model.ResourceType) service.CollisionFunc {
	return func(key string, previousID, currentID int64) {
		m.logger.WithContext(ctx).Warnf("destination has more than one %s with key %q (ids %d and %d); using %d",
			resource.Singular(), key, previousID, currentID, currentID)
		m.events.publish(ctx, eventbus.EventTypeDuplicateHandle, RecordEvent{
			Resource: resource,
			Key:      key,
			TargetID: currentID,
			Message:  fmt.Sprintf("shadowed id %d", previousID),
		})
	}
}

// simplePhase runs a top-level resource type whose records need no context
// beyond the destination key index.
func simplePhase[T model.Record](ctx context.Context, m *EntityMigrator, resource model.ResourceType, policy model.Policy, migrate MigrateFunc[T]) (Result, error) {
	records, err := listAll[T](ctx, m.source, client.ListRequest{Resource: resource})
	if err != nil {
		return Result{Stats: Stats{Resource: resource}}, err
	}
	index, err := destinationIndex[T](ctx, m, client.ListRequest{Resource: resource})
	if err != nil {
		return Result{Stats: Stats{Resource: resource}}, err
	}
	m.logger.WithContext(ctx).Infof("reconciling %d source %s against %d destination keys (%s)",
		len(records), resource, index.Len(), policy)

	return Reconcile(ctx, m.reconciler, Job[T]{
		Resource: resource,
		Records:  records,
		Index:    index,
		Policy:   policy,
		Migrate:  migrate,
	}), nil
}

// ownedMetafields drains the source metafields attached to one record.
func (m *EntityMigrator) ownedMetafields(ctx context.Context, resource model.ResourceType, id int64) ([]model.Metafield, error) {
	owner := model.OwnerOf(resource, id)
	metafields, err := listAll[model.Metafield](ctx, m.source, client.ListRequest{
		Resource: model.ResourceMetafields,
		Filter:   client.Filter{Owner: &owner},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch metafields of %s %d: %w", resource.Singular(), id, err)
	}
	return metafields, nil
}

// rehomeMetafields recreates metafields under their new owner. A failing
// metafield is counted and does not stop its siblings.
func (m *EntityMigrator) rehomeMetafields(ctx context.Context, metafields []model.Metafield, owner model.Owner, key string, stats *Stats) {
	log := m.logger.WithContext(ctx)
	for _, mf := range metafields {
		mf.ID = 0
		mf.Rehome(owner)
		if _, err := createRecord[model.Metafield](ctx, m.destination, model.ResourceMetafields, 0, mf); err != nil {
			stats.DependentFailed++
			log.Errorf("failed to migrate metafield %q of %s %q: %v", mf.NaturalKey(), owner.Resource, key, err)
			m.events.publish(ctx, eventbus.EventTypeDependentFailed, RecordEvent{
				Resource: model.ResourceMetafields,
				Key:      mf.NaturalKey(),
				TargetID: owner.ID,
				Message:  err.Error(),
			})
			continue
		}
		log.Debugf("migrated metafield %q of %s %q", mf.NaturalKey(), owner.Resource, key)
	}
}

// withMetafields wraps the create step of a record type that owns
// metafields: fetch them from the source, create the record, re-home them.
func withMetafields[T model.Record](m *EntityMigrator, resource model.ResourceType, create func(ctx context.Context, rec T, stats *Stats) (int64, error)) MigrateFunc[T] {
	return func(ctx context.Context, rec T, stats *Stats) (int64, error) {
		metafields, err := m.ownedMetafields(ctx, resource, rec.RecordID())
		if err != nil {
			return 0, err
		}
		id, err := create(ctx, rec, stats)
		if err != nil {
			return 0, err
		}
		m.rehomeMetafields(ctx, metafields, model.OwnerOf(resource, id), rec.NaturalKey(), stats)
		return id, nil
	}
}
