package usecase

import (
	"context"
	"fmt"
	"time"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/eventbus"
	"catalog-migrator/internal/shared/logger"
)

// Stats counts the outcome of reconciling one resource type.
type Stats struct {
	Resource        model.ResourceType `json:"resource"`
	Total           int                `json:"total"`
	Created         int                `json:"created"`
	Skipped         int                `json:"skipped"`
	Deleted         int                `json:"deleted"`
	Failed          int                `json:"failed"`
	Filtered        int                `json:"filtered"`
	DependentFailed int                `json:"dependent_failed"`
	Duration        time.Duration      `json:"duration"`
}

// Add accumulates o into s. Resource is left alone.
func (s *Stats) Add(o Stats) {
	s.Total += o.Total
	s.Created += o.Created
	s.Skipped += o.Skipped
	s.Deleted += o.Deleted
	s.Failed += o.Failed
	s.Filtered += o.Filtered
	s.DependentFailed += o.DependentFailed
	s.Duration += o.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d total, %d created, %d skipped, %d deleted, %d failed, %d filtered, %d dependent failures",
		s.Resource, s.Total, s.Created, s.Skipped, s.Deleted, s.Failed, s.Filtered, s.DependentFailed)
}

// MigrateFunc recreates one source record at the destination and returns
// its new id. Dependent failures are counted into stats.
type MigrateFunc[T model.Record] func(ctx context.Context, rec T, stats *Stats) (int64, error)

// Job is one reconciliation pass over a resource type.
type Job[T model.Record] struct {
	Resource model.ResourceType
	Records  []T
	Index    *model.KeyIndex
	Policy   model.Policy
	// ParentID is the destination parent used for deletes of nested records.
	ParentID int64
	Migrate  MigrateFunc[T]
}

// Result carries the stats and the source → destination table of records
// created in this pass.
type Result struct {
	Stats Stats
	Table *model.IDTable
}

// Reconciler pairs source records with the destination key index and
// applies the replace/skip policy.
type Reconciler struct {
	destination client.StoreClient
	filter      RecordFilter
	events      *publisher
	logger      logger.Logger
}

// NewReconciler creates a reconciler writing to destination. filter and bus
// may be nil.
func NewReconciler(destination client.StoreClient, filter RecordFilter, bus eventbus.EventBusInterface, log logger.Logger) *Reconciler {
	log = logger.NopIfNil(log).WithComponent("reconciler")
	return &Reconciler{
		destination: destination,
		filter:      filter,
		events:      newPublisher(bus, "reconciler", log),
		logger:      log,
	}
}

// Reconcile processes job.Records in order. A failing record is reported and
// the next one is processed; it never gets an entry in the result table.
func Reconcile[T model.Record](ctx context.Context, r *Reconciler, job Job[T]) Result {
	start := time.Now()
	stats := Stats{Resource: job.Resource}
	table := model.NewIDTable(job.Resource)
	log := r.logger.WithContext(ctx)

	for _, rec := range job.Records {
		if ctx.Err() != nil {
			log.Warnf("%s reconciliation interrupted: %v", job.Resource, ctx.Err())
			break
		}
		stats.Total++
		key := rec.NaturalKey()
		ev := RecordEvent{Resource: job.Resource, Key: key, SourceID: rec.RecordID()}
		recLog := log.WithFields(map[string]interface{}{"key": key, "source_id": rec.RecordID()})

		if r.filter != nil {
			matched, err := r.filter.Match(job.Resource, rec)
			if err != nil {
				r.fail(ctx, recLog, &stats, ev, err)
				continue
			}
			if !matched {
				stats.Filtered++
				recLog.Debugf("%s %q filtered out", job.Resource.Singular(), key)
				r.events.publish(ctx, eventbus.EventTypeRecordFiltered, ev)
				continue
			}
		}

		if existing, found := job.Index.Lookup(key); found {
			ev.TargetID = existing
			switch job.Policy {
			case model.PolicySkipExisting:
				stats.Skipped++
				recLog.Infof("%s %q already exists at destination (id %d), skipping", job.Resource.Singular(), key, existing)
				r.events.publish(ctx, eventbus.EventTypeRecordSkipped, ev)
				continue
			case model.PolicyDeleteThenRecreate:
				err := r.destination.Delete(ctx, job.Resource, job.ParentID, existing)
				switch {
				case err == nil:
					stats.Deleted++
					recLog.Infof("deleted existing %s %q (id %d)", job.Resource.Singular(), key, existing)
					r.events.publish(ctx, eventbus.EventTypeRecordDeleted, ev)
				case errors.IsRemoteNotFound(err):
					recLog.Warnf("existing %s %q (id %d) was already gone", job.Resource.Singular(), key, existing)
				default:
					r.fail(ctx, recLog, &stats, ev, fmt.Errorf("delete existing %s %d: %w", job.Resource.Singular(), existing, err))
					continue
				}
			default:
				recLog.Warnf("%s %q already exists at destination (id %d), creating a duplicate", job.Resource.Singular(), key, existing)
			}
		}

		id, err := job.Migrate(ctx, rec, &stats)
		if err != nil {
			r.fail(ctx, recLog, &stats, ev, err)
			continue
		}
		stats.Created++
		table.Put(rec.RecordID(), id)
		ev.TargetID = id
		recLog.Debugf("migrated %s %q → %d", job.Resource.Singular(), key, id)
		r.events.publish(ctx, eventbus.EventTypeRecordMigrated, ev)
	}

	stats.Duration = time.Since(start)
	return Result{Stats: stats, Table: table}
}

func (r *Reconciler) fail(ctx context.Context, log logger.Logger, stats *Stats, ev RecordEvent, err error) {
	stats.Failed++
	ev.Message = err.Error()
	if errors.IsRemoteRejected(err) {
		// the record itself needs fixing; re-running will fail the same way
		ev.Message = "rejected by destination: " + ev.Message
		log.Errorf("destination rejected %s %q (source id %d): %v", ev.Resource.Singular(), ev.Key, ev.SourceID, err)
	} else {
		log.Errorf("failed to migrate %s %q (source id %d): %v", ev.Resource.Singular(), ev.Key, ev.SourceID, err)
	}
	r.events.publish(ctx, eventbus.EventTypeRecordFailed, ev)
}
