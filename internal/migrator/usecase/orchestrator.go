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
	"catalog-migrator/internal/shared/utils"

	"github.com/google/uuid"
	"github.com/juju/collections/set"
)

// Each inner group is satisfied by any one of its scopes. Error messages
// name the first scope of the failing group.
var (
	sourceScopeGroups = [][]string{
		{"read_content", "write_content"},
		{"read_products", "write_products"},
	}
	destinationScopeGroups = [][]string{
		{"write_content"},
		{"write_products"},
	}
)

// RunOptions selects what a run migrates and how existing records are
// treated. Collections covers both smart and custom collections.
type RunOptions struct {
	All         bool
	Pages       bool
	Blogs       bool
	Articles    bool
	Products    bool
	Collections bool
	Metafields  bool

	DeletePages       bool
	DeleteBlogs       bool
	DeleteArticles    bool
	DeleteProducts    bool
	DeleteCollections bool
	DeleteMetafields  bool

	// SkipExisting is the global skip flag. With it off and no delete flag
	// for a type, existing records are duplicated.
	SkipExisting bool
}

// Enabled reports whether a resource type takes part in the run.
func (o RunOptions) Enabled(resource model.ResourceType) bool {
	if o.All {
		return true
	}
	switch resource {
	case model.ResourcePages:
		return o.Pages
	case model.ResourceBlogs:
		return o.Blogs
	case model.ResourceArticles:
		return o.Articles
	case model.ResourceProducts:
		return o.Products
	case model.ResourceSmartCollections, model.ResourceCustomCollections:
		return o.Collections
	case model.ResourceMetafields:
		return o.Metafields
	}
	return false
}

// Policy resolves the policy for one resource type.
func (o RunOptions) Policy(resource model.ResourceType) model.Policy {
	var del bool
	switch resource {
	case model.ResourcePages:
		del = o.DeletePages
	case model.ResourceBlogs:
		del = o.DeleteBlogs
	case model.ResourceArticles:
		del = o.DeleteArticles
	case model.ResourceProducts:
		del = o.DeleteProducts
	case model.ResourceSmartCollections, model.ResourceCustomCollections:
		del = o.DeleteCollections
	case model.ResourceMetafields:
		del = o.DeleteMetafields
	}
	return model.PolicyFor(del, o.SkipExisting)
}

// RunReport summarises a run.
type RunReport struct {
	RunID       string                        `json:"run_id"`
	StartedAt   time.Time                     `json:"started_at"`
	Duration    time.Duration                 `json:"duration"`
	Phases      []Stats                       `json:"phases"`
	PhaseErrors map[model.ResourceType]string `json:"phase_errors,omitempty"`
}

// Totals sums every phase.
func (r *RunReport) Totals() Stats {
	total := Stats{Resource: "all"}
	for _, s := range r.Phases {
		total.Add(s)
	}
	total.Duration = r.Duration
	return total
}

// Phase returns the stats of one resource type.
func (r *RunReport) Phase(resource model.ResourceType) (Stats, bool) {
	for _, s := range r.Phases {
		if s.Resource == resource {
			return s, true
		}
	}
	return Stats{}, false
}

// HasFailures reports whether any record, dependent or phase failed.
func (r *RunReport) HasFailures() bool {
	t := r.Totals()
	return t.Failed > 0 || t.DependentFailed > 0 || len(r.PhaseErrors) > 0
}

type phaseFunc func(ctx context.Context, policy model.Policy) (Stats, error)

// Orchestrator runs the resource types in dependency order.
type Orchestrator struct {
	source      client.StoreClient
	destination client.StoreClient
	migrator    *EntityMigrator
	events      *publisher
	logger      logger.Logger
	phases      map[model.ResourceType]phaseFunc
	newRunID    func() string
}

// NewOrchestrator wires an orchestrator. bus may be nil.
func NewOrchestrator(source, destination client.StoreClient, migrator *EntityMigrator, bus eventbus.EventBusInterface, log logger.Logger) *Orchestrator {
	log = logger.NopIfNil(log).WithComponent("orchestrator")
	return &Orchestrator{
		source:      source,
		destination: destination,
		migrator:    migrator,
		events:      newPublisher(bus, "orchestrator", log),
		logger:      log,
		phases: map[model.ResourceType]phaseFunc{
			model.ResourcePages:             migrator.MigratePages,
			model.ResourceBlogs:             migrator.MigrateBlogs,
			model.ResourceArticles:          migrator.MigrateArticles,
			model.ResourceProducts:          migrator.MigrateProducts,
			model.ResourceSmartCollections:  migrator.MigrateSmartCollections,
			model.ResourceCustomCollections: migrator.MigrateCustomCollections,
			model.ResourceMetafields:        migrator.MigrateShopMetafields,
		},
		newRunID: func() string { return uuid.New().String() },
	}
}

// Preflight verifies both stores hold the access scopes a migration needs.
// It performs no writes.
func (o *Orchestrator) Preflight(ctx context.Context) error {
	if err := checkScopes(ctx, o.source, "Source", sourceScopeGroups); err != nil {
		return err
	}
	if err := checkScopes(ctx, o.destination, "Destination", destinationScopeGroups); err != nil {
		return err
	}
	o.logger.WithContext(ctx).Info("access scopes verified for source and destination")
	return nil
}

func checkScopes(ctx context.Context, store client.StoreClient, label string, groups [][]string) error {
	granted, err := store.ListScopes(ctx)
	if err != nil {
		return errors.NewPreconditionError(fmt.Sprintf("%s store access scopes could not be listed", label)).WithCause(err)
	}
	for _, group := range groups {
		if granted.Intersection(set.NewStrings(group...)).IsEmpty() {
			return errors.NewPreconditionError(fmt.Sprintf("%s store does not have proper access scope: %s", label, group[0])).
				WithDetail("store", label).
				WithDetail("required_any_of", group)
		}
	}
	return nil
}

// Run verifies scopes, then migrates every enabled resource type in
// model.MigrationOrder. Only a precondition failure returns an error; phase
// failures are recorded in the report and later phases still run.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	report := &RunReport{
		RunID:       o.newRunID(),
		StartedAt:   time.Now(),
		PhaseErrors: map[model.ResourceType]string{},
	}
	ctx = utils.WithRunID(ctx, report.RunID)
	log := o.logger.WithContext(ctx)

	if err := o.Preflight(ctx); err != nil {
		return nil, err
	}

	o.events.publish(ctx, eventbus.EventTypeRunStarted, RecordEvent{})
	log.Infof("starting migration run %s", report.RunID)

	for _, resource := range model.MigrationOrder {
		if !opts.Enabled(resource) {
			continue
		}
		if ctx.Err() != nil {
			log.Warnf("run interrupted before %s: %v", resource, ctx.Err())
			break
		}
		phaseCtx := utils.WithResource(ctx, string(resource))
		policy := opts.Policy(resource)
		log.Infof("migrating %s (%s)", resource, policy)

		stats, err := o.phases[resource](phaseCtx, policy)
		stats.Resource = resource
		report.Phases = append(report.Phases, stats)
		if err != nil {
			report.PhaseErrors[resource] = err.Error()
			o.logger.WithContext(phaseCtx).Errorf("%s phase failed: %v", resource, err)
			o.events.publish(phaseCtx, eventbus.EventTypePhaseFailed, RecordEvent{Resource: resource, Message: err.Error()})
		}
		log.Info(stats.String())
	}

	report.Duration = time.Since(report.StartedAt)
	o.events.publish(ctx, eventbus.EventTypeRunFinished, RecordEvent{Message: report.Totals().String()})
	log.Infof("migration run %s finished in %s", report.RunID, report.Duration.Round(time.Millisecond))
	return report, nil
}
