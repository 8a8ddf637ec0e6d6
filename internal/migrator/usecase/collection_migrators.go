package usecase

import (
	"context"
	"fmt"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/migrator/domain/service"
)

// MigrateSmartCollections copies rule-based collections and their
// metafields. Rules carry no ids, so nothing is remapped.
func (m *EntityMigrator) MigrateSmartCollections(ctx context.Context, policy model.Policy) (Stats, error) {
	res, err := simplePhase(ctx, m, model.ResourceSmartCollections, policy, withMetafields(m, model.ResourceSmartCollections,
		func(ctx context.Context, c model.SmartCollection, stats *Stats) (int64, error) {
			c.ID = 0
			c.Publications = nil
			created, err := createRecord(ctx, m.destination, model.ResourceSmartCollections, 0, c)
			return created.ID, err
		}))
	return res.Stats, err
}

// MigrateCustomCollections copies custom collections with their membership.
// The products table is rebuilt here from both stores' current product
// listings, joined on handle, so the phase does not depend on state left by
// the product phase.
func (m *EntityMigrator) MigrateCustomCollections(ctx context.Context, policy model.Policy) (Stats, error) {
	products, err := m.productTable(ctx)
	if err != nil {
		return Stats{Resource: model.ResourceCustomCollections}, err
	}
	m.logger.WithContext(ctx).Infof("matched %d products by handle for collection membership", products.Len())

	res, err := simplePhase(ctx, m, model.ResourceCustomCollections, policy, withMetafields(m, model.ResourceCustomCollections,
		func(ctx context.Context, c model.CustomCollection, stats *Stats) (int64, error) {
			collects, err := listAll[model.Collect](ctx, m.source, client.ListRequest{
				Resource: model.ResourceCollects,
				Filter:   client.Filter{CollectionID: c.ID},
			})
			if err != nil {
				return 0, fmt.Errorf("fetch membership of collection %q: %w", c.Handle, err)
			}
			kept, dropped := service.RemapCollects(collects, products)
			if len(dropped) > 0 {
				m.logger.WithContext(ctx).Infof("collection %q: dropping %d members with no destination product (source ids %v)",
					c.Handle, len(dropped), dropped)
			}

			c.ID = 0
			c.Publications = nil
			c.Collects = kept
			created, err := createRecord(ctx, m.destination, model.ResourceCustomCollections, 0, c)
			return created.ID, err
		}))
	return res.Stats, err
}

func (m *EntityMigrator) productTable(ctx context.Context) (*model.IDTable, error) {
	req := client.ListRequest{Resource: model.ResourceProducts}
	source, err := listAll[model.Product](ctx, m.source, req)
	if err != nil {
		return nil, fmt.Errorf("build product table: %w", err)
	}
	destination, err := listAll[model.Product](ctx, m.destination, req)
	if err != nil {
		return nil, fmt.Errorf("build product table: %w", err)
	}
	return service.JoinOnKey(model.ResourceProducts, source, destination, m.collisionReporter(ctx, model.ResourceProducts)), nil
}

// MigrateShopMetafields copies metafields owned by the shop itself. They are
// matched on namespace.key and created with no owner.
func (m *EntityMigrator) MigrateShopMetafields(ctx context.Context, policy model.Policy) (Stats, error) {
	res, err := simplePhase(ctx, m, model.ResourceMetafields, policy, MigrateFunc[model.Metafield](
		func(ctx context.Context, mf model.Metafield, stats *Stats) (int64, error) {
			mf.ID = 0
			mf.ClearOwner()
			created, err := createRecord(ctx, m.destination, model.ResourceMetafields, 0, mf)
			return created.ID, err
		}))
	return res.Stats, err
}
