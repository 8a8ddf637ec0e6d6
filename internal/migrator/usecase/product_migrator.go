package usecase

import (
	"context"
	"fmt"

	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/migrator/domain/service"
	"catalog-migrator/internal/shared/eventbus"

	"github.com/juju/retry"
)

// MigrateProducts copies products with their variants, images and
// metafields.
func (m *EntityMigrator) MigrateProducts(ctx context.Context, policy model.Policy) (Stats, error) {
	res, err := simplePhase(ctx, m, model.ResourceProducts, policy, withMetafields(m, model.ResourceProducts, m.createProduct))
	return res.Stats, err
}

func (m *EntityMigrator) createProduct(ctx context.Context, p model.Product, stats *Stats) (int64, error) {
	payload := prepareProduct(p)
	m.logger.Dump("product payload", payload)

	created, err := createRecord(ctx, m.destination, model.ResourceProducts, 0, payload)
	if err != nil {
		return 0, err
	}
	for _, img := range p.Images {
		m.createImage(ctx, p, created, img, stats)
	}
	return created.ID, nil
}

// prepareProduct returns the create payload for p. Images go separately once
// the product and its variants exist.
func prepareProduct(p model.Product) model.Product {
	p.ID = 0
	p.Images = nil
	p.Image = nil

	variants := make([]model.Variant, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = prepareVariant(v)
	}
	if p.Variants == nil {
		variants = nil
	}
	p.Variants = variants
	return p
}

func prepareVariant(v model.Variant) model.Variant {
	v.ID = 0
	v.ProductID = 0
	v.ImageID = nil
	v.FulfillmentService = nil
	managed := model.InventoryManagedByPlatform
	v.InventoryManagement = &managed

	if v.CompareAtPrice != nil {
		compareAt, okCompare := v.CompareAtPrice.Float()
		price, okPrice := v.Price.Float()
		switch {
		case *v.CompareAtPrice == "":
			v.CompareAtPrice = nil
		case okCompare && okPrice && compareAt <= price:
			v.CompareAtPrice = nil
		}
	}
	return v
}

// createImage attaches one source image to the destination product, with
// its variant references rewritten through variant titles. A failed create
// is retried once; a second failure only fails this image.
func (m *EntityMigrator) createImage(ctx context.Context, source, destination model.Product, img model.Image, stats *Stats) {
	log := m.logger.WithContext(ctx).WithFields(map[string]interface{}{"key": source.Handle, "image_id": img.ID})

	payload := img
	payload.ID = 0
	payload.ProductID = 0
	mapped, unmapped := service.RemapVariantIDs(img.VariantIDs, source.Variants, destination.Variants)
	if len(unmapped) > 0 {
		log.Warnf("image %d references variants %v with no destination counterpart", img.ID, unmapped)
	}
	payload.VariantIDs = mapped

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			_, err := createRecord(ctx, m.destination, model.ResourceImages, destination.ID, payload)
			return err
		},
		IsFatalError: func(error) bool {
			return ctx.Err() != nil
		},
		NotifyFunc: func(err error, attempt int) {
			if attempt < imageCreateAttempts {
				log.Warnf("image %d of product %q failed on attempt %d, retrying: %v", img.ID, source.Handle, attempt, err)
			}
		},
		Attempts: imageCreateAttempts,
		Delay:    m.retry.Delay,
		Clock:    m.retry.Clock,
	})
	if err != nil {
		if retry.IsAttemptsExceeded(err) {
			err = retry.LastError(err)
		}
		stats.DependentFailed++
		log.Errorf("failed to migrate image %d of product %q: %v", img.ID, source.Handle, err)
		m.events.publish(ctx, eventbus.EventTypeDependentFailed, RecordEvent{
			Resource: model.ResourceImages,
			Key:      fmt.Sprintf("%s/%d", source.Handle, img.ID),
			SourceID: img.ID,
			TargetID: destination.ID,
			Message:  err.Error(),
		})
		return
	}
	log.Debugf("migrated image %d of product %q", img.ID, source.Handle)
}
