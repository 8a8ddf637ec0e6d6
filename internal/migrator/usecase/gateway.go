package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/migrator/domain/service"
)

// listAll drains a listing and decodes every record into T.
func listAll[T any](ctx context.Context, store client.StoreClient, req client.ListRequest) ([]T, error) {
	return service.Drain(ctx, func(ctx context.Context, cursor string) ([]T, *string, error) {
		page := req
		page.Cursor = cursor
		res, err := store.List(ctx, page)
		if err != nil {
			return nil, nil, fmt.Errorf("list %s: %w", req.Resource, err)
		}
		records := make([]T, 0, len(res.Records))
		for _, raw := range res.Records {
			rec, err := model.Decode[T](raw)
			if err != nil {
				return nil, nil, fmt.Errorf("decode %s: %w", req.Resource.Singular(), err)
			}
			records = append(records, rec)
		}
		return records, res.Next, nil
	})
}

// createRecord encodes rec, creates it and decodes what the store returns.
func createRecord[T any](ctx context.Context, store client.StoreClient, resource model.ResourceType, parentID int64, rec T) (T, error) {
	var zero T
	payload, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", resource.Singular(), err)
	}
	raw, err := store.Create(ctx, resource, parentID, payload)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", resource.Singular(), err)
	}
	created, err := model.Decode[T](raw)
	if err != nil {
		return zero, fmt.Errorf("decode created %s: %w", resource.Singular(), err)
	}
	return created, nil
}
