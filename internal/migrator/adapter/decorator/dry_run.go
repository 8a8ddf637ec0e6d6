package decorator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"catalog-migrator/internal/migrator/adapter/memory"
	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"

	"github.com/juju/collections/set"
)

const overlayCursorPrefix = "overlay:"

// DryRun wraps the destination store so a run performs no writes. Creates
// land in an in-memory overlay with negative ids; deletes of real records
// only hide them from later listings. Listings return the real records
// followed by the overlay ones, so later phases see what a real run would
// have produced.
type DryRun struct {
	inner   client.StoreClient
	overlay *memory.Store
	logger  logger.Logger

	mu     sync.Mutex
	hidden map[model.ResourceType]map[int64]bool
}

// NewDryRun wraps inner.
func NewDryRun(inner client.StoreClient, log logger.Logger) *DryRun {
	log = logger.NopIfNil(log).WithComponent("dry-run")
	return &DryRun{
		inner: inner,
		overlay: memory.NewStore("dry-run",
			memory.WithIDStep(-1),
			memory.WithLenientParents(),
			memory.WithLogger(log),
		),
		logger: log,
		hidden: make(map[model.ResourceType]map[int64]bool),
	}
}

// ListScopes reports the real store's scopes.
func (d *DryRun) ListScopes(ctx context.Context) (set.Strings, error) {
	return d.inner.ListScopes(ctx)
}

// List pages through the real store first, then through the overlay.
func (d *DryRun) List(ctx context.Context, req client.ListRequest) (client.ListResult, error) {
	if strings.HasPrefix(req.Cursor, overlayCursorPrefix) {
		overlayReq := req
		overlayReq.Cursor = strings.TrimPrefix(req.Cursor, overlayCursorPrefix)
		res, err := d.overlay.List(ctx, overlayReq)
		if err != nil {
			return client.ListResult{}, err
		}
		if res.Next != nil {
			res.Next = client.Cursor(overlayCursorPrefix + *res.Next)
		}
		return res, nil
	}

	if req.ParentID < 0 {
		// children of an overlay record exist only in the overlay
		req.Cursor = overlayCursorPrefix
		return d.List(ctx, req)
	}

	res, err := d.inner.List(ctx, req)
	if err != nil {
		return client.ListResult{}, err
	}
	res.Records = d.visible(req.Resource, res.Records)
	if res.Next == nil {
		res.Next = client.Cursor(overlayCursorPrefix)
	}
	return res, nil
}

func (d *DryRun) visible(resource model.ResourceType, records []json.RawMessage) []json.RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	hidden := d.hidden[resource]
	if len(hidden) == 0 {
		return records
	}
	kept := records[:0]
	for _, raw := range records {
		var rec recordID
		if err := json.Unmarshal(raw, &rec); err == nil && hidden[rec.ID] {
			continue
		}
		kept = append(kept, raw)
	}
	return kept
}

// Create logs the payload and stores it in the overlay.
func (d *DryRun) Create(ctx context.Context, resource model.ResourceType, parentID int64, payload json.RawMessage) (json.RawMessage, error) {
	raw, err := d.overlay.Create(ctx, resource, parentID, payload)
	if err != nil {
		return nil, err
	}
	var rec recordID
	_ = json.Unmarshal(raw, &rec)
	d.logger.Infof("[dry-run] would create %s (synthetic id %d)", resource.Singular(), rec.ID)
	d.logger.Dump("[dry-run] payload", string(payload))
	return raw, nil
}

// Delete removes overlay records and hides real ones.
func (d *DryRun) Delete(ctx context.Context, resource model.ResourceType, parentID int64, id int64) error {
	if id < 0 {
		return d.overlay.Delete(ctx, resource, parentID, id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hidden[resource][id] {
		return errors.NewRemoteNotFoundError(fmt.Sprintf("%s %d", resource.Singular(), id))
	}
	if d.hidden[resource] == nil {
		d.hidden[resource] = make(map[int64]bool)
	}
	d.hidden[resource][id] = true
	d.logger.Infof("[dry-run] would delete %s %d", resource.Singular(), id)
	return nil
}

// Created returns how many records the run would have created per type.
func (d *DryRun) Created(resource model.ResourceType) int {
	return d.overlay.Count(resource)
}
