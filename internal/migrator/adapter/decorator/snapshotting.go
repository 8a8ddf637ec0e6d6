package decorator

import (
	"context"
	"encoding/json"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/repository"
	"catalog-migrator/internal/shared/logger"
)

// Snapshotting wraps the source store and hands every listed record to a
// snapshot repository. Snapshot failures are logged and never fail the
// listing.
type Snapshotting struct {
	client.StoreClient
	repo   repository.SnapshotRepository
	logger logger.Logger
}

// NewSnapshotting wraps inner.
func NewSnapshotting(inner client.StoreClient, repo repository.SnapshotRepository, log logger.Logger) *Snapshotting {
	return &Snapshotting{
		StoreClient: inner,
		repo:        repo,
		logger:      logger.NopIfNil(log).WithComponent("snapshot"),
	}
}

type recordID struct {
	ID int64 `json:"id"`
}

// List delegates to the wrapped store and saves each record of the page.
func (s *Snapshotting) List(ctx context.Context, req client.ListRequest) (client.ListResult, error) {
	res, err := s.StoreClient.List(ctx, req)
	if err != nil {
		return res, err
	}
	for _, raw := range res.Records {
		var rec recordID
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == 0 {
			s.logger.Warnf("not saving %s record without id", req.Resource.Singular())
			continue
		}
		if err := s.repo.Save(ctx, req.Resource, rec.ID, raw); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"resource": req.Resource,
				"id":       rec.ID,
			}).Warnf("failed to save snapshot: %v", err)
		}
	}
	return res, nil
}
