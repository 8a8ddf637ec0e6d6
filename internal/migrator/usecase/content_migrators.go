package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/eventbus"
)

// MigratePages copies pages and their metafields.
func (m *EntityMigrator) MigratePages(ctx context.Context, policy model.Policy) (Stats, error) {
	res, err := simplePhase(ctx, m, model.ResourcePages, policy, withMetafields(m, model.ResourcePages,
		func(ctx context.Context, p model.Page, stats *Stats) (int64, error) {
			p.ID = 0
			created, err := createRecord(ctx, m.destination, model.ResourcePages, 0, p)
			return created.ID, err
		}))
	return res.Stats, err
}

// MigrateBlogs copies blogs and their metafields. Articles are a phase of
// their own.
func (m *EntityMigrator) MigrateBlogs(ctx context.Context, policy model.Policy) (Stats, error) {
	res, err := simplePhase(ctx, m, model.ResourceBlogs, policy, withMetafields(m, model.ResourceBlogs,
		func(ctx context.Context, b model.Blog, stats *Stats) (int64, error) {
			b.ID = 0
			created, err := createRecord(ctx, m.destination, model.ResourceBlogs, 0, b)
			return created.ID, err
		}))
	return res.Stats, err
}

// MigrateArticles copies articles blog by blog. The destination blog is
// found by handle; articles of a blog with no destination counterpart are
// reported as failed. A listing error for one blog does not stop the others.
func (m *EntityMigrator) MigrateArticles(ctx context.Context, policy model.Policy) (Stats, error) {
	start := time.Now()
	total := Stats{Resource: model.ResourceArticles}
	log := m.logger.WithContext(ctx)

	sourceBlogs, err := listAll[model.Blog](ctx, m.source, client.ListRequest{Resource: model.ResourceBlogs})
	if err != nil {
		return total, err
	}
	destinationBlogs, err := destinationIndex[model.Blog](ctx, m, client.ListRequest{Resource: model.ResourceBlogs})
	if err != nil {
		return total, err
	}

	var errs []error
	for _, blog := range sourceBlogs {
		articles, err := listAll[model.Article](ctx, m.source, client.ListRequest{
			Resource: model.ResourceArticles,
			ParentID: blog.ID,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("blog %q: %w", blog.Handle, err))
			continue
		}

		blogID, ok := destinationBlogs.Lookup(blog.Handle)
		if !ok {
			log.Warnf("blog %q has no destination counterpart; skipping its %d articles", blog.Handle, len(articles))
			total.Total += len(articles)
			total.Failed += len(articles)
			for _, a := range articles {
				m.events.publish(ctx, eventbus.EventTypeRecordFailed, RecordEvent{
					Resource: model.ResourceArticles,
					Key:      a.Handle,
					SourceID: a.ID,
					Message:  fmt.Sprintf("destination blog %q not found", blog.Handle),
				})
			}
			continue
		}

		index, err := destinationIndex[model.Article](ctx, m, client.ListRequest{
			Resource: model.ResourceArticles,
			ParentID: blogID,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("blog %q: %w", blog.Handle, err))
			continue
		}
		log.Infof("reconciling %d articles of blog %q against %d destination keys (%s)",
			len(articles), blog.Handle, index.Len(), policy)

		res := Reconcile(ctx, m.reconciler, Job[model.Article]{
			Resource: model.ResourceArticles,
			Records:  articles,
			Index:    index,
			Policy:   policy,
			ParentID: blogID,
			Migrate:  withMetafields(m, model.ResourceArticles, m.articleCreator(blogID)),
		})
		total.Add(res.Stats)
	}

	total.Duration = time.Since(start)
	return total, errors.Join(errs...)
}

func (m *EntityMigrator) articleCreator(blogID int64) func(ctx context.Context, a model.Article, stats *Stats) (int64, error) {
	return func(ctx context.Context, a model.Article, stats *Stats) (int64, error) {
		created, err := createRecord(ctx, m.destination, model.ResourceArticles, blogID, prepareArticle(a, blogID))
		return created.ID, err
	}
}

// prepareArticle strips source-only fields and points the article at its
// destination blog.
func prepareArticle(a model.Article, blogID int64) model.Article {
	a.ID = 0
	a.UserID = 0
	a.CreatedAt = nil
	a.DeletedAt = nil
	a.BlogID = blogID
	return a
}
