package persistence

import (
	"context"

	"catalog-migrator/internal/migrator/domain/repository"
	"catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// DefaultJournalMaxLen caps the stream so repeated runs do not grow it
// without bound.
const DefaultJournalMaxLen = 100000

// RedisJournal appends run events to a Redis stream. It is write-only; the
// migrator never reads the stream back.
type RedisJournal struct {
	client *redis.Client
	stream string
	maxLen int64
	logger logger.Logger
}

// NewRedisJournal creates a journal writing to stream.
func NewRedisJournal(client *redis.Client, stream string, maxLen int64, log logger.Logger) *RedisJournal {
	if maxLen <= 0 {
		maxLen = DefaultJournalMaxLen
	}
	return &RedisJournal{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger.NopIfNil(log).WithComponent("redis-journal"),
	}
}

// Append adds one entry to the stream.
func (r *RedisJournal) Append(ctx context.Context, entry repository.JournalEntry) error {
	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"run_id":    entry.RunID,
			"type":      entry.Type,
			"resource":  string(entry.Resource),
			"key":       entry.Key,
			"source_id": entry.SourceID,
			"target_id": entry.TargetID,
			"message":   entry.Message,
			"timestamp": entry.Timestamp,
		},
	}).Result()
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"stream": r.stream,
			"type":   entry.Type,
		}).Errorf("failed to append journal entry: %v", err)
		return errors.NewTransportError("append journal entry").WithCause(err)
	}

	r.logger.Debugf("journal entry %s stored as %s", entry.Type, id)
	return nil
}

// Ping verifies the Redis connection.
func (r *RedisJournal) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewPreconditionError("redis journal unreachable").WithCause(err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisJournal) Close() error {
	return r.client.Close()
}
