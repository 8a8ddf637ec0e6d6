package usecase

import (
	"context"

	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/migrator/domain/repository"
	"catalog-migrator/internal/shared/eventbus"
	"catalog-migrator/internal/shared/logger"
	"catalog-migrator/internal/shared/utils"
)

// RecordEvent is the payload of every event published during a run.
type RecordEvent struct {
	RunID    string
	Resource model.ResourceType
	Key      string
	SourceID int64
	TargetID int64
	Message  string
}

type publisher struct {
	bus    eventbus.EventBusInterface
	source string
	logger logger.Logger
}

func newPublisher(bus eventbus.EventBusInterface, source string, log logger.Logger) *publisher {
	return &publisher{bus: bus, source: source, logger: log}
}

// publish never fails the caller; subscriber errors are logged.
func (p *publisher) publish(ctx context.Context, eventType string, ev RecordEvent) {
	if p == nil || p.bus == nil {
		return
	}
	ev.RunID = utils.RunIDOrEmpty(ctx)
	if err := p.bus.Publish(ctx, eventbus.NewBasicEventWithSource(eventType, ev, p.source)); err != nil {
		p.logger.WithContext(ctx).Warnf("event subscriber failed for %s: %v", eventType, err)
	}
}

// NewJournalHandler forwards run events to an audit journal.
func NewJournalHandler(journal repository.EventJournal) eventbus.Handler {
	return func(ctx context.Context, event eventbus.Event) error {
		entry := repository.JournalEntry{
			Type:      event.Type(),
			Timestamp: event.Timestamp().UnixNano(),
		}
		if ev, ok := event.Data().(RecordEvent); ok {
			entry.RunID = ev.RunID
			entry.Resource = ev.Resource
			entry.Key = ev.Key
			entry.SourceID = ev.SourceID
			entry.TargetID = ev.TargetID
			entry.Message = ev.Message
		}
		if entry.RunID == "" {
			entry.RunID = utils.RunIDOrEmpty(ctx)
		}
		if entry.Resource == "" {
			if resource, err := utils.GetResourceFromContext(ctx); err == nil {
				entry.Resource = model.ResourceType(resource)
			}
		}
		return journal.Append(ctx, entry)
	}
}
