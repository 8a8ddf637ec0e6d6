package repository

import (
	"context"
	"encoding/json"

	"catalog-migrator/internal/migrator/domain/model"
)

// SnapshotRepository receives a copy of every record fetched from the source
// store. It is a side export only and is never read during a run.
type SnapshotRepository interface {
	// Save stores one raw record under its resource type and origin id.
	Save(ctx context.Context, resource model.ResourceType, id int64, record json.RawMessage) error
	// Close releases any lock or connection held by the repository.
	Close(ctx context.Context) error
}

// JournalEntry is one reconciliation decision as written to the audit
// journal.
type JournalEntry struct {
	RunID     string             `json:"run_id"`
	Type      string             `json:"type"`
	Resource  model.ResourceType `json:"resource,omitempty"`
	Key       string             `json:"key,omitempty"`
	SourceID  int64              `json:"source_id,omitempty"`
	TargetID  int64              `json:"target_id,omitempty"`
	Message   string             `json:"message,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// EventJournal appends run events to an external audit log.
type EventJournal interface {
	Append(ctx context.Context, entry JournalEntry) error
}
