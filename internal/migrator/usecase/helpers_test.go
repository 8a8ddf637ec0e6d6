package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"catalog-migrator/internal/migrator/adapter/memory"
	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/eventbus"

	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockStoreClient is a testify mock of client.StoreClient.
type mockStoreClient struct {
	mock.Mock
}

func (m *mockStoreClient) List(ctx context.Context, req client.ListRequest) (client.ListResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(client.ListResult)
	return res, args.Error(1)
}

func (m *mockStoreClient) Create(ctx context.Context, resource model.ResourceType, parentID int64, payload json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, resource, parentID, payload)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockStoreClient) Delete(ctx context.Context, resource model.ResourceType, parentID int64, id int64) error {
	args := m.Called(ctx, resource, parentID, id)
	return args.Error(0)
}

func (m *mockStoreClient) ListScopes(ctx context.Context) (set.Strings, error) {
	args := m.Called(ctx)
	scopes, _ := args.Get(0).(set.Strings)
	return scopes, args.Error(1)
}

// eventRecorder collects every event type published on a bus.
type eventRecorder struct {
	types  []string
	events []RecordEvent
}

func recordEvents(bus *eventbus.EventBus) *eventRecorder {
	rec := &eventRecorder{}
	bus.SubscribeAll(func(ctx context.Context, event eventbus.Event) error {
		rec.types = append(rec.types, event.Type())
		if ev, ok := event.Data().(RecordEvent); ok {
			rec.events = append(rec.events, ev)
		}
		return nil
	})
	return rec
}

func (r *eventRecorder) count(eventType string) int {
	n := 0
	for _, t := range r.types {
		if t == eventType {
			n++
		}
	}
	return n
}

type testEnv struct {
	source      *memory.Store
	destination *memory.Store
	bus         *eventbus.EventBus
	events      *eventRecorder
	migrator    *EntityMigrator
	orch        *Orchestrator
}

func newTestEnv(t *testing.T, filter RecordFilter) *testEnv {
	t.Helper()
	env := &testEnv{
		source:      memory.NewStore("source", memory.WithIDBase(1000), memory.WithPageSize(2)),
		destination: memory.NewStore("destination", memory.WithIDBase(500000), memory.WithPageSize(3)),
		bus:         eventbus.NewEventBus(nil),
	}
	env.events = recordEvents(env.bus)
	reconciler := NewReconciler(env.destination, filter, env.bus, nil)
	env.migrator = NewEntityMigrator(env.source, env.destination, reconciler, env.bus,
		RetryConfig{Delay: time.Millisecond, Clock: clock.WallClock}, nil)
	env.orch = NewOrchestrator(env.source, env.destination, env.migrator, env.bus, nil)
	return env
}

// seed creates v in store and decodes the stored record into T.
func seed[T any](t *testing.T, store client.StoreClient, resource model.ResourceType, parentID int64, v interface{}) T {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	raw, err := store.Create(context.Background(), resource, parentID, payload)
	require.NoError(t, err)
	rec, err := model.Decode[T](raw)
	require.NoError(t, err)
	return rec
}

// all drains a listing of store.
func all[T any](t *testing.T, store client.StoreClient, req client.ListRequest) []T {
	t.Helper()
	records, err := listAll[T](context.Background(), store, req)
	require.NoError(t, err)
	return records
}

func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
