package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKey_String(t *testing.T) {
	key := contextKey("testKey")
	assert.Equal(t, "catalog-migrator context key testKey", key.String())
}

func TestContextKeys_Usage(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, RunIDKey, "run-123")
	ctx = context.WithValue(ctx, ResourceKey, "products")
	ctx = context.WithValue(ctx, StoreKey, "destination")
	ctx = context.WithValue(ctx, OperationKey, "create")

	assert.Equal(t, "run-123", ctx.Value(RunIDKey))
	assert.Equal(t, "products", ctx.Value(ResourceKey))
	assert.Equal(t, "destination", ctx.Value(StoreKey))
	assert.Equal(t, "create", ctx.Value(OperationKey))
}
