package utils

import (
	"context"
	"errors"

	"catalog-migrator/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrRunIDNotFound     = errors.New("runID not found in context")
	ErrRunIDNotString    = errors.New("runID in context is not a string")
	ErrResourceNotFound  = errors.New("resource not found in context")
	ErrResourceNotString = errors.New("resource in context is not a string")
)

// WithRunID returns a copy of ctx carrying the run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextkeys.RunIDKey, runID)
}

// WithResource returns a copy of ctx carrying the resource type being migrated.
func WithResource(ctx context.Context, resource string) context.Context {
	return context.WithValue(ctx, contextkeys.ResourceKey, resource)
}

// WithStore returns a copy of ctx naming the store a call targets.
func WithStore(ctx context.Context, store string) context.Context {
	return context.WithValue(ctx, contextkeys.StoreKey, store)
}

// WithOperation returns a copy of ctx naming the store operation in flight.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextkeys.OperationKey, operation)
}

// GetRunIDFromContext retrieves the run ID from the context.
// It returns the run ID and an error if the run ID is not found or is not a string.
func GetRunIDFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.RunIDKey)
	if val == nil {
		return "", ErrRunIDNotFound
	}
	runID, ok := val.(string)
	if !ok {
		return "", ErrRunIDNotString
	}
	return runID, nil
}

// GetResourceFromContext retrieves the resource type from the context.
func GetResourceFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.ResourceKey)
	if val == nil {
		return "", ErrResourceNotFound
	}
	resource, ok := val.(string)
	if !ok {
		return "", ErrResourceNotString
	}
	return resource, nil
}

// RunIDOrEmpty returns the run id or "" when none is set.
func RunIDOrEmpty(ctx context.Context) string {
	runID, _ := GetRunIDFromContext(ctx)
	return runID
}
