package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "catalog-migrator context key " + string(c)
}

// RunIDKey identifies one migration run.
const RunIDKey = contextKey("runID")

// ResourceKey is the resource type currently being reconciled.
const ResourceKey = contextKey("resource")

// StoreKey names the store ("source" or "destination") a call targets.
const StoreKey = contextKey("store")

// OperationKey names the store operation in flight (list, create, delete).
const OperationKey = contextKey("operation")
