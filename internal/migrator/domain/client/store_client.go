package client

import (
	"context"
	"encoding/json"

	"catalog-migrator/internal/migrator/domain/model"

	"github.com/juju/collections/set"
)

// StoreClient defines the capability a catalog endpoint offers. The source
// and the destination each hold an independent instance.
type StoreClient interface {
	// List returns one page of records. ListResult.Next is nil when the
	// listing is exhausted; any non-nil value, including "", is a cursor to
	// pass back.
	List(ctx context.Context, req ListRequest) (ListResult, error)
	// Create stores payload and returns the stored record with its newly
	// assigned id. A validation failure at the store is a RemoteRejected
	// error.
	Create(ctx context.Context, resource model.ResourceType, parentID int64, payload json.RawMessage) (json.RawMessage, error)
	// Delete removes a record. A missing record is a RemoteNotFound error.
	Delete(ctx context.Context, resource model.ResourceType, parentID int64, id int64) error
	// ListScopes returns the access scopes granted to the credentials.
	ListScopes(ctx context.Context) (set.Strings, error)
}

// ListRequest selects one page of a listing.
type ListRequest struct {
	Resource model.ResourceType
	Cursor   string
	// ParentID scopes nested resources (articles under a blog, images under
	// a product). Zero for top-level resources.
	ParentID int64
	Filter   Filter
}

// Filter narrows a listing. The url tags are the query parameters the REST
// adapter sends.
type Filter struct {
	Owner        *model.Owner `url:"metafield,omitempty"`
	CollectionID int64        `url:"collection_id,omitempty"`
}

// IsZero reports whether the filter selects everything.
func (f Filter) IsZero() bool {
	return f.Owner == nil && f.CollectionID == 0
}

// ListResult is one page of raw records plus the cursor of the next page.
type ListResult struct {
	Records []json.RawMessage
	Next    *string
}

// Cursor is a helper for building a non-nil next cursor.
func Cursor(s string) *string {
	return &s
}
