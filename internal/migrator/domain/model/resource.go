package model

// ResourceType names one catalog resource collection.
type ResourceType string

const (
	ResourcePages             ResourceType = "pages"
	ResourceBlogs             ResourceType = "blogs"
	ResourceArticles          ResourceType = "articles"
	ResourceProducts          ResourceType = "products"
	ResourceImages            ResourceType = "images"
	ResourceSmartCollections  ResourceType = "smart_collections"
	ResourceCustomCollections ResourceType = "custom_collections"
	ResourceCollects          ResourceType = "collects"
	ResourceMetafields        ResourceType = "metafields"
)

type resourceInfo struct {
	singular      string
	parent        ResourceType
	ownerResource string
}

var resources = map[ResourceType]resourceInfo{
	ResourcePages:             {singular: "page", ownerResource: "page"},
	ResourceBlogs:             {singular: "blog", ownerResource: "blog"},
	ResourceArticles:          {singular: "article", parent: ResourceBlogs, ownerResource: "article"},
	ResourceProducts:          {singular: "product", ownerResource: "product"},
	ResourceImages:            {singular: "image", parent: ResourceProducts},
	ResourceSmartCollections:  {singular: "smart_collection", ownerResource: "collection"},
	ResourceCustomCollections: {singular: "custom_collection", ownerResource: "collection"},
	ResourceCollects:          {singular: "collect"},
	ResourceMetafields:        {singular: "metafield"},
}

// Known reports whether r is a resource type this tool understands.
func (r ResourceType) Known() bool {
	_, ok := resources[r]
	return ok
}

// String returns the plural collection name, e.g. "products".
func (r ResourceType) String() string {
	return string(r)
}

// Singular is the JSON envelope key for one record, e.g. "product".
func (r ResourceType) Singular() string {
	return resources[r].singular
}

// Plural is the JSON envelope key for a listing, e.g. "products".
func (r ResourceType) Plural() string {
	return string(r)
}

// Parent is the resource a record is nested under, or "" for top-level ones.
func (r ResourceType) Parent() ResourceType {
	return resources[r].parent
}

// OwnerResource is the value metafields use in owner_resource for records of
// this type, or "" when the type cannot own metafields.
func (r ResourceType) OwnerResource() string {
	return resources[r].ownerResource
}

// MigrationOrder is the dependency order the orchestrator walks.
var MigrationOrder = []ResourceType{
	ResourcePages,
	ResourceBlogs,
	ResourceArticles,
	ResourceProducts,
	ResourceSmartCollections,
	ResourceCustomCollections,
	ResourceMetafields,
}
