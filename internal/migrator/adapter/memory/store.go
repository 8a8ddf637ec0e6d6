package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"

	"github.com/juju/collections/set"
)

const defaultPageSize = 50

// CreateHook can reject a create before it is stored. Returning an error
// makes Create fail with that error.
type CreateHook func(resource model.ResourceType, parentID int64, payload json.RawMessage) error

// Store is an in-process catalog with the StoreClient contract. It assigns
// its own ids, including nested variant ids, and paginates with numeric
// offset cursors.
type Store struct {
	mu       sync.Mutex
	name     string
	nextID   int64
	idStep   int64
	lenient  bool
	pageSize int
	scopes   set.Strings
	records  map[model.ResourceType][]*entry
	hook     CreateHook
	logger   logger.Logger
}

type entry struct {
	id       int64
	parentID int64
	fields   map[string]json.RawMessage
}

// Option configures a Store.
type Option func(*Store)

// WithIDBase makes the store hand out ids starting after base.
func WithIDBase(base int64) Option {
	return func(s *Store) { s.nextID = base }
}

// WithIDStep sets the increment between assigned ids. A negative step
// yields synthetic ids that can never collide with a real store's.
func WithIDStep(step int64) Option {
	return func(s *Store) {
		if step != 0 {
			s.idStep = step
		}
	}
}

// WithLenientParents accepts nested creates whose parent lives elsewhere.
func WithLenientParents() Option {
	return func(s *Store) { s.lenient = true }
}

// WithPageSize sets how many records List returns per page.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithScopes replaces the granted access scopes.
func WithScopes(scopes ...string) Option {
	return func(s *Store) { s.scopes = set.NewStrings(scopes...) }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) { s.logger = log }
}

// NewStore creates an empty store with full read and write scopes.
func NewStore(name string, opts ...Option) *Store {
	s := &Store{
		name:     name,
		idStep:   1,
		pageSize: defaultPageSize,
		scopes:   set.NewStrings("read_content", "write_content", "read_products", "write_products"),
		records:  make(map[model.ResourceType][]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.NopIfNil(s.logger).WithComponent("memory-store").WithFields(map[string]interface{}{"store": name})
	return s
}

// OnCreate installs a hook consulted before every create.
func (s *Store) OnCreate(hook CreateHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// ListScopes returns the granted scopes.
func (s *Store) ListScopes(ctx context.Context) (set.Strings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return set.NewStrings(s.scopes.Values()...), nil
}

// List returns one page of matching records.
func (s *Store) List(ctx context.Context, req client.ListRequest) (client.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return client.ListResult{}, err
	}
	if !req.Resource.Known() {
		return client.ListResult{}, errors.NewValidationError(fmt.Sprintf("unknown resource %q", req.Resource))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset := 0
	if req.Cursor != "" {
		n, err := strconv.Atoi(req.Cursor)
		if err != nil || n < 0 {
			return client.ListResult{}, errors.NewValidationError(fmt.Sprintf("invalid cursor %q", req.Cursor))
		}
		offset = n
	}

	var matched []*entry
	for _, e := range s.records[req.Resource] {
		if s.matches(req, e) {
			matched = append(matched, e)
		}
	}

	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + s.pageSize
	if end > len(matched) {
		end = len(matched)
	}

	result := client.ListResult{Records: make([]json.RawMessage, 0, end-offset)}
	for _, e := range matched[offset:end] {
		raw, err := s.render(req.Resource, e)
		if err != nil {
			return client.ListResult{}, errors.NewInternalError("render record").WithCause(err)
		}
		result.Records = append(result.Records, raw)
	}
	if end < len(matched) {
		result.Next = client.Cursor(strconv.Itoa(end))
	}
	return result, nil
}

func (s *Store) matches(req client.ListRequest, e *entry) bool {
	if req.ParentID != 0 && e.parentID != req.ParentID {
		return false
	}
	if req.Filter.CollectionID != 0 && fieldInt(e.fields, "collection_id") != req.Filter.CollectionID {
		return false
	}
	if req.Resource == model.ResourceMetafields {
		ownerID := fieldInt(e.fields, "owner_id")
		ownerResource := fieldString(e.fields, "owner_resource")
		if req.Filter.Owner == nil {
			return ownerID == 0 && ownerResource == ""
		}
		return ownerID == req.Filter.Owner.ID && ownerResource == req.Filter.Owner.Resource
	}
	return true
}

// render encodes an entry, attaching a product's images the way the
// platform returns them.
func (s *Store) render(resource model.ResourceType, e *entry) (json.RawMessage, error) {
	if resource != model.ResourceProducts {
		return json.Marshal(e.fields)
	}
	fields := make(map[string]json.RawMessage, len(e.fields)+1)
	for k, v := range e.fields {
		fields[k] = v
	}
	images := []json.RawMessage{}
	for _, img := range s.records[model.ResourceImages] {
		if img.parentID == e.id {
			raw, err := json.Marshal(img.fields)
			if err != nil {
				return nil, err
			}
			images = append(images, raw)
		}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}
	fields["images"] = raw
	return json.Marshal(fields)
}

// Create stores payload and returns it with server-assigned fields.
func (s *Store) Create(ctx context.Context, resource model.ResourceType, parentID int64, payload json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !resource.Known() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown resource %q", resource))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hook != nil {
		if err := s.hook(resource, parentID, payload); err != nil {
			return nil, err
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, errors.NewRemoteRejectedError("payload is not a JSON object", 400).WithCause(err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	if err := s.validate(resource, parentID, fields); err != nil {
		return nil, err
	}

	e := &entry{id: s.allocate(), parentID: parentID, fields: fields}
	setInt(fields, "id", e.id)

	var collects []json.RawMessage
	switch resource {
	case model.ResourceArticles:
		setInt(fields, "blog_id", parentID)
	case model.ResourceImages:
		setInt(fields, "product_id", parentID)
	case model.ResourceProducts:
		if err := s.assignVariantIDs(e); err != nil {
			return nil, err
		}
		// images are stored as their own records
		if raw, ok := fields["images"]; ok {
			delete(fields, "images")
			var imgs []map[string]json.RawMessage
			if err := json.Unmarshal(raw, &imgs); err == nil {
				for _, img := range imgs {
					imgEntry := &entry{id: s.allocate(), parentID: e.id, fields: img}
					setInt(img, "id", imgEntry.id)
					setInt(img, "product_id", e.id)
					s.records[model.ResourceImages] = append(s.records[model.ResourceImages], imgEntry)
				}
			}
		}
	case model.ResourceCustomCollections:
		if raw, ok := fields["collects"]; ok {
			delete(fields, "collects")
			if err := json.Unmarshal(raw, &collects); err != nil {
				return nil, errors.NewRemoteRejectedError("collects must be a list", 422).WithCause(err)
			}
		}
	}

	s.records[resource] = append(s.records[resource], e)
	for _, raw := range collects {
		var c map[string]json.RawMessage
		if err := json.Unmarshal(raw, &c); err != nil {
			continue
		}
		ce := &entry{id: s.allocate(), fields: c}
		setInt(c, "id", ce.id)
		setInt(c, "collection_id", e.id)
		s.records[model.ResourceCollects] = append(s.records[model.ResourceCollects], ce)
	}

	s.logger.Debugf("created %s %d", resource.Singular(), e.id)
	return s.render(resource, e)
}

func (s *Store) validate(resource model.ResourceType, parentID int64, fields map[string]json.RawMessage) error {
	if parent := resource.Parent(); parent != "" {
		if parentID == 0 || (!s.lenient && s.find(parent, 0, parentID) < 0) {
			return errors.NewRemoteNotFoundError(fmt.Sprintf("%s %d", parent.Singular(), parentID))
		}
	}
	switch resource {
	case model.ResourceMetafields:
		if fieldString(fields, "namespace") == "" || fieldString(fields, "key") == "" {
			return errors.NewRemoteRejectedError("metafield namespace and key can't be blank", 422)
		}
	case model.ResourceImages:
		if fieldString(fields, "src") == "" && fieldString(fields, "attachment") == "" {
			return errors.NewRemoteRejectedError("image src can't be blank", 422)
		}
	case model.ResourceCollects:
	default:
		if fieldString(fields, "title") == "" && fieldString(fields, "handle") == "" {
			return errors.NewRemoteRejectedError(resource.Singular()+" title can't be blank", 422)
		}
	}
	return nil
}

func (s *Store) assignVariantIDs(e *entry) error {
	raw, ok := e.fields["variants"]
	if !ok {
		return nil
	}
	var variants []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &variants); err != nil {
		return errors.NewRemoteRejectedError("variants must be a list", 422).WithCause(err)
	}
	for _, v := range variants {
		setInt(v, "id", s.allocate())
		setInt(v, "product_id", e.id)
	}
	encoded, err := json.Marshal(variants)
	if err != nil {
		return errors.NewInternalError("encode variants").WithCause(err)
	}
	e.fields["variants"] = encoded
	return nil
}

// Delete removes a record and whatever the platform would remove with it:
// owned metafields, a blog's articles, a product's images, a collection's
// collects.
func (s *Store) Delete(ctx context.Context, resource model.ResourceType, parentID int64, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(resource, parentID, id)
	if i < 0 {
		return errors.NewRemoteNotFoundError(fmt.Sprintf("%s %d", resource.Singular(), id))
	}
	s.records[resource] = append(s.records[resource][:i], s.records[resource][i+1:]...)

	switch resource {
	case model.ResourceBlogs:
		s.removeWhere(model.ResourceArticles, func(e *entry) bool { return e.parentID == id })
	case model.ResourceProducts:
		s.removeWhere(model.ResourceImages, func(e *entry) bool { return e.parentID == id })
		s.removeWhere(model.ResourceCollects, func(e *entry) bool { return fieldInt(e.fields, "product_id") == id })
	case model.ResourceCustomCollections:
		s.removeWhere(model.ResourceCollects, func(e *entry) bool { return fieldInt(e.fields, "collection_id") == id })
	}
	if owner := resource.OwnerResource(); owner != "" {
		s.removeWhere(model.ResourceMetafields, func(e *entry) bool {
			return fieldString(e.fields, "owner_resource") == owner && fieldInt(e.fields, "owner_id") == id
		})
	}
	return nil
}

// Count returns how many records of a resource type are stored.
func (s *Store) Count(resource model.ResourceType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[resource])
}

func (s *Store) find(resource model.ResourceType, parentID, id int64) int {
	for i, e := range s.records[resource] {
		if e.id == id && (parentID == 0 || e.parentID == parentID) {
			return i
		}
	}
	return -1
}

func (s *Store) removeWhere(resource model.ResourceType, drop func(*entry) bool) {
	kept := s.records[resource][:0]
	for _, e := range s.records[resource] {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	s.records[resource] = kept
}

func (s *Store) allocate() int64 {
	s.nextID += s.idStep
	return s.nextID
}

func setInt(fields map[string]json.RawMessage, key string, v int64) {
	fields[key] = json.RawMessage(strconv.FormatInt(v, 10))
}

func fieldInt(fields map[string]json.RawMessage, key string) int64 {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

func fieldString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
