package model

import "encoding/json"

// Metafield is an extension value owned by a record, or by the shop when
// both owner fields are absent.
type Metafield struct {
	ID            int64           `json:"id,omitempty"`
	Namespace     string          `json:"namespace,omitempty"`
	Key           string          `json:"key,omitempty"`
	Value         json.RawMessage `json:"value,omitempty"`
	Type          string          `json:"type,omitempty"`
	Description   *string         `json:"description,omitempty"`
	OwnerID       *int64          `json:"owner_id,omitempty"`
	OwnerResource *string         `json:"owner_resource,omitempty"`
	Extra         Extra           `json:"-"`
}

type metafieldFields Metafield

// MetafieldKey builds the natural key of a metafield.
func MetafieldKey(namespace, key string) string {
	return namespace + "." + key
}

func (m Metafield) RecordID() int64    { return m.ID }
func (m Metafield) NaturalKey() string { return MetafieldKey(m.Namespace, m.Key) }

// IsShopLevel reports whether the metafield has no owner record.
func (m Metafield) IsShopLevel() bool {
	return m.OwnerID == nil && m.OwnerResource == nil
}

// Rehome points the metafield at a new owner.
func (m *Metafield) Rehome(owner Owner) {
	id, resource := owner.ID, owner.Resource
	m.OwnerID = &id
	m.OwnerResource = &resource
}

// ClearOwner turns the metafield into a shop-level one.
func (m *Metafield) ClearOwner() {
	m.OwnerID = nil
	m.OwnerResource = nil
}

func (m Metafield) MarshalJSON() ([]byte, error) {
	f := metafieldFields(m)
	return marshalRecord(&f, m.Extra)
}

func (m *Metafield) UnmarshalJSON(data []byte) error {
	var f metafieldFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*m = Metafield(f)
	m.Extra = extra
	return nil
}

// Owner identifies the record a metafield hangs off.
type Owner struct {
	Resource string `url:"owner_resource"`
	ID       int64  `url:"owner_id"`
}

// OwnerOf builds the owner reference for a record of the given type.
func OwnerOf(resource ResourceType, id int64) Owner {
	return Owner{Resource: resource.OwnerResource(), ID: id}
}
