package model

import "encoding/json"

// SmartCollection is a rule-based collection without explicit membership.
type SmartCollection struct {
	ID             int64           `json:"id,omitempty"`
	Handle         string          `json:"handle,omitempty"`
	Title          string          `json:"title,omitempty"`
	BodyHTML       string          `json:"body_html,omitempty"`
	SortOrder      string          `json:"sort_order,omitempty"`
	Disjunctive    *bool           `json:"disjunctive,omitempty"`
	Rules          json.RawMessage `json:"rules,omitempty"`
	TemplateSuffix *string         `json:"template_suffix,omitempty"`
	PublishedAt    *string         `json:"published_at,omitempty"`
	Publications   json.RawMessage `json:"publications,omitempty"`
	Image          json.RawMessage `json:"image,omitempty"`
	Extra          Extra           `json:"-"`
}

type smartCollectionFields SmartCollection

func (c SmartCollection) RecordID() int64    { return c.ID }
func (c SmartCollection) NaturalKey() string { return c.Handle }

func (c SmartCollection) MarshalJSON() ([]byte, error) {
	f := smartCollectionFields(c)
	return marshalRecord(&f, c.Extra)
}

func (c *SmartCollection) UnmarshalJSON(data []byte) error {
	var f smartCollectionFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*c = SmartCollection(f)
	c.Extra = extra
	return nil
}

// CustomCollection holds an explicit product membership. On create the
// membership travels inline as Collects.
type CustomCollection struct {
	ID             int64           `json:"id,omitempty"`
	Handle         string          `json:"handle,omitempty"`
	Title          string          `json:"title,omitempty"`
	BodyHTML       string          `json:"body_html,omitempty"`
	SortOrder      string          `json:"sort_order,omitempty"`
	TemplateSuffix *string         `json:"template_suffix,omitempty"`
	PublishedAt    *string         `json:"published_at,omitempty"`
	Publications   json.RawMessage `json:"publications,omitempty"`
	Image          json.RawMessage `json:"image,omitempty"`
	Collects       []Collect       `json:"collects,omitempty"`
	Extra          Extra           `json:"-"`
}

type customCollectionFields CustomCollection

func (c CustomCollection) RecordID() int64    { return c.ID }
func (c CustomCollection) NaturalKey() string { return c.Handle }

func (c CustomCollection) MarshalJSON() ([]byte, error) {
	f := customCollectionFields(c)
	return marshalRecord(&f, c.Extra)
}

func (c *CustomCollection) UnmarshalJSON(data []byte) error {
	var f customCollectionFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*c = CustomCollection(f)
	c.Extra = extra
	return nil
}

// Collect links one product into one custom collection.
type Collect struct {
	ID           int64 `json:"id,omitempty"`
	CollectionID int64 `json:"collection_id,omitempty"`
	ProductID    int64 `json:"product_id,omitempty"`
	Position     int   `json:"position,omitempty"`
	Extra        Extra `json:"-"`
}

type collectFields Collect

func (c Collect) MarshalJSON() ([]byte, error) {
	f := collectFields(c)
	return marshalRecord(&f, c.Extra)
}

func (c *Collect) UnmarshalJSON(data []byte) error {
	var f collectFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*c = Collect(f)
	c.Extra = extra
	return nil
}
