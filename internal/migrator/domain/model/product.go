package model

import "encoding/json"

// InventoryManagedByPlatform is the inventory_management value that leaves
// stock tracking to the destination platform itself.
const InventoryManagedByPlatform = "shopify"

// Product is a catalog product with its variants and images.
type Product struct {
	ID          int64           `json:"id,omitempty"`
	Handle      string          `json:"handle,omitempty"`
	Title       string          `json:"title,omitempty"`
	BodyHTML    string          `json:"body_html,omitempty"`
	Vendor      string          `json:"vendor,omitempty"`
	ProductType string          `json:"product_type,omitempty"`
	Tags        string          `json:"tags,omitempty"`
	Status      string          `json:"status,omitempty"`
	Options     json.RawMessage `json:"options,omitempty"`
	Variants    []Variant       `json:"variants,omitempty"`
	Images      []Image         `json:"images,omitempty"`
	Image       json.RawMessage `json:"image,omitempty"`
	Extra       Extra           `json:"-"`
}

type productFields Product

func (p Product) RecordID() int64    { return p.ID }
func (p Product) NaturalKey() string { return p.Handle }

func (p Product) MarshalJSON() ([]byte, error) {
	f := productFields(p)
	return marshalRecord(&f, p.Extra)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var f productFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*p = Product(f)
	p.Extra = extra
	return nil
}

// VariantByID returns the variant with the given id.
func (p Product) VariantByID(id int64) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Variant is one purchasable option of a product. Across stores it is
// identified by Title, never by ID.
type Variant struct {
	ID                  int64    `json:"id,omitempty"`
	ProductID           int64    `json:"product_id,omitempty"`
	Title               string   `json:"title,omitempty"`
	Price               Decimal  `json:"price,omitempty"`
	CompareAtPrice      *Decimal `json:"compare_at_price,omitempty"`
	SKU                 string   `json:"sku,omitempty"`
	Position            int      `json:"position,omitempty"`
	Option1             *string  `json:"option1,omitempty"`
	Option2             *string  `json:"option2,omitempty"`
	Option3             *string  `json:"option3,omitempty"`
	InventoryManagement *string  `json:"inventory_management,omitempty"`
	FulfillmentService  *string  `json:"fulfillment_service,omitempty"`
	ImageID             *int64   `json:"image_id,omitempty"`
	Extra               Extra    `json:"-"`
}

type variantFields Variant

func (v Variant) MarshalJSON() ([]byte, error) {
	f := variantFields(v)
	return marshalRecord(&f, v.Extra)
}

func (v *Variant) UnmarshalJSON(data []byte) error {
	var f variantFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*v = Variant(f)
	v.Extra = extra
	return nil
}

// Image is a product image, created only after its product exists.
type Image struct {
	ID         int64   `json:"id,omitempty"`
	ProductID  int64   `json:"product_id,omitempty"`
	Position   int     `json:"position,omitempty"`
	Src        string  `json:"src,omitempty"`
	Alt        *string `json:"alt,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	VariantIDs []int64 `json:"variant_ids,omitempty"`
	Extra      Extra   `json:"-"`
}

type imageFields Image

func (i Image) MarshalJSON() ([]byte, error) {
	f := imageFields(i)
	return marshalRecord(&f, i.Extra)
}

func (i *Image) UnmarshalJSON(data []byte) error {
	var f imageFields
	extra, err := unmarshalRecord(data, &f)
	if err != nil {
		return err
	}
	*i = Image(f)
	i.Extra = extra
	return nil
}
