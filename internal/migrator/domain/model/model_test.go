package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_PreservesUnknownFields(t *testing.T) {
	in := `{"id":7,"handle":"about","title":"About","shop_id":99,"admin_graphql_api_id":"gid://x/Page/7"}`

	var p Page
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "about", p.Handle)
	assert.Contains(t, p.Extra, "shop_id")
	assert.NotContains(t, p.Extra, "handle")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestPage_StrippedFieldStaysStripped(t *testing.T) {
	var p Page
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"handle":"about","shop_id":1}`), &p))
	p.ID = 0

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"handle":"about","shop_id":1}`, string(out))
}

func TestArticle_SourceOnlyFieldsCanBeDropped(t *testing.T) {
	var a Article
	in := `{"id":1,"blog_id":2,"handle":"h","user_id":5,"created_at":"2020-01-01","deleted_at":null}`
	require.NoError(t, json.Unmarshal([]byte(in), &a))
	a.ID, a.UserID, a.CreatedAt, a.DeletedAt = 0, 0, nil, nil
	a.BlogID = 20

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"blog_id":20,"handle":"h"}`, string(out))
}

func TestVariant_DecimalAcceptsStringsAndNumbers(t *testing.T) {
	var v Variant
	require.NoError(t, json.Unmarshal([]byte(`{"title":"S","price":"10.00","compare_at_price":12.5}`), &v))
	assert.Equal(t, Decimal("10.00"), v.Price)
	require.NotNil(t, v.CompareAtPrice)
	f, ok := v.CompareAtPrice.Float()
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	require.NoError(t, json.Unmarshal([]byte(`{"title":"S","compare_at_price":null}`), &v))
	assert.Nil(t, v.CompareAtPrice)
}

func TestDecimal_Float(t *testing.T) {
	_, ok := Decimal("").Float()
	assert.False(t, ok)
	_, ok = Decimal("n/a").Float()
	assert.False(t, ok)
	f, ok := Decimal(" 3.10 ").Float()
	assert.True(t, ok)
	assert.Equal(t, 3.1, f)
}

func TestProduct_NestedRecordsKeepExtras(t *testing.T) {
	in := `{"handle":"a","variants":[{"id":1,"title":"S","weight":2}],"images":[{"id":3,"variant_ids":[1],"src":"x","filename":"x.png"}]}`
	var p Product
	require.NoError(t, json.Unmarshal([]byte(in), &p))
	require.Len(t, p.Variants, 1)
	assert.Contains(t, p.Variants[0].Extra, "weight")
	require.Len(t, p.Images, 1)
	assert.Contains(t, p.Images[0].Extra, "filename")

	v, ok := p.VariantByID(1)
	assert.True(t, ok)
	assert.Equal(t, "S", v.Title)
	_, ok = p.VariantByID(2)
	assert.False(t, ok)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestMetafield_OwnerHandling(t *testing.T) {
	var m Metafield
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"namespace":"custom","key":"flag","value":"on","type":"single_line_text_field"}`), &m))
	assert.True(t, m.IsShopLevel())
	assert.Equal(t, "custom.flag", m.NaturalKey())

	m.Rehome(OwnerOf(ResourceSmartCollections, 42))
	assert.False(t, m.IsShopLevel())
	assert.Equal(t, int64(42), *m.OwnerID)
	assert.Equal(t, "collection", *m.OwnerResource)

	m.ClearOwner()
	m.ID = 0
	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"namespace":"custom","key":"flag","value":"on","type":"single_line_text_field"}`, string(out))
}

func TestDecode(t *testing.T) {
	b, err := Decode[Blog](json.RawMessage(`{"id":3,"handle":"news"}`))
	require.NoError(t, err)
	assert.Equal(t, "news", b.NaturalKey())
	assert.Equal(t, int64(3), b.RecordID())

	_, err = Decode[Blog](json.RawMessage(`[]`))
	assert.Error(t, err)
}

func TestResourceType(t *testing.T) {
	assert.True(t, ResourceArticles.Known())
	assert.False(t, ResourceType("orders").Known())
	assert.Equal(t, "custom_collection", ResourceCustomCollections.Singular())
	assert.Equal(t, ResourceBlogs, ResourceArticles.Parent())
	assert.Equal(t, ResourceProducts, ResourceImages.Parent())
	assert.Equal(t, ResourceType(""), ResourcePages.Parent())
	assert.Equal(t, "", ResourceMetafields.OwnerResource())
	assert.Equal(t, []ResourceType{
		ResourcePages, ResourceBlogs, ResourceArticles, ResourceProducts,
		ResourceSmartCollections, ResourceCustomCollections, ResourceMetafields,
	}, MigrationOrder)
}

func TestKeyIndex_LastWriteWins(t *testing.T) {
	idx := NewKeyIndex(ResourcePages)
	_, collided := idx.Put("about", 1)
	assert.False(t, collided)
	prev, collided := idx.Put("about", 2)
	assert.True(t, collided)
	assert.Equal(t, int64(1), prev)

	id, ok := idx.Lookup("about")
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)
	assert.Equal(t, 1, idx.Len())
}

func TestIDTable(t *testing.T) {
	tbl := NewIDTable(ResourceProducts)
	tbl.Put(10, 100)
	id, ok := tbl.Lookup(10)
	assert.True(t, ok)
	assert.Equal(t, int64(100), id)
	_, ok = tbl.Lookup(11)
	assert.False(t, ok)
	assert.Equal(t, 1, tbl.Len())
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyDeleteThenRecreate, PolicyFor(true, true))
	assert.Equal(t, PolicyDeleteThenRecreate, PolicyFor(true, false))
	assert.Equal(t, PolicySkipExisting, PolicyFor(false, true))
	assert.Equal(t, PolicyAlwaysRecreate, PolicyFor(false, false))
	assert.Equal(t, "skip-existing", PolicySkipExisting.String())
	assert.Equal(t, "policy(9)", Policy(9).String())
}
