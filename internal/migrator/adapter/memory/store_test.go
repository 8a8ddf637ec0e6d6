package memory

import (
	"context"
	"encoding/json"
	"testing"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	apperrors "catalog-migrator/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreate(t *testing.T, s *Store, resource model.ResourceType, parentID int64, payload string) map[string]interface{} {
	t.Helper()
	raw, err := s.Create(context.Background(), resource, parentID, json.RawMessage(payload))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestStore_CreateAssignsIDs(t *testing.T) {
	s := NewStore("dst", WithIDBase(1000))
	out := mustCreate(t, s, model.ResourceProducts, 0, `{"handle":"a","title":"A","variants":[{"title":"S"},{"title":"M"}]}`)

	assert.Equal(t, float64(1001), out["id"])
	variants := out["variants"].([]interface{})
	require.Len(t, variants, 2)
	v0 := variants[0].(map[string]interface{})
	v1 := variants[1].(map[string]interface{})
	assert.NotEqual(t, v0["id"], v1["id"])
	assert.Equal(t, float64(1001), v0["product_id"])
}

func TestStore_ListPaginates(t *testing.T) {
	s := NewStore("src", WithPageSize(2))
	for _, h := range []string{"a", "b", "c"} {
		mustCreate(t, s, model.ResourcePages, 0, `{"handle":"`+h+`","title":"`+h+`"}`)
	}

	first, err := s.List(context.Background(), client.ListRequest{Resource: model.ResourcePages})
	require.NoError(t, err)
	assert.Len(t, first.Records, 2)
	require.NotNil(t, first.Next)

	second, err := s.List(context.Background(), client.ListRequest{Resource: model.ResourcePages, Cursor: *first.Next})
	require.NoError(t, err)
	assert.Len(t, second.Records, 1)
	assert.Nil(t, second.Next)
}

func TestStore_NestedResourcesNeedParent(t *testing.T) {
	s := NewStore("dst")
	_, err := s.Create(context.Background(), model.ResourceArticles, 42, json.RawMessage(`{"handle":"x","title":"x"}`))
	assert.True(t, apperrors.IsRemoteNotFound(err))

	blog := mustCreate(t, s, model.ResourceBlogs, 0, `{"handle":"news","title":"News"}`)
	blogID := int64(blog["id"].(float64))
	article := mustCreate(t, s, model.ResourceArticles, blogID, `{"handle":"x","title":"x"}`)
	assert.Equal(t, blog["id"], article["blog_id"])

	res, err := s.List(context.Background(), client.ListRequest{Resource: model.ResourceArticles, ParentID: blogID})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}

func TestStore_MetafieldFiltering(t *testing.T) {
	s := NewStore("src")
	page := mustCreate(t, s, model.ResourcePages, 0, `{"handle":"about","title":"About"}`)
	pageID := int64(page["id"].(float64))
	mustCreate(t, s, model.ResourceMetafields, 0, `{"namespace":"custom","key":"flag","value":"on"}`)
	mustCreate(t, s, model.ResourceMetafields, 0, `{"namespace":"seo","key":"title","value":"x","owner_resource":"page","owner_id":`+jsonInt(pageID)+`}`)

	shop, err := s.List(context.Background(), client.ListRequest{Resource: model.ResourceMetafields})
	require.NoError(t, err)
	assert.Len(t, shop.Records, 1)

	owned, err := s.List(context.Background(), client.ListRequest{
		Resource: model.ResourceMetafields,
		Filter:   client.Filter{Owner: &model.Owner{Resource: "page", ID: pageID}},
	})
	require.NoError(t, err)
	require.Len(t, owned.Records, 1)
	assert.Contains(t, string(owned.Records[0]), `"seo"`)
}

func TestStore_RejectsInvalidPayloads(t *testing.T) {
	s := NewStore("dst")
	_, err := s.Create(context.Background(), model.ResourceMetafields, 0, json.RawMessage(`{"value":"x"}`))
	assert.True(t, apperrors.IsRemoteRejected(err))

	_, err = s.Create(context.Background(), model.ResourcePages, 0, json.RawMessage(`{}`))
	assert.True(t, apperrors.IsRemoteRejected(err))
}

func TestStore_DeleteCascades(t *testing.T) {
	s := NewStore("dst")
	product := mustCreate(t, s, model.ResourceProducts, 0, `{"handle":"a","title":"A"}`)
	productID := int64(product["id"].(float64))
	mustCreate(t, s, model.ResourceImages, productID, `{"src":"https://cdn/x.png"}`)
	mustCreate(t, s, model.ResourceMetafields, 0, `{"namespace":"n","key":"k","owner_resource":"product","owner_id":`+jsonInt(productID)+`}`)
	collection := mustCreate(t, s, model.ResourceCustomCollections, 0, `{"handle":"c","title":"C","collects":[{"product_id":`+jsonInt(productID)+`}]}`)
	assert.NotContains(t, collection, "collects")
	assert.Equal(t, 1, s.Count(model.ResourceCollects))

	require.NoError(t, s.Delete(context.Background(), model.ResourceProducts, 0, productID))
	assert.Equal(t, 0, s.Count(model.ResourceProducts))
	assert.Equal(t, 0, s.Count(model.ResourceImages))
	assert.Equal(t, 0, s.Count(model.ResourceMetafields))
	assert.Equal(t, 0, s.Count(model.ResourceCollects))

	err := s.Delete(context.Background(), model.ResourceProducts, 0, productID)
	assert.True(t, apperrors.IsRemoteNotFound(err))
}

func TestStore_ProductListingIncludesImages(t *testing.T) {
	s := NewStore("src")
	product := mustCreate(t, s, model.ResourceProducts, 0, `{"handle":"a","title":"A","variants":[{"title":"S"}]}`)
	productID := int64(product["id"].(float64))
	mustCreate(t, s, model.ResourceImages, productID, `{"src":"https://cdn/x.png"}`)

	res, err := s.List(context.Background(), client.ListRequest{Resource: model.ResourceProducts})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	p, err := model.Decode[model.Product](res.Records[0])
	require.NoError(t, err)
	require.Len(t, p.Images, 1)
	assert.Equal(t, productID, p.Images[0].ProductID)
}

func TestStore_CreateHook(t *testing.T) {
	s := NewStore("dst")
	s.OnCreate(func(resource model.ResourceType, parentID int64, payload json.RawMessage) error {
		return apperrors.NewRemoteRejectedError("nope", 422)
	})
	_, err := s.Create(context.Background(), model.ResourcePages, 0, json.RawMessage(`{"title":"x"}`))
	assert.True(t, apperrors.IsRemoteRejected(err))
	assert.Equal(t, 0, s.Count(model.ResourcePages))
}

func TestStore_ListScopes(t *testing.T) {
	s := NewStore("src", WithScopes("read_content"))
	scopes, err := s.ListScopes(context.Background())
	require.NoError(t, err)
	assert.True(t, scopes.Contains("read_content"))
	assert.False(t, scopes.Contains("read_products"))
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestStore_NegativeIDsAndLenientParents(t *testing.T) {
	s := NewStore("overlay", WithIDStep(-1), WithLenientParents())
	raw, err := s.Create(context.Background(), model.ResourceArticles, 42, json.RawMessage(`{"title":"Post"}`))
	require.NoError(t, err)
	a, err := model.Decode[model.Article](raw)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), a.ID)
	assert.Equal(t, int64(42), a.BlogID)

	raw, err = s.Create(context.Background(), model.ResourcePages, 0, json.RawMessage(`{"title":"About"}`))
	require.NoError(t, err)
	p, err := model.Decode[model.Page](raw)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), p.ID)
}
