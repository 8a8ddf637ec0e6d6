package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"catalog-migrator/internal/migrator/adapter/rest"
	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	apperrors "catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testToken   = "shpat_test"
	testVersion = "2023-10"
	apiRoot     = "/admin/api/" + testVersion
)

// fiberDoer routes client requests into an in-process fiber app.
type fiberDoer struct {
	app *fiber.App
}

func (d fiberDoer) Do(req *http.Request) (*http.Response, error) {
	return d.app.Test(req, -1)
}

type RESTClientTestSuite struct {
	suite.Suite
	app     *fiber.App
	client  *rest.Client
	created []map[string]interface{}
	deleted []string
	queries []string
}

func (s *RESTClientTestSuite) SetupTest() {
	s.created = nil
	s.deleted = nil
	s.queries = nil
	s.app = fiber.New()

	s.app.Use(func(c *fiber.Ctx) error {
		if c.Get("X-Shopify-Access-Token") != testToken {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"errors": "[API] Invalid API key or access token"})
		}
		return c.Next()
	})

	s.app.Get("/admin/oauth/access_scopes.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"access_scopes": []fiber.Map{
			{"handle": "read_products"},
			{"handle": "write_content"},
		}})
	})

	// products: two pages linked with page_info
	s.app.Get(apiRoot+"/products.json", func(c *fiber.Ctx) error {
		s.queries = append(s.queries, string(c.Request().URI().QueryString()))
		if c.Query("page_info") == "" {
			c.Set("Link", `<https://shop.example/admin/api/2023-10/products.json?limit=250&page_info=p2>; rel="next"`)
			return c.JSON(fiber.Map{"products": []fiber.Map{{"id": 1, "handle": "a"}, {"id": 2, "handle": "b"}}})
		}
		c.Set("Link", `<https://shop.example/admin/api/2023-10/products.json?limit=250&page_info=p1>; rel="previous"`)
		return c.JSON(fiber.Map{"products": []fiber.Map{{"id": 3, "handle": "c"}}})
	})

	s.app.Get(apiRoot+"/metafields.json", func(c *fiber.Ctx) error {
		s.queries = append(s.queries, string(c.Request().URI().QueryString()))
		if c.Query("metafield[owner_resource]") == "product" && c.Query("metafield[owner_id]") == "7" {
			return c.JSON(fiber.Map{"metafields": []fiber.Map{{"id": 70, "namespace": "ns", "key": "k"}}})
		}
		return c.JSON(fiber.Map{"metafields": []fiber.Map{}})
	})

	s.app.Get(apiRoot+"/blogs/5/articles.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"articles": []fiber.Map{{"id": 9, "blog_id": 5, "handle": "post"}}})
	})

	s.app.Post(apiRoot+"/pages.json", func(c *fiber.Ctx) error {
		var body map[string]map[string]interface{}
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": "bad json"})
		}
		page, ok := body["page"]
		if !ok || page["title"] == nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"errors": fiber.Map{
				"title":  []string{"can't be blank"},
				"handle": []string{"is invalid"},
			}})
		}
		s.created = append(s.created, page)
		page["id"] = 1001
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"page": page})
	})

	s.app.Post(apiRoot+"/products/3/images.json", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).SendString("upstream timeout")
	})

	s.app.Post(apiRoot+"/smart_collections.json", func(c *fiber.Ctx) error {
		c.Set("Retry-After", "2.0")
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"errors": "Exceeded 2 calls per second for api client. Reduce request rates to resume uninterrupted service."})
	})

	// any other article id falls through to fiber's 404
	s.app.Delete(apiRoot+"/blogs/5/articles/9.json", func(c *fiber.Ctx) error {
		s.deleted = append(s.deleted, c.Path())
		return c.JSON(fiber.Map{})
	})

	var err error
	s.client, err = rest.NewClient(rest.Config{
		BaseURL:     "https://shop.example",
		AccessToken: testToken,
		APIVersion:  testVersion,
		RateLimit:   1000,
		RateBurst:   1000,
	}, rest.WithDoer(fiberDoer{app: s.app}))
	s.Require().NoError(err)
}

func (s *RESTClientTestSuite) TestListFollowsLinkHeader() {
	ctx := context.Background()
	first, err := s.client.List(ctx, client.ListRequest{Resource: model.ResourceProducts})
	s.Require().NoError(err)
	s.Len(first.Records, 2)
	s.Require().NotNil(first.Next)
	s.Equal("p2", *first.Next)

	second, err := s.client.List(ctx, client.ListRequest{Resource: model.ResourceProducts, Cursor: *first.Next})
	s.Require().NoError(err)
	s.Len(second.Records, 1)
	s.Nil(second.Next, "a previous link alone ends the listing")

	s.Require().Len(s.queries, 2)
	s.Equal("limit=250", s.queries[0])
	s.Equal("limit=250&page_info=p2", s.queries[1])
}

func (s *RESTClientTestSuite) TestListEncodesOwnerFilter() {
	res, err := s.client.List(context.Background(), client.ListRequest{
		Resource: model.ResourceMetafields,
		Filter:   client.Filter{Owner: &model.Owner{Resource: "product", ID: 7}},
	})
	s.Require().NoError(err)
	s.Require().Len(res.Records, 1)

	mf, err := model.Decode[model.Metafield](res.Records[0])
	s.Require().NoError(err)
	s.Equal("ns.k", mf.NaturalKey())
	s.Contains(s.queries[0], "metafield%5Bowner_id%5D=7")
}

func (s *RESTClientTestSuite) TestListNestedResource() {
	res, err := s.client.List(context.Background(), client.ListRequest{Resource: model.ResourceArticles, ParentID: 5})
	s.Require().NoError(err)
	s.Len(res.Records, 1)

	_, err = s.client.List(context.Background(), client.ListRequest{Resource: model.ResourceArticles})
	s.True(apperrors.IsValidation(err))
}

func (s *RESTClientTestSuite) TestCreateWrapsEnvelope() {
	raw, err := s.client.Create(context.Background(), model.ResourcePages, 0, json.RawMessage(`{"title":"About","handle":"about"}`))
	s.Require().NoError(err)

	page, err := model.Decode[model.Page](raw)
	s.Require().NoError(err)
	s.Equal(int64(1001), page.ID)
	s.Equal("about", page.Handle)
	s.Require().Len(s.created, 1)
	s.Equal("About", s.created[0]["title"])
}

func (s *RESTClientTestSuite) TestCreateRejected() {
	_, err := s.client.Create(context.Background(), model.ResourcePages, 0, json.RawMessage(`{"handle":"x"}`))
	s.Require().Error(err)
	s.True(apperrors.IsRemoteRejected(err))
	s.Equal("handle is invalid; title can't be blank", err.Error())

	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(fiber.StatusUnprocessableEntity, appErr.StatusCode)
}

func (s *RESTClientTestSuite) TestServerErrorIsTransport() {
	_, err := s.client.Create(context.Background(), model.ResourceImages, 3, json.RawMessage(`{"src":"https://cdn/x.png"}`))
	s.Require().Error(err)
	s.True(apperrors.IsTransport(err))
	s.Contains(err.Error(), "upstream timeout")

	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(rest.CodeServerError, appErr.Code)
	s.Equal(fiber.StatusServiceUnavailable, appErr.Details["status"])
}

func (s *RESTClientTestSuite) TestThrottledIsTransport() {
	_, err := s.client.Create(context.Background(), model.ResourceSmartCollections, 0, json.RawMessage(`{"title":"Sale"}`))
	s.Require().Error(err)
	s.True(apperrors.IsTransport(err))
	s.False(apperrors.IsRemoteRejected(err))

	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(rest.CodeThrottled, appErr.Code)
	s.Contains(err.Error(), "Exceeded 2 calls per second")
}

func (s *RESTClientTestSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.client.Delete(ctx, model.ResourceArticles, 5, 9))
	s.Equal([]string{apiRoot + "/blogs/5/articles/9.json"}, s.deleted)

	err := s.client.Delete(ctx, model.ResourceArticles, 5, 10)
	s.True(apperrors.IsRemoteNotFound(err))
}

func (s *RESTClientTestSuite) TestListScopes() {
	scopes, err := s.client.ListScopes(context.Background())
	s.Require().NoError(err)
	s.Equal([]string{"read_products", "write_content"}, scopes.SortedValues())
}

func (s *RESTClientTestSuite) TestWrongTokenIsRejected() {
	c, err := rest.NewClient(rest.Config{
		BaseURL:     "https://shop.example",
		AccessToken: "wrong",
		RateLimit:   1000,
		RateBurst:   1000,
	}, rest.WithDoer(fiberDoer{app: s.app}))
	s.Require().NoError(err)

	_, err = c.ListScopes(context.Background())
	s.Require().Error(err)
	s.True(apperrors.IsRemoteRejected(err))
	s.Contains(err.Error(), "Invalid API key")
}

func TestRESTClientTestSuite(t *testing.T) {
	suite.Run(t, new(RESTClientTestSuite))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := rest.NewClient(rest.Config{AccessToken: "t"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = rest.NewClient(rest.Config{Store: "shop"})
	assert.True(t, apperrors.IsValidation(err))

	c, err := rest.NewClient(rest.Config{Store: "shop", AccessToken: "t"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestClient_CancelledContext(t *testing.T) {
	app := fiber.New()
	calls := 0
	app.Get(apiRoot+"/pages.json", func(c *fiber.Ctx) error {
		calls++
		return c.JSON(fiber.Map{"pages": []fiber.Map{}})
	})
	c, err := rest.NewClient(rest.Config{
		BaseURL:     "https://shop.example",
		AccessToken: testToken,
		RateLimit:   0.001,
		RateBurst:   1,
	}, rest.WithDoer(fiberDoer{app: app}))
	require.NoError(t, err)

	_, err = c.List(context.Background(), client.ListRequest{Resource: model.ResourcePages})
	require.NoError(t, err)

	// the bucket is empty now, so the next request waits and sees the cancel
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.List(ctx, client.ListRequest{Resource: model.ResourcePages})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestClient_LogsCarryStoreAndOperation(t *testing.T) {
	app := fiber.New()
	app.Get(apiRoot+"/pages.json", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"pages": []fiber.Map{{"id": 1, "handle": "about"}}})
	})
	var buf bytes.Buffer
	log := logger.NewLoggerWithConfig(logger.Config{Verbosity: 4, Format: "json", Output: &buf})
	c, err := rest.NewClient(rest.Config{
		BaseURL:     "https://shop.example",
		AccessToken: testToken,
	}, rest.WithDoer(fiberDoer{app: app}), rest.WithLogger(log))
	require.NoError(t, err)

	_, err = c.List(context.Background(), client.ListRequest{Resource: model.ResourcePages})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"store":"shop.example"`)
	assert.Contains(t, buf.String(), `"operation":"list"`)
	assert.Contains(t, buf.String(), `"component":"rest-client"`)
}
