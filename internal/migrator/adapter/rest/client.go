package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"catalog-migrator/internal/migrator/domain/client"
	"catalog-migrator/internal/migrator/domain/model"
	"catalog-migrator/internal/shared/errors"
	"catalog-migrator/internal/shared/logger"
	"catalog-migrator/internal/shared/utils"

	"github.com/google/go-querystring/query"
	"github.com/juju/collections/set"
	"github.com/juju/ratelimit"
)

const (
	accessTokenHeader = "X-Shopify-Access-Token"
	defaultPageLimit  = 250
	maxErrorBody      = 512
)

// Error codes attached to transport errors the platform reports by status.
const (
	CodeThrottled   = "THROTTLED"
	CodeServerError = "SERVER_ERROR"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the connection settings of one store.
type Config struct {
	// Store is the shop name; requests go to https://{Store}.myshopify.com.
	Store       string
	AccessToken string
	APIVersion  string
	// BaseURL overrides the host derived from Store.
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int64
	PageLimit int
}

// Client talks to the Shopify Admin REST API.
type Client struct {
	cfg     Config
	base    *url.URL
	http    Doer
	limiter *ratelimit.Bucket
	logger  logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDoer replaces the HTTP transport.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

// NewClient creates a client for one store.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Store == "" && cfg.BaseURL == "" {
		return nil, errors.NewValidationError("store name is required")
	}
	if cfg.AccessToken == "" {
		return nil, errors.NewValidationError("access token is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-10"
	}
	if cfg.PageLimit <= 0 || cfg.PageLimit > defaultPageLimit {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 40
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	raw := cfg.BaseURL
	if raw == "" {
		raw = fmt.Sprintf("https://%s.myshopify.com", cfg.Store)
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid store url %q", raw)).WithCause(err)
	}

	c := &Client{
		cfg:     cfg,
		base:    base,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.NewBucketWithRate(cfg.RateLimit, cfg.RateBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.NopIfNil(c.logger).WithComponent("rest-client")
	return c, nil
}

// scope tags ctx with the store host and operation so every log line of the
// call carries them.
func (c *Client) scope(ctx context.Context, operation string) context.Context {
	return utils.WithOperation(utils.WithStore(ctx, c.base.Host), operation)
}

// List fetches one page of a listing.
func (c *Client) List(ctx context.Context, req client.ListRequest) (client.ListResult, error) {
	ctx = c.scope(ctx, "list")
	p, err := collectionPath(req.Resource, req.ParentID)
	if err != nil {
		return client.ListResult{}, err
	}

	params := url.Values{}
	if req.Cursor != "" {
		// page_info requests accept no other filter
		params.Set("page_info", req.Cursor)
	} else if !req.Filter.IsZero() {
		params, err = query.Values(req.Filter)
		if err != nil {
			return client.ListResult{}, errors.NewInternalError("encode list filter").WithCause(err)
		}
	}
	params.Set("limit", strconv.Itoa(c.cfg.PageLimit))

	resp, body, err := c.do(ctx, http.MethodGet, c.apiURL(p, params), nil)
	if err != nil {
		return client.ListResult{}, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return client.ListResult{}, errors.NewTransportError("decode listing").WithCause(err)
	}
	result := client.ListResult{}
	if raw, ok := envelope[req.Resource.Plural()]; ok {
		if err := json.Unmarshal(raw, &result.Records); err != nil {
			return client.ListResult{}, errors.NewTransportError("decode " + req.Resource.Plural()).WithCause(err)
		}
	}
	if next, ok := nextPageInfo(resp.Header.Get("Link")); ok {
		result.Next = client.Cursor(next)
	}
	c.logger.WithContext(ctx).Debugf("listed %d %s", len(result.Records), req.Resource)
	return result, nil
}

// Create posts payload wrapped in its singular envelope.
func (c *Client) Create(ctx context.Context, resource model.ResourceType, parentID int64, payload json.RawMessage) (json.RawMessage, error) {
	ctx = c.scope(ctx, "create")
	p, err := collectionPath(resource, parentID)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]json.RawMessage{resource.Singular(): payload})
	if err != nil {
		return nil, errors.NewInternalError("encode payload").WithCause(err)
	}

	_, respBody, err := c.do(ctx, http.MethodPost, c.apiURL(p, nil), body)
	if err != nil {
		return nil, err
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, errors.NewTransportError("decode created " + resource.Singular()).WithCause(err)
	}
	created, ok := envelope[resource.Singular()]
	if !ok {
		return nil, errors.NewTransportError(fmt.Sprintf("response has no %q object", resource.Singular()))
	}
	return created, nil
}

// Delete removes one record.
func (c *Client) Delete(ctx context.Context, resource model.ResourceType, parentID int64, id int64) error {
	ctx = c.scope(ctx, "delete")
	p, err := collectionPath(resource, parentID)
	if err != nil {
		return err
	}
	p = strings.TrimSuffix(p, ".json") + "/" + strconv.FormatInt(id, 10) + ".json"
	_, _, err = c.do(ctx, http.MethodDelete, c.apiURL(p, nil), nil)
	return err
}

type accessScopes struct {
	AccessScopes []struct {
		Handle string `json:"handle"`
	} `json:"access_scopes"`
}

// ListScopes returns the scope handles granted to the access token.
func (c *Client) ListScopes(ctx context.Context) (set.Strings, error) {
	ctx = c.scope(ctx, "list_scopes")
	u := *c.base
	u.Path = "/admin/oauth/access_scopes.json"
	_, body, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	var scopes accessScopes
	if err := json.Unmarshal(body, &scopes); err != nil {
		return nil, errors.NewTransportError("decode access scopes").WithCause(err)
	}
	result := set.NewStrings()
	for _, s := range scopes.AccessScopes {
		result.Add(s.Handle)
	}
	return result, nil
}

func (c *Client) apiURL(p string, params url.Values) string {
	u := *c.base
	u.Path = fmt.Sprintf("/admin/api/%s/%s", c.cfg.APIVersion, p)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// wait blocks until the token bucket grants a request or ctx ends.
func (c *Client) wait(ctx context.Context) error {
	d := c.limiter.Take(1)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, []byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, errors.NewInternalError("build request").WithCause(err)
	}
	req.Header.Set(accessTokenHeader, c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.WithContext(ctx).Debugf("%s %s", method, req.URL.Path)
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, errors.NewTransportError(fmt.Sprintf("%s %s", method, req.URL.Path)).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.NewTransportError("read response body").WithCause(err)
	}
	if err := statusError(method, req.URL.Path, resp.StatusCode, respBody); err != nil {
		return nil, nil, err
	}
	return resp, respBody, nil
}

func statusError(method, p string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := remoteMessage(body)
	switch {
	case status == http.StatusNotFound:
		return errors.NewRemoteNotFoundError(p)
	case status == http.StatusTooManyRequests:
		return errors.NewTransportError(fmt.Sprintf("%s %s: status %d: %s", method, p, status, msg)).
			WithCode(CodeThrottled).WithDetail("status", status)
	case status >= 500:
		return errors.NewTransportError(fmt.Sprintf("%s %s: status %d: %s", method, p, status, msg)).
			WithCode(CodeServerError).WithDetail("status", status)
	default:
		return errors.NewRemoteRejectedError(msg, status).WithDetail("path", p)
	}
}

// remoteMessage flattens the platform's "errors" member, which is either a
// string or a map of field name to messages.
func remoteMessage(body []byte) string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		var text string
		if json.Unmarshal(envelope.Errors, &text) == nil {
			return text
		}
		var fields map[string][]string
		if json.Unmarshal(envelope.Errors, &fields) == nil {
			parts := make([]string, 0, len(fields))
			for _, name := range set.NewStrings(keys(fields)...).SortedValues() {
				parts = append(parts, name+" "+strings.Join(fields[name], ", "))
			}
			return strings.Join(parts, "; ")
		}
		return string(envelope.Errors)
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// collectionPath is the path of a resource listing relative to the API
// root, e.g. "blogs/12/articles.json".
func collectionPath(resource model.ResourceType, parentID int64) (string, error) {
	if !resource.Known() {
		return "", errors.NewValidationError(fmt.Sprintf("unknown resource %q", resource))
	}
	if parent := resource.Parent(); parent != "" {
		if parentID == 0 {
			return "", errors.NewValidationError(fmt.Sprintf("%s require a %s id", resource, parent.Singular()))
		}
		return fmt.Sprintf("%s/%d/%s.json", parent.Plural(), parentID, resource.Plural()), nil
	}
	return resource.Plural() + ".json", nil
}

// nextPageInfo extracts the page_info of the rel="next" link.
func nextPageInfo(link string) (string, bool) {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		isNext := false
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				isNext = true
			}
		}
		if !isNext {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		u, err := url.Parse(target)
		if err != nil {
			continue
		}
		if info := u.Query().Get("page_info"); info != "" {
			return info, true
		}
	}
	return "", false
}
