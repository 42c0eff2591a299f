// Package adminclient talks to the catalog admin API. Requests that fail on
// the network or with a 5xx status are retried with exponential backoff; any
// other failure is returned at once.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"furnistore/internal/common"
	"furnistore/internal/listing"
	"furnistore/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxRetries = 4
	defaultTimeout    = 30 * time.Second
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("admin api: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("admin api: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the status onto the common sentinels so callers can use
// common.IsNotFound and friends.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return common.ErrValidation
	case http.StatusConflict:
		return common.ErrConflict
	}
	return nil
}

func (e *APIError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type Client struct {
	baseURL    *url.URL
	token      string
	http       *http.Client
	logger     *zap.Logger
	maxRetries uint64
	initial    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetry sets how many times a failed request is retried and the first
// wait between attempts.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initial = initial
	}
}

// New creates a client for the API at baseURL, authenticating with a bearer
// token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL:    u,
		token:      token,
		http:       &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
		maxRetries: defaultMaxRetries,
		initial:    250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchPage loads one page of the admin product listing.
func (c *Client) FetchPage(ctx context.Context, req listing.PageRequest) (models.Page, error) {
	var page models.Page
	err := c.do(ctx, http.MethodGet, "/v1/admin/products", EncodeListingQuery(req), nil, &page)
	return page, err
}

// BulkUpdate patches every id in one request.
func (c *Client) BulkUpdate(ctx context.Context, ids []uuid.UUID, patch models.ProductPatch) error {
	body := models.ProductBulkUpdate{ProductIDs: ids, Patch: patch}
	return c.do(ctx, http.MethodPost, "/v1/admin/products/bulk/update", nil, body, nil)
}

// BulkDelete soft-deletes every id in one request.
func (c *Client) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	body := models.ProductBulkDelete{ProductIDs: ids}
	return c.do(ctx, http.MethodPost, "/v1/admin/products/bulk/delete", nil, body, nil)
}

// CategoryTree loads the storefront category tree.
func (c *Client) CategoryTree(ctx context.Context) ([]*models.CategoryTreeNode, error) {
	var resp struct {
		Tree []*models.CategoryTreeNode `json:"tree"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/categories/tree", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tree, nil
}

func (c *Client) CategoryIntegrity(ctx context.Context) (models.CategoryIntegrityReport, error) {
	var report models.CategoryIntegrityReport
	err := c.do(ctx, http.MethodGet, "/v1/admin/categories/integrity", nil, nil, &report)
	return report, err
}

// RunJob triggers a background job by name.
func (c *Client) RunJob(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/v1/admin/jobs/"+url.PathEscape(name)+"/run", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	target := *c.baseURL
	target.Path = c.baseURL.Path + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	attempt := 0
	op := func() error {
		attempt++
		err := c.once(ctx, method, target.String(), payload, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.initial),
		backoff.WithMaxInterval(5*time.Second),
		backoff.WithMaxElapsedTime(0),
	)
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("admin api request failed, retrying",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return backoff.RetryNotify(op, policy, notify)
}

func (c *Client) once(ctx context.Context, method, target string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env common.ErrorResponse
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}
