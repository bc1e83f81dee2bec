package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/carlfranklin/avnrepo/internal/query"
	"github.com/carlfranklin/avnrepo/internal/repo"
	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
)

const remoteStore = "http"

// RemoteError is a failed response of the API server.
type RemoteError struct {
	Status   int
	Messages []string
}

func (e *RemoteError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("server responded %d", e.Status)
	}
	return fmt.Sprintf("server responded %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

// Client is the client half of the repository contract: a repo.Repo backed by
// an API server. Transport failures are retried for every request, 5xx
// responses only for reads and deletes.
type Client[T repo.Entity] struct {
	base   string
	http   *retryablehttp.Client
	schema *query.Schema[T]
}

// NewClient talks to the resource mounted under cfg.BaseURL. schema projects
// query results the same way the server side does.
func NewClient[T repo.Entity](cfg ClientConfig, resource string, schema *query.Schema[T], log logger.Logger) *Client[T] {
	rc := retryablehttp.NewClient()
	rc.Logger = leveled{log.With("api_client")}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.CheckRetry = retryPolicy

	if cfg.RetryMax > 0 {
		rc.RetryMax = cfg.RetryMax
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client[T]{
		base:   strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(resource, "/"),
		http:   rc,
		schema: schema,
	}
}

// WithRetryWait overrides the backoff bounds.
func (c *Client[T]) WithRetryWait(min, max time.Duration) *Client[T] {
	c.http.RetryWaitMin = min
	c.http.RetryWaitMax = max
	return c
}

func (c *Client[T]) GetAll(ctx context.Context) ([]T, error) {
	var resp ListResponse[T]
	err := c.do(ctx, http.MethodGet, "", nil, &resp)
	return resp.Data, errors.WrapFail(err, "get all")
}

func (c *Client[T]) GetByID(ctx context.Context, id string) (T, error) {
	var resp EntityResponse[T]
	err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, &resp)
	if err != nil || resp.Data == nil {
		var zero T
		return zero, errors.WrapFailf(orErr(err, repo.ErrNotFound), "get %q", id)
	}
	return *resp.Data, nil
}

// Get evaluates filter on the server. With a projection the items carry
// only the selected properties.
func (c *Client[T]) Get(ctx context.Context, filter query.Filter) (query.Result[T], error) {
	var resp ListResponse[T]
	err := c.do(ctx, http.MethodPost, "/query", filter, &resp)
	if err != nil {
		return query.Result[T]{}, errors.WrapFail(err, "query")
	}
	return query.NewResult(c.schema, resp.Data, filter.IncludePropertyNames), nil
}

func (c *Client[T]) Insert(ctx context.Context, item T) (T, error) {
	return c.write(ctx, http.MethodPost, item)
}

func (c *Client[T]) Update(ctx context.Context, item T) (T, error) {
	return c.write(ctx, http.MethodPut, item)
}

func (c *Client[T]) write(ctx context.Context, method string, item T) (T, error) {
	var resp EntityResponse[T]
	err := c.do(ctx, method, "", item, &resp)
	if err != nil {
		return item, errors.WrapFailf(err, "%s %q", strings.ToLower(method), item.ID())
	}
	if resp.Data == nil {
		return item, nil
	}
	return *resp.Data, nil
}

func (c *Client[T]) Delete(ctx context.Context, id string) (bool, error) {
	var resp EntityResponse[T]
	err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, &resp)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.WrapFailf(err, "delete %q", id)
	}
	return true, nil
}

func (c *Client[T]) DeleteAll(ctx context.Context) error {
	var resp ListResponse[T]
	return errors.WrapFail(c.do(ctx, http.MethodDelete, "", nil, &resp), "delete all")
}

func (c *Client[T]) Close(context.Context) error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}

// do sends body as JSON and decodes the envelope into out. Failed envelopes
// become ErrNotFound, ErrConflict, a StoreAccessError or a RemoteError.
func (c *Client[T]) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapFail(err, "encode request")
		}
		payload = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return errors.WrapFail(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &repo.StoreAccessError{Store: remoteStore, Op: method + " " + c.base + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &repo.StoreAccessError{Store: remoteStore, Op: "read response", Err: err}
	}

	var envelope struct {
		Success       bool     `json:"success"`
		ErrorMessages []string `json:"errorMessages"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &RemoteError{Status: resp.StatusCode, Messages: []string{"malformed response: " + err.Error()}}
	}

	if !envelope.Success {
		remote := &RemoteError{Status: resp.StatusCode, Messages: envelope.ErrorMessages}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return errors.Wrap(repo.ErrNotFound, remote.Error())
		case resp.StatusCode == http.StatusConflict:
			return errors.Wrap(repo.ErrConflict, remote.Error())
		case resp.StatusCode >= http.StatusInternalServerError:
			return &repo.StoreAccessError{Store: remoteStore, Op: method + " " + c.base + path, Err: remote}
		default:
			return remote
		}
	}

	return errors.WrapFail(json.Unmarshal(data, out), "decode response")
}

// retryPolicy retries a 5xx only when repeating the request can't apply a
// write twice. Transport failures follow the default policy.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.Request != nil && !repeatable(resp.Request) {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func repeatable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	case http.MethodPost:
		return strings.HasSuffix(req.URL.Path, "/query")
	default:
		return false
	}
}

// orErr returns err, or fallback when err is nil.
func orErr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}

// leveled routes retryablehttp logs into the application logger.
type leveled struct {
	log logger.Logger
}

func (l leveled) Error(msg string, kv ...any) { l.log.Errorf("%s %v", msg, kv) }
func (l leveled) Info(msg string, kv ...any)  { l.log.Debugf("%s %v", msg, kv) }
func (l leveled) Debug(msg string, kv ...any) { l.log.Debugf("%s %v", msg, kv) }
func (l leveled) Warn(msg string, kv ...any)  { l.log.Warnf("%s %v", msg, kv) }
