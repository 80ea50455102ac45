package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	derrors "github.com/matzehuels/decrepit/pkg/errors"
	"github.com/matzehuels/decrepit/pkg/observability"
)

// Client provides shared HTTP functionality for all distribution resolvers.
// It applies default headers, a per-request timeout and maps HTTP status
// codes onto the error taxonomy. It never retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	http    *http.Client
	headers map[string]string
}

// NewClient creates a Client with the given per-request timeout and default
// headers. A timeout of 0 selects [DefaultTimeout]. Pass nil for headers if no
// default headers are needed.
func NewClient(timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		http:    NewHTTPClient(timeout),
		headers: headers,
	}
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	body, err := c.doRequest(ctx, url, nil)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return derrors.Wrap(derrors.ErrCodeScrape, err, "decode %s", url)
	}
	return nil
}

// GetText performs an HTTP GET request and returns the response body as a string.
// Used for plain-text endpoints such as a port's Makefile.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, err := c.doRequest(ctx, url, nil)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return "", netErr(err)
	}
	return string(data), nil
}

// GetHTML performs an HTTP GET request and parses the response as HTML.
func (c *Client) GetHTML(ctx context.Context, url string) (*html.Node, error) {
	body, err := c.doRequest(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	doc, err := htmlquery.Parse(body)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeScrape, err, "parse %s", url)
	}
	return doc, nil
}

// Conditional is the result of [Client.GetConditional].
//
// When NotModified is true, Body is nil and the caller should use its own
// copy of the payload. Otherwise the caller must close Body; it may also
// close it unread when ETag shows the payload has not changed.
type Conditional struct {
	Body        io.ReadCloser
	ETag        string
	NotModified bool
}

// GetConditional performs a GET carrying If-None-Match when etag is set.
// A 304 response yields NotModified. A 200 response is returned with its
// body still open so the caller can decide whether to read it.
func (c *Client) GetConditional(ctx context.Context, url, etag string) (*Conditional, error) {
	var headers map[string]string
	if etag != "" {
		headers = map[string]string{"If-None-Match": etag}
	}
	resp, err := c.send(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return &Conditional{ETag: etag, NotModified: true}, nil
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return &Conditional{Body: resp.Body, ETag: resp.Header.Get("ETag")}, nil
}

func (c *Client) doRequest(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	resp, err := c.send(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return resp.Body, nil
}

func (c *Client) send(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "build request for %q", url)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, netErr(err)
	}
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))
	return resp, nil
}

func netErr(err error) error {
	return derrors.Wrap(derrors.ErrCodeNetwork, fmt.Errorf("%w: %v", ErrNetwork, err), "request failed")
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return derrors.Wrap(derrors.ErrCodeNotFound, ErrNotFound, "status %d", code)
	default:
		return derrors.Wrap(derrors.ErrCodeNetwork, ErrNetwork, "status %d", code)
	}
}
