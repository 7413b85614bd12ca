// Package transport issues HTTP requests against an OpenAI-compatible API.
// It owns headers, auth, and the buffered/streaming split; it performs no
// decoding beyond the error envelope at the status boundary.
package transport

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petrel-labs/petrel/core"
)

// Request is the envelope for one API invocation. The transport borrows it
// for the duration of the call and never mutates it.
type Request struct {
	Method  string
	Path    string
	Body    []byte
	Header  http.Header   // extra per-request headers, may be nil
	Timeout time.Duration // overrides the client timeout for this call
	Stream  bool
}

// Response is a complete, buffered reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client performs requests against one API endpoint. Client is safe for
// concurrent use.
type Client struct {
	config Config
}

// New creates a transport client with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	cfg := Config{
		APIKey:     core.NewSecret(apiKey),
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{config: cfg}
}

// buildHeaders constructs the headers for one attempt. Each attempt gets a
// fresh client request id so retries are distinguishable server-side.
func (c *Client) buildHeaders(req *Request) http.Header {
	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+c.config.APIKey.Expose())
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Client-Request-Id", uuid.NewString())

	if c.config.OrgID != "" {
		headers.Set("OpenAI-Organization", c.config.OrgID)
	}
	if c.config.ProjectID != "" {
		headers.Set("OpenAI-Project", c.config.ProjectID)
	}
	if req.Stream {
		headers.Set("Accept", "text/event-stream")
	}

	for key, values := range c.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	for key, values := range req.Header {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}

func (c *Client) buildURL(path string) (string, error) {
	u, err := url.JoinPath(c.config.BaseURL, path)
	if err != nil {
		return "", &url.Error{Op: "parse", URL: c.config.BaseURL + path, Err: err}
	}
	return u, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u, err := c.buildURL(req.Path)
	if err != nil {
		return nil, core.Classify(err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, core.Classify(err)
	}
	httpReq.Header = c.buildHeaders(req)
	return httpReq, nil
}

// Do executes a buffered request. Error statuses and transport failures
// come back already classified.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if timeout := c.timeoutFor(req); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, core.Classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.Classify(err)
	}

	if resp.StatusCode >= 400 {
		return nil, core.ClassifyStatus(resp.StatusCode, data, resp.Header)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}

// Open executes a streaming request and hands back the response body for
// frame decoding. The caller owns the body and must close it on every exit
// path; per-request timeouts do not apply since a healthy stream may
// outlive any fixed deadline.
func (c *Client) Open(ctx context.Context, req *Request) (io.ReadCloser, http.Header, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, nil, core.Classify(err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, nil, core.ClassifyStatus(resp.StatusCode, data, resp.Header)
	}

	if ct := resp.Header.Get("Content-Type"); !isEventStream(ct) {
		resp.Body.Close()
		return nil, nil, core.NewStreamingUnsupported(ct)
	}

	return resp.Body, resp.Header, nil
}

func (c *Client) timeoutFor(req *Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return c.config.Timeout
}

// maxErrorBody bounds how much of an error response is read on the
// streaming path.
const maxErrorBody = 1 << 20

func isEventStream(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.HasPrefix(contentType, "text/event-stream")
	}
	return mt == "text/event-stream"
}
