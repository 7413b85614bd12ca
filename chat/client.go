package chat

import (
	"context"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/petrel-labs/petrel/core"
	"github.com/petrel-labs/petrel/transport"
)

const (
	endpointPath = "/chat/completions"
	endpointName = "chat"
)

// Client executes Chat Completions calls over a transport, applying retry
// and telemetry. Client is safe for concurrent use.
type Client struct {
	transport *transport.Client
	retry     core.RetryPolicy
	telemetry core.TelemetryHook
	lenient   bool
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p core.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithTelemetry sets the telemetry hook.
func WithTelemetry(h core.TelemetryHook) Option {
	return func(c *Client) {
		if h != nil {
			c.telemetry = h
		}
	}
}

// WithLenientDecoding makes streaming sessions skip malformed frames
// instead of failing. Protocol violations remain fatal.
func WithLenientDecoding() Option {
	return func(c *Client) {
		c.lenient = true
	}
}

// New creates a Chat Completions client over the given transport.
func New(t *transport.Client, opts ...Option) *Client {
	c := &Client{
		transport: t,
		retry:     core.DefaultRetryPolicy(),
		telemetry: core.NoopTelemetryHook{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create executes a non-streaming call and returns the terminal Result.
func (c *Client) Create(ctx context.Context, req *Request) (*core.Result, error) {
	body, err := marshalRequest(req, false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c.telemetry.OnRequestStart(core.RequestStartEvent{
		Endpoint: endpointName,
		Model:    req.Model,
		Start:    start,
	})

	attempts := 1
	result, err := core.Do(ctx, c.retry, func(ctx context.Context) (*core.Result, error) {
		resp, err := c.transport.Do(ctx, &transport.Request{
			Method: http.MethodPost,
			Path:   endpointPath,
			Body:   body,
		})
		if err != nil {
			return nil, err
		}
		return decodeResult(resp.Body)
	}, func(a core.Attempt) {
		attempts++
		c.telemetry.OnRetry(core.RetryEvent{
			Endpoint: endpointName,
			Attempt:  a.Number,
			Delay:    a.Delay,
			Err:      a.Err,
		})
	})

	end := core.RequestEndEvent{
		Endpoint: endpointName,
		Model:    req.Model,
		Start:    start,
		End:      time.Now(),
		Attempts: attempts,
		Err:      err,
	}
	if result != nil {
		end.Usage = result.Usage
	}
	c.telemetry.OnRequestEnd(end)

	return result, err
}

// Stream executes a streaming call. Retry wraps only the setup; once
// frames are flowing, failures surface on the stream's Err channel.
func (c *Client) Stream(ctx context.Context, req *Request) (*core.ResultStream, error) {
	body, err := marshalRequest(req, true)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c.telemetry.OnRequestStart(core.RequestStartEvent{
		Endpoint: endpointName,
		Model:    req.Model,
		Start:    start,
	})

	attempts := 1
	rc, err := core.Do(ctx, c.retry, func(ctx context.Context) (io.ReadCloser, error) {
		rc, _, err := c.transport.Open(ctx, &transport.Request{
			Method: http.MethodPost,
			Path:   endpointPath,
			Body:   body,
			Stream: true,
		})
		return rc, err
	}, func(a core.Attempt) {
		attempts++
		c.telemetry.OnRetry(core.RetryEvent{
			Endpoint: endpointName,
			Attempt:  a.Number,
			Delay:    a.Delay,
			Err:      a.Err,
		})
	})
	if err != nil {
		c.telemetry.OnRequestEnd(core.RequestEndEvent{
			Endpoint: endpointName,
			Model:    req.Model,
			Start:    start,
			End:      time.Now(),
			Attempts: attempts,
			Err:      err,
		})
		return nil, err
	}

	return core.RunStream(ctx, rc, newAdapter(), core.StreamOptions{
		Lenient: c.lenient,
		OnEnd: func(final *core.Result, err error) {
			end := core.RequestEndEvent{
				Endpoint: endpointName,
				Model:    req.Model,
				Start:    start,
				End:      time.Now(),
				Attempts: attempts,
				Err:      err,
			}
			if final != nil {
				end.Usage = final.Usage
			}
			c.telemetry.OnRequestEnd(end)
		},
	}), nil
}

// marshalRequest serializes the request, asking the server to attach
// usage to the final chunk on streaming calls.
func marshalRequest(req *Request, stream bool) ([]byte, error) {
	wire := *req
	wire.Stream = stream
	if stream {
		wire.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	body, err := json.Marshal(&wire)
	if err != nil {
		return nil, core.NewInvalidPayload(err)
	}
	return body, nil
}
