package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/petrel-labs/petrel/chat"
	"github.com/petrel-labs/petrel/core"
	"github.com/petrel-labs/petrel/responses"
	"github.com/petrel-labs/petrel/transport"
)

// caller abstracts the two endpoint families behind one harness interface.
type caller interface {
	create(ctx context.Context, prompt, system string) (*core.Result, error)
	stream(ctx context.Context, prompt, system string) (*core.ResultStream, error)
}

// resolveAPIKey finds the API key: environment first, then an interactive
// prompt when attached to a terminal. The key is never persisted.
func resolveAPIKey() (string, error) {
	env := cfg.KeyEnv()
	if key := os.Getenv(env); key != "" {
		return key, nil
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("no API key: set %s", env)
	}

	fmt.Fprintf(os.Stderr, "API key (%s not set): ", env)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("no API key provided")
	}
	return key, nil
}

// newTransport builds the shared transport from config and environment.
func newTransport() (*transport.Client, error) {
	apiKey, err := resolveAPIKey()
	if err != nil {
		return nil, err
	}

	opts := []transport.Option{}
	if cfg.BaseURL != "" {
		opts = append(opts, transport.WithBaseURL(cfg.BaseURL))
	}
	if cfg.OrgID != "" {
		opts = append(opts, transport.WithOrgID(cfg.OrgID))
	}
	if cfg.ProjectID != "" {
		opts = append(opts, transport.WithProjectID(cfg.ProjectID))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, transport.WithTimeout(cfg.Timeout))
	}

	return transport.New(apiKey, opts...), nil
}

func retryPolicy() core.RetryPolicy {
	p := core.DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	return p
}

// newCaller builds the endpoint-family client selected by --endpoint.
func newCaller() (caller, error) {
	if model == "" {
		return nil, fmt.Errorf("model required: use --model flag or set model in config")
	}

	t, err := newTransport()
	if err != nil {
		return nil, err
	}

	telemetry := core.SlogTelemetryHook{}

	switch endpoint {
	case "responses":
		c := responses.New(t,
			responses.WithRetryPolicy(retryPolicy()),
			responses.WithTelemetry(telemetry),
		)
		return &responsesCaller{client: c}, nil
	case "chat":
		c := chat.New(t,
			chat.WithRetryPolicy(retryPolicy()),
			chat.WithTelemetry(telemetry),
		)
		return &chatCaller{client: c}, nil
	default:
		return nil, fmt.Errorf("unknown endpoint %q: use responses or chat", endpoint)
	}
}

type responsesCaller struct {
	client *responses.Client
}

func (c *responsesCaller) request(prompt, system string) *responses.Request {
	return &responses.Request{
		Model:        model,
		Input:        prompt,
		Instructions: system,
	}
}

func (c *responsesCaller) create(ctx context.Context, prompt, system string) (*core.Result, error) {
	return c.client.Create(ctx, c.request(prompt, system))
}

func (c *responsesCaller) stream(ctx context.Context, prompt, system string) (*core.ResultStream, error) {
	return c.client.Stream(ctx, c.request(prompt, system))
}

type chatCaller struct {
	client *chat.Client
}

func (c *chatCaller) request(prompt, system string) *chat.Request {
	var msgs []chat.Message
	if system != "" {
		msgs = append(msgs, chat.Message{Role: "system", Content: system})
	}
	msgs = append(msgs, chat.Message{Role: "user", Content: prompt})
	return &chat.Request{Model: model, Messages: msgs}
}

func (c *chatCaller) create(ctx context.Context, prompt, system string) (*core.Result, error) {
	return c.client.Create(ctx, c.request(prompt, system))
}

func (c *chatCaller) stream(ctx context.Context, prompt, system string) (*core.ResultStream, error) {
	return c.client.Stream(ctx, c.request(prompt, system))
}
