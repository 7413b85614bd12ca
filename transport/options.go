package transport

import (
	"net/http"
	"time"

	"github.com/petrel-labs/petrel/core"
)

// DefaultBaseURL is the stock API base URL.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds transport configuration.
type Config struct {
	// APIKey authenticates every request (required).
	APIKey core.Secret

	// BaseURL is the API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient performs the requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// OrgID is the optional organization scope header.
	OrgID string

	// ProjectID is the optional project scope header.
	ProjectID string

	// Headers are extra headers added to every request.
	Headers http.Header

	// Timeout bounds buffered requests. Streaming requests are exempt.
	Timeout time.Duration
}

// Option configures the transport client.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithOrgID sets the organization scope header.
func WithOrgID(org string) Option {
	return func(c *Config) {
		c.OrgID = org
	}
}

// WithProjectID sets the project scope header.
func WithProjectID(project string) Option {
	return func(c *Config) {
		c.ProjectID = project
	}
}

// WithHeader adds an extra header to every request.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithTimeout sets the buffered-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}
