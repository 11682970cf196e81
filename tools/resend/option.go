package resend

import (
	"net/http"

	"github.com/bububa/atomic-cookbook/tools"
)

type Option func(*Config)

// WithAPIKey sets the Resend api key
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.apiKey = key
	}
}

// WithFrom sets the sender address
func WithFrom(from string) Option {
	return func(c *Config) {
		c.from = from
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.baseURL = baseURL
	}
}

func WithHttpClient(clt *http.Client) Option {
	return func(c *Config) {
		c.httpClient = clt
	}
}

// WithToolOptions applies common tool options
func WithToolOptions(opts ...tools.Option) Option {
	return func(c *Config) {
		for _, opt := range opts {
			opt(&c.Config)
		}
	}
}
