package fal

import (
	"net/http"
	"time"

	"github.com/bububa/atomic-cookbook/tools"
)

const (
	DefaultBaseURL      = "https://queue.fal.run"
	DefaultModel        = "fal-ai/hunyuan-video"
	DefaultPollInterval = time.Second
)

type Option func(*Config)

// WithAPIKey sets the fal key, FAL_KEY is read by callers when it is empty
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.apiKey = key
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.baseURL = baseURL
	}
}

// WithModel sets the default model
func WithModel(model string) Option {
	return func(c *Config) {
		c.model = model
	}
}

// WithMediaType sets the default media type
func WithMediaType(t MediaType) Option {
	return func(c *Config) {
		c.mediaType = t
	}
}

// WithPollInterval sets how often the request status is polled
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		c.pollInterval = d
	}
}

func WithHttpClient(clt *http.Client) Option {
	return func(c *Config) {
		c.httpClient = clt
	}
}

// WithMediaSink sets where generated media urls are added, usually an agent
func WithMediaSink(sink tools.MediaSink) Option {
	return func(c *Config) {
		c.sink = sink
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
