package llm

import (
	"context"

	"github.com/bububa/instructor-go"
	"go.uber.org/zap"

	"github.com/bububa/atomic-cookbook/components"
	"github.com/bububa/atomic-cookbook/schema"
)

const defaultMaxRetries = 2

// Options of a provider Client
type Options struct {
	maxRetries int
	logger     *zap.Logger
}

type Option func(*Options)

// WithMaxRetries sets how many times an invalid reply is retried
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.maxRetries = n
	}
}

// WithLogger sets logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.logger = l
	}
}

// NewOptions returns Options with defaults applied
func NewOptions(opts ...Option) Options {
	ret := Options{
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&ret)
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	return ret
}

// Logger returns the logger
func (o Options) Logger() *zap.Logger {
	return o.logger
}

// Call runs one instructor chat, target is where the reply is decoded to
type Call func(ctx context.Context, req *Request, target any, opts ...instructor.Option) error

// Chat picks the encoder for out and runs call with a copy of req.
// Text outputs are passed through, other schemas are described to the model and decoded as JSON.
func (o Options) Chat(ctx context.Context, provider Provider, req *Request, out any, call Call) error {
	opts := []instructor.Option{
		instructor.WithMode(instructor.ModeJSONSchema),
		instructor.WithMaxRetries(o.maxRetries),
		instructor.WithValidation(),
	}
	r := req.Clone()
	var target any
	if text, ok := out.(*schema.String); ok {
		opts = append(opts, instructor.WithEncoder(NewTextEncoder()))
		target = (*string)(text)
	} else {
		enc, err := NewJSONEncoder(out)
		if err != nil {
			return err
		}
		opts = append(opts, instructor.WithEncoder(enc))
		r.JSON = true
		target = out
	}
	if err := call(ctx, r, target, opts...); err != nil {
		o.logger.Warn("llm chat failed",
			zap.String("provider", string(provider)),
			zap.String("model", r.Model),
			zap.Error(err))
		return err
	}
	return nil
}

// Record fills resp with a provider response, usage already carried by resp is kept
func Record(resp *components.LLMResponse, fill func(*components.LLMResponse)) {
	if resp == nil {
		return
	}
	usage := resp.Usage
	resp.Usage = nil
	fill(resp)
	if usage != nil {
		usage.Merge(resp.Usage)
		resp.Usage = usage
	}
}

// Pipe forwards a plain text stream as chunks until src closes or ctx is done.
// src is drained after ctx is done so the producer never blocks.
func Pipe(ctx context.Context, src <-chan string) <-chan StreamChunk {
	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for text := range src {
			select {
			case ch <- StreamChunk{Content: text}:
			case <-ctx.Done():
				for range src {
				}
				return
			}
		}
	}()
	return ch
}
