package tools

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrInvalidInput is returned when a tool receives an input of the wrong schema
var ErrInvalidInput = errors.New("invalid tool input schema")

// Config is shared by every tool
type Config struct {
	// title the default title of the tool
	title string
	// description the default description of the tool
	description string
	logger      *zap.Logger
	startHook   func(context.Context, ITool, any)
	endHook     func(context.Context, ITool, any, any)
	errorHook   func(context.Context, ITool, any, error)
}

// NewConfig applies options over a Config, title is used when none is given
func NewConfig(title string, opts ...Option) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	if c.title == "" {
		c.title = title
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

func (c *Config) SetTitle(v string) {
	c.title = v
}

func (c Config) Title() string {
	return c.title
}

func (c *Config) SetDescription(v string) {
	c.description = v
}

func (c Config) Description() string {
	return c.description
}

func (c *Config) SetLogger(l *zap.Logger) {
	c.logger = l
}

func (c Config) Logger() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

func (c *Config) SetStartHook(fn func(context.Context, ITool, any)) {
	c.startHook = fn
}

func (c *Config) SetEndHook(fn func(context.Context, ITool, any, any)) {
	c.endHook = fn
}

func (c *Config) SetErrorHook(fn func(context.Context, ITool, any, error)) {
	c.errorHook = fn
}

// OnStart calls the start hook
func (c Config) OnStart(ctx context.Context, t ITool, input any) {
	if fn := c.startHook; fn != nil {
		fn(ctx, t, input)
	}
}

// OnEnd calls the end hook
func (c Config) OnEnd(ctx context.Context, t ITool, input any, output any) {
	if fn := c.endHook; fn != nil {
		fn(ctx, t, input, output)
	}
}

// OnError logs the error and calls the error hook
func (c Config) OnError(ctx context.Context, t ITool, input any, err error) {
	c.Logger().Error("tool failed", zap.String("tool", t.Title()), zap.Error(err))
	if fn := c.errorHook; fn != nil {
		fn(ctx, t, input, err)
	}
}
