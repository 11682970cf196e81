package tools

import (
	"context"

	"go.uber.org/zap"
)

type Option func(c *Config)

func WithTitle(title string) Option {
	return func(c *Config) {
		c.SetTitle(title)
	}
}

func WithDescription(desc string) Option {
	return func(c *Config) {
		c.SetDescription(desc)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.SetLogger(l)
	}
}

func WithStartHook(fn func(context.Context, ITool, any)) Option {
	return func(c *Config) {
		c.SetStartHook(fn)
	}
}

func WithEndHook(fn func(context.Context, ITool, any, any)) Option {
	return func(c *Config) {
		c.SetEndHook(fn)
	}
}

func WithErrorHook(fn func(context.Context, ITool, any, error)) Option {
	return func(c *Config) {
		c.SetErrorHook(fn)
	}
}
