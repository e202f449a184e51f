package forge

import (
	"github.com/olimci/fiberforge/pkg/codegen"
	"github.com/olimci/fiberforge/pkg/events"
	"github.com/olimci/fiberforge/pkg/iofs"
	"github.com/olimci/fiberforge/pkg/manifest"
)

func defaultOptions() *options {
	return &options{
		handler: events.Noop,
		output: func(dir string) iofs.Writable {
			return iofs.FromOS(dir)
		},
	}
}

type options struct {
	handler events.Handler
	codegen []codegen.Option
	commit  []manifest.Option
	output  func(dir string) iofs.Writable
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}

	return o
}

type Option func(*options)

// WithEventHandler receives progress and failure events of every run.
func WithEventHandler(h events.Handler) Option {
	return func(o *options) {
		if h != nil {
			o.handler = h
		}
	}
}

func WithCodegenOptions(opts ...codegen.Option) Option {
	return func(o *options) {
		o.codegen = append(o.codegen, opts...)
	}
}

// WithForce lets create-only files replace existing targets.
func WithForce() Option {
	return func(o *options) {
		o.commit = append(o.commit, manifest.WithForce())
	}
}

// WithDryRun generates and stages without writing.
func WithDryRun() Option {
	return func(o *options) {
		o.commit = append(o.commit, manifest.WithDryRun())
	}
}

// WithOutput replaces how a target directory is opened for writing.
func WithOutput(open func(dir string) iofs.Writable) Option {
	return func(o *options) {
		o.output = open
	}
}
