package manifest

func defaultOptions() *options {
	return &options{}
}

type options struct {
	force  bool
	dryRun bool
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}

	return o
}

type Option func(*options)

// WithForce lets create-only files replace existing targets.
func WithForce() Option {
	return func(o *options) {
		o.force = true
	}
}

// WithDryRun stages the files and reports what would be written.
func WithDryRun() Option {
	return func(o *options) {
		o.dryRun = true
	}
}
