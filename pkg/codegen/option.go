package codegen

import "github.com/olimci/fiberforge/pkg/schema"

func defaultOptions() *options {
	return &options{
		mappings:  DefaultMappings(),
		goVersion: "1.22",
		header:    "Code generated by fiberforge. DO NOT EDIT.",
		fiber:     module{Path: fiberModule, Version: "v2.52.5"},
		drivers: map[schema.Database]module{
			schema.Postgres: {Path: "github.com/jackc/pgx/v5", Version: "v5.7.1"},
			schema.MySQL:    {Path: "github.com/go-sql-driver/mysql", Version: "v1.8.1"},
			schema.MongoDB:  {Path: "go.mongodb.org/mongo-driver", Version: "v1.17.1"},
		},
	}
}

type module struct {
	Path    string
	Version string
}

type options struct {
	mappings  Mappings
	goVersion string
	header    string
	fiber     module
	drivers   map[schema.Database]module
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}

	return o
}

type Option func(*options)

// WithMappings replaces the lookup tables. Combine with DefaultMappings().Merge
// to override single entries.
func WithMappings(m Mappings) Option {
	return func(o *options) {
		o.mappings = m
	}
}

// WithGoVersion sets the go directive of the generated go.mod.
func WithGoVersion(v string) Option {
	return func(o *options) {
		o.goVersion = v
	}
}

func WithFiberVersion(v string) Option {
	return func(o *options) {
		o.fiber.Version = v
	}
}

// WithDriverVersion pins the driver module required for db.
func WithDriverVersion(db schema.Database, version string) Option {
	return func(o *options) {
		if d, ok := o.drivers[db]; ok {
			d.Version = version
			o.drivers[db] = d
		}
	}
}

// WithHeader sets the comment placed on top of generated Go files. An empty
// header disables it.
func WithHeader(h string) Option {
	return func(o *options) {
		o.header = h
	}
}
