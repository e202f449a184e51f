// Package forge runs the whole generation pipeline: load the config,
// validate it, build the intermediate model, generate the files and commit
// them to the target directory.
package forge

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/olimci/fiberforge/pkg/codegen"
	"github.com/olimci/fiberforge/pkg/config"
	"github.com/olimci/fiberforge/pkg/events"
	"github.com/olimci/fiberforge/pkg/ipm"
	"github.com/olimci/fiberforge/pkg/manifest"
	"github.com/olimci/fiberforge/pkg/schema"
)

// Source supplies the raw config of a run.
type Source interface {
	Load() (config.Raw, error)
	String() string
}

// File reads the config from path, choosing the decoder by extension.
func File(path string) Source {
	return fileSource(path)
}

type fileSource string

func (s fileSource) Load() (config.Raw, error) { return config.Load(string(s)) }
func (s fileSource) String() string            { return string(s) }

// Inline uses raw as the config.
func Inline(raw config.Raw) Source {
	return inlineSource{raw: raw}
}

type inlineSource struct {
	raw config.Raw
}

func (s inlineSource) Load() (config.Raw, error) { return s.raw, nil }
func (s inlineSource) String() string            { return "<inline>" }

type Result struct {
	Target  string
	Project *ipm.Project
	Files   []manifest.File
	Commit  *manifest.Result
}

// Engine runs pipelines. Runs against the same target directory are
// serialized; runs against different targets proceed in parallel.
type Engine struct {
	opts  *options
	gen   *codegen.Generator
	locks *keyedMutex
}

func New(opts ...Option) *Engine {
	o := defaultOptions().apply(opts...)
	return &Engine{
		opts:  o,
		gen:   codegen.New(o.codegen...),
		locks: newKeyedMutex(),
	}
}

// Run executes the pipeline for src into target. Every failure is a
// *StageError naming the stage it came from.
func (e *Engine) Run(ctx context.Context, src Source, target string) (*Result, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, &StageError{Stage: StageCommit, Err: fmt.Errorf("resolve target: %w", err)}
	}

	unlock := e.locks.lock(abs)
	defer unlock()

	e.emit(events.Debug, StageLoad, "loading "+src.String(), "")
	raw, err := src.Load()
	if err != nil {
		return nil, e.fail(StageLoad, err)
	}

	e.emit(events.Debug, StageValidate, "validating config", "")
	spec, err := schema.Validate(raw)
	if err != nil {
		return nil, e.fail(StageValidate, err)
	}

	p := ipm.Build(spec)
	e.emit(events.Debug, StageBuild, fmt.Sprintf("%d entities in order %s", len(p.Entities), entityNames(p)), "")

	files, err := e.gen.Generate(p)
	if err != nil {
		return nil, e.fail(StageGenerate, err)
	}
	e.emit(events.Debug, StageGenerate, fmt.Sprintf("generated %d files", len(files)), "")

	if err := ctx.Err(); err != nil {
		return nil, e.fail(StageCommit, err)
	}

	committed, err := manifest.Commit(ctx, e.opts.output(abs), files, e.opts.commit...)
	if err != nil {
		return nil, e.fail(StageCommit, err)
	}
	for _, entry := range committed.Entries {
		level, msg := events.Info, entry.Status.String()
		switch {
		case entry.Status == manifest.Unchanged:
			level = events.Debug
		case entry.Status == manifest.Overwritten && entry.File.Policy == manifest.CreateOnly:
			level, msg = events.Warn, "overwritten despite create-only policy"
		}
		e.emit(level, StageCommit, msg, entry.File.Path)
	}

	return &Result{
		Target:  abs,
		Project: p,
		Files:   files,
		Commit:  committed,
	}, nil
}

func (e *Engine) emit(level events.Level, stage Stage, msg, path string) {
	e.opts.handler.Handle(events.Event{
		Level:   level,
		Stage:   string(stage),
		Message: msg,
		Path:    path,
	})
}

func (e *Engine) fail(stage Stage, err error) error {
	e.opts.handler.Handle(events.Event{
		Level:   events.Error,
		Stage:   string(stage),
		Message: "failed",
		Error:   err,
	})
	return &StageError{Stage: stage, Err: err}
}

func entityNames(p *ipm.Project) []string {
	names := make([]string, len(p.Entities))
	for i, e := range p.Entities {
		names[i] = e.Name.Original
	}
	return names
}
