package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/olimci/fiberforge/cmd/internal"
	"github.com/olimci/fiberforge/pkg/events"
	"github.com/olimci/fiberforge/pkg/forge"
	"github.com/urfave/cli/v3"
)

// runner carries what setup and generate share: settings, output and the
// pipeline engine.
type runner struct {
	env      environment
	logger   *log.Logger
	reporter *reporter
	engine   *forge.Engine
	// events holds the events of the current run.
	events   *events.Collector
	target   string
	dryRun   bool
	watching bool
}

func newRunner(cmd *cli.Command) (*runner, error) {
	e, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, e)
	if err != nil {
		return nil, err
	}
	logger.Debug("settings", "env", e.String())

	collector := events.NewCollector(eventLogger{logger: logger})
	opts := []forge.Option{forge.WithEventHandler(collector)}
	if cmd.Bool("force") {
		opts = append(opts, forge.WithForce())
	}
	if cmd.Bool("dry-run") {
		opts = append(opts, forge.WithDryRun())
	}

	return &runner{
		env:    e,
		logger: logger,
		reporter: &reporter{
			logger: logger,
			out:    stdout,
			err:    stderr,
			style:  newReportStyle(stderr, e),
		},
		engine: forge.New(opts...),
		events: collector,
		target: cmd.String("out"),
		dryRun: cmd.Bool("dry-run"),
	}, nil
}

// run executes one pipeline run and reports its outcome. The target
// directory is locked against other processes unless nothing is written.
func (r *runner) run(ctx context.Context, src forge.Source) error {
	r.events.Clear()
	if !r.dryRun {
		lock, err := internal.Acquire(r.target)
		if err != nil {
			r.logger.Error(err.Error())
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				r.logger.Warn("failed to release lock", "err", err)
			}
		}()
	}

	res, err := r.engine.Run(ctx, src, r.target)
	if err != nil {
		r.reporter.report(err)
		if r.watching {
			r.reporter.summary(r.events.Summary())
		}
		return err
	}
	if r.events.MaxLevel() >= events.Warn {
		r.reporter.summary(r.events.Summary())
	}

	written := res.Commit.Written()
	for _, f := range written {
		fmt.Fprintln(r.reporter.out, filepath.Join(r.target, filepath.FromSlash(f.Path)))
	}

	switch {
	case r.dryRun:
		r.logger.Info(fmt.Sprintf("dry run: %d of %d files would be written", len(written), len(res.Files)))
	case len(written) == 0:
		r.logger.Info("project is up to date")
	default:
		r.logger.Info(fmt.Sprintf("wrote %d of %d files", len(written), len(res.Files)), "target", res.Target, "warnings", len(r.events.AtLevel(events.Warn)))
	}
	return nil
}
