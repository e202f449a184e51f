package cmd

import (
	"context"
	"strings"

	"github.com/olimci/fiberforge/pkg/forge"
	"github.com/olimci/fiberforge/pkg/watcher"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Generate runs the pipeline on the config file named by the first argument.
func Generate(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return usageErrorf("generate takes exactly one config file path, got %d arguments", cmd.NArg())
	}
	path := strings.TrimSpace(cmd.Args().First())
	if path == "" {
		return usageErrorf("empty config file path")
	}

	r, err := newRunner(cmd)
	if err != nil {
		return err
	}

	src := forge.File(path)
	if !cmd.Bool("watch") {
		return r.run(ctx, src)
	}
	r.watching = true
	return r.watch(ctx, src, path)
}

// watch regenerates after every change to path until ctx is done. Failed
// runs are reported and watching continues.
func (r *runner) watch(ctx context.Context, src forge.Source, path string) error {
	w, err := watcher.New(r.env.WatchDebounce, path)
	if err != nil {
		return err
	}
	defer w.Close()

	_ = r.run(ctx, src)
	r.logger.Info("watching for changes", "config", path, "debounce", r.env.WatchDebounce)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-w.Events:
				r.logger.Info("regenerating", "reason", ev.Reason)
				_ = r.run(ctx, src)
			case err := <-w.Errors:
				r.logger.Warn(err.Error())
			}
		}
	})

	return g.Wait()
}
