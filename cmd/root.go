package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olimci/fiberforge/pkg/version"
	"github.com/urfave/cli/v3"
)

var Version = version.String()

// Streams the commands write to. Tests swap them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func Execute(ctx context.Context, args []string) error {
	sharedFlags := []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "target directory"},
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "overwrite files that are only ever created"},
		&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "report what would be written without writing"},
		&cli.BoolFlag{Name: "verbose", Usage: "log every pipeline step"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
	}

	app := &cli.Command{
		Name:           "fiberforge",
		Usage:          "Generate a Fiber web service from a project config",
		Writer:         stdout,
		ErrWriter:      stderr,
		OnUsageError:   onUsageError,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				return usageErrorf("unknown command %q", cmd.Args().First())
			}
			_ = cli.ShowAppHelp(cmd)
			return usageErrorf("no command given")
		},
		Commands: []*cli.Command{
			{
				Name:  "setup",
				Usage: "Create an empty project with a server, database connection and router",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "project name"},
					&cli.StringFlag{Name: "db", Usage: "database: mongodb, mysql or postgres"},
					&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "Go module path (defaults to the name)"},
					&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "prompt for missing values"},
				}, sharedFlags...),
				OnUsageError: onUsageError,
				Action:       Setup,
			},
			{
				Name:      "generate",
				Usage:     "Generate a project from a config file",
				ArgsUsage: "<configFilePath>",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "regenerate whenever the config file changes"},
				}, sharedFlags...),
				OnUsageError: onUsageError,
				Action:       Generate,
			},
			{
				Name:   "version",
				Usage:  "print version",
				Action: runVersion,
			},
		},
	}

	return app.Run(ctx, args)
}

// usageError is an invocation the CLI does not understand.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{msg: err.Error()}
}
