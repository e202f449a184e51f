package cmd

import (
	"context"
	"strings"

	"github.com/olimci/fiberforge/pkg/config"
	"github.com/olimci/fiberforge/pkg/forge"
	"github.com/urfave/cli/v3"
)

type setupParams struct {
	Name     string
	Database string
	Module   string
}

// Setup creates a project with no entities in the target directory.
func Setup(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() > 0 {
		return usageErrorf("setup takes no arguments, got %q", cmd.Args().Slice())
	}

	params := setupParams{
		Name:     strings.TrimSpace(cmd.String("name")),
		Database: strings.TrimSpace(cmd.String("db")),
		Module:   strings.TrimSpace(cmd.String("module")),
	}

	if cmd.Bool("interactive") {
		var err error
		params, err = runSetupInteractive(ctx, params)
		if err != nil {
			return err
		}
	}

	switch {
	case params.Name == "":
		return usageErrorf("missing --name")
	case params.Database == "":
		return usageErrorf("missing --db (available databases are mongodb, mysql and postgres)")
	}

	r, err := newRunner(cmd)
	if err != nil {
		return err
	}
	return r.run(ctx, forge.Inline(params.raw()))
}

func (p setupParams) raw() config.Raw {
	raw := config.Raw{
		config.KeyName:     p.Name,
		config.KeyDatabase: p.Database,
	}
	if p.Module != "" {
		raw[config.KeyModule] = p.Module
	}
	return raw
}
