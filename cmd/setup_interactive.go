package cmd

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/olimci/fiberforge/pkg/schema"
)

// runSetupInteractive prompts for the values params is missing.
func runSetupInteractive(ctx context.Context, params setupParams) (setupParams, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return params, usageErrorf("--interactive needs a terminal")
	}

	var fields []huh.Field
	if params.Name == "" {
		fields = append(fields, huh.NewInput().
			Title("Enter your project name").
			Value(&params.Name).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("name is required")
				}
				return nil
			}))
	}
	if params.Database == "" {
		options := make([]huh.Option[string], 0, len(schema.Databases()))
		for _, db := range schema.Databases() {
			options = append(options, huh.NewOption(string(db), string(db)))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title("Enter database name").
			Description("Available databases are mongodb, mysql and postgres.").
			Options(options...).
			Value(&params.Database))
	}
	if len(fields) == 0 {
		return params, nil
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return params, usageErrorf("setup cancelled")
		}
		return params, err
	}

	params.Name = strings.TrimSpace(params.Name)
	return params, nil
}
