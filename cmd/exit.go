package cmd

import (
	"errors"

	"github.com/olimci/fiberforge/cmd/internal"
	"github.com/olimci/fiberforge/pkg/forge"
)

const (
	ExitOK         = 0
	ExitValidation = 1
	ExitIO         = 2
	ExitUsage      = 3
)

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	if errors.Is(err, internal.ErrLocked) {
		return ExitIO
	}

	var se *forge.StageError
	if errors.As(err, &se) {
		switch se.Stage {
		case forge.StageValidate:
			return ExitValidation
		case forge.StageBuild, forge.StageGenerate:
			return ExitUsage
		default:
			return ExitIO
		}
	}

	return ExitIO
}
