package forge

import "fmt"

type Stage string

const (
	StageLoad     Stage = "load"
	StageValidate Stage = "validate"
	StageBuild    Stage = "build"
	StageGenerate Stage = "generate"
	StageCommit   Stage = "commit"
)

// StageError wraps the failure of one pipeline stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
