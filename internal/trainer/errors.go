package trainer

import "errors"

// Sentinel errors for the trainer package.
// Use errors.Is to check: errors.Is(err, trainer.ErrEmptyPool)
var (
	ErrSourceNotFound    = errors.New("trainer: formula source not found")
	ErrEmptyPool         = errors.New("trainer: no formulas for selected topics")
	ErrInvalidJudgment   = errors.New("trainer: judgment must be '+' or '-'")
	ErrSessionTerminated = errors.New("trainer: session terminated")
	ErrUnexpectedState   = errors.New("trainer: operation not allowed in current session state")
)
