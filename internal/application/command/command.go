// Package command implements the execution engine: ordered command chains
// that can suspend while waiting for an external answer and resume later,
// possibly in a different process. Resumability is achieved through
// idempotent, state-checking steps, not serialized continuations: on resume
// the engine re-walks the chain from the start and every step must first ask
// its collaborator whether its work is already done.
package command

import "context"

// Outcome is the result of executing a command.
type Outcome int

const (
	// Completed means the command finished and later siblings may run.
	Completed Outcome = iota

	// Suspended means the command needs an external answer that is not yet
	// present; the chain stops here and the context is persisted open.
	Suspended
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case Completed:
		return "COMPLETED"
	case Suspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// Command is a unit of work in a chain. Execute must be idempotent on
// re-check: it is called again on resume, so it must first ask its own
// collaborator whether the work already happened before doing it. Resume is
// the explicit re-entry point; most leaves delegate it to Execute, which
// keeps the "cheap to re-check, safe to re-run" contract visible in the
// interface rather than by convention.
type Command interface {
	Name() string
	Execute(ctx context.Context, cc *CommandContext) (Outcome, error)
	Resume(ctx context.Context, cc *CommandContext) (Outcome, error)
	Undo(ctx context.Context, cc *CommandContext) error
}
