package command

import "context"

// NoUndo is embedded by commands with no compensating action.
type NoUndo struct{}

// Undo is a no-op.
func (NoUndo) Undo(ctx context.Context, cc *CommandContext) error { return nil }
