package command

import (
	"context"
	"fmt"
)

// MacroCommand is an ordered, immutable list of sub-commands executed left
// to right. Execution short-circuits on the first suspension: later siblings
// never run until the blocking child is satisfied. Which children already
// completed is not stored in the command object; it is re-derived on resume
// from persisted side effects via each child's own idempotency check.
type MacroCommand struct {
	name     string
	commands []Command
}

// NewMacro creates a composite command.
func NewMacro(name string, commands ...Command) *MacroCommand {
	return &MacroCommand{name: name, commands: commands}
}

// Name returns the composite's name.
func (m *MacroCommand) Name() string {
	return m.name
}

// Execute runs the children in order. On the first error the already
// executed children are undone in reverse order and the error re-raised.
func (m *MacroCommand) Execute(ctx context.Context, cc *CommandContext) (Outcome, error) {
	return m.run(ctx, cc, func(c Command) (Outcome, error) { return c.Execute(ctx, cc) })
}

// Resume re-walks the children from the start. Children whose work already
// happened detect that through their own re-check and complete immediately.
func (m *MacroCommand) Resume(ctx context.Context, cc *CommandContext) (Outcome, error) {
	return m.run(ctx, cc, func(c Command) (Outcome, error) { return c.Resume(ctx, cc) })
}

func (m *MacroCommand) run(ctx context.Context, cc *CommandContext, step func(Command) (Outcome, error)) (Outcome, error) {
	for i, c := range m.commands {
		outcome, err := step(c)
		if err != nil {
			m.undoFrom(ctx, cc, i-1)
			return Completed, fmt.Errorf("%s: %w", c.Name(), err)
		}
		if outcome == Suspended {
			return Suspended, nil
		}
	}
	return Completed, nil
}

// Undo compensates all children in reverse order.
func (m *MacroCommand) Undo(ctx context.Context, cc *CommandContext) error {
	return m.undoFrom(ctx, cc, len(m.commands)-1)
}

func (m *MacroCommand) undoFrom(ctx context.Context, cc *CommandContext, idx int) error {
	var first error
	for i := idx; i >= 0; i-- {
		if err := m.commands[i].Undo(ctx, cc); err != nil && first == nil {
			first = fmt.Errorf("undo %s: %w", m.commands[i].Name(), err)
		}
	}
	return first
}
