package command

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// fakeStep is a leaf whose work is recorded in a shared map, so re-running
// against already satisfied state is observable as a no-op.
type fakeStep struct {
	NoUndo
	name     string
	done     map[string]int
	behov    string
	fail     error
	executed *[]string
}

func (s *fakeStep) Name() string { return s.name }

func (s *fakeStep) Execute(ctx context.Context, cc *CommandContext) (Outcome, error) {
	if s.fail != nil {
		return Completed, s.fail
	}
	if s.behov != "" {
		if _, ok := cc.Losning(s.behov); !ok {
			cc.LeggTilBehov(s.behov, map[string]any{})
			return Suspended, nil
		}
	}
	// already done: re-check against persisted side effect
	if s.done[s.name] > 0 {
		return Completed, nil
	}
	s.done[s.name]++
	if s.executed != nil {
		*s.executed = append(*s.executed, s.name)
	}
	return Completed, nil
}

func (s *fakeStep) Resume(ctx context.Context, cc *CommandContext) (Outcome, error) {
	return s.Execute(ctx, cc)
}

type undoStep struct {
	fakeStep
	undone int
}

func (s *undoStep) Undo(ctx context.Context, cc *CommandContext) error {
	s.undone++
	return nil
}

func TestMacro_CompletesInOrder(t *testing.T) {
	done := map[string]int{}
	var order []string
	m := NewMacro("chain",
		&fakeStep{name: "a", done: done, executed: &order},
		&fakeStep{name: "b", done: done, executed: &order},
		&fakeStep{name: "c", done: done, executed: &order},
	)

	cc := NewContext(uuid.New())
	outcome, err := m.Execute(context.Background(), cc)
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if outcome != Completed {
		t.Fatalf("outcome = %v, want Completed", outcome)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("execution order = %v", order)
	}
}

func TestMacro_SuspendsAndResumesWithoutDuplicatingSideEffects(t *testing.T) {
	done := map[string]int{}
	var order []string
	m := NewMacro("chain",
		&fakeStep{name: "a", done: done, executed: &order},
		&fakeStep{name: "b", done: done, executed: &order},
		&fakeStep{name: "c", done: done, behov: "Risikovurdering", executed: &order},
		&fakeStep{name: "d", done: done, executed: &order},
	)

	ctx := context.Background()
	cc := NewContext(uuid.New())

	outcome, err := m.Execute(ctx, cc)
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if outcome != Suspended {
		t.Fatalf("outcome = %v, want Suspended", outcome)
	}
	// Later siblings never ran.
	if done["d"] != 0 {
		t.Error("step d ran past a suspension")
	}
	if len(cc.NyeBehov()) != 1 || cc.NyeBehov()[0].Navn != "Risikovurdering" {
		t.Fatalf("collected behov = %v", cc.NyeBehov())
	}
	if cc.ErFerdig() {
		t.Error("suspended context must not be terminal")
	}

	// Answer arrives; resume re-walks from the start.
	if !cc.MottaLosning("Risikovurdering", json.RawMessage(`{"kanAutomatiseres": true}`)) {
		t.Fatal("løsning not correlated")
	}
	outcome, err = m.Resume(ctx, cc)
	if err != nil {
		t.Fatalf("Resume() = %v", err)
	}
	if outcome != Completed {
		t.Fatalf("outcome = %v, want Completed", outcome)
	}

	// Steps 1-2 executed exactly once; steps 3-4 exactly once.
	for _, name := range []string{"a", "b", "c", "d"} {
		if done[name] != 1 {
			t.Errorf("step %s executed %d times, want 1", name, done[name])
		}
	}
}

func TestMacro_UndoOnFailure(t *testing.T) {
	done := map[string]int{}
	boom := errors.New("boom")
	first := &undoStep{fakeStep: fakeStep{name: "a", done: done}}
	m := NewMacro("chain",
		first,
		&fakeStep{name: "b", done: done, fail: boom},
		&fakeStep{name: "c", done: done},
	)

	cc := NewContext(uuid.New())
	_, err := m.Execute(context.Background(), cc)
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() = %v, want boom", err)
	}
	if first.undone != 1 {
		t.Errorf("step a undone %d times, want 1", first.undone)
	}
	if done["c"] != 0 {
		t.Error("step c ran after a failure")
	}
	if cc.ErFerdig() {
		t.Error("failed context must not be terminal")
	}
}

func TestContext_LosningCorrelation(t *testing.T) {
	cc := NewContext(uuid.New())
	cc.LeggTilBehov("HentEnhet", map[string]any{})

	if cc.MottaLosning("Vergemål", json.RawMessage(`{}`)) {
		t.Error("answer to a behov never asked must be rejected")
	}
	if !cc.MottaLosning("HentEnhet", json.RawMessage(`{"enhet": "0393"}`)) {
		t.Error("answer to a collected behov must be accepted")
	}
	if cc.HarUbesvarteBehov() {
		t.Error("all behov answered")
	}
}

func TestContext_BehovNotRepublishedWhenAnswered(t *testing.T) {
	cc := NewContext(uuid.New())
	cc.LeggTilBehov("HentEnhet", map[string]any{})
	cc.MottaLosning("HentEnhet", json.RawMessage(`{}`))

	resumed := Wrap(cc.Kontekst())
	resumed.LeggTilBehov("HentEnhet", map[string]any{})
	if len(resumed.NyeBehov()) != 0 {
		t.Error("an answered behov must not be collected again on resume")
	}
}
