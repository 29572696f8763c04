// Package flyt is a small state machine library shared by the generation and
// task lifecycles. States and triggers are plain strings; a machine only
// permits transitions that were explicitly configured.
package flyt

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUgyldigOvergang is returned when a trigger is not permitted in the
	// current state.
	ErrUgyldigOvergang = errors.New("ugyldig tilstandsovergang")

	// ErrVaktAvslo is returned when every configured guard rejected the
	// transition.
	ErrVaktAvslo = errors.New("vakt avslo overgang")
)

// Tilstand is a state in a lifecycle.
type Tilstand string

// Handling is a trigger that may cause a transition.
type Handling string

// Vakt evaluates whether a configured transition should be taken.
type Vakt func(ctx context.Context) bool

type overgang struct {
	til  Tilstand
	vakt Vakt
}

// Builder configures the permitted transitions of a machine.
type Builder struct {
	overganger map[Tilstand]map[Handling][]overgang
}

// NyBuilder creates an empty machine builder.
func NyBuilder() *Builder {
	return &Builder{overganger: make(map[Tilstand]map[Handling][]overgang)}
}

// Konfigurer returns the configuration handle for a state, creating it on
// first use.
func (b *Builder) Konfigurer(fra Tilstand) *TilstandKonfig {
	if _, ok := b.overganger[fra]; !ok {
		b.overganger[fra] = make(map[Handling][]overgang)
	}
	return &TilstandKonfig{builder: b, fra: fra}
}

// Bygg creates a machine starting in the given state. The initial state must
// be known to the builder, either as a source or a target of a transition.
func (b *Builder) Bygg(initial Tilstand) *Maskin {
	if !b.kjent(initial) {
		panic(fmt.Sprintf("flyt: ukjent starttilstand %q", initial))
	}

	kopi := make(map[Tilstand]map[Handling][]overgang, len(b.overganger))
	for fra, handlinger := range b.overganger {
		hk := make(map[Handling][]overgang, len(handlinger))
		for h, os := range handlinger {
			hk[h] = append([]overgang(nil), os...)
		}
		kopi[fra] = hk
	}
	return &Maskin{tilstand: initial, overganger: kopi}
}

func (b *Builder) kjent(t Tilstand) bool {
	if _, ok := b.overganger[t]; ok {
		return true
	}
	for _, handlinger := range b.overganger {
		for _, os := range handlinger {
			for _, o := range os {
				if o.til == t {
					return true
				}
			}
		}
	}
	return false
}

// TilstandKonfig configures transitions out of one state.
type TilstandKonfig struct {
	builder *Builder
	fra     Tilstand
}

// Tillat permits a trigger to transition to the target state.
func (k *TilstandKonfig) Tillat(h Handling, til Tilstand) *TilstandKonfig {
	return k.TillatHvis(h, til, nil)
}

// TillatHvis permits a trigger to transition to the target state when the
// guard passes. Transitions for the same trigger are tried in configured
// order; the first passing guard wins.
func (k *TilstandKonfig) TillatHvis(h Handling, til Tilstand, vakt Vakt) *TilstandKonfig {
	k.builder.overganger[k.fra][h] = append(k.builder.overganger[k.fra][h], overgang{til: til, vakt: vakt})
	return k
}

// Maskin tracks the current state and validates transitions.
type Maskin struct {
	tilstand   Tilstand
	overganger map[Tilstand]map[Handling][]overgang
}

// Tilstand returns the current state.
func (m *Maskin) Tilstand() Tilstand {
	return m.tilstand
}

// KanUtfore reports whether the trigger is permitted in the current state.
// Guards are not evaluated here; they require a context at fire time.
func (m *Maskin) KanUtfore(h Handling) bool {
	handlinger, ok := m.overganger[m.tilstand]
	if !ok {
		return false
	}
	return len(handlinger[h]) > 0
}

// Utfor attempts the trigger, transitioning to the new state if permitted.
func (m *Maskin) Utfor(ctx context.Context, h Handling) error {
	handlinger, ok := m.overganger[m.tilstand]
	if !ok {
		return fmt.Errorf("%w: %s fra %s", ErrUgyldigOvergang, h, m.tilstand)
	}
	os := handlinger[h]
	if len(os) == 0 {
		return fmt.Errorf("%w: %s fra %s", ErrUgyldigOvergang, h, m.tilstand)
	}
	for _, o := range os {
		if o.vakt == nil || o.vakt(ctx) {
			m.tilstand = o.til
			return nil
		}
	}
	return fmt.Errorf("%w: %s fra %s", ErrVaktAvslo, h, m.tilstand)
}

// TillatteHandlinger returns the triggers configured for the current state.
func (m *Maskin) TillatteHandlinger() []Handling {
	handlinger, ok := m.overganger[m.tilstand]
	if !ok {
		return nil
	}
	res := make([]Handling, 0, len(handlinger))
	for h := range handlinger {
		res = append(res, h)
	}
	return res
}
