// Package generasjon implements the lifecycle of one adjudication attempt.
// Transitions mutate the entity and return the outbound events to dispatch
// after the surrounding transaction commits; persistence uses conditional
// updates so replays and re-ordered deliveries are absorbed.
package generasjon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/domain/event"
	"github.com/karl-run/spesialist/internal/domain/flyt"
)

// ErrHarUtbetaling is returned when a payout id is attached to a locked
// generation that already has one.
var ErrHarUtbetaling = errors.New("generasjon er låst og har allerede utbetaling")

const (
	handlingVedtakFattet          flyt.Handling = "VEDTAK_FATTET"
	handlingForkast               flyt.Handling = "FORKAST"
	handlingAvsluttUtenUtbetaling flyt.Handling = "AVSLUTT_UTEN_UTBETALING"
)

func maskin(fra entity.GenerasjonTilstand) *flyt.Maskin {
	b := flyt.NyBuilder()
	b.Konfigurer(flyt.Tilstand(entity.GenerasjonUlast)).
		Tillat(handlingVedtakFattet, flyt.Tilstand(entity.GenerasjonLast)).
		Tillat(handlingAvsluttUtenUtbetaling, flyt.Tilstand(entity.GenerasjonAvsluttetUtenUtbetaling)).
		Tillat(handlingForkast, flyt.Tilstand(entity.GenerasjonAvsluttetUtenUtbetaling))
	b.Konfigurer(flyt.Tilstand(entity.GenerasjonUtenUtbetalingMaVurderes)).
		Tillat(handlingVedtakFattet, flyt.Tilstand(entity.GenerasjonLast)).
		Tillat(handlingForkast, flyt.Tilstand(entity.GenerasjonAvsluttetUtenUtbetaling))
	b.Konfigurer(flyt.Tilstand(entity.GenerasjonLast))
	return b.Bygg(flyt.Tilstand(fra))
}

// Ny creates the first generation for a period, open for editing.
func Ny(vedtaksperiodeID uuid.UUID, fom, tom, skjaeringstidspunkt time.Time) entity.Generasjon {
	return entity.Generasjon{
		ID:                  uuid.New(),
		VedtaksperiodeID:    vedtaksperiodeID,
		Fom:                 fom,
		Tom:                 tom,
		Skjaeringstidspunkt: skjaeringstidspunkt,
		Tilstand:            entity.GenerasjonUlast,
		Opprettet:           time.Now(),
	}
}

// KanOppretteNeste reports whether a new generation may be opened after this
// one. Opening while the current is still open would violate generation
// exclusivity, so re-entrant events become no-ops.
func KanOppretteNeste(g *entity.Generasjon) bool {
	return g.Tilstand == entity.GenerasjonLast
}

// Neste creates the follow-up generation for the same period.
func Neste(g *entity.Generasjon) entity.Generasjon {
	neste := Ny(g.VedtaksperiodeID, g.Fom, g.Tom, g.Skjaeringstidspunkt)
	neste.SpleisBehandlingID = g.SpleisBehandlingID
	return neste
}

// VedtakFattet locks an open generation. Repeated decisions for the same
// generation are ignored.
func VedtakFattet(ctx context.Context, g *entity.Generasjon, hendelseID uuid.UUID, fnr string) (bool, []event.Event) {
	if g.Tilstand == entity.GenerasjonLast {
		return false, nil
	}
	m := maskin(g.Tilstand)
	if err := m.Utfor(ctx, handlingVedtakFattet); err != nil {
		return false, nil
	}
	g.Tilstand = entity.GenerasjonTilstand(m.Tilstand())
	return true, []event.Event{endret(g, hendelseID, fnr)}
}

// NyUtbetaling attaches a payout id. Allowed while open, or while locked as
// a late correction when no payout id is set yet.
func NyUtbetaling(g *entity.Generasjon, utbetalingID uuid.UUID) error {
	if g.Tilstand == entity.GenerasjonLast && g.UtbetalingID != nil {
		return ErrHarUtbetaling
	}
	g.UtbetalingID = &utbetalingID
	return nil
}

// Forkast discards an open generation. Locked generations are immutable
// history and are left untouched.
func Forkast(ctx context.Context, g *entity.Generasjon, hendelseID uuid.UUID, fnr string) (bool, []event.Event) {
	m := maskin(g.Tilstand)
	if err := m.Utfor(ctx, handlingForkast); err != nil {
		return false, nil
	}
	g.Tilstand = entity.GenerasjonTilstand(m.Tilstand())
	return true, []event.Event{endret(g, hendelseID, fnr)}
}

func endret(g *entity.Generasjon, hendelseID uuid.UUID, fnr string) event.Event {
	return event.New(event.TypeGenerasjonEndret, hendelseID, fnr, map[string]any{
		"generasjon_id":     g.ID.String(),
		"vedtaksperiode_id": g.VedtaksperiodeID.String(),
		"tilstand":          string(g.Tilstand),
	})
}
