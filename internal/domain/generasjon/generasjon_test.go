package generasjon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/domain/entity"
)

func nyGenerasjon() entity.Generasjon {
	now := time.Now()
	return Ny(uuid.New(), now.AddDate(0, 0, -14), now, now.AddDate(0, 0, -14))
}

func TestVedtakFattet(t *testing.T) {
	ctx := context.Background()
	g := nyGenerasjon()

	endret, events := VedtakFattet(ctx, &g, uuid.New(), "12345678910")
	if !endret {
		t.Fatal("VedtakFattet() on ulåst should transition")
	}
	if g.Tilstand != entity.GenerasjonLast {
		t.Errorf("tilstand = %v, want %v", g.Tilstand, entity.GenerasjonLast)
	}
	if len(events) != 1 {
		t.Errorf("events = %d, want 1", len(events))
	}

	// Idempotent: a repeated decision is ignored.
	endret, events = VedtakFattet(ctx, &g, uuid.New(), "12345678910")
	if endret || len(events) != 0 {
		t.Error("VedtakFattet() on låst should be a no-op")
	}
}

func TestKanOppretteNeste(t *testing.T) {
	g := nyGenerasjon()
	if KanOppretteNeste(&g) {
		t.Error("should not open next generation while current is ulåst")
	}

	g.Tilstand = entity.GenerasjonLast
	if !KanOppretteNeste(&g) {
		t.Error("should open next generation once current is låst")
	}
}

func TestNeste(t *testing.T) {
	g := nyGenerasjon()
	g.Tilstand = entity.GenerasjonLast
	behandlingID := uuid.New()
	g.SpleisBehandlingID = &behandlingID

	neste := Neste(&g)
	if neste.VedtaksperiodeID != g.VedtaksperiodeID {
		t.Error("next generation must belong to the same period")
	}
	if neste.Tilstand != entity.GenerasjonUlast {
		t.Errorf("next generation tilstand = %v, want %v", neste.Tilstand, entity.GenerasjonUlast)
	}
	if neste.ID == g.ID {
		t.Error("next generation must have a fresh id")
	}
}

func TestNyUtbetaling(t *testing.T) {
	g := nyGenerasjon()
	utbetalingID := uuid.New()

	if err := NyUtbetaling(&g, utbetalingID); err != nil {
		t.Fatalf("NyUtbetaling() on ulåst: %v", err)
	}
	if g.UtbetalingID == nil || *g.UtbetalingID != utbetalingID {
		t.Error("payout id not attached")
	}

	// Late correction: locked but no payout id yet.
	g2 := nyGenerasjon()
	g2.Tilstand = entity.GenerasjonLast
	if err := NyUtbetaling(&g2, utbetalingID); err != nil {
		t.Fatalf("NyUtbetaling() late correction: %v", err)
	}

	// Locked with payout id present is rejected.
	annen := uuid.New()
	g.Tilstand = entity.GenerasjonLast
	if err := NyUtbetaling(&g, annen); err != ErrHarUtbetaling {
		t.Errorf("NyUtbetaling() = %v, want ErrHarUtbetaling", err)
	}
}

func TestForkast(t *testing.T) {
	ctx := context.Background()

	g := nyGenerasjon()
	endret, _ := Forkast(ctx, &g, uuid.New(), "12345678910")
	if !endret || g.Tilstand != entity.GenerasjonAvsluttetUtenUtbetaling {
		t.Errorf("Forkast() on ulåst = %v, tilstand %v", endret, g.Tilstand)
	}

	g2 := nyGenerasjon()
	g2.Tilstand = entity.GenerasjonLast
	endret, _ = Forkast(ctx, &g2, uuid.New(), "12345678910")
	if endret {
		t.Error("Forkast() on låst should be a no-op")
	}
}
