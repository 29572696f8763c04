package mediator

import (
	"context"
	"fmt"
	"time"

	"github.com/karl-run/spesialist/internal/application/command"
	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/application/service"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/domain/event"
	"github.com/karl-run/spesialist/internal/domain/generasjon"
	"github.com/karl-run/spesialist/internal/domain/varsel"
)

// reservasjonVarighet is how long an override keeps the subject reserved to
// the overriding caseworker.
const reservasjonVarighet = 72 * time.Hour

// oppdaterGenerasjon keeps the period's generation chain in step with the
// upstream recomputation.
type oppdaterGenerasjon struct {
	command.NoUndo
	hendelse     entity.VedtaksperiodeEndret
	generasjoner *service.GenerasjonService
	utfall       *utfallet
}

func (c *oppdaterGenerasjon) Name() string { return "oppdater_generasjon" }

func (c *oppdaterGenerasjon) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	events, err := c.generasjoner.HandterEndret(ctx, c.hendelse)
	if err != nil {
		return command.Completed, err
	}
	c.utfall.legg(events...)
	return command.Completed, nil
}

func (c *oppdaterGenerasjon) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// forkastPeriode discards the open generation and withdraws any open task
// for the period.
type forkastPeriode struct {
	command.NoUndo
	hendelse     entity.VedtaksperiodeForkastet
	generasjoner *service.GenerasjonService
	oppgaveRepo  port.OppgaveRepository
	oppgaver     *service.OppgaveService
	utfall       *utfallet
}

func (c *forkastPeriode) Name() string { return "forkast_periode" }

func (c *forkastPeriode) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	events, err := c.generasjoner.HandterForkastet(ctx, c.hendelse)
	if err != nil {
		return command.Completed, err
	}
	c.utfall.legg(events...)

	oppgave, err := c.oppgaveRepo.HentAktivForVedtaksperiode(ctx, c.hendelse.VedtaksperiodeID)
	if err != nil {
		return command.Completed, fmt.Errorf("hent oppgave for vedtaksperiode: %w", err)
	}
	if oppgave != nil {
		if err := c.oppgaver.Invalider(ctx, oppgave.ID); err != nil {
			return command.Completed, err
		}
	}
	return command.Completed, nil
}

func (c *forkastPeriode) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// lasGenerasjon locks the open generation after an upstream decision.
type lasGenerasjon struct {
	command.NoUndo
	hendelse     entity.VedtakFattet
	generasjoner *service.GenerasjonService
	utfall       *utfallet
}

func (c *lasGenerasjon) Name() string { return "las_generasjon" }

func (c *lasGenerasjon) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	events, err := c.generasjoner.HandterVedtakFattet(ctx, c.hendelse)
	if err != nil {
		return command.Completed, err
	}
	c.utfall.legg(events...)
	return command.Completed, nil
}

func (c *lasGenerasjon) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// opprettVarsler attaches newly raised warnings to the period's open
// generation. A locked generation gets a fresh follow-up generation first;
// the same code is never attached twice to one generation.
type opprettVarsler struct {
	command.NoUndo
	hendelse       entity.AktivitetsloggNyAktivitet
	generasjonRepo port.GenerasjonRepository
	varselRepo     port.VarselRepository
	txManager      port.TransactionManager
	utfall         *utfallet
}

func (c *opprettVarsler) Name() string { return "opprett_varsler" }

func (c *opprettVarsler) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	siste, err := c.generasjonRepo.HentSiste(ctx, c.hendelse.VedtaksperiodeID)
	if err != nil {
		return command.Completed, fmt.Errorf("hent siste generasjon: %w", err)
	}
	if siste == nil || siste.Tilstand.ErTerminal() {
		// The period is unknown or gone; nothing to attach the warning to.
		return command.Completed, nil
	}

	malGenerasjon := siste
	err = c.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if !siste.Tilstand.ErApen() {
			ny := generasjon.Neste(siste)
			if err := c.generasjonRepo.Opprett(txCtx, &ny); err != nil {
				return fmt.Errorf("opprett oppfølgingsgenerasjon: %w", err)
			}
			// Warnings still active on the locked generation follow the
			// period into its next attempt, or automation would stop
			// seeing them.
			aktive, err := c.varselRepo.HentAktiveForGenerasjon(txCtx, siste.ID)
			if err != nil {
				return fmt.Errorf("hent aktive varsler: %w", err)
			}
			for _, v := range aktive {
				kopi := varsel.Nytt(ny.ID, v.Kode)
				if err := c.varselRepo.Opprett(txCtx, &kopi); err != nil {
					return fmt.Errorf("overfør varsel %s: %w", v.Kode, err)
				}
			}
			malGenerasjon = &ny
		}
		for _, kode := range c.hendelse.Varselkoder {
			finnes, err := c.varselRepo.FinnesForGenerasjon(txCtx, malGenerasjon.ID, kode)
			if err != nil {
				return fmt.Errorf("sjekk varsel %s: %w", kode, err)
			}
			if finnes {
				continue
			}
			nytt := varsel.Nytt(malGenerasjon.ID, kode)
			if err := c.varselRepo.Opprett(txCtx, &nytt); err != nil {
				return fmt.Errorf("opprett varsel %s: %w", kode, err)
			}
		}
		return nil
	})
	if err != nil {
		return command.Completed, err
	}
	return command.Completed, nil
}

func (c *opprettVarsler) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// ferdigstillVedtak applies the caseworker's decision: the approval request
// is answered, open warnings on the generation are vetted accordingly and
// the task resolved. Resolving with unvetted deny-listed warnings on an
// approval is refused.
type ferdigstillVedtak struct {
	command.NoUndo
	hendelse       entity.Saksbehandlerlosning
	oppgaver       *service.OppgaveService
	saksbehandlere port.SaksbehandlerRepository
	generasjonRepo port.GenerasjonRepository
	varselRepo     port.VarselRepository
	oppgaveRepo    port.OppgaveRepository
	totrinnsRepo   port.TotrinnsvurderingRepository
	utfall         *utfallet
}

func (c *ferdigstillVedtak) Name() string { return "ferdigstill_vedtak" }

func (c *ferdigstillVedtak) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	oppgave, err := c.oppgaveRepo.Hent(ctx, c.hendelse.OppgaveID)
	if err != nil {
		return command.Completed, fmt.Errorf("hent oppgave: %w", err)
	}
	if oppgave == nil {
		return command.Completed, service.ErrOppgaveIkkeAktiv
	}
	if !oppgave.Status.ErAktiv() {
		// Replayed decision; the task is already resolved.
		return command.Completed, nil
	}

	// Two-person control: a task sent to a beslutter cannot be resolved by
	// the caseworker who sent it. A returned review is corrected and
	// re-decided by the original caseworker in a single step.
	if oppgave.HarEgenskap(entity.EgenskapBeslutter) {
		vurdering, err := c.totrinnsRepo.Hent(ctx, oppgave.ID)
		if err != nil {
			return command.Completed, fmt.Errorf("hent totrinnsvurdering: %w", err)
		}
		if vurdering != nil && !vurdering.ErRetur &&
			vurdering.Saksbehandler != nil && *vurdering.Saksbehandler == c.hendelse.SaksbehandlerOID {
			return command.Completed, service.ErrKreverToBesluttere
		}
	}

	// Remember the deciding caseworker for later assignments.
	if err := c.saksbehandlere.Lagre(ctx, entity.Saksbehandler{
		OID:   c.hendelse.SaksbehandlerOID,
		Ident: c.hendelse.Ident,
		Epost: c.hendelse.Epost,
	}); err != nil {
		return command.Completed, fmt.Errorf("lagre saksbehandler: %w", err)
	}

	if err := c.vurderVarsler(ctx, oppgave); err != nil {
		return command.Completed, err
	}

	if err := c.oppgaver.Ferdigstill(ctx, oppgave.ID, c.hendelse.Ident); err != nil {
		return command.Completed, err
	}

	c.utfall.meldinger = append(c.utfall.meldinger, port.UtgaaendeMelding{
		EventName:     "godkjenningsbehov_løsning",
		Fodselsnummer: c.hendelse.Fodselsnummer(),
		Payload: map[string]any{
			"godkjenningsbehovId": c.hendelse.GodkjenningsbehovID.String(),
			"godkjent":            c.hendelse.Godkjent,
			"saksbehandlerIdent":  c.hendelse.Ident,
			"årsak":               c.hendelse.Arsak,
		},
	})

	typ := event.TypeVedtaksperiodeAvvist
	if c.hendelse.Godkjent {
		typ = event.TypeVedtaksperiodeGodkjent
	}
	c.utfall.legg(event.New(typ, c.hendelse.HendelseID(), c.hendelse.Fodselsnummer(), map[string]any{
		"vedtaksperiode_id": oppgave.VedtaksperiodeID.String(),
		"automatisk":        false,
	}))
	return command.Completed, nil
}

func (c *ferdigstillVedtak) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// vurderVarsler vets every still-open warning on the period's generation in
// line with the decision. Approval requires that no deny-listed warning
// remains open.
func (c *ferdigstillVedtak) vurderVarsler(ctx context.Context, oppgave *entity.Oppgave) error {
	siste, err := c.generasjonRepo.HentSiste(ctx, oppgave.VedtaksperiodeID)
	if err != nil {
		return fmt.Errorf("hent siste generasjon: %w", err)
	}
	if siste == nil {
		return nil
	}
	aktive, err := c.varselRepo.HentAktiveForGenerasjon(ctx, siste.ID)
	if err != nil {
		return fmt.Errorf("hent aktive varsler: %w", err)
	}

	for _, v := range aktive {
		if c.hendelse.Godkjent && varsel.BlokkererAutomatisering(v.Kode) {
			return service.ErrUvurderteVarsler
		}
		endret, events := varsel.Vurder(v, c.hendelse.Godkjent, c.hendelse.Ident,
			c.hendelse.HendelseID(), c.hendelse.Fodselsnummer())
		if !endret {
			continue
		}
		ok, err := c.varselRepo.OppdaterStatus(ctx, v.ID,
			[]entity.VarselStatus{entity.VarselAktiv, entity.VarselVurdert}, v.Status, c.hendelse.Ident)
		if err != nil {
			return fmt.Errorf("oppdater varsel %s: %w", v.Kode, err)
		}
		if ok {
			c.utfall.legg(events...)
		}
	}
	return nil
}

// koordinerUtbetaling tracks payout lifecycle changes: an active payout is
// attached to the generation, a discarded one withdraws its task.
type koordinerUtbetaling struct {
	command.NoUndo
	hendelse     entity.UtbetalingEndret
	generasjoner *service.GenerasjonService
	oppgaver     *service.OppgaveService
	utfall       *utfallet
}

func (c *koordinerUtbetaling) Name() string { return "koordiner_utbetaling" }

func (c *koordinerUtbetaling) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	switch c.hendelse.Status {
	case "FORKASTET", "ANNULLERT":
		return c.trekkTilbake(ctx)
	default:
		err := c.generasjoner.HandterNyUtbetaling(ctx, c.hendelse.VedtaksperiodeID, c.hendelse.UtbetalingID)
		switch err {
		case nil, generasjon.ErrHarUtbetaling, service.ErrIngenGenerasjon:
			// A payout already attached or a period we never met is not an
			// error for this delivery.
			return command.Completed, nil
		default:
			return command.Completed, err
		}
	}
}

func (c *koordinerUtbetaling) trekkTilbake(ctx context.Context) (command.Outcome, error) {
	oppgave, err := c.oppgaver.HentAktivForUtbetaling(ctx, c.hendelse.UtbetalingID)
	if err != nil {
		return command.Completed, err
	}
	if oppgave != nil {
		if err := c.oppgaver.Invalider(ctx, oppgave.ID); err != nil {
			return command.Completed, err
		}
	}
	return command.Completed, nil
}

func (c *koordinerUtbetaling) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// annullerUtbetaling withdraws the task of an annulled payout and retires
// the warnings on its generation; they concern a payout that no longer
// exists.
type annullerUtbetaling struct {
	command.NoUndo
	hendelse       entity.UtbetalingAnnullert
	oppgaver       *service.OppgaveService
	generasjonRepo port.GenerasjonRepository
	varselRepo     port.VarselRepository
	utfall         *utfallet
}

func (c *annullerUtbetaling) Name() string { return "annuller_utbetaling" }

func (c *annullerUtbetaling) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	oppgave, err := c.oppgaver.HentAktivForUtbetaling(ctx, c.hendelse.UtbetalingID)
	if err != nil {
		return command.Completed, err
	}
	if oppgave == nil {
		return command.Completed, nil
	}
	if err := c.oppgaver.Invalider(ctx, oppgave.ID); err != nil {
		return command.Completed, err
	}

	siste, err := c.generasjonRepo.HentSiste(ctx, oppgave.VedtaksperiodeID)
	if err != nil {
		return command.Completed, fmt.Errorf("hent siste generasjon: %w", err)
	}
	if siste == nil {
		return command.Completed, nil
	}
	aktive, err := c.varselRepo.HentAktiveForGenerasjon(ctx, siste.ID)
	if err != nil {
		return command.Completed, fmt.Errorf("hent aktive varsler: %w", err)
	}
	for _, v := range aktive {
		endret, events := varsel.Avvikle(v, c.hendelse.HendelseID(), c.hendelse.Fodselsnummer())
		if !endret {
			continue
		}
		ok, err := c.varselRepo.OppdaterStatus(ctx, v.ID,
			[]entity.VarselStatus{entity.VarselAktiv, entity.VarselInaktiv, entity.VarselVurdert},
			entity.VarselAvviklet, "system")
		if err != nil {
			return command.Completed, fmt.Errorf("avvikle varsel %s: %w", v.Kode, err)
		}
		if ok {
			c.utfall.legg(events...)
		}
	}
	return command.Completed, nil
}

func (c *annullerUtbetaling) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// registrerOverstyring records a pending override, withdraws the open task
// for the period and reserves the subject to the overriding caseworker so
// the re-adjudicated case lands back on their desk.
type registrerOverstyring struct {
	command.NoUndo
	hendelse        entity.OverstyringIgangsatt
	overstyringRepo port.OverstyringRepository
	oppgaveRepo     port.OppgaveRepository
	oppgaver        *service.OppgaveService
}

func (c *registrerOverstyring) Name() string { return "registrer_overstyring" }

func (c *registrerOverstyring) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	ventende, err := c.overstyringRepo.HarVentende(ctx, c.hendelse.VedtaksperiodeID)
	if err != nil {
		return command.Completed, fmt.Errorf("hent ventende overstyringer: %w", err)
	}
	if !ventende {
		if err := c.overstyringRepo.Opprett(ctx, c.hendelse.VedtaksperiodeID,
			c.hendelse.SaksbehandlerOID, c.hendelse.Arsak); err != nil {
			return command.Completed, fmt.Errorf("opprett overstyring: %w", err)
		}
	}

	if err := c.oppgaver.Reserver(ctx, c.hendelse.Fodselsnummer(),
		c.hendelse.SaksbehandlerOID, reservasjonVarighet); err != nil {
		return command.Completed, fmt.Errorf("reserver person: %w", err)
	}

	oppgave, err := c.oppgaveRepo.HentAktivForVedtaksperiode(ctx, c.hendelse.VedtaksperiodeID)
	if err != nil {
		return command.Completed, fmt.Errorf("hent oppgave for vedtaksperiode: %w", err)
	}
	if oppgave != nil {
		if err := c.oppgaver.Invalider(ctx, oppgave.ID); err != nil {
			return command.Completed, err
		}
	}
	return command.Completed, nil
}

func (c *registrerOverstyring) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}
