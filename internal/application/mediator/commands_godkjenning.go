package mediator

import (
	"context"
	"fmt"
	"strings"

	"github.com/karl-run/spesialist/internal/application/automatisering"
	"github.com/karl-run/spesialist/internal/application/command"
	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/application/service"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/domain/event"
)

// Behov names published on the bus. The answers arrive as a behov_løsning
// addressed to the suspended context.
const (
	behovRisikovurdering   = "Risikovurdering"
	behovHentEnhet         = "HentEnhet"
	behovVergemal          = "Vergemål"
	behovApneGosysOppgaver = "ÅpneGosysOppgaver"
	behovHentPersoninfo    = "HentPersoninfo"
)

// utlandEnheter are the office codes handling subjects abroad; their cases
// never automate.
var utlandEnheter = map[string]bool{
	"0393": true,
	"2101": true,
}

type risikovurderingLosning struct {
	KanGodkjennesAutomatisk bool     `json:"kanGodkjennesAutomatisk"`
	Funn                    []string `json:"funn"`
}

type enhetLosning struct {
	EnhetNr string `json:"enhetNr"`
}

type vergemalLosning struct {
	Vergemal bool `json:"vergemål"`
	Fullmakt bool `json:"fullmakt"`
}

type gosysLosning struct {
	Antall        int  `json:"antall"`
	OppslagFeilet bool `json:"oppslagFeilet"`
}

type personinfoLosning struct {
	Adressebeskyttelse string `json:"adressebeskyttelse"`
}

// utfallet is the per-run scratch state the chain's commands share: answers
// decoded once, the automation verdict, events and outbound envelopes
// collected for dispatch after the run is persisted.
type utfallet struct {
	resultat  *entity.AutomatiseringResultat
	events    []event.Event
	meldinger []port.UtgaaendeMelding
}

func (u *utfallet) legg(events ...event.Event) {
	u.events = append(u.events, events...)
}

// innhentGrunnlag registers every behov the decision needs and suspends
// until all answers are present. Registering on resume is harmless: already
// answered behov are skipped and never republished.
type innhentGrunnlag struct {
	command.NoUndo
	hendelse entity.Godkjenningsbehov
}

func (c *innhentGrunnlag) Name() string { return "innhent_grunnlag" }

func (c *innhentGrunnlag) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	cc.LeggTilBehov(behovRisikovurdering, map[string]any{
		"vedtaksperiodeId": c.hendelse.VedtaksperiodeID.String(),
		"periodetype":      string(c.hendelse.Periodetype),
	})
	cc.LeggTilBehov(behovHentEnhet, nil)
	cc.LeggTilBehov(behovVergemal, nil)
	cc.LeggTilBehov(behovApneGosysOppgaver, nil)
	cc.LeggTilBehov(behovHentPersoninfo, nil)

	if cc.HarUbesvarteBehov() {
		return command.Suspended, nil
	}
	return command.Completed, nil
}

func (c *innhentGrunnlag) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// koblUtbetaling attaches the payout under approval to the open generation.
// A replay with the same payout id completes without touching anything.
type koblUtbetaling struct {
	command.NoUndo
	hendelse       entity.Godkjenningsbehov
	generasjonRepo port.GenerasjonRepository
	generasjoner   *service.GenerasjonService
}

func (c *koblUtbetaling) Name() string { return "kobl_utbetaling" }

func (c *koblUtbetaling) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	siste, err := c.generasjonRepo.HentSiste(ctx, c.hendelse.VedtaksperiodeID)
	if err != nil {
		return command.Completed, fmt.Errorf("hent siste generasjon: %w", err)
	}
	if siste == nil {
		return command.Completed, service.ErrIngenGenerasjon
	}
	if siste.UtbetalingID != nil && *siste.UtbetalingID == c.hendelse.UtbetalingID {
		return command.Completed, nil
	}
	if err := c.generasjoner.HandterNyUtbetaling(ctx, c.hendelse.VedtaksperiodeID, c.hendelse.UtbetalingID); err != nil {
		return command.Completed, err
	}
	return command.Completed, nil
}

func (c *koblUtbetaling) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// vurderAutomatisering builds the fact set from the collected answers and
// runs the decision chain. The verdict is persisted keyed on the triple
// (vedtaksperiode, hendelse, utbetaling) so a replay reproduces it.
type vurderAutomatisering struct {
	command.NoUndo
	hendelse        entity.Godkjenningsbehov
	generasjonRepo  port.GenerasjonRepository
	varselRepo      port.VarselRepository
	overstyringRepo port.OverstyringRepository
	automatisering  *automatisering.Service
	utfall          *utfallet
}

func (c *vurderAutomatisering) Name() string { return "vurder_automatisering" }

func (c *vurderAutomatisering) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	fakta, err := c.byggFakta(ctx, cc)
	if err != nil {
		return command.Completed, err
	}

	resultat, err := c.automatisering.Vurder(ctx, *fakta,
		c.hendelse.VedtaksperiodeID, c.hendelse.HendelseID(), c.hendelse.UtbetalingID)
	if err != nil {
		return command.Completed, err
	}
	c.utfall.resultat = resultat
	return command.Completed, nil
}

func (c *vurderAutomatisering) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

func (c *vurderAutomatisering) byggFakta(ctx context.Context, cc *command.CommandContext) (*automatisering.Fakta, error) {
	var risiko risikovurderingLosning
	harRisiko, err := cc.LosningInto(behovRisikovurdering, &risiko)
	if err != nil {
		return nil, fmt.Errorf("dekod risikovurdering: %w", err)
	}
	var enhet enhetLosning
	if _, err := cc.LosningInto(behovHentEnhet, &enhet); err != nil {
		return nil, fmt.Errorf("dekod enhet: %w", err)
	}
	var vergemal vergemalLosning
	if _, err := cc.LosningInto(behovVergemal, &vergemal); err != nil {
		return nil, fmt.Errorf("dekod vergemål: %w", err)
	}
	var gosys gosysLosning
	if _, err := cc.LosningInto(behovApneGosysOppgaver, &gosys); err != nil {
		return nil, fmt.Errorf("dekod gosys: %w", err)
	}

	aktive, err := c.aktiveVarsler(ctx)
	if err != nil {
		return nil, err
	}
	ventende, err := c.overstyringRepo.HarVentende(ctx, c.hendelse.VedtaksperiodeID)
	if err != nil {
		return nil, fmt.Errorf("hent ventende overstyringer: %w", err)
	}

	return &automatisering.Fakta{
		AktiveVarsler:       aktive,
		HarRisikovurdering:  harRisiko,
		RisikovurderingOK:   risiko.KanGodkjennesAutomatisk,
		Vergemal:            vergemal.Vergemal || vergemal.Fullmakt,
		UtlandEnhet:         utlandEnheter[enhet.EnhetNr],
		ApneGosysOppgaver:   gosys.Antall > 0 || gosys.OppslagFeilet,
		VentendeOverstyring: ventende,
		Mottaker:            c.hendelse.Mottaker,
		Inntektskilde:       c.hendelse.Inntektskilde,
		Periodetype:         c.hendelse.Periodetype,
		ErRevurdering:       strings.EqualFold(c.hendelse.Utbetalingtype, "REVURDERING"),
		ForsteSoknadMottatt: c.hendelse.ForsteSoknadMottatt,
		AntallKorrigeringer: c.hendelse.AntallKorrigeringer,
	}, nil
}

func (c *vurderAutomatisering) aktiveVarsler(ctx context.Context) ([]*entity.Varsel, error) {
	siste, err := c.generasjonRepo.HentSiste(ctx, c.hendelse.VedtaksperiodeID)
	if err != nil {
		return nil, fmt.Errorf("hent siste generasjon: %w", err)
	}
	if siste == nil {
		return nil, nil
	}
	aktive, err := c.varselRepo.HentAktiveForGenerasjon(ctx, siste.ID)
	if err != nil {
		return nil, fmt.Errorf("hent aktive varsler: %w", err)
	}
	return aktive, nil
}

// fattVedtakAutomatisk answers the approval request affirmatively when the
// verdict allowed automation. Manual and spot-check verdicts fall through to
// task creation instead.
type fattVedtakAutomatisk struct {
	command.NoUndo
	hendelse entity.Godkjenningsbehov
	utfall   *utfallet
}

func (c *fattVedtakAutomatisk) Name() string { return "fatt_vedtak_automatisk" }

func (c *fattVedtakAutomatisk) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	if c.utfall.resultat == nil || c.utfall.resultat.Utfall != entity.UtfallAutomatisert {
		return command.Completed, nil
	}

	c.utfall.meldinger = append(c.utfall.meldinger, port.UtgaaendeMelding{
		EventName:     "godkjenningsbehov_løsning",
		Fodselsnummer: c.hendelse.Fodselsnummer(),
		Payload: map[string]any{
			"godkjenningsbehovId":  c.hendelse.HendelseID().String(),
			"vedtaksperiodeId":     c.hendelse.VedtaksperiodeID.String(),
			"utbetalingId":         c.hendelse.UtbetalingID.String(),
			"godkjent":             true,
			"automatiskBehandling": true,
			"saksbehandlerIdent":   "Automatisk behandlet",
		},
	})
	c.utfall.legg(event.New(event.TypeVedtaksperiodeGodkjent, c.hendelse.HendelseID(), c.hendelse.Fodselsnummer(), map[string]any{
		"vedtaksperiode_id": c.hendelse.VedtaksperiodeID.String(),
		"automatisk":        true,
	}))
	return command.Completed, nil
}

func (c *fattVedtakAutomatisk) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// opprettOppgave queues the case for a human when automation declined.
// Creation is idempotent on the payout id, so a resumed chain passing
// through here again does not mint a second task.
type opprettOppgave struct {
	hendelse       entity.Godkjenningsbehov
	oppgaver       *service.OppgaveService
	saksbehandlere port.SaksbehandlerRepository
	utfall         *utfallet
}

func (c *opprettOppgave) Name() string { return "opprett_oppgave" }

func (c *opprettOppgave) Execute(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	if c.utfall.resultat == nil || c.utfall.resultat.Utfall == entity.UtfallAutomatisert {
		return command.Completed, nil
	}

	egenskaper := service.BeregnEgenskaper(c.egenskapFakta(cc))
	_, events, err := c.oppgaver.Opprett(ctx, c.hendelse,
		c.hendelse.VedtaksperiodeID, c.hendelse.UtbetalingID,
		egenskaper, c.saksbehandlere.Hent)
	if err != nil {
		return command.Completed, err
	}
	c.utfall.legg(events...)
	return command.Completed, nil
}

func (c *opprettOppgave) Resume(ctx context.Context, cc *command.CommandContext) (command.Outcome, error) {
	return c.Execute(ctx, cc)
}

// Undo invalidates the task so a failed later sibling does not leave a
// dangling work item.
func (c *opprettOppgave) Undo(ctx context.Context, cc *command.CommandContext) error {
	oppgave, err := c.oppgaver.HentAktivForUtbetaling(ctx, c.hendelse.UtbetalingID)
	if err != nil || oppgave == nil {
		return err
	}
	return c.oppgaver.Invalider(ctx, oppgave.ID)
}

func (c *opprettOppgave) egenskapFakta(cc *command.CommandContext) service.EgenskapFakta {
	var personinfo personinfoLosning
	_, _ = cc.LosningInto(behovHentPersoninfo, &personinfo)
	var vergemal vergemalLosning
	_, _ = cc.LosningInto(behovVergemal, &vergemal)

	harRiskVarsel := false
	for _, b := range c.utfall.resultat.Begrunnelser {
		if strings.Contains(b, "RV_RV") {
			harRiskVarsel = true
		}
	}

	return service.EgenskapFakta{
		Utfall:           c.utfall.resultat.Utfall,
		HarRiskVarsel:    harRiskVarsel,
		FortroligAdresse: personinfo.Adressebeskyttelse != "" && personinfo.Adressebeskyttelse != "Ugradert",
		Vergemal:         vergemal.Vergemal,
		Mottaker:         c.hendelse.Mottaker,
		Inntektskilde:    c.hendelse.Inntektskilde,
		Periodetype:      c.hendelse.Periodetype,
		ErRevurdering:    strings.EqualFold(c.hendelse.Utbetalingtype, "REVURDERING"),
	}
}
