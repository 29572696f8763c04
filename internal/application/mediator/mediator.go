// Package mediator is the single entry point for inbound traffic: it maps
// each hendelse to a command tree, runs or resumes it and owns the
// surrounding bookkeeping: raw-payload persistence, context lifecycle,
// behov publishing and post-run event dispatch.
package mediator

import (
	"context"
	"fmt"

	"github.com/karl-run/spesialist/internal/application/automatisering"
	"github.com/karl-run/spesialist/internal/application/command"
	"github.com/karl-run/spesialist/internal/application/dispatcher"
	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/application/service"
	"github.com/karl-run/spesialist/internal/domain/entity"
)

// Logger is the minimal logging dependency of the mediator.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Rekonstruer rebuilds a typed hendelse from its stored name and raw
// payload; a resumed context re-runs against the original event.
type Rekonstruer func(navn string, melding []byte) (entity.Hendelse, error)

// Deps collects the mediator's collaborators.
type Deps struct {
	HendelseRepo      port.HendelseRepository
	KontekstRepo      port.KontekstRepository
	PersonRepo        port.PersonRepository
	OppgaveRepo       port.OppgaveRepository
	GenerasjonRepo    port.GenerasjonRepository
	VarselRepo        port.VarselRepository
	OverstyringRepo   port.OverstyringRepository
	SaksbehandlerRepo port.SaksbehandlerRepository
	TotrinnsRepo      port.TotrinnsvurderingRepository
	TxManager         port.TransactionManager

	Oppgaver       *service.OppgaveService
	Generasjoner   *service.GenerasjonService
	Automatisering *automatisering.Service

	Publisher   port.MeldingPublisher
	Dispatcher  dispatcher.Dispatcher
	Rekonstruer Rekonstruer
	Logger      Logger
}

// Mediator routes inbound hendelser through their command trees.
type Mediator struct {
	hendelseRepo      port.HendelseRepository
	kontekstRepo      port.KontekstRepository
	personRepo        port.PersonRepository
	oppgaveRepo       port.OppgaveRepository
	generasjonRepo    port.GenerasjonRepository
	varselRepo        port.VarselRepository
	overstyringRepo   port.OverstyringRepository
	saksbehandlerRepo port.SaksbehandlerRepository
	totrinnsRepo      port.TotrinnsvurderingRepository
	txManager         port.TransactionManager

	oppgaver       *service.OppgaveService
	generasjoner   *service.GenerasjonService
	automatisering *automatisering.Service

	publisher   port.MeldingPublisher
	dispatcher  dispatcher.Dispatcher
	rekonstruer Rekonstruer
	logger      Logger
}

// New creates the mediator.
func New(deps Deps) *Mediator {
	return &Mediator{
		hendelseRepo:      deps.HendelseRepo,
		kontekstRepo:      deps.KontekstRepo,
		personRepo:        deps.PersonRepo,
		oppgaveRepo:       deps.OppgaveRepo,
		generasjonRepo:    deps.GenerasjonRepo,
		varselRepo:        deps.VarselRepo,
		overstyringRepo:   deps.OverstyringRepo,
		saksbehandlerRepo: deps.SaksbehandlerRepo,
		totrinnsRepo:      deps.TotrinnsRepo,
		txManager:         deps.TxManager,
		oppgaver:          deps.Oppgaver,
		generasjoner:      deps.Generasjoner,
		automatisering:    deps.Automatisering,
		publisher:         deps.Publisher,
		dispatcher:        deps.Dispatcher,
		rekonstruer:       deps.Rekonstruer,
		logger:            deps.Logger,
	}
}

// Handter processes one inbound hendelse end to end. Events for subjects
// this system does not know are benign no-ops; a godkjenningsbehov or a
// period recomputation is first contact and registers the subject.
func (m *Mediator) Handter(ctx context.Context, h entity.Hendelse) error {
	if losninger, ok := h.(entity.Losninger); ok {
		return m.gjenoppta(ctx, losninger)
	}

	kjent, err := m.personRepo.Finnes(ctx, h.Fodselsnummer())
	if err != nil {
		return fmt.Errorf("sjekk person: %w", err)
	}
	if !kjent {
		if !erForsteKontakt(h) {
			m.logger.Info("Hendelse for ukjent person ignorert",
				"hendelse", h.Navn(),
				"hendelse_id", h.HendelseID())
			return nil
		}
		if err := m.personRepo.Opprett(ctx, h.Fodselsnummer()); err != nil {
			return fmt.Errorf("opprett person: %w", err)
		}
	}

	// At-least-once delivery: a redelivered hendelse must not mint a second
	// context while the first is still open. The open one resumes via
	// løsninger; the duplicate is dropped here.
	apen, err := m.kontekstRepo.HentApenForHendelse(ctx, h.HendelseID())
	if err != nil {
		return fmt.Errorf("sjekk åpen kontekst: %w", err)
	}
	if apen != nil {
		m.logger.Info("Hendelse med åpen kontekst levert på nytt, forkastet",
			"hendelse", h.Navn(),
			"hendelse_id", h.HendelseID(),
			"kontekst_id", apen.ID)
		return nil
	}

	if err := m.hendelseRepo.Lagre(ctx, h.HendelseID(), h.Navn(), h.Fodselsnummer(), h.Melding()); err != nil {
		return fmt.Errorf("lagre hendelse: %w", err)
	}

	utfall := &utfallet{}
	kommando, err := m.byggKommando(h, utfall)
	if err != nil {
		return err
	}

	cc := command.NewContext(h.HendelseID())
	outcome, err := kommando.Execute(ctx, cc)
	if err != nil {
		m.logger.Error("Kommandokjede feilet",
			"hendelse", h.Navn(),
			"hendelse_id", h.HendelseID(),
			"error", err)
		return err
	}

	return m.fullfor(ctx, cc, outcome, utfall, h.Fodselsnummer())
}

// gjenoppta correlates inbound answers with their suspended context and
// re-walks the command tree. Answers to unknown, foreign or already
// terminal contexts are logged and dropped; at-least-once delivery makes
// them routine.
func (m *Mediator) gjenoppta(ctx context.Context, losninger entity.Losninger) error {
	kontekst, err := m.kontekstRepo.Hent(ctx, losninger.KontekstID)
	if err != nil {
		return fmt.Errorf("hent kontekst: %w", err)
	}
	if kontekst == nil || kontekst.Terminal {
		m.logger.Info("Løsning uten åpen kontekst forkastet",
			"kontekst_id", losninger.KontekstID)
		return nil
	}

	cc := command.Wrap(kontekst)
	for navn, svar := range losninger.Besvarte {
		if !cc.MottaLosning(navn, svar) {
			m.logger.Info("Løsning på behov konteksten aldri stilte forkastet",
				"kontekst_id", losninger.KontekstID,
				"behov", navn)
			continue
		}
		if err := m.kontekstRepo.LagreLosning(ctx, kontekst.ID, navn, svar); err != nil {
			return fmt.Errorf("lagre løsning %s: %w", navn, err)
		}
	}

	navn, fnr, melding, err := m.hendelseRepo.Hent(ctx, kontekst.HendelseID)
	if err != nil {
		return fmt.Errorf("hent opprinnelig hendelse: %w", err)
	}
	hendelse, err := m.rekonstruer(navn, melding)
	if err != nil {
		return fmt.Errorf("rekonstruer hendelse %s: %w", navn, err)
	}

	utfall := &utfallet{}
	kommando, err := m.byggKommando(hendelse, utfall)
	if err != nil {
		return err
	}

	outcome, err := kommando.Resume(ctx, cc)
	if err != nil {
		m.logger.Error("Gjenopptatt kommandokjede feilet",
			"hendelse", navn,
			"kontekst_id", kontekst.ID,
			"error", err)
		return err
	}

	return m.fullfor(ctx, cc, outcome, utfall, fnr)
}

// fullfor persists the context in its post-run state, then performs the
// externally visible side effects: unanswered behov and outbound envelopes
// to the bus, domain events to the in-process observers. Side effects run
// strictly after persistence.
func (m *Mediator) fullfor(ctx context.Context, cc *command.CommandContext, outcome command.Outcome, utfall *utfallet, fodselsnummer string) error {
	if outcome == command.Completed {
		cc.MarkerFerdig()
	}
	if err := m.kontekstRepo.Lagre(ctx, cc.Kontekst()); err != nil {
		return fmt.Errorf("lagre kontekst: %w", err)
	}

	if outcome == command.Suspended {
		behov := make([]port.UtgaaendeBehov, 0, len(cc.NyeBehov()))
		for _, b := range cc.NyeBehov() {
			behov = append(behov, port.UtgaaendeBehov{
				Navn:       b.Navn,
				Parametre:  b.Parametre,
				KontekstID: cc.ID(),
				HendelseID: cc.HendelseID(),
			})
		}
		if len(behov) > 0 {
			if err := m.publisher.PubliserBehov(ctx, fodselsnummer, behov); err != nil {
				return fmt.Errorf("publiser behov: %w", err)
			}
		}
		m.logger.Info("Kommandokjede suspendert i påvente av løsninger",
			"kontekst_id", cc.ID(),
			"antall_behov", len(behov))
	}

	for _, melding := range utfall.meldinger {
		if err := m.publisher.Publiser(ctx, melding); err != nil {
			return fmt.Errorf("publiser %s: %w", melding.EventName, err)
		}
	}
	for _, evt := range utfall.events {
		if err := m.dispatcher.Dispatch(ctx, evt); err != nil {
			m.logger.Error("Observatør feilet", "event_type", evt.Type, "error", err)
		}
	}
	return nil
}

// erForsteKontakt reports whether the hendelse may introduce a new subject.
func erForsteKontakt(h entity.Hendelse) bool {
	switch h.(type) {
	case entity.Godkjenningsbehov, entity.VedtaksperiodeEndret:
		return true
	default:
		return false
	}
}
