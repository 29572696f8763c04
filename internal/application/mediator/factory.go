package mediator

import (
	"fmt"

	"github.com/karl-run/spesialist/internal/application/command"
	"github.com/karl-run/spesialist/internal/domain/entity"
)

// byggKommando maps an inbound hendelse to its command tree. The switch is
// exhaustive over the closed set of hendelse kinds; an unhandled kind is a
// programmer error surfaced immediately rather than a silent drop.
func (m *Mediator) byggKommando(h entity.Hendelse, utfall *utfallet) (command.Command, error) {
	switch hendelse := h.(type) {
	case entity.Godkjenningsbehov:
		return command.NewMacro("godkjenningsbehov",
			&koblUtbetaling{
				hendelse:       hendelse,
				generasjonRepo: m.generasjonRepo,
				generasjoner:   m.generasjoner,
			},
			&innhentGrunnlag{hendelse: hendelse},
			&vurderAutomatisering{
				hendelse:        hendelse,
				generasjonRepo:  m.generasjonRepo,
				varselRepo:      m.varselRepo,
				overstyringRepo: m.overstyringRepo,
				automatisering:  m.automatisering,
				utfall:          utfall,
			},
			&fattVedtakAutomatisk{hendelse: hendelse, utfall: utfall},
			&opprettOppgave{
				hendelse:       hendelse,
				oppgaver:       m.oppgaver,
				saksbehandlere: m.saksbehandlerRepo,
				utfall:         utfall,
			},
		), nil

	case entity.Saksbehandlerlosning:
		return command.NewMacro("saksbehandler_løsning",
			&ferdigstillVedtak{
				hendelse:       hendelse,
				oppgaver:       m.oppgaver,
				saksbehandlere: m.saksbehandlerRepo,
				generasjonRepo: m.generasjonRepo,
				varselRepo:     m.varselRepo,
				oppgaveRepo:    m.oppgaveRepo,
				totrinnsRepo:   m.totrinnsRepo,
				utfall:         utfall,
			},
		), nil

	case entity.VedtaksperiodeEndret:
		return command.NewMacro("vedtaksperiode_endret",
			&oppdaterGenerasjon{hendelse: hendelse, generasjoner: m.generasjoner, utfall: utfall},
		), nil

	case entity.VedtaksperiodeForkastet:
		return command.NewMacro("vedtaksperiode_forkastet",
			&forkastPeriode{
				hendelse:     hendelse,
				generasjoner: m.generasjoner,
				oppgaveRepo:  m.oppgaveRepo,
				oppgaver:     m.oppgaver,
				utfall:       utfall,
			},
		), nil

	case entity.AktivitetsloggNyAktivitet:
		return command.NewMacro("aktivitetslogg_ny_aktivitet",
			&opprettVarsler{
				hendelse:       hendelse,
				generasjonRepo: m.generasjonRepo,
				varselRepo:     m.varselRepo,
				txManager:      m.txManager,
				utfall:         utfall,
			},
		), nil

	case entity.UtbetalingEndret:
		return command.NewMacro("utbetaling_endret",
			&koordinerUtbetaling{
				hendelse:     hendelse,
				generasjoner: m.generasjoner,
				oppgaver:     m.oppgaver,
				utfall:       utfall,
			},
		), nil

	case entity.UtbetalingAnnullert:
		return command.NewMacro("utbetaling_annullert",
			&annullerUtbetaling{
				hendelse:       hendelse,
				oppgaver:       m.oppgaver,
				generasjonRepo: m.generasjonRepo,
				varselRepo:     m.varselRepo,
				utfall:         utfall,
			},
		), nil

	case entity.VedtakFattet:
		return command.NewMacro("vedtak_fattet",
			&lasGenerasjon{hendelse: hendelse, generasjoner: m.generasjoner, utfall: utfall},
		), nil

	case entity.OverstyringIgangsatt:
		return command.NewMacro("overstyring_igangsatt",
			&registrerOverstyring{
				hendelse:        hendelse,
				overstyringRepo: m.overstyringRepo,
				oppgaveRepo:     m.oppgaveRepo,
				oppgaver:        m.oppgaver,
			},
		), nil

	default:
		return nil, fmt.Errorf("ukjent hendelsetype %T", h)
	}
}
