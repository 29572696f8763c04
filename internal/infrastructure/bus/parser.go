package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/pkg/utils"
)

// ErrUkjentHendelse marks an event name this system does not handle. The
// consumer skips such messages silently; the bus carries traffic for many
// services.
var ErrUkjentHendelse = errors.New("ukjent hendelsenavn")

// Parse decodes a raw bus message into its typed hendelse. The raw payload
// is preserved on the hendelse for storage and replay.
func Parse(raw []byte) (entity.Hendelse, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("dekod envelope: %w", err)
	}
	if env.ID == uuid.Nil || env.EventName == "" {
		return nil, fmt.Errorf("melding mangler @id eller @event_name")
	}

	base := entity.HendelseBase{ID: env.ID, Fnr: env.Fodselsnummer, Raw: raw}

	switch env.EventName {
	case "godkjenningsbehov":
		return parseGodkjenningsbehov(base, raw)
	case "saksbehandler_løsning":
		return parseSaksbehandlerlosning(base, raw)
	case "behov_løsning":
		return parseLosninger(base, raw)
	case "vedtaksperiode_endret":
		var m struct {
			VedtaksperiodeID    uuid.UUID `json:"vedtaksperiodeId"`
			Fom                 time.Time `json:"fom"`
			Tom                 time.Time `json:"tom"`
			Skjaeringstidspunkt time.Time `json:"skjæringstidspunkt"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("dekod vedtaksperiode_endret: %w", err)
		}
		return entity.VedtaksperiodeEndret{
			HendelseBase:        base,
			VedtaksperiodeID:    m.VedtaksperiodeID,
			Fom:                 m.Fom,
			Tom:                 m.Tom,
			Skjaeringstidspunkt: m.Skjaeringstidspunkt,
		}, nil
	case "vedtaksperiode_forkastet":
		var m struct {
			VedtaksperiodeID uuid.UUID `json:"vedtaksperiodeId"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("dekod vedtaksperiode_forkastet: %w", err)
		}
		return entity.VedtaksperiodeForkastet{HendelseBase: base, VedtaksperiodeID: m.VedtaksperiodeID}, nil
	case "aktivitetslogg_ny_aktivitet":
		var m struct {
			VedtaksperiodeID uuid.UUID `json:"vedtaksperiodeId"`
			Varselkoder      []string  `json:"varselkoder"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("dekod aktivitetslogg_ny_aktivitet: %w", err)
		}
		return entity.AktivitetsloggNyAktivitet{
			HendelseBase:     base,
			VedtaksperiodeID: m.VedtaksperiodeID,
			Varselkoder:      m.Varselkoder,
		}, nil
	case "utbetaling_endret":
		var m struct {
			VedtaksperiodeID uuid.UUID `json:"vedtaksperiodeId"`
			UtbetalingID     uuid.UUID `json:"utbetalingId"`
			Status           string    `json:"gjeldendeStatus"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("dekod utbetaling_endret: %w", err)
		}
		return entity.UtbetalingEndret{
			HendelseBase:     base,
			VedtaksperiodeID: m.VedtaksperiodeID,
			UtbetalingID:     m.UtbetalingID,
			Status:           m.Status,
		}, nil
	case "utbetaling_annullert":
		var m struct {
			UtbetalingID uuid.UUID `json:"utbetalingId"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("dekod utbetaling_annullert: %w", err)
		}
		return entity.UtbetalingAnnullert{HendelseBase: base, UtbetalingID: m.UtbetalingID}, nil
	case "vedtak_fattet":
		var m struct {
			VedtaksperiodeID   uuid.UUID `json:"vedtaksperiodeId"`
			SpleisBehandlingID uuid.UUID `json:"behandlingId"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("dekod vedtak_fattet: %w", err)
		}
		return entity.VedtakFattet{
			HendelseBase:       base,
			VedtaksperiodeID:   m.VedtaksperiodeID,
			SpleisBehandlingID: m.SpleisBehandlingID,
		}, nil
	case "overstyring_igangsatt":
		var m struct {
			VedtaksperiodeID uuid.UUID `json:"vedtaksperiodeId"`
			SaksbehandlerOID uuid.UUID `json:"saksbehandlerOid"`
			Arsak            string    `json:"årsak"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("dekod overstyring_igangsatt: %w", err)
		}
		return entity.OverstyringIgangsatt{
			HendelseBase:     base,
			VedtaksperiodeID: m.VedtaksperiodeID,
			SaksbehandlerOID: m.SaksbehandlerOID,
			Arsak:            m.Arsak,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUkjentHendelse, env.EventName)
	}
}

func parseGodkjenningsbehov(base entity.HendelseBase, raw []byte) (entity.Hendelse, error) {
	var m struct {
		VedtaksperiodeID    uuid.UUID `json:"vedtaksperiodeId"`
		UtbetalingID        uuid.UUID `json:"utbetalingId"`
		SpleisBehandlingID  uuid.UUID `json:"behandlingId"`
		Periodetype         string    `json:"periodetype"`
		Inntektskilde       string    `json:"inntektskilde"`
		Utbetalingtype      string    `json:"utbetalingtype"`
		Mottaker            string    `json:"mottaker"`
		Skjaeringstidspunkt time.Time `json:"skjæringstidspunkt"`
		PeriodeFom          time.Time `json:"periodeFom"`
		PeriodeTom          time.Time `json:"periodeTom"`
		ForsteSoknadMottatt time.Time `json:"førsteSøknadMottatt"`
		AntallKorrigeringer int       `json:"antallKorrigeringer"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("dekod godkjenningsbehov: %w", err)
	}
	if m.VedtaksperiodeID == uuid.Nil || m.UtbetalingID == uuid.Nil {
		return nil, fmt.Errorf("godkjenningsbehov mangler vedtaksperiodeId eller utbetalingId")
	}
	// Entry point for a new sak, the person row is created from this
	// message. Reject garbage identity numbers before they reach lagringen.
	if err := utils.ValidateFodselsnummer(base.Fnr); err != nil {
		return nil, fmt.Errorf("godkjenningsbehov: %w", err)
	}
	return entity.Godkjenningsbehov{
		HendelseBase:        base,
		VedtaksperiodeID:    m.VedtaksperiodeID,
		UtbetalingID:        m.UtbetalingID,
		SpleisBehandlingID:  m.SpleisBehandlingID,
		Periodetype:         entity.Periodetype(m.Periodetype),
		Inntektskilde:       entity.Inntektskilde(m.Inntektskilde),
		Utbetalingtype:      m.Utbetalingtype,
		Mottaker:            entity.Mottaker(m.Mottaker),
		Skjaeringstidspunkt: m.Skjaeringstidspunkt,
		PeriodeFom:          m.PeriodeFom,
		PeriodeTom:          m.PeriodeTom,
		ForsteSoknadMottatt: m.ForsteSoknadMottatt,
		AntallKorrigeringer: m.AntallKorrigeringer,
	}, nil
}

func parseSaksbehandlerlosning(base entity.HendelseBase, raw []byte) (entity.Hendelse, error) {
	var m struct {
		OppgaveID           int64     `json:"oppgaveId"`
		GodkjenningsbehovID uuid.UUID `json:"godkjenningsbehovId"`
		Godkjent            bool      `json:"godkjent"`
		SaksbehandlerOID    uuid.UUID `json:"saksbehandlerOid"`
		Ident               string    `json:"saksbehandlerIdent"`
		Epost               string    `json:"saksbehandlerEpost"`
		Arsak               string    `json:"årsak"`
		Kommentar           string    `json:"kommentar"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("dekod saksbehandler_løsning: %w", err)
	}
	if m.OppgaveID == 0 {
		return nil, fmt.Errorf("saksbehandler_løsning mangler oppgaveId")
	}
	return entity.Saksbehandlerlosning{
		HendelseBase:        base,
		OppgaveID:           m.OppgaveID,
		GodkjenningsbehovID: m.GodkjenningsbehovID,
		Godkjent:            m.Godkjent,
		SaksbehandlerOID:    m.SaksbehandlerOID,
		Ident:               m.Ident,
		Epost:               m.Epost,
		Arsak:               m.Arsak,
		Kommentar:           m.Kommentar,
	}, nil
}

func parseLosninger(base entity.HendelseBase, raw []byte) (entity.Hendelse, error) {
	var m struct {
		KontekstID uuid.UUID                  `json:"kontekstId"`
		BehovID    uuid.UUID                  `json:"behovId"`
		Losninger  map[string]json.RawMessage `json:"@løsning"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("dekod behov_løsning: %w", err)
	}
	if m.KontekstID == uuid.Nil {
		return nil, fmt.Errorf("behov_løsning mangler kontekstId")
	}
	besvarte := make(map[string][]byte, len(m.Losninger))
	for navn, svar := range m.Losninger {
		besvarte[navn] = svar
	}
	return entity.Losninger{
		HendelseBase: base,
		KontekstID:   m.KontekstID,
		BehovID:      m.BehovID,
		Besvarte:     besvarte,
	}, nil
}
