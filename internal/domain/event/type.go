package event

// Type identifies the type of outbound domain event.
type Type string

const (
	TypeOppgaveOpprettet       Type = "oppgave.opprettet"
	TypeOppgaveOppdatert       Type = "oppgave.oppdatert"
	TypeVarselEndret           Type = "varsel.endret"
	TypeGenerasjonEndret       Type = "generasjon.endret"
	TypeVedtaksperiodeGodkjent Type = "vedtaksperiode.godkjent"
	TypeVedtaksperiodeAvvist   Type = "vedtaksperiode.avvist"
)

// String returns the string representation of the event type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants.
func (t Type) IsValid() bool {
	switch t {
	case TypeOppgaveOpprettet,
		TypeOppgaveOppdatert,
		TypeVarselEndret,
		TypeGenerasjonEndret,
		TypeVedtaksperiodeGodkjent,
		TypeVedtaksperiodeAvvist:
		return true
	default:
		return false
	}
}
