package entity

// Periodetype classifies how a benefit period relates to earlier periods.
type Periodetype string

const (
	Forstegangsbehandling Periodetype = "FØRSTEGANGSBEHANDLING"
	Forlengelse           Periodetype = "FORLENGELSE"
	OvergangFraInfotrygd  Periodetype = "OVERGANG_FRA_IT"
)

// Inntektskilde tells whether one or several employers report income.
type Inntektskilde string

const (
	EnArbeidsgiver     Inntektskilde = "EN_ARBEIDSGIVER"
	FlereArbeidsgivere Inntektskilde = "FLERE_ARBEIDSGIVERE"
)

// Mottaker is the payout recipient shape.
type Mottaker string

const (
	MottakerSykmeldt     Mottaker = "SYKMELDT"
	MottakerArbeidsgiver Mottaker = "ARBEIDSGIVER"
	MottakerBegge        Mottaker = "BEGGE"
)
