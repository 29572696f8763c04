package automatisering

import (
	"sync/atomic"

	"github.com/karl-run/spesialist/internal/domain/entity"
)

// Stikkprover selects otherwise-automatic cases for a random spot check. The
// sampler is keyed on recipient shape, employer count and first-time vs
// extension; a selected case is treated as manual for payout purposes but
// recorded distinctly from organic manual cases.
type Stikkprover interface {
	SkalStikkproves(fakta Fakta) bool
}

// Divisorer configures one-in-N sampling per case category. Zero disables
// sampling for that category.
type Divisorer struct {
	UtbetalingTilSykmeldt     int
	UtbetalingTilArbeidsgiver int
	UtbetalingTilBegge        int
	FlereArbeidsgivere        int
	Forstegangsbehandling     int
}

// teller is a deterministic rolling counter per category, so that sampling
// is reproducible within a process and externally tunable via config.
type stikkprover struct {
	divisorer Divisorer
	tellere   map[string]*atomic.Int64
}

// NyStikkprover creates the default sampler.
func NyStikkprover(divisorer Divisorer) Stikkprover {
	kategorier := []string{"sykmeldt", "arbeidsgiver", "begge", "flere", "førstegang"}
	tellere := make(map[string]*atomic.Int64, len(kategorier))
	for _, k := range kategorier {
		tellere[k] = &atomic.Int64{}
	}
	return &stikkprover{divisorer: divisorer, tellere: tellere}
}

func (s *stikkprover) SkalStikkproves(fakta Fakta) bool {
	switch {
	case fakta.Inntektskilde == entity.FlereArbeidsgivere:
		return s.treff("flere", s.divisorer.FlereArbeidsgivere)
	case fakta.Mottaker == entity.MottakerBegge:
		return s.treff("begge", s.divisorer.UtbetalingTilBegge)
	case fakta.Mottaker == entity.MottakerArbeidsgiver:
		return s.treff("arbeidsgiver", s.divisorer.UtbetalingTilArbeidsgiver)
	case fakta.Periodetype == entity.Forstegangsbehandling:
		return s.treff("førstegang", s.divisorer.Forstegangsbehandling)
	default:
		return s.treff("sykmeldt", s.divisorer.UtbetalingTilSykmeldt)
	}
}

func (s *stikkprover) treff(kategori string, divisor int) bool {
	if divisor <= 0 {
		return false
	}
	n := s.tellere[kategori].Add(1)
	return n%int64(divisor) == 0
}
