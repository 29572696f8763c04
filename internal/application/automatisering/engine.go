// Package automatisering decides whether a period can be paid out
// automatically or must be queued for a human.
package automatisering

import (
	"fmt"
	"time"

	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/domain/varsel"
)

// Fakta is the full input to one automation decision.
type Fakta struct {
	AktiveVarsler       []*entity.Varsel
	HarRisikovurdering  bool
	RisikovurderingOK   bool
	Vergemal            bool
	UtlandEnhet         bool
	ApneGosysOppgaver   bool
	VentendeOverstyring bool
	Mottaker            entity.Mottaker
	Inntektskilde       entity.Inntektskilde
	Periodetype         entity.Periodetype
	ErRevurdering       bool
	ForsteSoknadMottatt time.Time
	AntallKorrigeringer int
}

// maksBehandlingstid is how long a case may have been underway before it is
// too old to automate.
const maksBehandlingstid = 6 * 30 * 24 * time.Hour

// maksKorrigeringer is how many corrections a case tolerates before a human
// must look at it.
const maksKorrigeringer = 2

// Vurder runs every validation predicate unconditionally and returns the
// ordered list of blocking reasons. All reasons are captured together for
// audit even though only the first matters for the automatic-vs-manual
// verdict. Identical facts always produce the identical list.
func Vurder(fakta Fakta, now time.Time) []string {
	var begrunnelser []string

	for _, v := range fakta.AktiveVarsler {
		if varsel.BlokkererAutomatisering(v.Kode) {
			begrunnelser = append(begrunnelser, fmt.Sprintf("varsel %s tillater aldri automatisering", v.Kode))
		} else {
			begrunnelser = append(begrunnelser, fmt.Sprintf("aktivt varsel %s", v.Kode))
		}
	}
	if !fakta.HarRisikovurdering {
		begrunnelser = append(begrunnelser, "mangler risikovurdering")
	} else if !fakta.RisikovurderingOK {
		begrunnelser = append(begrunnelser, "risikovurdering krever manuell behandling")
	}
	if fakta.Vergemal {
		begrunnelser = append(begrunnelser, "person har vergemål")
	}
	if fakta.UtlandEnhet {
		begrunnelser = append(begrunnelser, "person tilhører utlandsenhet")
	}
	if fakta.ApneGosysOppgaver {
		begrunnelser = append(begrunnelser, "åpne oppgaver i Gosys")
	}
	if fakta.VentendeOverstyring {
		begrunnelser = append(begrunnelser, "ventende overstyring")
	}
	if fakta.ErRevurdering {
		begrunnelser = append(begrunnelser, "revurdering behandles manuelt")
	}
	if !fakta.ForsteSoknadMottatt.IsZero() && now.Sub(fakta.ForsteSoknadMottatt) > maksBehandlingstid {
		begrunnelser = append(begrunnelser, "for lang tid siden første søknad")
	}
	if fakta.AntallKorrigeringer > maksKorrigeringer {
		begrunnelser = append(begrunnelser, fmt.Sprintf("%d korrigeringer overstiger grensen", fakta.AntallKorrigeringer))
	}

	return begrunnelser
}
