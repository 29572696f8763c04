// Package varsel implements the warning lifecycle. Transitions are pure:
// they mutate the entity and return the outbound events to dispatch after
// the surrounding transaction commits.
package varsel

import (
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/domain/event"
)

// alltidManuell lists warning codes that always block automation regardless
// of vetting state.
var alltidManuell = map[string]bool{
	"RV_IT_3":  true,
	"RV_SI_3":  true,
	"RV_UT_23": true,
	"SB_EX_3":  true,
}

// BlokkererAutomatisering reports whether the code is on the deny-list.
func BlokkererAutomatisering(kode string) bool {
	return alltidManuell[kode]
}

// Nytt creates a warning in the active state attached to a generation.
func Nytt(generasjonID uuid.UUID, kode string) entity.Varsel {
	return entity.Varsel{
		ID:           uuid.New(),
		GenerasjonID: generasjonID,
		Kode:         kode,
		Status:       entity.VarselAktiv,
		Opprettet:    time.Now(),
	}
}

// Deaktiver moves an active warning to inactive. Any other state is a no-op.
func Deaktiver(v *entity.Varsel, hendelseID uuid.UUID, fnr string) (bool, []event.Event) {
	if v.Status != entity.VarselAktiv {
		return false, nil
	}
	v.Status = entity.VarselInaktiv
	return true, []event.Event{endret(v, hendelseID, fnr)}
}

// Reaktiver moves an inactive warning back to active. Any other state is a
// no-op.
func Reaktiver(v *entity.Varsel, hendelseID uuid.UUID, fnr string) (bool, []event.Event) {
	if v.Status != entity.VarselInaktiv {
		return false, nil
	}
	v.Status = entity.VarselAktiv
	return true, []event.Event{endret(v, hendelseID, fnr)}
}

// Vurder records the caseworker's vetting of an open warning. Warnings that
// are not open (godkjent, avvist, inaktiv, avviklet) are left untouched.
func Vurder(v *entity.Varsel, godkjent bool, av string, hendelseID uuid.UUID, fnr string) (bool, []event.Event) {
	if !v.Status.KanVurderes() {
		return false, nil
	}
	if godkjent {
		v.Status = entity.VarselGodkjent
	} else {
		v.Status = entity.VarselAvvist
	}
	v.VurdertAv = av
	return true, []event.Event{endret(v, hendelseID, fnr)}
}

// Avvikle retires a warning whose payout was annulled. Terminal states are
// left untouched.
func Avvikle(v *entity.Varsel, hendelseID uuid.UUID, fnr string) (bool, []event.Event) {
	switch v.Status {
	case entity.VarselGodkjent, entity.VarselAvvist, entity.VarselAvviklet:
		return false, nil
	}
	v.Status = entity.VarselAvviklet
	return true, []event.Event{endret(v, hendelseID, fnr)}
}

func endret(v *entity.Varsel, hendelseID uuid.UUID, fnr string) event.Event {
	return event.New(event.TypeVarselEndret, hendelseID, fnr, map[string]any{
		"varsel_id": v.ID.String(),
		"kode":      v.Kode,
		"status":    string(v.Status),
	})
}
