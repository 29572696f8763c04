package entity

import (
	"time"

	"github.com/google/uuid"
)

// VarselStatus is the vetting state of a warning.
type VarselStatus string

const (
	VarselAktiv    VarselStatus = "AKTIV"
	VarselInaktiv  VarselStatus = "INAKTIV"
	VarselVurdert  VarselStatus = "VURDERT"
	VarselGodkjent VarselStatus = "GODKJENT"
	VarselAvvist   VarselStatus = "AVVIST"
	VarselAvviklet VarselStatus = "AVVIKLET"
)

// KanVurderes reports whether a caseworker may still vet a warning in this
// status. Vetting is only meaningful on open warnings.
func (s VarselStatus) KanVurderes() bool {
	return s == VarselAktiv || s == VarselVurdert
}

// Varsel is a warning raised against a generation that may require
// caseworker vetting before the period can be paid out.
type Varsel struct {
	ID           uuid.UUID
	GenerasjonID uuid.UUID
	Kode         string
	Status       VarselStatus
	Opprettet    time.Time
	VurdertAv    string
}
