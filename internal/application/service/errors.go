package service

import "errors"

// Typed recoverable business errors. Caseworker-facing actions that violate
// an invariant surface one of these so the caller can re-fetch and retry,
// never a raw internal error.
var (
	// ErrAlleredeTildelt is returned when a task is assigned to someone else.
	ErrAlleredeTildelt = errors.New("oppgaven er allerede tildelt en annen saksbehandler")

	// ErrOppgaveIkkeAktiv is returned when an action targets a task that is
	// already resolved or invalidated.
	ErrOppgaveIkkeAktiv = errors.New("oppgaven er ikke lenger aktiv")

	// ErrKreverToBesluttere is returned when the acting caseworker tries to
	// approve their own two-step-review task.
	ErrKreverToBesluttere = errors.New("totrinnsvurdering krever to ulike saksbehandlere")

	// ErrUvurderteVarsler is returned when a task is resolved while open
	// warnings remain unvetted.
	ErrUvurderteVarsler = errors.New("oppgaven har uvurderte varsler")

	// ErrIngenGenerasjon signals a period that must have a generation but has
	// none; a programmer error fatal for the current event only.
	ErrIngenGenerasjon = errors.New("fant ingen generasjon for vedtaksperiode")
)
