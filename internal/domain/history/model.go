package history

import "time"

// Outcome es el desenlace registrado para una toma programada.
type Outcome string

const (
	OutcomeTaken     Outcome = "taken"
	OutcomePostponed Outcome = "postponed"
	// OutcomeEscalated se registra cuando la escalera de escalamiento llegó
	// al nivel 4 sin respuesta del usuario.
	OutcomeEscalated Outcome = "escalated_unresolved"
)

// Entry es un registro de auditoría inmutable: se inserta y nunca se toca.
// Referencia al medicamento, no al recordatorio: sobrevive a la eliminación
// de recordatorios pendientes.
type Entry struct {
	ID           string
	MedicationID string

	ScheduledAt time.Time  // hora original de la toma
	RespondedAt *time.Time // nil si el usuario nunca respondió

	Outcome       Outcome
	QuantityDelta int

	RecordedAt time.Time
}
