package reminders

import "time"

// Reminder es una toma programada de un medicamento.
//
// OriginalAt se fija al crear y no se toca nunca más: las postergaciones solo
// mueven ScheduledAt, así que el tiempo transcurrido desde OriginalAt siempre
// refleja cuánto lleva el usuario sin tomar la dosis.
type Reminder struct {
	ID           string
	MedicationID string

	ScheduledAt time.Time
	OriginalAt  time.Time

	Completed     bool
	Postponements int

	// NotificationSent marca que ya se notificó al contacto de emergencia
	// por esta toma (mensaje o llamada). Evita duplicados entre el timer en
	// memoria y el barrido de reconciliación.
	NotificationSent bool

	CreatedAt time.Time
}

// Elapsed devuelve cuánto pasó desde la hora original de la toma.
func (r Reminder) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.OriginalAt)
}
