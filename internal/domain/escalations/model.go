package escalations

import "time"

// Niveles de la escalera. 1 y 2 son re-alertas locales; 3 notifica al
// contacto de emergencia por mensaje; 4 lo llama y cierra la campaña.
const (
	LevelFirstAlert  = 1
	LevelSecondAlert = 2
	LevelMessage     = 3
	LevelCall        = 4
)

// Campaign es una campaña de escalamiento sobre un recordatorio sin
// respuesta. A lo sumo una campaña activa (Completed=false) por recordatorio;
// Level solo crece mientras está activa.
type Campaign struct {
	ID           string
	MedicationID string
	ReminderID   string

	// Level es el último nivel ya ejecutado (0 = recién creada).
	Level int

	CreatedAt time.Time
	Completed bool
}
