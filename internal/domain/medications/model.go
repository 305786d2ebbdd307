package medications

import "time"

// Medication representa un medicamento registrado por el usuario.
type Medication struct {
	ID string

	Name          string
	Quantity      int // unidades disponibles
	IntervalHours int // cada cuántas horas se toma
	StartAt       time.Time

	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LowStock indica si quedan 3 unidades o menos.
func (m Medication) LowStock() bool {
	return m.Quantity <= 3
}
