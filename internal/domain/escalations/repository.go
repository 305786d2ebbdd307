package escalations

import (
	"context"
	"errors"
)

// ErrStale: el compare-and-set de nivel perdió contra otra transición
// concurrente (otro timer, el barrido, o una cancelación). El perdedor
// se trata como no-op.
var ErrStale = errors.New("campaign state changed")

type Repository interface {
	Create(ctx context.Context, c Campaign) error
	GetByID(ctx context.Context, id string) (Campaign, error)

	// GetActiveByReminder devuelve la campaña activa del recordatorio.
	// ErrNoActiveCampaign si no hay ninguna.
	GetActiveByReminder(ctx context.Context, reminderID string) (Campaign, error)

	// ListActive devuelve todas las campañas abiertas (rearmado de timers
	// tras un reinicio).
	ListActive(ctx context.Context) ([]Campaign, error)

	// AdvanceLevel sube el nivel con compare-and-set sobre el nivel previo
	// y completed=false. ErrStale si la fila ya no está en fromLevel.
	AdvanceLevel(ctx context.Context, id string, fromLevel, toLevel int) error

	Complete(ctx context.Context, id string) error

	// CompleteActiveByReminder cierra la campaña activa del recordatorio si
	// existe; sin campaña activa es un no-op.
	CompleteActiveByReminder(ctx context.Context, reminderID string) error

	CompleteOpenByMedication(ctx context.Context, medicationID string) error
}
