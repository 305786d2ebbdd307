package reminders

import (
	"context"
	"errors"
	"time"
)

// ErrSlotNotFound lo devuelve FindBySlot cuando el slot no se generó aún.
var ErrSlotNotFound = errors.New("no reminder for slot")

// Repository persiste recordatorios. Las mutaciones de estado son
// compare-and-set a nivel de fila: ese es el punto de arbitraje cuando un
// timer y una acción explícita del usuario llegan a la vez (gana quien
// comitea primero; el perdedor recibe ErrAlreadyResolved).
type Repository interface {
	Create(ctx context.Context, r Reminder) error
	GetByID(ctx context.Context, id string) (Reminder, error)

	// FindBySlot busca el recordatorio de un slot de generación
	// (medication-id + hora original). Es la clave de idempotencia del
	// scheduler: regenerar la ventana no duplica slots existentes.
	FindBySlot(ctx context.Context, medicationID string, originalAt time.Time) (Reminder, error)

	ListByMedication(ctx context.Context, medicationID string, onlyOpen bool) ([]Reminder, error)

	// ListPending devuelve todos los no completados (rearmado post-reinicio).
	ListPending(ctx context.Context) ([]Reminder, error)

	// ListOverdue devuelve los no completados con notification_sent=false
	// cuya hora original es anterior a before. Es la consulta del barrido.
	ListOverdue(ctx context.Context, before time.Time) ([]Reminder, error)

	// MarkCompleted completa el recordatorio. ErrAlreadyResolved si ya
	// estaba completado.
	MarkCompleted(ctx context.Context, id string) error

	// Postpone corre ScheduledAt e incrementa el contador en exactamente 1,
	// dejando OriginalAt intacto. ErrAlreadyResolved si ya estaba completado.
	Postpone(ctx context.Context, id string, newTime time.Time) (Reminder, error)

	MarkNotificationSent(ctx context.Context, id string) error

	// DeleteOpenByMedication elimina los recordatorios abiertos de un
	// medicamento desactivado. El historial no se toca.
	DeleteOpenByMedication(ctx context.Context, medicationID string) error
}
