package reminders

import (
	"context"
	"errors"
	"strings"
	"time"

	"medicare-reminders/internal/domain/history"
	"medicare-reminders/internal/domain/medications"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyResolved: el recordatorio ya tiene desenlace. Lo devuelven
	// también los repos cuando un compare-and-set pierde la carrera.
	ErrAlreadyResolved = errors.New("reminder already resolved")
)

// Escalator es lo que el estado del recordatorio necesita del controlador de
// escalamiento: cancelar la campaña activa al resolverse, y revisar la
// política de postergaciones repetidas.
type Escalator interface {
	CancelActiveByReminder(ctx context.Context, reminderID string) error
	ReviewPostponed(ctx context.Context, rem Reminder) error
}

// Events son los callbacks tipados hacia la capa de UI.
type Events interface {
	DoseResolved(rem Reminder, outcome history.Outcome)
}

// Service es la máquina de estados de un recordatorio:
// Scheduled → Fired → taken | Postponed → Fired(rearmado) → ...
type Service struct {
	repo Repository
	meds *medications.Service
	hist *history.Service

	esc    Escalator // opcional en tests
	events Events    // opcional

	postponeDelay time.Duration
	now           func() time.Time
}

func NewService(repo Repository, meds *medications.Service, hist *history.Service, postponeDelay time.Duration) *Service {
	if postponeDelay <= 0 {
		postponeDelay = 5 * time.Minute
	}
	return &Service{
		repo:          repo,
		meds:          meds,
		hist:          hist,
		postponeDelay: postponeDelay,
		now:           time.Now,
	}
}

// SetEscalator se llama después de construir el controlador (el controlador
// a su vez necesita el repo de recordatorios).
func (s *Service) SetEscalator(esc Escalator) { s.esc = esc }

func (s *Service) SetEvents(ev Events) { s.events = ev }

func (s *Service) GetByID(ctx context.Context, id string) (Reminder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Reminder{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByMedication(ctx context.Context, medicationID string, onlyOpen bool) ([]Reminder, error) {
	if strings.TrimSpace(medicationID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByMedication(ctx, medicationID, onlyOpen)
}

// Confirm marca la dosis como tomada: completa el recordatorio (CAS), cancela
// la campaña de escalamiento si la hay, descuenta stock y registra historial.
// Una segunda confirmación devuelve ErrAlreadyResolved.
func (s *Service) Confirm(ctx context.Context, id string) (Reminder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Reminder{}, ErrInvalidInput
	}

	rem, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Reminder{}, err
	}
	if rem.Completed {
		return Reminder{}, ErrAlreadyResolved
	}

	// Punto de arbitraje: si un auto-postergado o el barrido resolvió el
	// recordatorio entre la lectura y acá, el CAS pierde y no pasa nada más.
	if err := s.repo.MarkCompleted(ctx, id); err != nil {
		return Reminder{}, err
	}
	rem.Completed = true

	if s.esc != nil {
		if err := s.esc.CancelActiveByReminder(ctx, id); err != nil {
			return Reminder{}, err
		}
	}

	if _, err := s.meds.DecrementQuantity(ctx, rem.MedicationID, 1); err != nil {
		return Reminder{}, err
	}

	now := s.now()
	if _, err := s.hist.RecordTaken(ctx, rem.MedicationID, rem.OriginalAt, now, 1); err != nil {
		return Reminder{}, err
	}

	if s.events != nil {
		s.events.DoseResolved(rem, history.OutcomeTaken)
	}
	return rem, nil
}

// PostponeCause distingue la postergación explícita del usuario del timeout
// de auto-postergación.
type PostponeCause string

const (
	PostponeByUser PostponeCause = "user"
	PostponeAuto   PostponeCause = "auto"
)

// Postpone corre el recordatorio postponeDelay hacia adelante: suma 1 al
// contador, deja OriginalAt intacto, cancela la campaña en vuelo (se recrea
// fresca si la política lo amerita) y registra la postergación. El rearmado
// del timer es del motor: el caller usa el Reminder devuelto.
func (s *Service) Postpone(ctx context.Context, id string, cause PostponeCause) (Reminder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Reminder{}, ErrInvalidInput
	}

	rem, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Reminder{}, err
	}
	if rem.Completed {
		return Reminder{}, ErrAlreadyResolved
	}

	now := s.now()
	updated, err := s.repo.Postpone(ctx, id, now.Add(s.postponeDelay))
	if err != nil {
		return Reminder{}, err
	}

	if s.esc != nil {
		if err := s.esc.CancelActiveByReminder(ctx, id); err != nil {
			return Reminder{}, err
		}
	}

	if _, err := s.hist.RecordPostponed(ctx, updated.MedicationID, updated.OriginalAt, now); err != nil {
		return Reminder{}, err
	}

	// Acelerador por postergaciones repetidas: >=3 permite mensaje, >=4 con
	// 60+ min fuerza llamada. El controlador decide.
	if s.esc != nil {
		if err := s.esc.ReviewPostponed(ctx, updated); err != nil {
			return Reminder{}, err
		}
	}

	return updated, nil
}
