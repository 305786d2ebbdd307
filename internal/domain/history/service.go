package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// RecordTaken deja constancia de una dosis confirmada.
func (s *Service) RecordTaken(ctx context.Context, medicationID string, scheduledAt, respondedAt time.Time, quantity int) (Entry, error) {
	return s.record(ctx, medicationID, scheduledAt, &respondedAt, OutcomeTaken, -quantity)
}

// RecordPostponed deja constancia de una postergación (delta de stock cero).
func (s *Service) RecordPostponed(ctx context.Context, medicationID string, scheduledAt, respondedAt time.Time) (Entry, error) {
	return s.record(ctx, medicationID, scheduledAt, &respondedAt, OutcomePostponed, 0)
}

// RecordEscalated deja constancia de una toma que terminó en escalamiento
// nivel 4 sin respuesta: RespondedAt queda en nil.
func (s *Service) RecordEscalated(ctx context.Context, medicationID string, scheduledAt time.Time) (Entry, error) {
	return s.record(ctx, medicationID, scheduledAt, nil, OutcomeEscalated, 0)
}

func (s *Service) record(ctx context.Context, medicationID string, scheduledAt time.Time, respondedAt *time.Time, outcome Outcome, delta int) (Entry, error) {
	if strings.TrimSpace(medicationID) == "" {
		return Entry{}, ErrInvalidInput
	}
	if scheduledAt.IsZero() {
		return Entry{}, ErrInvalidInput
	}

	e := Entry{
		ID:            uuid.NewString(),
		MedicationID:  medicationID,
		ScheduledAt:   scheduledAt,
		RespondedAt:   respondedAt,
		Outcome:       outcome,
		QuantityDelta: delta,
		RecordedAt:    s.now(),
	}

	if err := s.repo.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *Service) ListByMedication(ctx context.Context, medicationID string, filter ListFilter) ([]Entry, error) {
	if strings.TrimSpace(medicationID) == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByMedication(ctx, medicationID, filter)
}
