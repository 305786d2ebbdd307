package medications

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

type CreateInput struct {
	Name          string
	Quantity      int
	IntervalHours int
	StartAt       time.Time // si viene en cero, se usa la fecha de creación
}

// Create valida y registra un medicamento activo.
// Un intervalo <= 0 se rechaza acá: nunca llega al scheduler.
func (s *Service) Create(ctx context.Context, in CreateInput) (Medication, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Medication{}, ErrInvalidInput
	}
	if in.IntervalHours <= 0 {
		return Medication{}, ErrInvalidInput
	}
	if in.Quantity < 0 {
		return Medication{}, ErrInvalidInput
	}

	now := s.now()

	start := in.StartAt
	if start.IsZero() {
		start = now
	}

	m := Medication{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		Quantity:      in.Quantity,
		IntervalHours: in.IntervalHours,
		StartAt:       start,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Medication, error) {
	return s.repo.List(ctx, false)
}

func (s *Service) ListActive(ctx context.Context) ([]Medication, error) {
	return s.repo.List(ctx, true)
}

// Deactivate marca el medicamento como inactivo (no se borra: el historial
// sigue referenciándolo). Cancelar timers y campañas abiertas es tarea del
// motor, que llama esto primero.
func (s *Service) Deactivate(ctx context.Context, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return Medication{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Restock suma unidades al stock.
func (s *Service) Restock(ctx context.Context, id string, units int) (Medication, error) {
	if strings.TrimSpace(id) == "" || units <= 0 {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.AdjustQuantity(ctx, id, units)
}

// DecrementQuantity descuenta una dosis confirmada. El repo no baja de cero.
func (s *Service) DecrementQuantity(ctx context.Context, id string, units int) (Medication, error) {
	if strings.TrimSpace(id) == "" || units <= 0 {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.AdjustQuantity(ctx, id, -units)
}
