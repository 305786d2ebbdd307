package medications

import "context"

type Repository interface {
	Create(ctx context.Context, m Medication) error
	GetByID(ctx context.Context, id string) (Medication, error)
	List(ctx context.Context, onlyActive bool) ([]Medication, error)
	SetActive(ctx context.Context, id string, active bool) error
	AdjustQuantity(ctx context.Context, id string, delta int) (Medication, error)
}
