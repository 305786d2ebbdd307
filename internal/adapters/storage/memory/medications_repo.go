package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"medicare-reminders/internal/domain/medications"
)

var (
	ErrNotFound = errors.New("not found")
)

type medicationsRepo struct {
	mu   sync.RWMutex
	byID map[string]medications.Medication
}

func NewMedicationsRepo() medications.Repository {
	return &medicationsRepo{
		byID: make(map[string]medications.Medication),
	}
}

func (r *medicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medication id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("medication already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *medicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, ErrNotFound
	}
	return m, nil
}

func (r *medicationsRepo) List(ctx context.Context, onlyActive bool) ([]medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Medication, 0)
	for _, m := range r.byID {
		if onlyActive && !m.Active {
			continue
		}
		out = append(out, m)
	}

	// Orden estable por created_at asc (solo para consistencia en dev)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *medicationsRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	m.Active = active
	m.UpdatedAt = time.Now()
	r.byID[id] = m
	return nil
}

func (r *medicationsRepo) AdjustQuantity(ctx context.Context, id string, delta int) (medications.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, ErrNotFound
	}
	m.Quantity += delta
	if m.Quantity < 0 {
		m.Quantity = 0
	}
	m.UpdatedAt = time.Now()
	r.byID[id] = m
	return m, nil
}
