package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medicare-reminders/internal/domain/escalations"
)

type escalationsRepo struct {
	mu   sync.RWMutex
	byID map[string]escalations.Campaign
}

func NewEscalationsRepo() escalations.Repository {
	return &escalationsRepo{
		byID: make(map[string]escalations.Campaign),
	}
}

func (r *escalationsRepo) Create(ctx context.Context, c escalations.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(c.ID) == "" {
		return errors.New("campaign id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("campaign already exists")
	}
	// A lo sumo una campaña activa por recordatorio.
	for _, other := range r.byID {
		if other.ReminderID == c.ReminderID && !other.Completed {
			return errors.New("active campaign already exists for reminder")
		}
	}
	r.byID[c.ID] = c
	return nil
}

func (r *escalationsRepo) GetByID(ctx context.Context, id string) (escalations.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return escalations.Campaign{}, ErrNotFound
	}
	return c, nil
}

func (r *escalationsRepo) GetActiveByReminder(ctx context.Context, reminderID string) (escalations.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.byID {
		if c.ReminderID == reminderID && !c.Completed {
			return c, nil
		}
	}
	return escalations.Campaign{}, escalations.ErrNoActiveCampaign
}

func (r *escalationsRepo) ListActive(ctx context.Context) ([]escalations.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]escalations.Campaign, 0)
	for _, c := range r.byID {
		if !c.Completed {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *escalationsRepo) AdvanceLevel(ctx context.Context, id string, fromLevel, toLevel int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok || c.Completed || c.Level != fromLevel {
		return escalations.ErrStale
	}
	c.Level = toLevel
	r.byID[id] = c
	return nil
}

func (r *escalationsRepo) Complete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	c.Completed = true
	r.byID[id] = c
	return nil
}

func (r *escalationsRepo) CompleteActiveByReminder(ctx context.Context, reminderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.byID {
		if c.ReminderID == reminderID && !c.Completed {
			c.Completed = true
			r.byID[id] = c
		}
	}
	return nil
}

func (r *escalationsRepo) CompleteOpenByMedication(ctx context.Context, medicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.byID {
		if c.MedicationID == medicationID && !c.Completed {
			c.Completed = true
			r.byID[id] = c
		}
	}
	return nil
}
