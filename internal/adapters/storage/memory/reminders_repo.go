package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"medicare-reminders/internal/domain/reminders"
)

type remindersRepo struct {
	mu   sync.RWMutex
	byID map[string]reminders.Reminder
}

func NewRemindersRepo() reminders.Repository {
	return &remindersRepo{
		byID: make(map[string]reminders.Reminder),
	}
}

func (r *remindersRepo) Create(ctx context.Context, rem reminders.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(rem.ID) == "" {
		return errors.New("reminder id required")
	}
	if _, exists := r.byID[rem.ID]; exists {
		return errors.New("reminder already exists")
	}
	r.byID[rem.ID] = rem
	return nil
}

func (r *remindersRepo) GetByID(ctx context.Context, id string) (reminders.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rem, ok := r.byID[id]
	if !ok {
		return reminders.Reminder{}, ErrNotFound
	}
	return rem, nil
}

func (r *remindersRepo) FindBySlot(ctx context.Context, medicationID string, originalAt time.Time) (reminders.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rem := range r.byID {
		if rem.MedicationID == medicationID && rem.OriginalAt.Equal(originalAt) {
			return rem, nil
		}
	}
	return reminders.Reminder{}, reminders.ErrSlotNotFound
}

func (r *remindersRepo) ListByMedication(ctx context.Context, medicationID string, onlyOpen bool) ([]reminders.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reminders.Reminder, 0)
	for _, rem := range r.byID {
		if rem.MedicationID != medicationID {
			continue
		}
		if onlyOpen && rem.Completed {
			continue
		}
		out = append(out, rem)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].OriginalAt.Before(out[j].OriginalAt)
	})

	return out, nil
}

func (r *remindersRepo) ListPending(ctx context.Context) ([]reminders.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reminders.Reminder, 0)
	for _, rem := range r.byID {
		if !rem.Completed {
			out = append(out, rem)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})

	return out, nil
}

func (r *remindersRepo) ListOverdue(ctx context.Context, before time.Time) ([]reminders.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reminders.Reminder, 0)
	for _, rem := range r.byID {
		if rem.Completed || rem.NotificationSent {
			continue
		}
		if rem.OriginalAt.Before(before) {
			out = append(out, rem)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].OriginalAt.Before(out[j].OriginalAt)
	})

	return out, nil
}

func (r *remindersRepo) MarkCompleted(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if rem.Completed {
		return reminders.ErrAlreadyResolved
	}
	rem.Completed = true
	r.byID[id] = rem
	return nil
}

func (r *remindersRepo) Postpone(ctx context.Context, id string, newTime time.Time) (reminders.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.byID[id]
	if !ok {
		return reminders.Reminder{}, ErrNotFound
	}
	if rem.Completed {
		return reminders.Reminder{}, reminders.ErrAlreadyResolved
	}
	rem.ScheduledAt = newTime
	rem.Postponements++
	r.byID[id] = rem
	return rem, nil
}

func (r *remindersRepo) MarkNotificationSent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	rem.NotificationSent = true
	r.byID[id] = rem
	return nil
}

func (r *remindersRepo) DeleteOpenByMedication(ctx context.Context, medicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rem := range r.byID {
		if rem.MedicationID == medicationID && !rem.Completed {
			delete(r.byID, id)
		}
	}
	return nil
}
