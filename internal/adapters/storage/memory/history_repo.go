package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medicare-reminders/internal/domain/history"
)

type historyRepo struct {
	mu      sync.RWMutex
	entries []history.Entry
}

func NewHistoryRepo() history.Repository {
	return &historyRepo{}
}

func (r *historyRepo) Append(ctx context.Context, e history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(e.ID) == "" {
		return errors.New("entry id required")
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *historyRepo) ListByMedication(ctx context.Context, medicationID string, filter history.ListFilter) ([]history.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]history.Entry, 0)
	for _, e := range r.entries {
		if e.MedicationID != medicationID {
			continue
		}
		if len(filter.Outcomes) > 0 && !containsOutcome(filter.Outcomes, e.Outcome) {
			continue
		}
		if filter.From != nil && e.ScheduledAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.ScheduledAt.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func containsOutcome(list []history.Outcome, o history.Outcome) bool {
	for _, x := range list {
		if x == o {
			return true
		}
	}
	return false
}
