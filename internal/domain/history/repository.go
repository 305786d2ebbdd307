package history

import (
	"context"
	"time"
)

type Repository interface {
	Append(ctx context.Context, e Entry) error
	ListByMedication(ctx context.Context, medicationID string, filter ListFilter) ([]Entry, error)
}

type ListFilter struct {
	Outcomes []Outcome
	From     *time.Time
	To       *time.Time
	Limit    int
}
