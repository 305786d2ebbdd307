package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"medicare-reminders/internal/domain/history"
)

type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Append(ctx context.Context, e history.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dose_history (
			id, medication_id,
			scheduled_at, responded_at,
			outcome, quantity_delta,
			recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		e.ID,
		e.MedicationID,
		e.ScheduledAt,
		toNullTime(e.RespondedAt),
		string(e.Outcome),
		e.QuantityDelta,
		e.RecordedAt,
	)
	return err
}

func (r *HistoryRepo) ListByMedication(ctx context.Context, medicationID string, filter history.ListFilter) ([]history.Entry, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT
			id, medication_id,
			scheduled_at, responded_at,
			outcome, quantity_delta,
			recorded_at
		FROM dose_history
		WHERE medication_id = $1
	`)

	args := []any{medicationID}
	argN := 2

	if len(filter.Outcomes) > 0 {
		placeholders := make([]string, 0, len(filter.Outcomes))
		for _, o := range filter.Outcomes {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, string(o))
			argN++
		}
		sb.WriteString(" AND outcome IN (" + strings.Join(placeholders, ",") + ")")
	}

	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND scheduled_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND scheduled_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	sb.WriteString(" ORDER BY scheduled_at DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]history.Entry, 0)
	for rows.Next() {
		var e history.Entry
		var outcome string
		var responded sql.NullTime

		if err := rows.Scan(
			&e.ID,
			&e.MedicationID,
			&e.ScheduledAt,
			&responded,
			&outcome,
			&e.QuantityDelta,
			&e.RecordedAt,
		); err != nil {
			return nil, err
		}

		e.Outcome = history.Outcome(outcome)
		if responded.Valid {
			t := responded.Time
			e.RespondedAt = &t
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
