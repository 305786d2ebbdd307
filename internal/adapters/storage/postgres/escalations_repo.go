package postgres

import (
	"context"
	"database/sql"

	"medicare-reminders/internal/domain/escalations"
)

type EscalationsRepo struct {
	db *sql.DB
}

func NewEscalationsRepo(db *sql.DB) *EscalationsRepo {
	return &EscalationsRepo{db: db}
}

func (r *EscalationsRepo) Create(ctx context.Context, c escalations.Campaign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO escalation_campaigns (
			id, medication_id, reminder_id, level, created_at, completed
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		c.ID,
		c.MedicationID,
		c.ReminderID,
		c.Level,
		c.CreatedAt,
		c.Completed,
	)
	return err
}

func (r *EscalationsRepo) GetByID(ctx context.Context, id string) (escalations.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, medication_id, reminder_id, level, created_at, completed
		FROM escalation_campaigns
		WHERE id = $1
	`, id)

	return scanCampaign(row)
}

func (r *EscalationsRepo) GetActiveByReminder(ctx context.Context, reminderID string) (escalations.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, medication_id, reminder_id, level, created_at, completed
		FROM escalation_campaigns
		WHERE reminder_id = $1 AND completed = false
		ORDER BY created_at DESC
		LIMIT 1
	`, reminderID)

	c, err := scanCampaign(row)
	if err == ErrNotFound {
		return escalations.Campaign{}, escalations.ErrNoActiveCampaign
	}
	return c, err
}

func (r *EscalationsRepo) ListActive(ctx context.Context) ([]escalations.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, medication_id, reminder_id, level, created_at, completed
		FROM escalation_campaigns
		WHERE completed = false
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]escalations.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AdvanceLevel es el punto de arbitraje entre timers concurrentes: solo gana
// quien encuentra la fila exactamente en fromLevel y todavía abierta.
func (r *EscalationsRepo) AdvanceLevel(ctx context.Context, id string, fromLevel, toLevel int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE escalation_campaigns
		SET level = $3
		WHERE id = $1 AND level = $2 AND completed = false
	`, id, fromLevel, toLevel)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return escalations.ErrStale
	}
	return nil
}

func (r *EscalationsRepo) Complete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE escalation_campaigns
		SET completed = true
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EscalationsRepo) CompleteActiveByReminder(ctx context.Context, reminderID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE escalation_campaigns
		SET completed = true
		WHERE reminder_id = $1 AND completed = false
	`, reminderID)
	return err
}

func (r *EscalationsRepo) CompleteOpenByMedication(ctx context.Context, medicationID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE escalation_campaigns
		SET completed = true
		WHERE medication_id = $1 AND completed = false
	`, medicationID)
	return err
}

func scanCampaign(row rowScanner) (escalations.Campaign, error) {
	var c escalations.Campaign
	if err := row.Scan(
		&c.ID,
		&c.MedicationID,
		&c.ReminderID,
		&c.Level,
		&c.CreatedAt,
		&c.Completed,
	); err != nil {
		if err == sql.ErrNoRows {
			return escalations.Campaign{}, ErrNotFound
		}
		return escalations.Campaign{}, err
	}
	return c, nil
}
