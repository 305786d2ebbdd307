package postgres

import (
	"context"
	"database/sql"
	"time"

	"medicare-reminders/internal/domain/reminders"
)

type RemindersRepo struct {
	db *sql.DB
}

func NewRemindersRepo(db *sql.DB) *RemindersRepo {
	return &RemindersRepo{db: db}
}

func (r *RemindersRepo) Create(ctx context.Context, rem reminders.Reminder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (
			id, medication_id, scheduled_at, original_at,
			completed, postponements, notification_sent, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		rem.ID,
		rem.MedicationID,
		rem.ScheduledAt,
		rem.OriginalAt,
		rem.Completed,
		rem.Postponements,
		rem.NotificationSent,
		rem.CreatedAt,
	)
	return err
}

func (r *RemindersRepo) GetByID(ctx context.Context, id string) (reminders.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, medication_id, scheduled_at, original_at,
		       completed, postponements, notification_sent, created_at
		FROM reminders
		WHERE id = $1
	`, id)

	return scanReminder(row)
}

func (r *RemindersRepo) FindBySlot(ctx context.Context, medicationID string, originalAt time.Time) (reminders.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, medication_id, scheduled_at, original_at,
		       completed, postponements, notification_sent, created_at
		FROM reminders
		WHERE medication_id = $1 AND original_at = $2
	`, medicationID, originalAt)

	rem, err := scanReminder(row)
	if err == ErrNotFound {
		return reminders.Reminder{}, reminders.ErrSlotNotFound
	}
	return rem, err
}

func (r *RemindersRepo) ListByMedication(ctx context.Context, medicationID string, onlyOpen bool) ([]reminders.Reminder, error) {
	q := `
		SELECT id, medication_id, scheduled_at, original_at,
		       completed, postponements, notification_sent, created_at
		FROM reminders
		WHERE medication_id = $1
	`
	if onlyOpen {
		q += ` AND completed = false`
	}
	q += ` ORDER BY original_at ASC`

	rows, err := r.db.QueryContext(ctx, q, medicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReminders(rows)
}

func (r *RemindersRepo) ListPending(ctx context.Context) ([]reminders.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, medication_id, scheduled_at, original_at,
		       completed, postponements, notification_sent, created_at
		FROM reminders
		WHERE completed = false
		ORDER BY scheduled_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReminders(rows)
}

func (r *RemindersRepo) ListOverdue(ctx context.Context, before time.Time) ([]reminders.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, medication_id, scheduled_at, original_at,
		       completed, postponements, notification_sent, created_at
		FROM reminders
		WHERE completed = false
		  AND notification_sent = false
		  AND original_at < $1
		ORDER BY original_at ASC
	`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReminders(rows)
}

func (r *RemindersRepo) MarkCompleted(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET completed = true
		WHERE id = $1 AND completed = false
	`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Sin fila afectada: o no existe, o alguien la resolvió primero.
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return reminders.ErrAlreadyResolved
	}
	return nil
}

func (r *RemindersRepo) Postpone(ctx context.Context, id string, newTime time.Time) (reminders.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE reminders
		SET scheduled_at = $2, postponements = postponements + 1
		WHERE id = $1 AND completed = false
		RETURNING id, medication_id, scheduled_at, original_at,
		          completed, postponements, notification_sent, created_at
	`, id, newTime)

	rem, err := scanReminder(row)
	if err == ErrNotFound {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return reminders.Reminder{}, gerr
		}
		return reminders.Reminder{}, reminders.ErrAlreadyResolved
	}
	return rem, err
}

func (r *RemindersRepo) MarkNotificationSent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET notification_sent = true
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

func (r *RemindersRepo) DeleteOpenByMedication(ctx context.Context, medicationID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM reminders
		WHERE medication_id = $1 AND completed = false
	`, medicationID)
	return err
}

func scanReminder(row rowScanner) (reminders.Reminder, error) {
	var rem reminders.Reminder
	if err := row.Scan(
		&rem.ID,
		&rem.MedicationID,
		&rem.ScheduledAt,
		&rem.OriginalAt,
		&rem.Completed,
		&rem.Postponements,
		&rem.NotificationSent,
		&rem.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return reminders.Reminder{}, ErrNotFound
		}
		return reminders.Reminder{}, err
	}
	return rem, nil
}

func collectReminders(rows *sql.Rows) ([]reminders.Reminder, error) {
	out := make([]reminders.Reminder, 0)
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}
