package postgres

import (
	"context"
	"database/sql"
	"strings"

	"medicare-reminders/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medications (
			id, name, quantity, interval_hours, start_at,
			active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		m.ID,
		m.Name,
		m.Quantity,
		m.IntervalHours,
		m.StartAt,
		m.Active,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, quantity, interval_hours, start_at,
		       active, created_at, updated_at
		FROM medications
		WHERE id = $1
	`, id)

	return scanMedication(row)
}

func (r *MedicationsRepo) List(ctx context.Context, onlyActive bool) ([]medications.Medication, error) {
	q := `
		SELECT id, name, quantity, interval_hours, start_at,
		       active, created_at, updated_at
		FROM medications
	`
	if onlyActive {
		q += ` WHERE active = true`
	}
	q += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MedicationsRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET active = $2, updated_at = now()
		WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustQuantity aplica el delta con piso en cero en la misma sentencia, así
// dos decrementos concurrentes nunca dejan stock negativo.
func (r *MedicationsRepo) AdjustQuantity(ctx context.Context, id string, delta int) (medications.Medication, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE medications
		SET quantity = GREATEST(quantity + $2, 0), updated_at = now()
		WHERE id = $1
		RETURNING id, name, quantity, interval_hours, start_at,
		          active, created_at, updated_at
	`, id, delta)

	m, err := scanMedication(row)
	if err == ErrNotFound || err == sql.ErrNoRows {
		return medications.Medication{}, ErrNotFound
	}
	return m, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(row rowScanner) (medications.Medication, error) {
	var m medications.Medication
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Quantity,
		&m.IntervalHours,
		&m.StartAt,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return medications.Medication{}, ErrNotFound
		}
		return medications.Medication{}, err
	}
	return m, nil
}
