package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"medicare-reminders/internal/domain/medications"
	"medicare-reminders/internal/domain/reminders"
)

// NextDoseAt calcula la próxima toma no vencida: hora de inicio más múltiplos
// enteros del intervalo, el primero >= now.
func NextDoseAt(m medications.Medication, now time.Time) time.Time {
	interval := time.Duration(m.IntervalHours) * time.Hour
	if !m.StartAt.Before(now) {
		return m.StartAt
	}
	elapsed := now.Sub(m.StartAt)
	k := elapsed / interval
	next := m.StartAt.Add((k + 1) * interval)
	// Borde exacto: si now cae justo en un slot, ese slot todavía vale.
	if m.StartAt.Add(k*interval).Equal(now) {
		return now
	}
	return next
}

// ScheduleMedication genera la ventana acotada de recordatorios futuros del
// medicamento y arma sus wake-ups. Re-ejecutarla no duplica slots: la clave
// de idempotencia es (medication-id, hora original del slot). Implementa el
// lado del motor de medications.Scheduler.
func (e *Engine) ScheduleMedication(ctx context.Context, m medications.Medication) error {
	if !m.Active {
		return nil
	}
	if m.IntervalHours <= 0 {
		// El service ya lo rechaza al crear; acá solo como guard.
		return errors.Errorf("medication %s has invalid interval %d", m.ID, m.IntervalHours)
	}

	now := e.clk.Now()
	interval := time.Duration(m.IntervalHours) * time.Hour
	horizon := now.Add(e.cfg.Window)

	created := 0
	for slot := NextDoseAt(m, now); slot.Before(horizon); slot = slot.Add(interval) {
		existing, err := e.remRepo.FindBySlot(ctx, m.ID, slot)
		if err == nil {
			if !existing.Completed {
				e.ArmReminder(existing)
			}
			continue
		}
		if !errors.Is(err, reminders.ErrSlotNotFound) {
			return errors.Wrap(err, "find slot")
		}

		rem := reminders.Reminder{
			ID:           uuid.NewString(),
			MedicationID: m.ID,
			ScheduledAt:  slot,
			OriginalAt:   slot,
			CreatedAt:    now,
		}
		if err := e.remRepo.Create(ctx, rem); err != nil {
			return errors.Wrap(err, "create reminder")
		}
		e.ArmReminder(rem)
		created++
	}

	if created > 0 {
		e.log.Info("reminder window generated", map[string]any{
			"medication_id": m.ID,
			"created":       created,
			"interval_h":    m.IntervalHours,
		})
	}
	return nil
}
