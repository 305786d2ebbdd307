package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"medicare-reminders/internal/domain/escalations"
)

// runSweeper corre el barrido de reconciliación en su propia cadencia hasta
// que el contexto se cancele.
func (e *Engine) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := e.SweepOnce(ctx); err != nil {
				e.log.Error("sweep failed", map[string]any{"err": err.Error()})
			} else if n > 0 {
				e.log.Info("sweep acted on overdue reminders", map[string]any{"count": n})
			}
		}
	}
}

// SweepOnce es el barrido de reconciliación: relee del store todos los
// recordatorios abiertos, atrasados y sin notificación enviada, y repite la
// decisión de escalamiento que los timers habrían tomado. No depende de
// ningún timer en memoria: es lo que garantiza avance después de un
// reinicio. Sobre un recordatorio ya resuelto es un no-op.
func (e *Engine) SweepOnce(ctx context.Context) (int, error) {
	now := e.clk.Now()

	overdue, err := e.remRepo.ListOverdue(ctx, now.Add(-e.cfg.SweepAfter))
	if err != nil {
		return 0, errors.Wrap(err, "list overdue reminders")
	}

	acted := 0
	for _, rem := range overdue {
		if rem.Completed || rem.NotificationSent {
			continue
		}

		var camp escalations.Campaign

		switch {
		case rem.Postponements >= 4 && rem.Elapsed(now) >= e.cfg.ForceCallElapsed:
			camp, err = e.esc.ForceLevel(ctx, rem, escalations.LevelCall)
		case rem.Postponements >= 3:
			camp, err = e.esc.ForceLevel(ctx, rem, escalations.LevelMessage)
		default:
			camp, _, err = e.esc.CatchUp(ctx, rem, now)
		}
		if err != nil {
			e.log.Error("sweep escalation failed", map[string]any{"reminder_id": rem.ID, "err": err.Error()})
			continue
		}

		if camp.ID != "" {
			e.armNextLevel(camp)
		}

		if err := e.remRepo.MarkNotificationSent(ctx, rem.ID); err != nil {
			e.log.Warn("sweep mark notification failed", map[string]any{"reminder_id": rem.ID, "err": err.Error()})
			continue
		}
		acted++
	}

	return acted, nil
}
