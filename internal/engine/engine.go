package engine

import (
	"context"
	"fmt"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"

	"medicare-reminders/internal/domain/escalations"
	"medicare-reminders/internal/domain/medications"
	"medicare-reminders/internal/domain/reminders"
	"medicare-reminders/internal/platform/config"
	"medicare-reminders/internal/platform/logger"
	"medicare-reminders/internal/ports/notify"
)

// Events son los callbacks del motor hacia la capa de UI.
type Events interface {
	ReminderFired(rem reminders.Reminder)
}

// Engine reemplaza al AlarmManager del sistema operativo: arma los wake-ups
// de recordatorios y niveles de escalamiento con timers propios del proceso.
// Los timers son una optimización; la fuente de verdad para avanzar es el
// estado durable más el barrido de reconciliación (sweeper.go).
type Engine struct {
	cfg config.Engine
	clk clock.Clock
	log logger.Logger

	meds    *medications.Service
	rems    *reminders.Service
	remRepo reminders.Repository
	esc     *escalations.Controller

	dispatcher notify.Dispatcher
	events     Events // opcional

	timers *timerSet
}

func New(
	cfg config.Engine,
	clk clock.Clock,
	log logger.Logger,
	meds *medications.Service,
	rems *reminders.Service,
	remRepo reminders.Repository,
	esc *escalations.Controller,
	dispatcher notify.Dispatcher,
) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{
		cfg:        cfg,
		clk:        clk,
		log:        log,
		meds:       meds,
		rems:       rems,
		remRepo:    remRepo,
		esc:        esc,
		dispatcher: dispatcher,
		timers:     newTimerSet(),
	}
}

func (e *Engine) SetEvents(ev Events) { e.events = ev }

// Run rehidrata timers desde el estado durable y corre el barrido periódico
// hasta que el contexto se cancele.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Rehydrate(ctx); err != nil {
		return errors.Wrap(err, "rehydrate")
	}

	e.runSweeper(ctx)

	e.timers.stopAll()
	return nil
}

// Rehydrate reconstruye los timers perdidos en un reinicio: extiende las
// ventanas de generación, rearma los recordatorios pendientes y los próximos
// niveles de las campañas activas.
func (e *Engine) Rehydrate(ctx context.Context) error {
	meds, err := e.meds.ListActive(ctx)
	if err != nil {
		return errors.Wrap(err, "list active medications")
	}
	for _, m := range meds {
		if err := e.ScheduleMedication(ctx, m); err != nil {
			e.log.Error("schedule on rehydrate failed", map[string]any{"medication_id": m.ID, "err": err.Error()})
		}
	}

	pending, err := e.remRepo.ListPending(ctx)
	if err != nil {
		return errors.Wrap(err, "list pending reminders")
	}
	for _, r := range pending {
		e.ArmReminder(r)
	}

	campaigns, err := e.esc.ListActive(ctx)
	if err != nil {
		return errors.Wrap(err, "list active campaigns")
	}
	for _, c := range campaigns {
		e.armNextLevel(c)
	}

	e.log.Info("engine rehydrated", map[string]any{
		"medications": len(meds),
		"reminders":   len(pending),
		"campaigns":   len(campaigns),
	})
	return nil
}

// ArmReminder arma el wake-up del recordatorio. Implementa el lado del motor
// de reminders.Scheduler.
func (e *Engine) ArmReminder(r reminders.Reminder) {
	if r.Completed {
		return
	}
	d := r.ScheduledAt.Sub(e.clk.Now())
	e.timers.arm("rem:"+r.ID, d, func() { e.fireReminder(r.ID) })
}

// DisarmReminder desarma todos los timers del recordatorio. Se invoca en el
// instante en que una acción explícita lo resuelve, para invalidar el
// auto-postergado pendiente.
func (e *Engine) DisarmReminder(id string) {
	e.timers.disarm("rem:" + id)
	e.timers.disarm("auto:" + id)
	e.timers.disarm("esc-start:" + id)
}

// fireReminder es el callback del wake-up: Scheduled → Fired. Relee el estado
// durable antes de actuar; un timer viejo sobre un recordatorio resuelto es
// un no-op.
func (e *Engine) fireReminder(id string) {
	ctx := context.Background()

	rem, err := e.rems.GetByID(ctx, id)
	if err != nil {
		e.log.Warn("fired reminder not found", map[string]any{"reminder_id": id})
		return
	}
	if rem.Completed {
		return
	}

	medName := "su medicamento"
	if med, err := e.meds.GetByID(ctx, rem.MedicationID); err == nil {
		if !med.Active {
			return
		}
		medName = med.Name
	}

	alertErr := e.dispatcher.PlayAlert(ctx, notify.Alert{
		MedicationID:   rem.MedicationID,
		MedicationName: medName,
		Urgency:        notify.UrgencyNormal,
		Speech:         fmt.Sprintf("Es hora de tomar su medicamento %s. Debe tomar una dosis de una unidad.", medName),
	})
	if alertErr != nil {
		e.log.Warn("reminder alert failed", map[string]any{"reminder_id": id, "err": alertErr.Error()})
	}

	e.log.Info("reminder fired", map[string]any{"reminder_id": id, "medication": medName})
	if e.events != nil {
		e.events.ReminderFired(rem)
	}

	// Fallback si el usuario no hace nada en la ventana corta.
	e.timers.arm("auto:"+id, e.cfg.AutoPostponeAfter, func() { e.autoPostpone(id) })

	// El escalamiento arranca cuando el atraso desde la hora original cruza
	// el umbral, sin importar cuántas veces se haya postergado.
	startAt := rem.OriginalAt.Add(e.cfg.EscalationStart)
	e.timers.arm("esc-start:"+id, startAt.Sub(e.clk.Now()), func() { e.startEscalation(id) })
}

// autoPostpone es el timeout de 30s sin respuesta: Fired → Postponed.
func (e *Engine) autoPostpone(id string) {
	ctx := context.Background()

	rem, err := e.rems.Postpone(ctx, id, reminders.PostponeAuto)
	if err != nil {
		if !errors.Is(err, reminders.ErrAlreadyResolved) {
			e.log.Error("auto-postpone failed", map[string]any{"reminder_id": id, "err": err.Error()})
		}
		return
	}

	e.log.Info("reminder auto-postponed", map[string]any{
		"reminder_id":   id,
		"postponements": rem.Postponements,
		"rearmed_at":    rem.ScheduledAt,
	})
	e.ArmReminder(rem)
}

func (e *Engine) startEscalation(id string) {
	ctx := context.Background()

	rem, err := e.rems.GetByID(ctx, id)
	if err != nil || rem.Completed {
		return
	}

	camp, started, err := e.esc.EnsureStarted(ctx, rem)
	if err != nil {
		e.log.Error("escalation start failed", map[string]any{"reminder_id": id, "err": err.Error()})
		return
	}
	if started {
		e.armNextLevel(camp)
	}
}

func (e *Engine) armNextLevel(c escalations.Campaign) {
	if c.Completed || c.Level >= escalations.LevelCall {
		return
	}
	e.timers.arm("esc:"+c.ID, e.cfg.LevelStep, func() { e.advanceCampaign(c.ID) })
}

func (e *Engine) advanceCampaign(id string) {
	ctx := context.Background()

	camp, more, err := e.esc.Advance(ctx, id)
	if err != nil {
		e.log.Error("escalation advance failed", map[string]any{"campaign_id": id, "err": err.Error()})
		return
	}
	if more {
		e.armNextLevel(camp)
	}
}

// CancelMedication corta todo lo pendiente de un medicamento desactivado:
// timers, recordatorios abiertos y campañas abiertas. El historial queda.
func (e *Engine) CancelMedication(ctx context.Context, medicationID string) error {
	open, err := e.remRepo.ListByMedication(ctx, medicationID, true)
	if err != nil {
		return errors.Wrap(err, "list open reminders")
	}
	for _, r := range open {
		e.DisarmReminder(r.ID)
	}

	if err := e.esc.CancelOpenByMedication(ctx, medicationID); err != nil {
		return errors.Wrap(err, "cancel open campaigns")
	}
	if err := e.remRepo.DeleteOpenByMedication(ctx, medicationID); err != nil {
		return errors.Wrap(err, "delete open reminders")
	}

	e.log.Info("medication cancelled", map[string]any{"medication_id": medicationID, "reminders": len(open)})
	return nil
}
