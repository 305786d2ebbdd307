package escalations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medicare-reminders/internal/domain/history"
	"medicare-reminders/internal/domain/medications"
	"medicare-reminders/internal/domain/reminders"
	"medicare-reminders/internal/platform/logger"
	"medicare-reminders/internal/ports/notify"
)

var ErrNoActiveCampaign = errors.New("no active campaign")

// Timings son los umbrales de la escalera: arranque a los 15 min de la hora
// original, un nivel cada 15 min, y llamada forzada a los 60 min cuando hay
// 4+ postergaciones.
type Timings struct {
	Start            time.Duration
	Step             time.Duration
	ForceCallElapsed time.Duration
}

// Events son los callbacks tipados hacia la capa de UI.
type Events interface {
	EscalationLevelReached(c Campaign, level int)
}

// Controller maneja campañas de escalamiento sobre recordatorios sin
// respuesta. Cada nivel se ejecuta una sola vez por campaña (el nivel es
// monótono y el CAS del repo arbitra transiciones concurrentes); las fallas
// de despacho se loguean y nunca frenan el avance.
type Controller struct {
	repo Repository
	rems reminders.Repository
	meds *medications.Service
	hist *history.Service

	dispatcher notify.Dispatcher
	contacts   notify.ContactResolver

	events Events // opcional

	log     logger.Logger
	timings Timings
	patient string
	now     func() time.Time
}

func NewController(
	repo Repository,
	rems reminders.Repository,
	meds *medications.Service,
	hist *history.Service,
	dispatcher notify.Dispatcher,
	contacts notify.ContactResolver,
	log logger.Logger,
	timings Timings,
	patientName string,
) *Controller {
	if timings.Start <= 0 {
		timings.Start = 15 * time.Minute
	}
	if timings.Step <= 0 {
		timings.Step = 15 * time.Minute
	}
	if timings.ForceCallElapsed <= 0 {
		timings.ForceCallElapsed = 60 * time.Minute
	}
	if patientName == "" {
		patientName = "El paciente"
	}
	return &Controller{
		repo:       repo,
		rems:       rems,
		meds:       meds,
		hist:       hist,
		dispatcher: dispatcher,
		contacts:   contacts,
		log:        log,
		timings:    timings,
		patient:    patientName,
		now:        time.Now,
	}
}

func (c *Controller) SetEvents(ev Events) { c.events = ev }

// TargetLevel calcula hasta qué nivel debería haber llegado una campaña según
// el tiempo transcurrido desde la hora original. 0 = todavía no corresponde.
func (c *Controller) TargetLevel(elapsed time.Duration) int {
	if elapsed < c.timings.Start {
		return 0
	}
	lvl := 1 + int((elapsed-c.timings.Start)/c.timings.Step)
	if lvl > LevelCall {
		lvl = LevelCall
	}
	return lvl
}

// EnsureStarted arranca la campaña del recordatorio si no existe, ejecutando
// el nivel 1. Si ya hay una activa la devuelve tal cual. started=false si el
// recordatorio ya estaba resuelto.
func (c *Controller) EnsureStarted(ctx context.Context, rem reminders.Reminder) (Campaign, bool, error) {
	if rem.Completed {
		return Campaign{}, false, nil
	}

	camp, created, err := c.ensureCampaign(ctx, rem)
	if err != nil {
		return Campaign{}, false, err
	}
	if !created {
		return camp, true, nil
	}

	if err := c.runLevel(ctx, &camp, LevelFirstAlert, rem); err != nil && !errors.Is(err, ErrStale) {
		return camp, true, err
	}
	return camp, true, nil
}

// Advance ejecuta el siguiente nivel de la campaña, con guard read del estado
// persistido inmediatamente antes de actuar: un timer viejo que dispare sobre
// una campaña cerrada o un recordatorio ya resuelto es un no-op.
// more=false cuando la campaña terminó.
func (c *Controller) Advance(ctx context.Context, campaignID string) (Campaign, bool, error) {
	camp, err := c.repo.GetByID(ctx, campaignID)
	if err != nil {
		return Campaign{}, false, err
	}
	if camp.Completed {
		return camp, false, nil
	}

	rem, err := c.rems.GetByID(ctx, camp.ReminderID)
	if err != nil || rem.Completed {
		// Recordatorio resuelto o eliminado (medicamento desactivado):
		// la campaña se cierra sin despachar nada.
		if cerr := c.repo.Complete(ctx, camp.ID); cerr != nil {
			return camp, false, cerr
		}
		camp.Completed = true
		return camp, false, nil
	}

	next := camp.Level + 1
	if next > LevelCall {
		if err := c.repo.Complete(ctx, camp.ID); err != nil {
			return camp, false, err
		}
		camp.Completed = true
		return camp, false, nil
	}

	if err := c.runLevel(ctx, &camp, next, rem); err != nil {
		if errors.Is(err, ErrStale) {
			reloaded, gerr := c.repo.GetByID(ctx, camp.ID)
			if gerr != nil {
				return camp, false, gerr
			}
			return reloaded, !reloaded.Completed && reloaded.Level < LevelCall, nil
		}
		return camp, false, err
	}

	return camp, !camp.Completed && camp.Level < LevelCall, nil
}

// CatchUp repite las decisiones que los timers en memoria habrían tomado:
// asegura la campaña y avanza hasta el nivel que corresponde al tiempo
// transcurrido. Es el camino del barrido de reconciliación; sobre un
// recordatorio ya resuelto es un no-op.
func (c *Controller) CatchUp(ctx context.Context, rem reminders.Reminder, now time.Time) (Campaign, bool, error) {
	if rem.Completed {
		return Campaign{}, false, nil
	}

	target := c.TargetLevel(rem.Elapsed(now))
	if target < 1 {
		return Campaign{}, false, nil
	}

	camp, started, err := c.EnsureStarted(ctx, rem)
	if err != nil || !started {
		return camp, false, err
	}

	for camp.Level < target && !camp.Completed {
		next, more, err := c.Advance(ctx, camp.ID)
		if err != nil {
			return camp, false, err
		}
		camp = next
		if !more {
			break
		}
	}

	return camp, !camp.Completed && camp.Level < LevelCall, nil
}

// ForceLevel salta la campaña directo al nivel pedido (acelerador por
// postergaciones repetidas). No repite niveles ya ejecutados ni re-notifica
// a un contacto ya notificado; los niveles locales intermedios se omiten.
func (c *Controller) ForceLevel(ctx context.Context, rem reminders.Reminder, level int) (Campaign, error) {
	if rem.Completed {
		return Campaign{}, nil
	}
	if level == LevelMessage && rem.NotificationSent {
		return Campaign{}, nil
	}

	camp, _, err := c.ensureCampaign(ctx, rem)
	if err != nil {
		return Campaign{}, err
	}
	if camp.Completed || camp.Level >= level {
		return camp, nil
	}

	if err := c.runLevel(ctx, &camp, level, rem); err != nil && !errors.Is(err, ErrStale) {
		return camp, err
	}
	return camp, nil
}

// ReviewPostponed aplica la política de postergaciones repetidas después de
// cada postergación: >=4 postergaciones con 60+ min fuerza la llamada; >=3
// permite el mensaje aunque la escalera no haya llegado sola al nivel 3.
func (c *Controller) ReviewPostponed(ctx context.Context, rem reminders.Reminder) error {
	elapsed := rem.Elapsed(c.now())

	switch {
	case rem.Postponements >= 4 && elapsed >= c.timings.ForceCallElapsed:
		_, err := c.ForceLevel(ctx, rem, LevelCall)
		return err
	case rem.Postponements >= 3:
		_, err := c.ForceLevel(ctx, rem, LevelMessage)
		return err
	}
	return nil
}

// CancelActiveByReminder cierra la campaña activa del recordatorio (dosis
// confirmada o postergada). Sin campaña activa es un no-op.
func (c *Controller) CancelActiveByReminder(ctx context.Context, reminderID string) error {
	return c.repo.CompleteActiveByReminder(ctx, reminderID)
}

func (c *Controller) CancelOpenByMedication(ctx context.Context, medicationID string) error {
	return c.repo.CompleteOpenByMedication(ctx, medicationID)
}

func (c *Controller) GetActiveByReminder(ctx context.Context, reminderID string) (Campaign, error) {
	return c.repo.GetActiveByReminder(ctx, reminderID)
}

func (c *Controller) ListActive(ctx context.Context) ([]Campaign, error) {
	return c.repo.ListActive(ctx)
}

// ensureCampaign devuelve la campaña activa del recordatorio, creándola en
// nivel 0 si no existe. created indica si la creó esta llamada.
func (c *Controller) ensureCampaign(ctx context.Context, rem reminders.Reminder) (Campaign, bool, error) {
	camp, err := c.repo.GetActiveByReminder(ctx, rem.ID)
	if err == nil {
		return camp, false, nil
	}
	if !errors.Is(err, ErrNoActiveCampaign) {
		return Campaign{}, false, err
	}

	camp = Campaign{
		ID:           uuid.NewString(),
		MedicationID: rem.MedicationID,
		ReminderID:   rem.ID,
		Level:        0,
		CreatedAt:    c.now(),
	}
	if err := c.repo.Create(ctx, camp); err != nil {
		// Carrera de creación: otro caller la creó primero.
		if existing, gerr := c.repo.GetActiveByReminder(ctx, rem.ID); gerr == nil {
			return existing, false, nil
		}
		return Campaign{}, false, err
	}
	return camp, true, nil
}

// runLevel sube el nivel con CAS y recién entonces ejecuta la acción. El
// perdedor del CAS recibe ErrStale y no despacha nada.
func (c *Controller) runLevel(ctx context.Context, camp *Campaign, level int, rem reminders.Reminder) error {
	if err := c.repo.AdvanceLevel(ctx, camp.ID, camp.Level, level); err != nil {
		return err
	}
	camp.Level = level

	medName := "su medicamento"
	if med, err := c.meds.GetByID(ctx, camp.MedicationID); err == nil {
		medName = med.Name
	}

	notified := false
	switch level {
	case LevelFirstAlert:
		c.playUrgent(ctx, camp.MedicationID, medName,
			fmt.Sprintf("Atención. No has tomado tu medicamento %s. Es muy importante que lo tomes ahora.", medName))
	case LevelSecondAlert:
		c.playUrgent(ctx, camp.MedicationID, medName,
			fmt.Sprintf("Alerta médica. Esta es la segunda vez que insistimos. Debes tomar tu medicamento %s inmediatamente. Tu salud está en riesgo.", medName))
	case LevelMessage:
		notified = c.sendContactMessage(ctx, rem, medName)
	case LevelCall:
		notified = c.placeContactCall(ctx, medName)
	}

	if notified {
		if err := c.rems.MarkNotificationSent(ctx, rem.ID); err != nil {
			c.log.Warn("failed to mark notification sent", map[string]any{"reminder_id": rem.ID, "err": err.Error()})
		}
	}

	if level == LevelCall {
		if err := c.repo.Complete(ctx, camp.ID); err != nil {
			return err
		}
		camp.Completed = true

		// Desenlace terminal: la toma queda cerrada como no resuelta.
		if err := c.rems.MarkCompleted(ctx, rem.ID); err != nil && !errors.Is(err, reminders.ErrAlreadyResolved) {
			return err
		}
		if _, err := c.hist.RecordEscalated(ctx, camp.MedicationID, rem.OriginalAt); err != nil {
			return err
		}
	}

	if c.events != nil {
		c.events.EscalationLevelReached(*camp, level)
	}
	return nil
}

func (c *Controller) playUrgent(ctx context.Context, medicationID, medName, speech string) {
	err := c.dispatcher.PlayAlert(ctx, notify.Alert{
		MedicationID:   medicationID,
		MedicationName: medName,
		Urgency:        notify.UrgencyUrgent,
		Speech:         speech,
	})
	if err != nil {
		c.log.Warn("local alert failed", map[string]any{"medication": medName, "err": err.Error()})
	}
}

// sendContactMessage despacha el mensaje al contacto de emergencia.
// Devuelve true si hubo intento de envío (las fallas de entrega no se
// reintentan en el mismo nivel). Sin contacto configurado el nivel queda sin
// acción y se reporta: es el único caso relevante para la seguridad.
func (c *Controller) sendContactMessage(ctx context.Context, rem reminders.Reminder, medName string) bool {
	contact, err := c.contacts.EmergencyContact(ctx)
	if err != nil {
		c.log.Error("cannot send emergency message", map[string]any{"medication": medName, "err": err.Error()})
		return false
	}

	elapsedMin := int(rem.Elapsed(c.now()).Minutes())
	text := fmt.Sprintf(
		"🚨 ALERTA MEDICAMENTO 🚨\n\n"+
			"%s no ha tomado su medicamento:\n"+
			"💊 Medicamento: %s\n"+
			"⏰ Hora programada: %s\n"+
			"⏱️ Tiempo transcurrido: %d minutos\n"+
			"📊 Postergaciones: %d\n\n"+
			"Por favor, contacte al usuario para verificar su estado.\n\n"+
			"Contacto de emergencia: %s",
		c.patient, medName, rem.OriginalAt.Format("02/01/2006 15:04"),
		elapsedMin, rem.Postponements, contact.Name,
	)

	// Fire-and-forget: el siguiente nivel corre en su propio timer aunque
	// este envío siga en vuelo o falle.
	go func(ctx context.Context) {
		if err := c.dispatcher.SendMessage(ctx, contact, text); err != nil {
			c.log.Error("emergency message dispatch failed", map[string]any{"contact": contact.Name, "err": err.Error()})
		} else {
			c.log.Info("emergency message sent", map[string]any{"contact": contact.Name, "medication": medName})
		}
	}(context.WithoutCancel(ctx))

	return true
}

func (c *Controller) placeContactCall(ctx context.Context, medName string) bool {
	contact, err := c.contacts.EmergencyContact(ctx)
	if err != nil {
		c.log.Error("cannot place emergency call", map[string]any{"medication": medName, "err": err.Error()})
		return false
	}

	go func(ctx context.Context) {
		if err := c.dispatcher.PlaceCall(ctx, contact); err != nil {
			c.log.Error("emergency call dispatch failed", map[string]any{"contact": contact.Name, "err": err.Error()})
		} else {
			c.log.Info("emergency call placed", map[string]any{"contact": contact.Name, "medication": medName})
		}
	}(context.WithoutCancel(ctx))

	return true
}
