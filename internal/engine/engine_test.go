package engine

import (
	"context"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/require"

	mem "medicare-reminders/internal/adapters/storage/memory"
	"medicare-reminders/internal/domain/escalations"
	"medicare-reminders/internal/domain/history"
	"medicare-reminders/internal/domain/medications"
	"medicare-reminders/internal/domain/reminders"
	"medicare-reminders/internal/platform/config"
	"medicare-reminders/internal/platform/logger"
	"medicare-reminders/internal/ports/notify"
)

// -------------------------
// Fakes
// -------------------------

type testDispatcher struct {
	alerts   chan notify.Alert
	messages chan string
	calls    chan notify.Contact
}

func newTestDispatcher() *testDispatcher {
	return &testDispatcher{
		alerts:   make(chan notify.Alert, 16),
		messages: make(chan string, 16),
		calls:    make(chan notify.Contact, 16),
	}
}

func (d *testDispatcher) PlayAlert(ctx context.Context, a notify.Alert) error {
	d.alerts <- a
	return nil
}

func (d *testDispatcher) SendMessage(ctx context.Context, contact notify.Contact, text string) error {
	d.messages <- text
	return nil
}

func (d *testDispatcher) PlaceCall(ctx context.Context, contact notify.Contact) error {
	d.calls <- contact
	return nil
}

type testContacts struct{}

func (testContacts) EmergencyContact(ctx context.Context) (notify.Contact, error) {
	return notify.Contact{Name: "María", Phone: "+5491100000000"}, nil
}

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	clk clock.FakeClock
	cfg config.Engine

	medsRepo medications.Repository
	remRepo  reminders.Repository
	escRepo  escalations.Repository
	histRepo history.Repository

	meds *medications.Service
	rems *reminders.Service
	hist *history.Service
	esc  *escalations.Controller

	dispatcher *testDispatcher
	eng        *Engine
}

func newFixture(t *testing.T, cfg config.Engine, now time.Time) *fixture {
	t.Helper()

	clk := clock.NewFake()
	clk.Set(now)

	medsRepo := mem.NewMedicationsRepo()
	remRepo := mem.NewRemindersRepo()
	escRepo := mem.NewEscalationsRepo()
	histRepo := mem.NewHistoryRepo()

	medsSvc := medications.NewService(medsRepo)
	histSvc := history.NewService(histRepo)
	remsSvc := reminders.NewService(remRepo, medsSvc, histSvc, cfg.PostponeDelay)

	dispatcher := newTestDispatcher()
	log := logger.New(logger.Options{Level: logger.Error})

	ctl := escalations.NewController(
		escRepo, remRepo, medsSvc, histSvc,
		dispatcher, testContacts{}, log,
		escalations.Timings{
			Start:            cfg.EscalationStart,
			Step:             cfg.LevelStep,
			ForceCallElapsed: cfg.ForceCallElapsed,
		},
		"Don José",
	)
	remsSvc.SetEscalator(ctl)

	eng := New(cfg, clk, log, medsSvc, remsSvc, remRepo, ctl, dispatcher)
	t.Cleanup(eng.timers.stopAll)

	return &fixture{
		clk: clk, cfg: cfg,
		medsRepo: medsRepo, remRepo: remRepo, escRepo: escRepo, histRepo: histRepo,
		meds: medsSvc, rems: remsSvc, hist: histSvc, esc: ctl,
		dispatcher: dispatcher, eng: eng,
	}
}

func (f *fixture) seedMedication(t *testing.T, m medications.Medication) {
	t.Helper()
	require.NoError(t, f.medsRepo.Create(context.Background(), m))
}

func (f *fixture) seedReminder(t *testing.T, rem reminders.Reminder) {
	t.Helper()
	require.NoError(t, f.remRepo.Create(context.Background(), rem))
}

// -------------------------
// Tests
// -------------------------

func TestEngine_FireReminder_PlaysAlertAndAutoPostpones(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.AutoPostponeAfter = 30 * time.Millisecond

	now := time.Now()
	f := newFixture(t, cfg, now)

	f.seedMedication(t, medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, IntervalHours: 6, Active: true, StartAt: now})
	f.seedReminder(t, reminders.Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: now, OriginalAt: now, CreatedAt: now})

	f.eng.ArmReminder(reminders.Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: now, OriginalAt: now})

	select {
	case a := <-f.dispatcher.alerts:
		require.Equal(t, notify.UrgencyNormal, a.Urgency)
		require.Contains(t, a.Speech, "Enalapril")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reminder alert")
	}

	// Sin respuesta en la ventana corta: auto-postergado (contador +1,
	// hora original intacta).
	require.Eventually(t, func() bool {
		rem, err := f.remRepo.GetByID(context.Background(), "rem-1")
		return err == nil && rem.Postponements == 1
	}, time.Second, 10*time.Millisecond)

	rem, err := f.remRepo.GetByID(context.Background(), "rem-1")
	require.NoError(t, err)
	require.True(t, rem.OriginalAt.Equal(now))
	require.False(t, rem.Completed)
}

func TestEngine_ConfirmBeforeTimeout_StopsAutoPostpone(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.AutoPostponeAfter = 50 * time.Millisecond

	now := time.Now()
	f := newFixture(t, cfg, now)

	f.seedMedication(t, medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, IntervalHours: 6, Active: true, StartAt: now})
	f.seedReminder(t, reminders.Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: now, OriginalAt: now, CreatedAt: now})

	f.eng.ArmReminder(reminders.Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: now, OriginalAt: now})

	select {
	case <-f.dispatcher.alerts:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reminder alert")
	}

	_, err := f.rems.Confirm(context.Background(), "rem-1")
	require.NoError(t, err)
	f.eng.DisarmReminder("rem-1")

	// Aunque el timer de auto-postergado llegara a disparar, pierde el CAS
	// y no toca nada.
	time.Sleep(150 * time.Millisecond)

	rem, err := f.remRepo.GetByID(context.Background(), "rem-1")
	require.NoError(t, err)
	require.True(t, rem.Completed)
	require.Equal(t, 0, rem.Postponements)

	m, err := f.medsRepo.GetByID(context.Background(), "med-1")
	require.NoError(t, err)
	require.Equal(t, 9, m.Quantity)
}

func TestEngine_FireReminder_InactiveMedication_IsNoop(t *testing.T) {
	cfg := config.DefaultEngine()
	now := time.Now()
	f := newFixture(t, cfg, now)

	f.seedMedication(t, medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, IntervalHours: 6, Active: false, StartAt: now})
	f.seedReminder(t, reminders.Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: now, OriginalAt: now, CreatedAt: now})

	f.eng.fireReminder("rem-1")

	select {
	case <-f.dispatcher.alerts:
		t.Fatal("expected no alert for inactive medication")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEngine_Rehydrate_RearmsTimers(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.Window = 24 * time.Hour

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, cfg, now)

	f.seedMedication(t, medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, IntervalHours: 6, Active: true, StartAt: now.Add(time.Hour), CreatedAt: now})
	f.seedReminder(t, reminders.Reminder{ID: "rem-old", MedicationID: "med-1", ScheduledAt: now.Add(-time.Hour), OriginalAt: now.Add(-time.Hour), CreatedAt: now})
	require.NoError(t, f.escRepo.Create(context.Background(), escalations.Campaign{
		ID: "camp-1", MedicationID: "med-1", ReminderID: "rem-old", Level: 1, CreatedAt: now,
	}))

	require.NoError(t, f.eng.Rehydrate(context.Background()))

	// Ventana generada + recordatorio pendiente + próximo nivel de campaña.
	require.Greater(t, f.eng.timers.len(), 1)

	open, err := f.remRepo.ListByMedication(context.Background(), "med-1", true)
	require.NoError(t, err)
	require.NotEmpty(t, open)
}

func TestEngine_CancelMedication_CutsEverythingOpen(t *testing.T) {
	cfg := config.DefaultEngine()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, cfg, now)

	f.seedMedication(t, medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, IntervalHours: 6, Active: true, StartAt: now})
	f.seedReminder(t, reminders.Reminder{ID: "rem-open", MedicationID: "med-1", ScheduledAt: now.Add(time.Hour), OriginalAt: now.Add(time.Hour), CreatedAt: now})
	f.seedReminder(t, reminders.Reminder{ID: "rem-done", MedicationID: "med-1", ScheduledAt: now.Add(-time.Hour), OriginalAt: now.Add(-time.Hour), Completed: true, CreatedAt: now})
	require.NoError(t, f.escRepo.Create(context.Background(), escalations.Campaign{
		ID: "camp-1", MedicationID: "med-1", ReminderID: "rem-open", Level: 1, CreatedAt: now,
	}))

	// Historial previo que debe sobrevivir.
	_, err := f.hist.RecordTaken(context.Background(), "med-1", now.Add(-time.Hour), now.Add(-time.Hour), 1)
	require.NoError(t, err)

	require.NoError(t, f.eng.CancelMedication(context.Background(), "med-1"))

	open, err := f.remRepo.ListByMedication(context.Background(), "med-1", true)
	require.NoError(t, err)
	require.Empty(t, open)

	// El resuelto queda como registro.
	all, err := f.remRepo.ListByMedication(context.Background(), "med-1", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Completed)

	active, err := f.escRepo.ListActive(context.Background())
	require.NoError(t, err)
	require.Empty(t, active)

	entries, err := f.hist.ListByMedication(context.Background(), "med-1", history.ListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
