package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"medicare-reminders/internal/domain/history"
	"medicare-reminders/internal/domain/medications"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	byID map[string]Reminder
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Reminder{}}
}

func (r *testRepo) Create(ctx context.Context, rem Reminder) error {
	r.byID[rem.ID] = rem
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Reminder, error) {
	rem, ok := r.byID[id]
	if !ok {
		return Reminder{}, errRepoNotFound
	}
	return rem, nil
}

func (r *testRepo) FindBySlot(ctx context.Context, medicationID string, originalAt time.Time) (Reminder, error) {
	for _, rem := range r.byID {
		if rem.MedicationID == medicationID && rem.OriginalAt.Equal(originalAt) {
			return rem, nil
		}
	}
	return Reminder{}, ErrSlotNotFound
}

func (r *testRepo) ListByMedication(ctx context.Context, medicationID string, onlyOpen bool) ([]Reminder, error) {
	out := make([]Reminder, 0)
	for _, rem := range r.byID {
		if rem.MedicationID != medicationID {
			continue
		}
		if onlyOpen && rem.Completed {
			continue
		}
		out = append(out, rem)
	}
	return out, nil
}

func (r *testRepo) ListPending(ctx context.Context) ([]Reminder, error) {
	out := make([]Reminder, 0)
	for _, rem := range r.byID {
		if !rem.Completed {
			out = append(out, rem)
		}
	}
	return out, nil
}

func (r *testRepo) ListOverdue(ctx context.Context, before time.Time) ([]Reminder, error) {
	out := make([]Reminder, 0)
	for _, rem := range r.byID {
		if !rem.Completed && !rem.NotificationSent && rem.OriginalAt.Before(before) {
			out = append(out, rem)
		}
	}
	return out, nil
}

func (r *testRepo) MarkCompleted(ctx context.Context, id string) error {
	rem, ok := r.byID[id]
	if !ok {
		return errRepoNotFound
	}
	if rem.Completed {
		return ErrAlreadyResolved
	}
	rem.Completed = true
	r.byID[id] = rem
	return nil
}

func (r *testRepo) Postpone(ctx context.Context, id string, newTime time.Time) (Reminder, error) {
	rem, ok := r.byID[id]
	if !ok {
		return Reminder{}, errRepoNotFound
	}
	if rem.Completed {
		return Reminder{}, ErrAlreadyResolved
	}
	rem.ScheduledAt = newTime
	rem.Postponements++
	r.byID[id] = rem
	return rem, nil
}

func (r *testRepo) MarkNotificationSent(ctx context.Context, id string) error {
	rem, ok := r.byID[id]
	if !ok {
		return errRepoNotFound
	}
	rem.NotificationSent = true
	r.byID[id] = rem
	return nil
}

func (r *testRepo) DeleteOpenByMedication(ctx context.Context, medicationID string) error {
	for id, rem := range r.byID {
		if rem.MedicationID == medicationID && !rem.Completed {
			delete(r.byID, id)
		}
	}
	return nil
}

type testMedsRepo struct {
	byID map[string]medications.Medication
}

func (r *testMedsRepo) Create(ctx context.Context, m medications.Medication) error {
	r.byID[m.ID] = m
	return nil
}

func (r *testMedsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, errRepoNotFound
	}
	return m, nil
}

func (r *testMedsRepo) List(ctx context.Context, onlyActive bool) ([]medications.Medication, error) {
	return nil, nil
}

func (r *testMedsRepo) SetActive(ctx context.Context, id string, active bool) error {
	m := r.byID[id]
	m.Active = active
	r.byID[id] = m
	return nil
}

func (r *testMedsRepo) AdjustQuantity(ctx context.Context, id string, delta int) (medications.Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, errRepoNotFound
	}
	m.Quantity += delta
	if m.Quantity < 0 {
		m.Quantity = 0
	}
	r.byID[id] = m
	return m, nil
}

type testHistRepo struct {
	entries []history.Entry
}

func (r *testHistRepo) Append(ctx context.Context, e history.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *testHistRepo) ListByMedication(ctx context.Context, medicationID string, filter history.ListFilter) ([]history.Entry, error) {
	return r.entries, nil
}

type testEscalator struct {
	cancelled []string
	reviewed  []Reminder
}

func (e *testEscalator) CancelActiveByReminder(ctx context.Context, reminderID string) error {
	e.cancelled = append(e.cancelled, reminderID)
	return nil
}

func (e *testEscalator) ReviewPostponed(ctx context.Context, rem Reminder) error {
	e.reviewed = append(e.reviewed, rem)
	return nil
}

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	repo *testRepo
	meds *testMedsRepo
	hist *testHistRepo
	esc  *testEscalator
	svc  *Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	repo := newTestRepo()
	medsRepo := &testMedsRepo{byID: map[string]medications.Medication{}}
	histRepo := &testHistRepo{}
	esc := &testEscalator{}

	svc := NewService(repo, medications.NewService(medsRepo), history.NewService(histRepo), 5*time.Minute)
	svc.SetEscalator(esc)
	svc.now = func() time.Time { return now }

	return &fixture{repo: repo, meds: medsRepo, hist: histRepo, esc: esc, svc: svc}
}

func (f *fixture) seed(med medications.Medication, rem Reminder) {
	f.meds.byID[med.ID] = med
	f.repo.byID[rem.ID] = rem
}

// -------------------------
// Tests
// -------------------------

func TestService_Confirm_TakesDose(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	f := newFixture(t, now)

	scheduled := now.Add(-5 * time.Minute)
	f.seed(
		medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, IntervalHours: 6, Active: true},
		Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: scheduled, OriginalAt: scheduled},
	)

	rem, err := f.svc.Confirm(context.Background(), "rem-1")
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if !rem.Completed {
		t.Fatalf("expected reminder completed")
	}

	m, _ := f.meds.GetByID(context.Background(), "med-1")
	if m.Quantity != 9 {
		t.Fatalf("expected stock 9, got %d", m.Quantity)
	}

	if len(f.esc.cancelled) != 1 || f.esc.cancelled[0] != "rem-1" {
		t.Fatalf("expected active campaign cancelled, got %v", f.esc.cancelled)
	}

	if len(f.hist.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(f.hist.entries))
	}
	e := f.hist.entries[0]
	if e.Outcome != history.OutcomeTaken {
		t.Fatalf("expected taken outcome, got %s", e.Outcome)
	}
	if e.QuantityDelta != -1 {
		t.Fatalf("expected delta -1, got %d", e.QuantityDelta)
	}
	if !e.ScheduledAt.Equal(scheduled) {
		t.Fatalf("expected history keyed by original time")
	}
	if e.RespondedAt == nil || !e.RespondedAt.Equal(now) {
		t.Fatalf("expected RespondedAt=now")
	}
}

func TestService_Confirm_Twice_ReturnsAlreadyResolved(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.seed(
		medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, Active: true},
		Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: now, OriginalAt: now},
	)

	if _, err := f.svc.Confirm(context.Background(), "rem-1"); err != nil {
		t.Fatalf("Confirm #1 error: %v", err)
	}
	if _, err := f.svc.Confirm(context.Background(), "rem-1"); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	// Sin doble descuento ni doble historial.
	m, _ := f.meds.GetByID(context.Background(), "med-1")
	if m.Quantity != 9 {
		t.Fatalf("expected stock 9 after double confirm, got %d", m.Quantity)
	}
	if len(f.hist.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(f.hist.entries))
	}
}

func TestService_Postpone_MovesScheduledKeepsOriginal(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	f := newFixture(t, now)

	original := now.Add(-5 * time.Minute)
	f.seed(
		medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, Active: true},
		Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: original, OriginalAt: original},
	)

	rem, err := f.svc.Postpone(context.Background(), "rem-1", PostponeByUser)
	if err != nil {
		t.Fatalf("Postpone error: %v", err)
	}
	if !rem.ScheduledAt.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("expected rescheduled now+5m, got %v", rem.ScheduledAt)
	}
	if !rem.OriginalAt.Equal(original) {
		t.Fatalf("OriginalAt must never move")
	}
	if rem.Postponements != 1 {
		t.Fatalf("expected 1 postponement, got %d", rem.Postponements)
	}

	// Campaña en vuelo cancelada y política de postergaciones revisada.
	if len(f.esc.cancelled) != 1 {
		t.Fatalf("expected campaign cancelled on postpone")
	}
	if len(f.esc.reviewed) != 1 || f.esc.reviewed[0].Postponements != 1 {
		t.Fatalf("expected ReviewPostponed with updated reminder, got %v", f.esc.reviewed)
	}

	// Registro de auditoría (sin delta de stock).
	if len(f.hist.entries) != 1 || f.hist.entries[0].Outcome != history.OutcomePostponed {
		t.Fatalf("expected postponed history entry")
	}
	if f.hist.entries[0].QuantityDelta != 0 {
		t.Fatalf("expected zero stock delta on postpone")
	}

	// El stock no se toca.
	m, _ := f.meds.GetByID(context.Background(), "med-1")
	if m.Quantity != 10 {
		t.Fatalf("expected stock untouched, got %d", m.Quantity)
	}
}

func TestService_Postpone_AccumulatesCounter(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	f := newFixture(t, now)

	original := now.Add(-20 * time.Minute)
	f.seed(
		medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, Active: true},
		Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: original, OriginalAt: original},
	)

	for i := 1; i <= 4; i++ {
		rem, err := f.svc.Postpone(context.Background(), "rem-1", PostponeAuto)
		if err != nil {
			t.Fatalf("Postpone #%d error: %v", i, err)
		}
		if rem.Postponements != i {
			t.Fatalf("expected %d postponements, got %d", i, rem.Postponements)
		}
	}
	if len(f.esc.reviewed) != 4 {
		t.Fatalf("expected policy reviewed after each postpone, got %d", len(f.esc.reviewed))
	}
}

func TestService_Postpone_Resolved_ReturnsAlreadyResolved(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	f := newFixture(t, now)

	f.seed(
		medications.Medication{ID: "med-1", Name: "Enalapril", Quantity: 10, Active: true},
		Reminder{ID: "rem-1", MedicationID: "med-1", ScheduledAt: now, OriginalAt: now, Completed: true},
	)

	if _, err := f.svc.Postpone(context.Background(), "rem-1", PostponeByUser); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}
