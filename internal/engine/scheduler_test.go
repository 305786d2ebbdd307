package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medicare-reminders/internal/domain/medications"
	"medicare-reminders/internal/platform/config"
)

func TestNextDoseAt(t *testing.T) {
	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	m := medications.Medication{StartAt: start, IntervalHours: 6}

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"start in future", start.Add(-time.Hour), start},
		{"at start", start, start},
		{"mid interval", start.Add(3 * time.Hour), start.Add(6 * time.Hour)},
		{"just after slot", start.Add(6*time.Hour + time.Minute), start.Add(12 * time.Hour)},
		{"exact slot boundary", start.Add(12 * time.Hour), start.Add(12 * time.Hour)},
		{"days later", start.Add(50 * time.Hour), start.Add(54 * time.Hour)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := NextDoseAt(m, c.now)
			require.True(t, got.Equal(c.want), "got %v want %v", got, c.want)
		})
	}
}

func TestEngine_ScheduleMedication_GeneratesWindow(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.Window = 24 * time.Hour

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, cfg, now)

	med := medications.Medication{
		ID: "med-1", Name: "Enalapril", Quantity: 30,
		IntervalHours: 6, StartAt: now, Active: true, CreatedAt: now,
	}
	f.seedMedication(t, med)

	require.NoError(t, f.eng.ScheduleMedication(context.Background(), med))

	rems, err := f.remRepo.ListByMedication(context.Background(), "med-1", true)
	require.NoError(t, err)
	require.Len(t, rems, 4)

	// 08:00, 14:00, 20:00 y 02:00 del día siguiente.
	for i, wantHour := range []int{8, 14, 20, 2} {
		require.Equal(t, wantHour, rems[i].OriginalAt.Hour(), "slot %d", i)
		require.True(t, rems[i].ScheduledAt.Equal(rems[i].OriginalAt))
		require.Equal(t, 0, rems[i].Postponements)
	}
}

func TestEngine_ScheduleMedication_IsIdempotent(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.Window = 24 * time.Hour

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, cfg, now)

	med := medications.Medication{
		ID: "med-1", Name: "Enalapril", Quantity: 30,
		IntervalHours: 6, StartAt: now, Active: true, CreatedAt: now,
	}
	f.seedMedication(t, med)

	require.NoError(t, f.eng.ScheduleMedication(context.Background(), med))
	require.NoError(t, f.eng.ScheduleMedication(context.Background(), med))

	rems, err := f.remRepo.ListByMedication(context.Background(), "med-1", false)
	require.NoError(t, err)
	require.Len(t, rems, 4, "regenerating the window must not duplicate slots")
}

func TestEngine_ScheduleMedication_KeepsPostponedSlot(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.Window = 24 * time.Hour

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, cfg, now)

	med := medications.Medication{
		ID: "med-1", Name: "Enalapril", Quantity: 30,
		IntervalHours: 6, StartAt: now, Active: true, CreatedAt: now,
	}
	f.seedMedication(t, med)
	require.NoError(t, f.eng.ScheduleMedication(context.Background(), med))

	// El usuario posterga el slot de las 08:00.
	first, err := f.remRepo.FindBySlot(context.Background(), "med-1", now)
	require.NoError(t, err)
	_, err = f.rems.Postpone(context.Background(), first.ID, "user")
	require.NoError(t, err)

	require.NoError(t, f.eng.ScheduleMedication(context.Background(), med))

	// La regeneración respeta el slot corrido: no lo duplica ni lo pisa.
	got, err := f.remRepo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.Postponements)

	all, err := f.remRepo.ListByMedication(context.Background(), "med-1", false)
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestEngine_ScheduleMedication_InactiveIsNoop(t *testing.T) {
	cfg := config.DefaultEngine()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, cfg, now)

	med := medications.Medication{
		ID: "med-1", Name: "Enalapril", Quantity: 30,
		IntervalHours: 6, StartAt: now, Active: false, CreatedAt: now,
	}
	f.seedMedication(t, med)

	require.NoError(t, f.eng.ScheduleMedication(context.Background(), med))

	rems, err := f.remRepo.ListByMedication(context.Background(), "med-1", false)
	require.NoError(t, err)
	require.Empty(t, rems)
}
