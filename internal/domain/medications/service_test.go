package medications

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	byID map[string]Medication
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Medication{}}
}

func (r *testRepo) Create(ctx context.Context, m Medication) error {
	if m.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[m.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return Medication{}, errRepoNotFound
	}
	return m, nil
}

func (r *testRepo) List(ctx context.Context, onlyActive bool) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.byID {
		if onlyActive && !m.Active {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *testRepo) SetActive(ctx context.Context, id string, active bool) error {
	m, ok := r.byID[id]
	if !ok {
		return errRepoNotFound
	}
	m.Active = active
	r.byID[id] = m
	return nil
}

func (r *testRepo) AdjustQuantity(ctx context.Context, id string, delta int) (Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return Medication{}, errRepoNotFound
	}
	m.Quantity += delta
	if m.Quantity < 0 {
		m.Quantity = 0
	}
	r.byID[id] = m
	return m, nil
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_Defaults(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), CreateInput{
		Name:          "  Enalapril  ",
		Quantity:      30,
		IntervalHours: 6,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if m.Name != "Enalapril" {
		t.Fatalf("expected trimmed name, got %q", m.Name)
	}
	if !m.Active {
		t.Fatalf("expected new medication active")
	}
	if !m.StartAt.Equal(now) {
		t.Fatalf("expected StartAt defaulted to now, got %v", m.StartAt)
	}
	if m.CreatedAt != now || m.UpdatedAt != now {
		t.Fatalf("expected CreatedAt/UpdatedAt to be now")
	}
}

func TestService_Create_RejectsInvalidInput(t *testing.T) {
	svc := NewService(newTestRepo())

	cases := []CreateInput{
		{Name: "", Quantity: 10, IntervalHours: 8},
		{Name: "   ", Quantity: 10, IntervalHours: 8},
		{Name: "Ibuprofeno", Quantity: 10, IntervalHours: 0},
		{Name: "Ibuprofeno", Quantity: 10, IntervalHours: -6},
		{Name: "Ibuprofeno", Quantity: -1, IntervalHours: 8},
	}
	for i, in := range cases {
		if _, err := svc.Create(context.Background(), in); err != ErrInvalidInput {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestService_Deactivate_KeepsRecord(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	m, err := svc.Create(context.Background(), CreateInput{
		Name: "Losartán", Quantity: 10, IntervalHours: 12,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := svc.Deactivate(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Deactivate error: %v", err)
	}
	if got.Active {
		t.Fatalf("expected inactive")
	}

	// Sigue existiendo: el historial lo referencia.
	if _, err := svc.GetByID(context.Background(), m.ID); err != nil {
		t.Fatalf("expected medication still retrievable, got %v", err)
	}

	active, _ := svc.ListActive(context.Background())
	if len(active) != 0 {
		t.Fatalf("expected no active medications, got %d", len(active))
	}
}

func TestService_DecrementQuantity_FloorsAtZero(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	m, err := svc.Create(context.Background(), CreateInput{
		Name: "Aspirina", Quantity: 1, IntervalHours: 24,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := svc.DecrementQuantity(context.Background(), m.ID, 1)
	if err != nil {
		t.Fatalf("DecrementQuantity error: %v", err)
	}
	if got.Quantity != 0 {
		t.Fatalf("expected 0, got %d", got.Quantity)
	}

	// Confirmar con stock en cero no rompe ni deja negativo.
	got, err = svc.DecrementQuantity(context.Background(), m.ID, 1)
	if err != nil {
		t.Fatalf("DecrementQuantity #2 error: %v", err)
	}
	if got.Quantity != 0 {
		t.Fatalf("expected floor at 0, got %d", got.Quantity)
	}
}

func TestService_Restock_AndLowStock(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	m, err := svc.Create(context.Background(), CreateInput{
		Name: "Metformina", Quantity: 2, IntervalHours: 8,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !m.LowStock() {
		t.Fatalf("expected low stock at 2 units")
	}

	if _, err := svc.Restock(context.Background(), m.ID, 0); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for 0 units, got %v", err)
	}

	got, err := svc.Restock(context.Background(), m.ID, 28)
	if err != nil {
		t.Fatalf("Restock error: %v", err)
	}
	if got.Quantity != 30 {
		t.Fatalf("expected 30, got %d", got.Quantity)
	}
	if got.LowStock() {
		t.Fatalf("expected no low stock at 30 units")
	}
}
