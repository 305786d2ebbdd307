package medications

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Scheduler es lo que el handler necesita del motor: generar la ventana de
// recordatorios al crear y cortar todo lo pendiente al desactivar.
type Scheduler interface {
	ScheduleMedication(ctx context.Context, m Medication) error
	CancelMedication(ctx context.Context, medicationID string) error
}

func RegisterRoutes(r chi.Router, svc *Service, sched Scheduler) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc, sched))
		mr.Get("/", listMedicationsHandler(svc))

		mr.Get("/{medicationID}", getMedicationHandler(svc))
		mr.Post("/{medicationID}/deactivate", deactivateMedicationHandler(svc, sched))
		mr.Post("/{medicationID}/restock", restockMedicationHandler(svc))
	})
}

type createMedicationRequest struct {
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	IntervalHours int    `json:"interval_hours"`
	StartAt       string `json:"start_at"` // RFC3339 opcional; vacío = ahora
}

type medicationResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity"`
	IntervalHours int       `json:"interval_hours"`
	StartAt       time.Time `json:"start_at"`
	Active        bool      `json:"active"`
	LowStock      bool      `json:"low_stock"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type restockRequest struct {
	Units int `json:"units"`
}

func createMedicationHandler(svc *Service, sched Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var startAt time.Time
		if strings.TrimSpace(req.StartAt) != "" {
			t, err := time.Parse(time.RFC3339, req.StartAt)
			if err != nil {
				http.Error(w, "start_at must be RFC3339", http.StatusBadRequest)
				return
			}
			startAt = t
		}

		m, err := svc.Create(r.Context(), CreateInput{
			Name:          req.Name,
			Quantity:      req.Quantity,
			IntervalHours: req.IntervalHours,
			StartAt:       startAt,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// La generación de la ventana es parte de la creación: si falla, el
		// medicamento quedó registrado igual y el rearme post-reinicio o el
		// barrido la completan.
		if err := sched.ScheduleMedication(r.Context(), m); err != nil {
			http.Error(w, "medication created but scheduling failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			items []Medication
			err   error
		)
		if r.URL.Query().Get("active") == "true" {
			items, err = svc.ListActive(r.Context())
		} else {
			items, err = svc.List(r.Context())
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "medicationID")
		m, err := svc.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func deactivateMedicationHandler(svc *Service, sched Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "medicationID")

		m, err := svc.Deactivate(r.Context(), id)
		if err != nil {
			if err == ErrInvalidInput {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		// Corta timers, recordatorios abiertos y campañas. El historial queda.
		if err := sched.CancelMedication(r.Context(), m.ID); err != nil {
			http.Error(w, "deactivated but cleanup failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func restockMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "medicationID")

		var req restockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Restock(r.Context(), id, req.Units)
		if err != nil {
			if err == ErrInvalidInput {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:            m.ID,
		Name:          m.Name,
		Quantity:      m.Quantity,
		IntervalHours: m.IntervalHours,
		StartAt:       m.StartAt,
		Active:        m.Active,
		LowStock:      m.LowStock(),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
