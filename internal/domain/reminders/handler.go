package reminders

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Scheduler es lo que el handler necesita del motor: invalidar los timers de
// un recordatorio resuelto y rearmar el de uno postergado.
type Scheduler interface {
	ArmReminder(r Reminder)
	DisarmReminder(id string)
}

func RegisterRoutes(r chi.Router, svc *Service, sched Scheduler) {
	r.Route("/reminders", func(rr chi.Router) {
		rr.Post("/{reminderID}/confirm", confirmReminderHandler(svc, sched))
		rr.Post("/{reminderID}/postpone", postponeReminderHandler(svc, sched))
	})

	r.Get("/medications/{medicationID}/reminders", listRemindersHandler(svc))
}

type reminderResponse struct {
	ID               string    `json:"id"`
	MedicationID     string    `json:"medication_id"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	OriginalAt       time.Time `json:"original_at"`
	Completed        bool      `json:"completed"`
	Postponements    int       `json:"postponements"`
	NotificationSent bool      `json:"notification_sent"`
	CreatedAt        time.Time `json:"created_at"`
}

func confirmReminderHandler(svc *Service, sched Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "reminderID")

		rem, err := svc.Confirm(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, ErrAlreadyResolved):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "reminder not found", http.StatusNotFound)
			}
			return
		}

		// Invalida auto-postergado y arranque de escalamiento pendientes.
		sched.DisarmReminder(rem.ID)

		writeJSON(w, http.StatusOK, toReminderResponse(rem))
	}
}

func postponeReminderHandler(svc *Service, sched Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "reminderID")

		rem, err := svc.Postpone(r.Context(), id, PostponeByUser)
		if err != nil {
			switch {
			case errors.Is(err, ErrAlreadyResolved):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "reminder not found", http.StatusNotFound)
			}
			return
		}

		sched.DisarmReminder(rem.ID)
		sched.ArmReminder(rem)

		writeJSON(w, http.StatusOK, toReminderResponse(rem))
	}
}

func listRemindersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicationID := chi.URLParam(r, "medicationID")
		onlyOpen := r.URL.Query().Get("open") == "true"

		items, err := svc.ListByMedication(r.Context(), medicationID, onlyOpen)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]reminderResponse, 0, len(items))
		for _, rem := range items {
			out = append(out, toReminderResponse(rem))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func toReminderResponse(rem Reminder) reminderResponse {
	return reminderResponse{
		ID:               rem.ID,
		MedicationID:     rem.MedicationID,
		ScheduledAt:      rem.ScheduledAt,
		OriginalAt:       rem.OriginalAt,
		Completed:        rem.Completed,
		Postponements:    rem.Postponements,
		NotificationSent: rem.NotificationSent,
		CreatedAt:        rem.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
