package history

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/medications/{medicationID}/history", listHistoryHandler(svc))
}

type entryResponse struct {
	ID            string     `json:"id"`
	MedicationID  string     `json:"medication_id"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
	Outcome       Outcome    `json:"outcome"`
	QuantityDelta int        `json:"quantity_delta"`
	RecordedAt    time.Time  `json:"recorded_at"`
}

func listHistoryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		medicationID := chi.URLParam(r, "medicationID")
		q := r.URL.Query()

		var filter ListFilter

		for _, raw := range q["outcome"] {
			switch Outcome(raw) {
			case OutcomeTaken, OutcomePostponed, OutcomeEscalated:
				filter.Outcomes = append(filter.Outcomes, Outcome(raw))
			default:
				http.Error(w, "unknown outcome: "+raw, http.StatusBadRequest)
				return
			}
		}

		if v := strings.TrimSpace(q.Get("from")); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "from must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.From = &t
		}
		if v := strings.TrimSpace(q.Get("to")); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "to must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.To = &t
		}
		if v := strings.TrimSpace(q.Get("limit")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			filter.Limit = n
		}

		items, err := svc.ListByMedication(r.Context(), medicationID, filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, entryResponse{
				ID:            e.ID,
				MedicationID:  e.MedicationID,
				ScheduledAt:   e.ScheduledAt,
				RespondedAt:   e.RespondedAt,
				Outcome:       e.Outcome,
				QuantityDelta: e.QuantityDelta,
				RecordedAt:    e.RecordedAt,
			})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
