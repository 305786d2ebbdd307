package router

import (
	"net/http"

	"medicare-reminders/internal/domain/history"
	"medicare-reminders/internal/domain/medications"
	"medicare-reminders/internal/domain/reminders"
	"medicare-reminders/internal/engine"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options recibe los services y el motor ya construidos: el wiring de repos
// (Postgres vs in-memory) vive en cmd/api, que también necesita el motor para
// correrlo aparte del HTTP.
type Options struct {
	Medications *medications.Service
	Reminders   *reminders.Service
	History     *history.Service
	Engine      *engine.Engine
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Rutas por módulo. El motor implementa los dos Scheduler.
	medications.RegisterRoutes(r, opts.Medications, opts.Engine)
	reminders.RegisterRoutes(r, opts.Reminders, opts.Engine)
	history.RegisterRoutes(r, opts.History)

	return r
}
