package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medicare-reminders/internal/adapters/contacts"
	"medicare-reminders/internal/adapters/notify/callgw"
	"medicare-reminders/internal/adapters/notify/local"
	"medicare-reminders/internal/adapters/notify/multi"
	"medicare-reminders/internal/adapters/notify/telegram"
	mem "medicare-reminders/internal/adapters/storage/memory"
	pg "medicare-reminders/internal/adapters/storage/postgres"
	"medicare-reminders/internal/domain/escalations"
	"medicare-reminders/internal/domain/history"
	"medicare-reminders/internal/domain/medications"
	"medicare-reminders/internal/domain/reminders"
	"medicare-reminders/internal/engine"
	"medicare-reminders/internal/platform/config"
	"medicare-reminders/internal/platform/logger"
	"medicare-reminders/internal/router"
)

func main() {
	cfg := config.FromEnv()
	log := logger.NewFromEnv()

	var (
		medsRepo medications.Repository
		remsRepo reminders.Repository
		escRepo  escalations.Repository
		histRepo history.Repository
	)

	if cfg.DBDSN != "" {
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			log.Error("cannot open database", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		defer db.Close()

		medsRepo = pg.NewMedicationsRepo(db)
		remsRepo = pg.NewRemindersRepo(db)
		escRepo = pg.NewEscalationsRepo(db)
		histRepo = pg.NewHistoryRepo(db)
		log.Info("storage: postgres", nil)
	} else {
		medsRepo = mem.NewMedicationsRepo()
		remsRepo = mem.NewRemindersRepo()
		escRepo = mem.NewEscalationsRepo()
		histRepo = mem.NewHistoryRepo()
		log.Warn("storage: in-memory (set DB_DSN for persistence)", nil)
	}

	// Services por módulo
	medsSvc := medications.NewService(medsRepo)
	histSvc := history.NewService(histRepo)
	remsSvc := reminders.NewService(remsRepo, medsSvc, histSvc, cfg.Engine.PostponeDelay)

	// Canales de notificación: alerta local siempre; Telegram y gateway de
	// llamadas solo si están configurados.
	dispatcher := &multi.Dispatcher{
		Alerts: local.NewPlayer(log),
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		sender, err := telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Error("telegram init failed", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		dispatcher.Messages = sender
	} else {
		log.Warn("telegram not configured: emergency messages disabled", nil)
	}
	if cfg.CallGatewayURL != "" {
		caller, err := callgw.New(cfg.CallGatewayURL)
		if err != nil {
			log.Error("call gateway init failed", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		dispatcher.Calls = caller
	} else {
		log.Warn("call gateway not configured: emergency calls disabled", nil)
	}

	resolver := contacts.NewStatic(cfg.ContactName, cfg.ContactPhone)

	escCtl := escalations.NewController(
		escRepo, remsRepo, medsSvc, histSvc,
		dispatcher, resolver, log,
		escalations.Timings{
			Start:            cfg.Engine.EscalationStart,
			Step:             cfg.Engine.LevelStep,
			ForceCallElapsed: cfg.Engine.ForceCallElapsed,
		},
		cfg.PatientName,
	)
	remsSvc.SetEscalator(escCtl)

	eng := engine.New(cfg.Engine, nil, log, medsSvc, remsSvc, remsRepo, escCtl, dispatcher)

	listener := &eventLogger{log: log}
	eng.SetEvents(listener)
	remsSvc.SetEvents(listener)
	escCtl.SetEvents(listener)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(ctx) }()

	r := router.NewRouter(router.Options{
		Medications: medsSvc,
		Reminders:   remsSvc,
		History:     histSvc,
		Engine:      eng,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.HTTPAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"err": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", map[string]any{"err": err.Error()})
	}

	if err := <-engineDone; err != nil {
		log.Error("engine stopped with error", map[string]any{"err": err.Error()})
	}
}

// eventLogger implementa los tres sets de callbacks hacia la "UI": acá la UI
// es el log estructurado; un front puede colgarse de estos mismos hooks.
type eventLogger struct {
	log logger.Logger
}

func (l *eventLogger) ReminderFired(rem reminders.Reminder) {
	l.log.Info("event: reminder fired", map[string]any{
		"reminder_id":   rem.ID,
		"medication_id": rem.MedicationID,
	})
}

func (l *eventLogger) DoseResolved(rem reminders.Reminder, outcome history.Outcome) {
	l.log.Info("event: dose resolved", map[string]any{
		"reminder_id":   rem.ID,
		"medication_id": rem.MedicationID,
		"outcome":       string(outcome),
	})
}

func (l *eventLogger) EscalationLevelReached(c escalations.Campaign, level int) {
	l.log.Info("event: escalation level reached", map[string]any{
		"campaign_id":   c.ID,
		"medication_id": c.MedicationID,
		"level":         level,
	})
}
